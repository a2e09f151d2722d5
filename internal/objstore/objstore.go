// Package objstore tracks the protocol objects that belong to a
// single client connection.
package objstore

import (
	"fmt"

	"deedles.dev/wlcore/wire"
	"golang.org/x/exp/slices"
)

type Store struct {
	objects map[uint32]wire.Object
	nextID  uint32
}

// New returns a store that assigns IDs starting at start to objects
// that are added without one.
func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		nextID:  start,
	}
}

// Add adds obj to the store. If obj has no ID, a new one is assigned
// from the store's range. Adding an object with an ID that is already
// in use is an error.
func (s *Store) Add(obj wire.Object) error {
	id := obj.ID()
	if id == 0 {
		for s.objects[s.nextID] != nil {
			s.nextID++
		}
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	if s.objects[id] != nil {
		return fmt.Errorf("object ID %v is already in use", id)
	}

	s.objects[id] = obj
	return nil
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

// Delete removes the object with the given ID and calls its Delete
// method. It returns false if there was no such object.
func (s *Store) Delete(id uint32) bool {
	obj := s.objects[id]
	delete(s.objects, id)
	if obj != nil {
		obj.Delete()
	}
	return obj != nil
}

// IDs returns the IDs of all objects in the store, newest first.
// Client-allocated IDs grow monotonically in practice, so the result
// is a reasonable teardown order.
func (s *Store) IDs() []uint32 {
	ids := make([]uint32, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids
}

func (s *Store) Len() int {
	return len(s.objects)
}
