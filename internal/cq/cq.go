// Package cq implements a simple concurrent queue that hands out
// everything that has been added to it in one batch.
package cq

import "deedles.dev/xsync"

// Queue collects values sent to Add and yields them, in the order in
// which they were added, as a single batch converted by the function
// passed to New.
type Queue[T, B any] struct {
	stop xsync.Stopper
	bulk func([]T) B

	add chan T
	get chan B
}

func New[T, B any](bulk func([]T) B) *Queue[T, B] {
	q := Queue[T, B]{
		bulk: bulk,
		add:  make(chan T),
		get:  make(chan B),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that have not been retrieved are
// dropped. It is safe to call more than once.
func (q *Queue[T, B]) Stop() {
	q.stop.Stop()
}

// Done is closed when the queue is stopped.
func (q *Queue[T, B]) Done() <-chan struct{} {
	return q.stop.Done()
}

func (q *Queue[T, B]) Add() chan<- T {
	return q.add
}

// Get yields a batch whenever at least one value is queued.
func (q *Queue[T, B]) Get() <-chan B {
	return q.get
}

func (q *Queue[T, B]) run() {
	var s []T
	var get chan B

	for {
		select {
		case <-q.stop.Done():
			return

		case v := <-q.add:
			s = append(s, v)
			get = q.get

		case get <- q.bulk(s):
			s = nil
			get = nil
		}
	}
}
