package wl

type roleKind int

const (
	roleNone roleKind = iota
	roleToplevel
	rolePopup
	roleExtension
)

// Role is the purpose that a surface has been given. A surface has at
// most one role for its whole lifetime, although the object that
// implements the role may be destroyed and recreated. Roles are
// comparable.
type Role struct {
	kind roleKind
	name string
}

var (
	RoleToplevel = Role{kind: roleToplevel, name: "xdg_toplevel"}
	RolePopup    = Role{kind: rolePopup, name: "xdg_popup"}
)

// ExtensionRole returns the role used by a protocol extension, such as
// "wl_subsurface" or "zwlr_layer_surface_v1".
func ExtensionRole(name string) Role {
	return Role{kind: roleExtension, name: name}
}

func (r Role) IsZero() bool {
	return r.kind == roleNone
}

func (r Role) String() string {
	if r.IsZero() {
		return "none"
	}
	return r.name
}

// RoleHandler is implemented by the object that gives a surface its
// role. PreCommit runs before any pending state is applied and may
// reject the commit with a protocol error. PostCommit runs after the
// new state is current but before change notifications are emitted.
type RoleHandler interface {
	PreCommit(pending *SurfaceState) error
	PostCommit()
}
