package xdg

const (
	WmBaseInterface     = "xdg_wm_base"
	WmBaseVersion       = 3
	PositionerInterface = "xdg_positioner"
	SurfaceInterface    = "xdg_surface"
	ToplevelInterface   = "xdg_toplevel"
	PopupInterface      = "xdg_popup"
)

// xdg_wm_base
const (
	opWmBaseDestroy = iota
	opWmBaseCreatePositioner
	opWmBaseGetXdgSurface
	opWmBasePong
)

const (
	evWmBasePing = iota
)

const (
	WmBaseErrorRole uint32 = iota
	WmBaseErrorDefunctSurfaces
	WmBaseErrorNotTheTopmostPopup
	WmBaseErrorInvalidPopupParent
	WmBaseErrorInvalidSurfaceState
	WmBaseErrorInvalidPositioner
	WmBaseErrorUnresponsive
)

// xdg_positioner
const (
	opPositionerDestroy = iota
	opPositionerSetSize
	opPositionerSetAnchorRect
	opPositionerSetAnchor
	opPositionerSetGravity
	opPositionerSetConstraintAdjustment
	opPositionerSetOffset
	opPositionerSetReactive
	opPositionerSetParentSize
	opPositionerSetParentConfigure
)

const (
	PositionerErrorInvalidInput uint32 = 0
)

// xdg_surface
const (
	opSurfaceDestroy = iota
	opSurfaceGetToplevel
	opSurfaceGetPopup
	opSurfaceSetWindowGeometry
	opSurfaceAckConfigure
)

const (
	evSurfaceConfigure = iota
)

const (
	SurfaceErrorNotConstructed uint32 = iota + 1
	SurfaceErrorAlreadyConstructed
	SurfaceErrorUnconfiguredBuffer
	SurfaceErrorInvalidSerial
	SurfaceErrorInvalidSize
	SurfaceErrorDefunctRoleObject
)

// xdg_toplevel
const (
	opToplevelDestroy = iota
	opToplevelSetParent
	opToplevelSetTitle
	opToplevelSetAppID
	opToplevelShowWindowMenu
	opToplevelMove
	opToplevelResize
	opToplevelSetMaxSize
	opToplevelSetMinSize
	opToplevelSetMaximized
	opToplevelUnsetMaximized
	opToplevelSetFullscreen
	opToplevelUnsetFullscreen
	opToplevelSetMinimized
)

const (
	evToplevelConfigure = iota
	evToplevelClose
)

const (
	ToplevelErrorInvalidResizeEdge uint32 = iota
	ToplevelErrorInvalidParent
	ToplevelErrorInvalidSize
)

// xdg_popup
const (
	opPopupDestroy = iota
	opPopupGrab
	opPopupReposition
)

const (
	evPopupConfigure = iota
	evPopupPopupDone
	evPopupRepositioned
)

const (
	PopupErrorInvalidGrab uint32 = 0
)
