package wl

// Interface names and the versions advertised for the core globals.
const (
	DisplayInterface    = "wl_display"
	RegistryInterface   = "wl_registry"
	CallbackInterface   = "wl_callback"
	CompositorInterface = "wl_compositor"
	CompositorVersion   = 5
	SurfaceInterface    = "wl_surface"
	RegionInterface     = "wl_region"
	ShmInterface        = "wl_shm"
	ShmVersion          = 1
	ShmPoolInterface    = "wl_shm_pool"
	BufferInterface     = "wl_buffer"
)

// wl_display
const (
	opDisplaySync = iota
	opDisplayGetRegistry
)

const (
	evDisplayError = iota
	evDisplayDeleteID
)

const (
	DisplayErrorInvalidObject uint32 = iota
	DisplayErrorInvalidMethod
	DisplayErrorNoMemory
	DisplayErrorImplementation
)

// wl_registry
const (
	opRegistryBind = iota
)

const (
	evRegistryGlobal = iota
	evRegistryGlobalRemove
)

// wl_callback
const (
	evCallbackDone = iota
)

// wl_compositor
const (
	opCompositorCreateSurface = iota
	opCompositorCreateRegion
)

// wl_region
const (
	opRegionDestroy = iota
	opRegionAdd
	opRegionSubtract
)

// wl_surface
const (
	opSurfaceDestroy = iota
	opSurfaceAttach
	opSurfaceDamage
	opSurfaceFrame
	opSurfaceSetOpaqueRegion
	opSurfaceSetInputRegion
	opSurfaceCommit
	opSurfaceSetBufferTransform
	opSurfaceSetBufferScale
	opSurfaceDamageBuffer
	opSurfaceOffset
)

const (
	SurfaceErrorInvalidScale uint32 = iota
	SurfaceErrorInvalidTransform
	SurfaceErrorInvalidSize
	SurfaceErrorInvalidOffset
	SurfaceErrorDefunctRoleObject
)

// wl_shm
const (
	opShmCreatePool = iota
)

const (
	evShmFormat = iota
)

const (
	ShmErrorInvalidFormat uint32 = iota
	ShmErrorInvalidStride
	ShmErrorInvalidFD
)

// ShmFormat is a pixel format of shared memory buffers. The values
// are those of the wl_shm.format enum.
type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0
	ShmFormatXrgb8888 ShmFormat = 1
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatArgb8888:
		return "argb8888"
	case ShmFormatXrgb8888:
		return "xrgb8888"
	}
	return "unknown"
}

// wl_shm_pool
const (
	opShmPoolCreateBuffer = iota
	opShmPoolDestroy
	opShmPoolResize
)

// wl_buffer
const (
	opBufferDestroy = iota
)

const (
	evBufferRelease = iota
)

// Transform is the rotation and flip that a client has applied to the
// contents of a buffer. The values are those of the
// wl_output.transform enum.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

func (t Transform) Valid() bool {
	return (t >= TransformNormal) && (t <= TransformFlipped270)
}

func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case Transform90:
		return "90"
	case Transform180:
		return "180"
	case Transform270:
		return "270"
	case TransformFlipped:
		return "flipped"
	case TransformFlipped90:
		return "flipped-90"
	case TransformFlipped180:
		return "flipped-180"
	case TransformFlipped270:
		return "flipped-270"
	}
	return "invalid"
}
