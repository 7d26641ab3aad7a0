package driver

// CompositionLayerFlags modify how a layer is composited.
type CompositionLayerFlags uint32

const (
	LayerCorrectChromaticAberration CompositionLayerFlags = 1 << iota
	LayerBlendTextureSourceAlpha
	LayerUnpremultipliedAlpha
)

// EyeVisibility selects which eyes display a layer.
type EyeVisibility int

const (
	EyeVisibilityBoth EyeVisibility = iota
	EyeVisibilityLeft
	EyeVisibilityRight
)

// SwapchainSubImage references a region of a swapchain image.
type SwapchainSubImage struct {
	Swapchain       Swapchain
	ImageRect       Rect2Di
	ImageArrayIndex uint32
}

// CompositionLayer is one entry of the ordered layer list passed to
// Session.EndFrame. Implementations are the *Layer types of this package.
type CompositionLayer interface {
	// LayerSpace returns the space the layer is expressed in.
	LayerSpace() Space
}

// ProjectionView is one eye of a projection layer.
type ProjectionView struct {
	Pose     Pose
	Fov      Fov
	SubImage SwapchainSubImage
}

// ProjectionLayer covers the full field of view of every eye.
type ProjectionLayer struct {
	Flags CompositionLayerFlags
	Space Space
	Views []ProjectionView
}

// QuadLayer is a flat rectangle placed in the world.
type QuadLayer struct {
	Flags         CompositionLayerFlags
	Space         Space
	EyeVisibility EyeVisibility
	SubImage      SwapchainSubImage
	Pose          Pose
	Size          Extent2Df
}

// CylinderLayer is a curved rectangle on the inside of a cylinder.
type CylinderLayer struct {
	Flags         CompositionLayerFlags
	Space         Space
	EyeVisibility EyeVisibility
	SubImage      SwapchainSubImage
	Pose          Pose
	Radius        float32
	CentralAngle  float32
	AspectRatio   float32
}

// CubeLayer is a cubemap rendered at infinity.
type CubeLayer struct {
	Flags           CompositionLayerFlags
	Space           Space
	EyeVisibility   EyeVisibility
	Swapchain       Swapchain
	ImageArrayIndex uint32
	Orientation     Pose
}

// LayerSpace implements CompositionLayer.
func (l *ProjectionLayer) LayerSpace() Space { return l.Space }

// LayerSpace implements CompositionLayer.
func (l *QuadLayer) LayerSpace() Space { return l.Space }

// LayerSpace implements CompositionLayer.
func (l *CylinderLayer) LayerSpace() Space { return l.Space }

// LayerSpace implements CompositionLayer.
func (l *CubeLayer) LayerSpace() Space { return l.Space }

// FrameEndInfo is passed to Session.EndFrame.
type FrameEndInfo struct {
	DisplayTime          Time
	EnvironmentBlendMode EnvironmentBlendMode
	Layers               []CompositionLayer
}
