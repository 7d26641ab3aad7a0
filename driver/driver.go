package driver

import (
	"context"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Loader is the entry point of a runtime.
type Loader interface {
	// EnumerateExtensions lists the extensions the runtime offers.
	EnumerateExtensions() ([]ExtensionProperties, error)

	// CreateInstance connects to the runtime.
	CreateInstance(info InstanceCreateInfo) (Instance, error)
}

// Instance is a connection to the runtime.
type Instance interface {
	Properties() (InstanceProperties, error)

	// GetSystem returns the system for the form factor or
	// ErrFormFactorUnavailable.
	GetSystem(formFactor FormFactor) (SystemID, error)
	SystemProperties(system SystemID) (SystemProperties, error)

	EnumerateViewConfigurations(system SystemID) ([]ViewConfigurationType, error)
	ViewConfigurationProperties(system SystemID, viewConfig ViewConfigurationType) (ViewConfigurationProperties, error)
	EnumerateViewConfigurationViews(system SystemID, viewConfig ViewConfigurationType) ([]ViewConfigurationView, error)

	StringToPath(path string) (Path, error)
	PathToString(path Path) (string, error)

	CreateActionSet(info ActionSetCreateInfo) (ActionSet, error)
	SuggestInteractionProfileBindings(profile Path, bindings []ActionSuggestedBinding) error

	// CreateDebugMessenger subscribes to diagnostic messages. It fails with
	// ErrExtensionNotPresent unless ExtensionDebugUtils was enabled.
	CreateDebugMessenger(info DebugMessengerCreateInfo) (DebugMessenger, error)

	// PollEvent returns the next queued event. ok is false when the
	// queue is empty.
	PollEvent() (ev Event, ok bool, err error)

	CreateSession(info SessionCreateInfo) (Session, error)

	Destroy() error
}

// DebugMessenger is a diagnostic subscription.
type DebugMessenger interface {
	Destroy() error
}

// SessionCreateInfo configures session creation.
type SessionCreateInfo struct {
	System SystemID

	// Binding is the host graphics device the session renders with. It is
	// the shared context handle of the host application.
	Binding gpucontext.DeviceProvider
}

// Session is the bound relationship between the application and a system.
type Session interface {
	BeginSession(viewConfig ViewConfigurationType) error
	EndSession() error
	RequestExitSession() error

	// WaitFrame blocks until the runtime wants the next frame.
	WaitFrame(ctx context.Context) (FrameState, error)
	BeginFrame() (Result, error)
	EndFrame(info FrameEndInfo) error

	LocateViews(info ViewLocateInfo) (ViewState, []View, error)

	EnumerateSwapchainFormats() ([]gputypes.TextureFormat, error)
	CreateSwapchain(info SwapchainCreateInfo) (Swapchain, error)

	EnumerateReferenceSpaces() ([]ReferenceSpaceType, error)
	CreateReferenceSpace(refType ReferenceSpaceType, poseInReferenceSpace Pose) (Space, error)
	ReferenceSpaceBoundsRect(refType ReferenceSpaceType) (Extent2Df, error)
	CreateActionSpace(action Action, subactionPath Path, poseInActionSpace Pose) (Space, error)

	AttachActionSets(sets []ActionSet) error
	SyncActions(active []ActiveActionSet) error
	CurrentInteractionProfile(topLevelPath Path) (Path, error)

	ActionStateBoolean(info ActionStateGetInfo) (ActionStateBoolean, error)
	ActionStateFloat(info ActionStateGetInfo) (ActionStateFloat, error)
	ActionStateVector2f(info ActionStateGetInfo) (ActionStateVector2f, error)
	ActionStatePose(info ActionStateGetInfo) (ActionStatePose, error)
	ApplyHapticFeedback(info ActionStateGetInfo, vibration HapticVibration) error
	StopHapticFeedback(info ActionStateGetInfo) error

	Destroy() error
}

// SwapchainCreateFlags modify swapchain creation.
type SwapchainCreateFlags uint32

const (
	// SwapchainCreateProtectedContent requests protected images.
	SwapchainCreateProtectedContent SwapchainCreateFlags = 1 << iota

	// SwapchainCreateStaticImage requests a swapchain whose single image
	// is acquired exactly once.
	SwapchainCreateStaticImage
)

// SwapchainCreateInfo describes a swapchain.
type SwapchainCreateInfo struct {
	CreateFlags SwapchainCreateFlags
	Usage       gputypes.TextureUsage
	Format      gputypes.TextureFormat
	SampleCount uint32
	Width       uint32
	Height      uint32
	FaceCount   uint32
	ArraySize   uint32
	MipCount    uint32
}

// Swapchain is a runtime-owned ring of images.
type Swapchain interface {
	// EnumerateImages returns the image ring. Images are backend specific;
	// they implement gpucontext.Texture and usually one of the
	// gpucontext upload interfaces.
	EnumerateImages() ([]gpucontext.Texture, error)

	AcquireImage() (uint32, error)

	// WaitImage blocks until the acquired image is writable. It returns
	// ErrTimeout when timeout elapses first.
	WaitImage(ctx context.Context, timeout time.Duration) error

	ReleaseImage() error
	Destroy() error
}

// Space is a coordinate frame.
type Space interface {
	// Locate resolves this space relative to base at time t.
	Locate(base Space, t Time) (SpaceLocation, error)
	Destroy() error
}

// ActionSet groups actions that are synchronised together.
type ActionSet interface {
	CreateAction(info ActionCreateInfo) (Action, error)
	Destroy() error
}

// Action is a logical input or output.
type Action interface {
	Name() string
	Type() ActionType
	Destroy() error
}
