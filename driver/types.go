package driver

import (
	"math"
	"time"

	"golang.org/x/image/math/f32"
)

// Time is a runtime timestamp in nanoseconds.
type Time int64

// Add returns t shifted by d.
func (t Time) Add(d time.Duration) Time { return t + Time(d) }

// InfiniteDuration requests an unbounded wait.
const InfiniteDuration = time.Duration(math.MaxInt64)

// MinHapticDuration asks the runtime for the shortest pulse it supports.
const MinHapticDuration = time.Duration(-1)

// FrequencyUnspecified lets the runtime choose the haptic frequency.
const FrequencyUnspecified float32 = 0

// Result is a non-error status code returned by frame calls.
type Result int

const (
	// ResultSuccess means the call completed normally.
	ResultSuccess Result = iota

	// ResultFrameDiscarded means the frame was begun but its predecessor
	// was discarded by the runtime.
	ResultFrameDiscarded

	// ResultSessionLossPending means the session will be lost shortly.
	ResultSessionLossPending
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultFrameDiscarded:
		return "FrameDiscarded"
	case ResultSessionLossPending:
		return "SessionLossPending"
	default:
		return "Unknown"
	}
}

// SessionState is the lifecycle state of a session.
type SessionState int

const (
	SessionStateUnknown SessionState = iota
	SessionStateIdle
	SessionStateReady
	SessionStateSynchronized
	SessionStateVisible
	SessionStateFocused
	SessionStateStopping
	SessionStateLossPending
	SessionStateExiting
)

var sessionStateNames = [...]string{
	SessionStateUnknown:      "Unknown",
	SessionStateIdle:         "Idle",
	SessionStateReady:        "Ready",
	SessionStateSynchronized: "Synchronized",
	SessionStateVisible:      "Visible",
	SessionStateFocused:      "Focused",
	SessionStateStopping:     "Stopping",
	SessionStateLossPending:  "LossPending",
	SessionStateExiting:      "Exiting",
}

// String returns the state name.
func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return "Unknown"
	}
	return sessionStateNames[s]
}

// FormFactor identifies the class of device a system belongs to.
type FormFactor int

const (
	FormFactorHeadMountedDisplay FormFactor = iota + 1
	FormFactorHandheldDisplay
)

// ViewConfigurationType identifies a view layout.
type ViewConfigurationType int

const (
	ViewConfigurationPrimaryMono ViewConfigurationType = iota + 1
	ViewConfigurationPrimaryStereo
)

// String returns the view configuration name.
func (v ViewConfigurationType) String() string {
	switch v {
	case ViewConfigurationPrimaryMono:
		return "PrimaryMono"
	case ViewConfigurationPrimaryStereo:
		return "PrimaryStereo"
	default:
		return "Unknown"
	}
}

// ReferenceSpaceType identifies a well-known coordinate frame.
type ReferenceSpaceType int

const (
	ReferenceSpaceView ReferenceSpaceType = iota + 1
	ReferenceSpaceLocal
	ReferenceSpaceStage
)

// String returns the reference space name.
func (r ReferenceSpaceType) String() string {
	switch r {
	case ReferenceSpaceView:
		return "View"
	case ReferenceSpaceLocal:
		return "Local"
	case ReferenceSpaceStage:
		return "Stage"
	default:
		return "Unknown"
	}
}

// EnvironmentBlendMode controls how layers blend with the real world.
type EnvironmentBlendMode int

const (
	BlendModeOpaque EnvironmentBlendMode = iota + 1
	BlendModeAdditive
	BlendModeAlphaBlend
)

// Pose is a rigid transform. Orientation is a unit quaternion (x, y, z, w).
type Pose struct {
	Orientation f32.Vec4
	Position    f32.Vec3
}

// IdentityPose is the pose with no rotation and no translation.
var IdentityPose = Pose{Orientation: f32.Vec4{0, 0, 0, 1}}

// Fov is an asymmetric field of view in radians.
// Left and Down are normally negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// Offset2Di is an integer offset.
type Offset2Di struct {
	X, Y int32
}

// Extent2Di is an integer size.
type Extent2Di struct {
	Width, Height int32
}

// Extent2Df is a size in meters.
type Extent2Df struct {
	Width, Height float32
}

// Rect2Di is an integer rectangle.
type Rect2Di struct {
	Offset Offset2Di
	Extent Extent2Di
}

// ExtensionProperties describes one runtime extension.
type ExtensionProperties struct {
	Name    string
	Version uint32
}

// Well-known extension names.
const (
	ExtensionOpenGLEnable         = "XR_KHR_opengl_enable"
	ExtensionOpenGLESEnable       = "XR_KHR_opengl_es_enable"
	ExtensionVulkanEnable         = "XR_KHR_vulkan_enable"
	ExtensionDebugUtils           = "XR_EXT_debug_utils"
	ExtensionCompositionCylinder  = "XR_KHR_composition_layer_cylinder"
	ExtensionCompositionCube      = "XR_KHR_composition_layer_cube"
	ExtensionCompositionDepth     = "XR_KHR_composition_layer_depth"
	ExtensionVisibilityMask       = "XR_KHR_visibility_mask"
	ExtensionWebGPUEnable         = "XR_GOGPU_webgpu_enable"
	ExtensionHandTracking         = "XR_EXT_hand_tracking"
	ExtensionPerformanceSettings  = "XR_EXT_performance_settings"
	ExtensionThermalQuery         = "XR_EXT_thermal_query"
	ExtensionEyeGazeInteraction   = "XR_EXT_eye_gaze_interaction"
	ExtensionLocalFloorReferences = "XR_EXT_local_floor"
)

// ApplicationInfo identifies the application to the runtime.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         Version
}

// Version is a packed major.minor.patch version.
type Version uint64

// MakeVersion packs a version number.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(uint64(major)<<48 | uint64(minor)<<32 | uint64(patch))
}

// Major returns the major component.
func (v Version) Major() uint32 { return uint32(v >> 48) }

// Minor returns the minor component.
func (v Version) Minor() uint32 { return uint32(v>>32) & 0xffff }

// Patch returns the patch component.
func (v Version) Patch() uint32 { return uint32(v) }

// InstanceCreateInfo configures instance creation.
type InstanceCreateInfo struct {
	Application ApplicationInfo
	Extensions  []string
	// Messenger, when non-nil, is installed together with the instance so
	// that messages emitted during creation are delivered.
	Messenger *DebugMessengerCreateInfo
}

// InstanceProperties describes the runtime behind an instance.
type InstanceProperties struct {
	RuntimeName    string
	RuntimeVersion Version
}

// SystemID identifies a physical device class.
type SystemID uint64

// NullSystemID is the invalid system id.
const NullSystemID SystemID = 0

// SystemProperties describes a system.
type SystemProperties struct {
	SystemID              SystemID
	VendorID              uint32
	SystemName            string
	MaxLayerCount         uint32
	MaxSwapchainImageSize Extent2Di
	OrientationTracking   bool
	PositionTracking      bool
}

// ViewConfigurationProperties describes a view configuration.
type ViewConfigurationProperties struct {
	Type       ViewConfigurationType
	FovMutable bool
}

// ViewConfigurationView holds per-view image recommendations.
type ViewConfigurationView struct {
	RecommendedImageRectWidth       uint32
	MaxImageRectWidth               uint32
	RecommendedImageRectHeight      uint32
	MaxImageRectHeight              uint32
	RecommendedSwapchainSampleCount uint32
	MaxSwapchainSampleCount         uint32
}

// FrameState is produced by WaitFrame.
type FrameState struct {
	PredictedDisplayTime   Time
	PredictedDisplayPeriod time.Duration
	ShouldRender           bool
}

// ViewStateFlags reports validity of located views.
type ViewStateFlags uint32

const (
	ViewStateOrientationValid ViewStateFlags = 1 << iota
	ViewStatePositionValid
	ViewStateOrientationTracked
	ViewStatePositionTracked
)

// ViewState accompanies a LocateViews result.
type ViewState struct {
	Flags ViewStateFlags
}

// View is one located eye view.
type View struct {
	Pose Pose
	Fov  Fov
}

// ViewLocateInfo selects which views to locate.
type ViewLocateInfo struct {
	ViewConfiguration ViewConfigurationType
	DisplayTime       Time
	Space             Space
}

// Path is an interned semantic path such as "/user/hand/left".
type Path uint64

// NullPath is the empty path.
const NullPath Path = 0

// SpaceLocationFlags reports validity of a located space.
type SpaceLocationFlags uint32

const (
	SpaceLocationOrientationValid SpaceLocationFlags = 1 << iota
	SpaceLocationPositionValid
	SpaceLocationOrientationTracked
	SpaceLocationPositionTracked
)

// SpaceLocation is the result of locating a space.
type SpaceLocation struct {
	Flags SpaceLocationFlags
	Pose  Pose
}

// ActionType is the value kind of an action.
type ActionType int

const (
	ActionTypeBooleanInput ActionType = iota + 1
	ActionTypeFloatInput
	ActionTypeVector2fInput
	ActionTypePoseInput
	ActionTypeVibrationOutput
)

// String returns the action type name.
func (t ActionType) String() string {
	switch t {
	case ActionTypeBooleanInput:
		return "boolean"
	case ActionTypeFloatInput:
		return "float"
	case ActionTypeVector2fInput:
		return "vector2f"
	case ActionTypePoseInput:
		return "pose"
	case ActionTypeVibrationOutput:
		return "vibration"
	default:
		return "unknown"
	}
}

// ActionSetCreateInfo describes an action set.
type ActionSetCreateInfo struct {
	Name          string
	LocalizedName string
	Priority      uint32
}

// ActionCreateInfo describes an action.
type ActionCreateInfo struct {
	Name           string
	Type           ActionType
	SubactionPaths []Path
	LocalizedName  string
}

// ActionSuggestedBinding pairs an action with a hardware input path.
type ActionSuggestedBinding struct {
	Action  Action
	Binding Path
}

// ActiveActionSet selects an action set for synchronisation.
type ActiveActionSet struct {
	ActionSet     ActionSet
	SubactionPath Path
}

// ActionStateGetInfo selects the action and subaction to query.
type ActionStateGetInfo struct {
	Action        Action
	SubactionPath Path
}

// ActionStateBoolean is the state of a boolean action.
type ActionStateBoolean struct {
	CurrentState         bool
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStateFloat is the state of a scalar action.
type ActionStateFloat struct {
	CurrentState         float32
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStateVector2f is the state of a two-axis action.
type ActionStateVector2f struct {
	CurrentState         f32.Vec2
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStatePose reports whether a pose action is bound and active.
type ActionStatePose struct {
	IsActive bool
}

// HapticVibration is a haptic pulse.
type HapticVibration struct {
	Duration  time.Duration
	Frequency float32
	Amplitude float32
}

// DebugMessageSeverity is a bit set of message severities.
type DebugMessageSeverity uint32

const (
	DebugSeverityVerbose DebugMessageSeverity = 1 << (4 * iota)
	DebugSeverityInfo
	DebugSeverityWarning
	DebugSeverityError

	DebugSeverityAll = DebugSeverityVerbose | DebugSeverityInfo | DebugSeverityWarning | DebugSeverityError
)

// DebugMessageType is a bit set of message categories.
type DebugMessageType uint32

const (
	DebugTypeGeneral DebugMessageType = 1 << iota
	DebugTypeValidation
	DebugTypePerformance
	DebugTypeConformance

	DebugTypeAll = DebugTypeGeneral | DebugTypeValidation | DebugTypePerformance | DebugTypeConformance
)

// DebugMessage is a diagnostic message emitted by the runtime.
type DebugMessage struct {
	Severity     DebugMessageSeverity
	Type         DebugMessageType
	MessageID    string
	FunctionName string
	Message      string
}

// DebugMessengerCreateInfo subscribes to diagnostic messages.
type DebugMessengerCreateInfo struct {
	Severities DebugMessageSeverity
	Types      DebugMessageType
	Callback   func(DebugMessage)
}
