package xr

import (
	"log/slog"
	"time"

	"github.com/gogpu/xr/driver"
)

// InstanceOption configures Create.
//
// Example:
//
//	// Best available runtime, defaults everywhere
//	inst, err := xr.Create()
//
//	// Explicit driver with runtime diagnostics forwarded to the logger
//	inst, err := xr.Create(xr.WithDriver("sim"), xr.WithDebugMessenger(true))
type InstanceOption func(*instanceOptions)

type instanceOptions struct {
	driverName string
	loader     driver.Loader
	app        driver.ApplicationInfo
	graphics   string
	required   []string
	optional   []string
	debug      bool
	severities driver.DebugMessageSeverity
	formFactor driver.FormFactor
	logger     *slog.Logger
}

func defaultInstanceOptions() instanceOptions {
	return instanceOptions{
		app: driver.ApplicationInfo{
			ApplicationName: "gogpu-xr",
			EngineName:      "gogpu",
			APIVersion:      driver.MakeVersion(1, 0, 0),
		},
		graphics: driver.ExtensionWebGPUEnable,
		optional: []string{
			driver.ExtensionCompositionCylinder,
			driver.ExtensionCompositionCube,
			driver.ExtensionCompositionDepth,
		},
		severities: driver.DebugSeverityAll,
		formFactor: driver.FormFactorHeadMountedDisplay,
	}
}

// WithDriver selects a registered runtime driver by name.
func WithDriver(name string) InstanceOption {
	return func(o *instanceOptions) {
		o.driverName = name
	}
}

// WithLoader uses l directly instead of the driver registry.
func WithLoader(l driver.Loader) InstanceOption {
	return func(o *instanceOptions) {
		o.loader = l
	}
}

// WithApplicationName sets the application name reported to the runtime.
func WithApplicationName(name string) InstanceOption {
	return func(o *instanceOptions) {
		o.app.ApplicationName = name
	}
}

// WithGraphicsExtension sets the mandatory graphics enable extension.
// Create fails with a *MissingExtensionError when the runtime does not offer
// it. The default is driver.ExtensionWebGPUEnable.
func WithGraphicsExtension(name string) InstanceOption {
	return func(o *instanceOptions) {
		o.graphics = name
	}
}

// WithRequiredExtensions adds further mandatory extensions.
func WithRequiredExtensions(names ...string) InstanceOption {
	return func(o *instanceOptions) {
		o.required = append(o.required, names...)
	}
}

// WithOptionalExtensions replaces the extensions that are enabled only when
// the runtime offers them.
func WithOptionalExtensions(names ...string) InstanceOption {
	return func(o *instanceOptions) {
		o.optional = names
	}
}

// WithDebugMessenger enables the debug utils extension, when offered, and
// forwards runtime diagnostics to the logger.
func WithDebugMessenger(enabled bool) InstanceOption {
	return func(o *instanceOptions) {
		o.debug = enabled
	}
}

// WithDebugSeverities limits which diagnostic severities are forwarded.
func WithDebugSeverities(sev driver.DebugMessageSeverity) InstanceOption {
	return func(o *instanceOptions) {
		o.severities = sev
	}
}

// WithFormFactor selects the system form factor.
func WithFormFactor(ff driver.FormFactor) InstanceOption {
	return func(o *instanceOptions) {
		o.formFactor = ff
	}
}

// WithInstanceLogger sets the logger of the instance. Defaults to Logger().
func WithInstanceLogger(l *slog.Logger) InstanceOption {
	return func(o *instanceOptions) {
		o.logger = l
	}
}

// ContextOption configures NewContext.
type ContextOption func(*contextOptions)

type contextOptions struct {
	referenceSpace driver.ReferenceSpaceType
	blendMode      driver.EnvironmentBlendMode
	near, far      float32
	binder         []BinderOption
	onEvent        func(driver.Event)
	onState        func(from, to driver.SessionState)
	beforeState    func(from, to driver.SessionState)
	logger         *slog.Logger
}

func defaultContextOptions() contextOptions {
	return contextOptions{
		referenceSpace: driver.ReferenceSpaceLocal,
		blendMode:      driver.BlendModeOpaque,
		near:           DefaultNear,
		far:            DefaultFar,
	}
}

// WithReferenceSpace selects the base space poses are resolved in.
// The default is driver.ReferenceSpaceLocal.
func WithReferenceSpace(t driver.ReferenceSpaceType) ContextOption {
	return func(o *contextOptions) {
		o.referenceSpace = t
	}
}

// WithBlendMode sets the environment blend mode used at frame end.
func WithBlendMode(m driver.EnvironmentBlendMode) ContextOption {
	return func(o *contextOptions) {
		o.blendMode = m
	}
}

// WithClipPlanes sets the near and far planes of the eye projections.
func WithClipPlanes(near, far float32) ContextOption {
	return func(o *contextOptions) {
		o.near, o.far = near, far
	}
}

// WithBinderOptions configures the action binder owned by the context.
func WithBinderOptions(opts ...BinderOption) ContextOption {
	return func(o *contextOptions) {
		o.binder = append(o.binder, opts...)
	}
}

// WithEventHook calls fn for every polled event after the context has
// processed it. Interaction profile changes, reference space change
// notifications and lost events are only observable this way.
func WithEventHook(fn func(driver.Event)) ContextOption {
	return func(o *contextOptions) {
		o.onEvent = fn
	}
}

// WithStateHook calls fn on every session state transition, after the
// session has been begun, ended or destroyed as the new state requires.
func WithStateHook(fn func(from, to driver.SessionState)) ContextOption {
	return func(o *contextOptions) {
		o.onState = fn
	}
}

// WithBeforeStateHook calls fn on every session state transition before
// the context acts on it. Resources that render into session swapchains
// must be stopped here for Stopping, Exiting and LossPending.
func WithBeforeStateHook(fn func(from, to driver.SessionState)) ContextOption {
	return func(o *contextOptions) {
		o.beforeState = fn
	}
}

// WithContextLogger sets the logger of the context. Defaults to Logger().
func WithContextLogger(l *slog.Logger) ContextOption {
	return func(o *contextOptions) {
		o.logger = l
	}
}

// HapticConfig describes the pulse fired when a squeeze crosses Threshold.
type HapticConfig struct {
	Threshold float32
	Amplitude float32
	Duration  time.Duration
	Frequency float32
}

// DefaultHaptics fires a minimum length pulse at half amplitude when the
// squeeze exceeds 0.7.
var DefaultHaptics = HapticConfig{
	Threshold: 0.7,
	Amplitude: 0.5,
	Duration:  driver.MinHapticDuration,
	Frequency: driver.FrequencyUnspecified,
}

// BinderOption configures an ActionBinder.
type BinderOption func(*binderOptions)

type binderOptions struct {
	setName  string
	profiles []BindingProfile
	haptics  HapticConfig
	logger   *slog.Logger
}

func defaultBinderOptions() binderOptions {
	return binderOptions{
		setName:  "gameplay",
		profiles: DefaultBindingProfiles(),
		haptics:  DefaultHaptics,
	}
}

// WithBindingProfiles replaces the interaction profiles bindings are
// suggested for.
func WithBindingProfiles(profiles ...BindingProfile) BinderOption {
	return func(o *binderOptions) {
		o.profiles = profiles
	}
}

// WithExtraBindingProfiles appends profiles to the defaults. A profile whose
// path is already present replaces the earlier entry.
func WithExtraBindingProfiles(profiles ...BindingProfile) BinderOption {
	return func(o *binderOptions) {
		o.profiles = mergeProfiles(o.profiles, profiles)
	}
}

// WithHaptics overrides the squeeze haptic pulse.
func WithHaptics(cfg HapticConfig) BinderOption {
	return func(o *binderOptions) {
		o.haptics = cfg
	}
}

// WithActionSetName sets the name of the action set.
func WithActionSetName(name string) BinderOption {
	return func(o *binderOptions) {
		o.setName = name
	}
}

// WithBinderLogger sets the logger of the binder.
func WithBinderLogger(l *slog.Logger) BinderOption {
	return func(o *binderOptions) {
		o.logger = l
	}
}
