// Package sim is an in-process immersive runtime.
//
// The simulated runtime implements every interface of package driver without
// hardware: a two-eye stereo head-mounted display, paced frame timing,
// CPU-backed swapchain images and scriptable input. Session state changes are
// delivered as events exactly like a hardware runtime would deliver them, and
// the state machine can either advance on its own (the default) or be driven
// step by step from a test.
//
// Importing the package registers it with the xr driver registry under the
// name "sim":
//
//	import _ "github.com/gogpu/xr/driver/sim"
//
//	inst, err := xr.Create(xr.WithDriver("sim"))
//
// Tests usually construct a Runtime directly to keep a handle for scripting:
//
//	rt := sim.New(sim.WithAutoLifecycle(false))
//	inst, err := xr.Create(xr.WithLoader(rt))
//	rt.SetSessionState(driver.SessionStateReady)
package sim

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
)

// Name is the registry name of the simulated runtime.
const Name = "sim"

func init() {
	// Lowest priority: hardware runtimes always win when present.
	xr.Register(Name, 1, func() (driver.Loader, error) {
		return New(), nil
	}, nil)
}

// SimpleController is the interaction profile the runtime reports by default.
const SimpleController = "/interaction_profiles/khr/simple_controller"

// Option configures a Runtime.
type Option func(*options)

type options struct {
	extensions    []driver.ExtensionProperties
	system        driver.SystemProperties
	views         []driver.ViewConfigurationView
	fov           driver.Fov
	ipd           float32
	formats       []gputypes.TextureFormat
	imageCount    int
	framePeriod   time.Duration
	autoLifecycle bool
	profile       string
	logger        *slog.Logger
}

func defaultOptions() options {
	view := driver.ViewConfigurationView{
		RecommendedImageRectWidth:       640,
		MaxImageRectWidth:               2048,
		RecommendedImageRectHeight:      720,
		MaxImageRectHeight:              2048,
		RecommendedSwapchainSampleCount: 1,
		MaxSwapchainSampleCount:         4,
	}
	return options{
		extensions: []driver.ExtensionProperties{
			{Name: driver.ExtensionOpenGLEnable, Version: 10},
			{Name: driver.ExtensionWebGPUEnable, Version: 1},
			{Name: driver.ExtensionDebugUtils, Version: 4},
			{Name: driver.ExtensionCompositionCylinder, Version: 1},
			{Name: driver.ExtensionCompositionCube, Version: 8},
			{Name: driver.ExtensionCompositionDepth, Version: 6},
			{Name: driver.ExtensionVisibilityMask, Version: 2},
		},
		system: driver.SystemProperties{
			VendorID:              0x676f,
			SystemName:            "Simulated HMD",
			MaxLayerCount:         16,
			MaxSwapchainImageSize: driver.Extent2Di{Width: 4096, Height: 4096},
			OrientationTracking:   true,
			PositionTracking:      true,
		},
		views: []driver.ViewConfigurationView{view, view},
		fov: driver.Fov{
			AngleLeft:  -0.87,
			AngleRight: 0.78,
			AngleUp:    0.80,
			AngleDown:  -0.85,
		},
		ipd: 0.064,
		formats: []gputypes.TextureFormat{
			gputypes.TextureFormatRGBA8UnormSrgb,
			gputypes.TextureFormatBGRA8UnormSrgb,
			gputypes.TextureFormatRGBA8Unorm,
			gputypes.TextureFormatBGRA8Unorm,
			gputypes.TextureFormatDepth24PlusStencil8,
		},
		imageCount:    3,
		framePeriod:   0,
		autoLifecycle: true,
		profile:       SimpleController,
	}
}

// WithExtensions replaces the advertised extension list.
func WithExtensions(exts ...driver.ExtensionProperties) Option {
	return func(o *options) {
		o.extensions = exts
	}
}

// WithSystem replaces the reported system properties.
func WithSystem(props driver.SystemProperties) Option {
	return func(o *options) {
		o.system = props
	}
}

// WithViews replaces the primary stereo view configuration views.
func WithViews(views ...driver.ViewConfigurationView) Option {
	return func(o *options) {
		o.views = views
	}
}

// WithFov sets the field of view reported for both eyes. The right eye uses
// the mirrored angles.
func WithFov(fov driver.Fov) Option {
	return func(o *options) {
		o.fov = fov
	}
}

// WithSwapchainFormats replaces the supported swapchain formats, in runtime
// preference order.
func WithSwapchainFormats(formats ...gputypes.TextureFormat) Option {
	return func(o *options) {
		o.formats = formats
	}
}

// WithImageCount sets the number of images per swapchain.
func WithImageCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.imageCount = n
		}
	}
}

// WithFramePeriod paces WaitFrame to the given display period. Zero disables
// pacing.
func WithFramePeriod(d time.Duration) Option {
	return func(o *options) {
		o.framePeriod = d
	}
}

// WithAutoLifecycle controls whether the session advances through its states
// on its own. With auto lifecycle disabled, tests drive every transition with
// SetSessionState.
func WithAutoLifecycle(enabled bool) Option {
	return func(o *options) {
		o.autoLifecycle = enabled
	}
}

// WithInteractionProfile sets the interaction profile the simulated
// controllers report.
func WithInteractionProfile(profile string) Option {
	return func(o *options) {
		o.profile = profile
	}
}

// WithLogger sets the logger. Defaults to xr.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Runtime is the simulated runtime. It implements driver.Loader.
//
// All methods are safe for concurrent use.
type Runtime struct {
	opts options

	mu        sync.Mutex
	instance  *instance
	session   *session
	events    []driver.Event
	paths     map[string]driver.Path
	pathNames []string
	inputs    map[inputKey]*input
	suggested map[string][]binding
	stats     Stats
	frames    []Frame
	beginQ    []driver.Result
	render    *bool
	waitDelay time.Duration
}

// New creates a simulated runtime.
func New(opts ...Option) *Runtime {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime{
		opts:      o,
		paths:     make(map[string]driver.Path),
		pathNames: []string{""},
		inputs:    make(map[inputKey]*input),
	}
}

func (r *Runtime) logger() *slog.Logger {
	if r.opts.logger != nil {
		return r.opts.logger
	}
	return xr.Logger()
}

// EnumerateExtensions implements driver.Loader.
func (r *Runtime) EnumerateExtensions() ([]driver.ExtensionProperties, error) {
	out := make([]driver.ExtensionProperties, len(r.opts.extensions))
	copy(out, r.opts.extensions)
	return out, nil
}

// CreateInstance implements driver.Loader. Debug messenger callbacks run
// synchronously and must not call back into the runtime.
func (r *Runtime) CreateInstance(info driver.InstanceCreateInfo) (driver.Instance, error) {
	offered := make(map[string]bool, len(r.opts.extensions))
	for _, e := range r.opts.extensions {
		offered[e.Name] = true
	}
	enabled := make(map[string]bool, len(info.Extensions))
	for _, name := range info.Extensions {
		if !offered[name] {
			return nil, driver.ErrExtensionNotPresent
		}
		enabled[name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst := &instance{rt: r, app: info.Application, enabled: enabled}
	if info.Messenger != nil {
		if !enabled[driver.ExtensionDebugUtils] {
			return nil, driver.ErrExtensionNotPresent
		}
		inst.messengers = append(inst.messengers, &messenger{inst: inst, info: *info.Messenger})
	}
	r.instance = inst
	r.stats.Instances++
	inst.emitLocked(driver.DebugSeverityInfo, driver.DebugTypeGeneral, "xrCreateInstance",
		"instance created for "+info.Application.ApplicationName)
	return inst, nil
}

// Stats counts runtime calls. Tests use it to verify protocol usage.
type Stats struct {
	Instances        int
	Sessions         int
	BeginSession     int
	EndSession       int
	RequestExit      int
	WaitFrame        int
	BeginFrame       int
	EndFrame         int
	SyncActions      int
	AttachActionSets int
	Haptics          []driver.HapticVibration
	SwapchainsLive   int
	AcquireImage     int
	ReleaseImage     int
}

// Frame records one EndFrame submission.
type Frame struct {
	DisplayTime driver.Time
	Layers      []driver.CompositionLayer
}

// Stats returns a snapshot of the call counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Haptics = append([]driver.HapticVibration(nil), r.stats.Haptics...)
	return s
}

// Frames returns the submitted frames in order.
func (r *Runtime) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// SessionState returns the runtime-side state of the current session.
func (r *Runtime) SessionState() driver.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return driver.SessionStateUnknown
	}
	return r.session.state
}

// Binding returns the graphics binding the current session was created
// with.
func (r *Runtime) Binding() gpucontext.DeviceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	return r.session.binding
}

// SetSessionState moves the current session to state and queues the
// matching SessionStateChanged event. It is a no-op without a session.
func (r *Runtime) SetSessionState(state driver.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.transitionLocked(state)
	}
}

// PushEvent queues an arbitrary event.
func (r *Runtime) PushEvent(ev driver.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// LoseInstance queues an InstanceLossPending event.
func (r *Runtime) LoseInstance(at driver.Time) {
	r.PushEvent(driver.InstanceLossPending{LossTime: at})
}

// QueueBeginResult makes the next BeginFrame calls return the given results
// instead of ResultSuccess, one per call.
func (r *Runtime) QueueBeginResult(results ...driver.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginQ = append(r.beginQ, results...)
}

// SetShouldRender overrides FrameState.ShouldRender. Passing nil restores
// the state-derived default (true while Visible or Focused).
func (r *Runtime) SetShouldRender(v *bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.render = v
}

// SetImageWaitDelay makes Swapchain.WaitImage block for d before the image
// becomes writable.
func (r *Runtime) SetImageWaitDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waitDelay = d
}

// SetInteractionProfile switches the simulated controllers to profile and
// queues InteractionProfileChanged.
func (r *Runtime) SetInteractionProfile(profile string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.profile = profile
	if r.session != nil {
		r.events = append(r.events, driver.InteractionProfileChanged{Session: r.session})
	}
}

// pathLocked interns s.
func (r *Runtime) pathLocked(s string) driver.Path {
	if p, ok := r.paths[s]; ok {
		return p
	}
	p := driver.Path(len(r.pathNames))
	r.paths[s] = p
	r.pathNames = append(r.pathNames, s)
	return p
}

func (r *Runtime) pathStringLocked(p driver.Path) (string, bool) {
	if p == driver.NullPath || int(p) >= len(r.pathNames) {
		return "", false
	}
	return r.pathNames[p], true
}
