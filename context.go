package xr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

// EyeState is the per-frame view of one eye.
type EyeState struct {
	Pose       Pose
	Fov        Fov
	Projection f32.Mat4
}

// destroyer is a session-scoped resource owned by a Context.
type destroyer interface {
	Destroy() error
}

// Context coordinates one session: it follows the session state machine
// through polled events, drives the frame protocol and owns the action
// binder and the session-scoped resources.
//
// Session state only changes inside PollEvents. A Context is used from a
// single goroutine. Context implements io.Closer.
type Context struct {
	inst   *Instance
	log    *slog.Logger
	id     uuid.UUID
	opts   contextOptions
	binder *ActionBinder

	session driver.Session
	space   driver.Space

	state        driver.SessionState
	stopped      bool
	instanceLost bool
	lossTime     driver.Time

	frameState   driver.FrameState
	beginResult  driver.Result
	frameBegun   bool
	shouldRender bool

	viewState driver.ViewStateFlags
	eyes      [2]EyeState

	resources []destroyer
	destroyed bool
}

// NewContext creates the context and its action binder for inst. The
// session itself is created by CreateSession.
func NewContext(inst *Instance, opts ...ContextOption) (*Context, error) {
	if inst == nil || inst.Destroyed() {
		return nil, ErrInstanceDestroyed
	}
	o := defaultContextOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	log := o.logger
	if log == nil {
		log = inst.log
	}
	log = log.With("session_id", id.String())

	binderOpts := append([]BinderOption{WithBinderLogger(log)}, o.binder...)
	binder, err := NewActionBinder(inst, binderOpts...)
	if err != nil {
		return nil, err
	}

	c := &Context{
		inst:        inst,
		log:         log,
		id:          id,
		opts:        o,
		binder:      binder,
		beginResult: driver.ResultFrameDiscarded,
	}
	for i := range c.eyes {
		c.eyes[i].Pose = IdentityPose
	}
	return c, nil
}

// ID returns the correlation id attached to the context's log records.
func (c *Context) ID() uuid.UUID { return c.id }

// Instance returns the instance the context was created for.
func (c *Context) Instance() *Instance { return c.inst }

// Binder returns the action binder.
func (c *Context) Binder() *ActionBinder { return c.binder }

// Session returns the driver session, or nil.
func (c *Context) Session() driver.Session { return c.session }

// Space returns the base reference space, or nil.
func (c *Context) Space() driver.Space { return c.space }

// CreateSession creates the session bound to the host device, the base
// reference space, and attaches the action bindings.
//
// binding is the shared context handle of the host application.
func (c *Context) CreateSession(binding gpucontext.DeviceProvider) error {
	if c.destroyed {
		return ErrInstanceDestroyed
	}
	if c.session != nil {
		return ErrSessionExists
	}
	s, err := c.inst.Handle().CreateSession(driver.SessionCreateInfo{
		System:  c.inst.System(),
		Binding: binding,
	})
	if err != nil {
		return setupErr("create session", err)
	}
	c.session = s
	c.stopped = false

	space, err := s.CreateReferenceSpace(c.opts.referenceSpace, IdentityPose)
	if err != nil {
		_ = c.DestroySession()
		return setupErr("create reference space", err)
	}
	c.space = space

	if err := c.binder.AttachTo(s); err != nil {
		_ = c.DestroySession()
		return setupErr("attach bindings", err)
	}
	c.log.Info("xr: session created", "reference_space", c.opts.referenceSpace)
	return nil
}

// PollEvents drains every pending runtime event and applies it. It must be
// called once per loop iteration, with or without a session, since
// instance-level events arrive regardless.
func (c *Context) PollEvents() error {
	if c.inst.Destroyed() {
		return ErrInstanceDestroyed
	}
	var errs []error
	for {
		ev, ok, err := c.inst.Handle().PollEvent()
		if err != nil {
			errs = append(errs, fmt.Errorf("xr: poll event: %w", err))
			break
		}
		if !ok {
			break
		}
		if err := c.dispatch(ev); err != nil {
			errs = append(errs, err)
		}
		if c.opts.onEvent != nil {
			c.opts.onEvent(ev)
		}
	}
	return errors.Join(errs...)
}

func (c *Context) dispatch(ev driver.Event) error {
	switch ev := ev.(type) {
	case driver.SessionStateChanged:
		if c.session == nil || ev.Session != c.session {
			c.log.Debug("xr: state change for stale session ignored", "state", ev.State)
			return nil
		}
		return c.changeState(ev.State)

	case driver.InstanceLossPending:
		c.instanceLost = true
		c.lossTime = ev.LossTime
		c.log.Warn("xr: instance loss pending", "loss_time", ev.LossTime)

	case driver.InteractionProfileChanged:
		c.log.Info("xr: interaction profile changed",
			"left", c.binder.CurrentProfile(LeftHand),
			"right", c.binder.CurrentProfile(RightHand))

	case driver.ReferenceSpaceChangePending:
		c.log.Info("xr: reference space change pending",
			"space", ev.ReferenceSpaceType, "change_time", ev.ChangeTime)

	case driver.EventsLost:
		c.log.Warn("xr: runtime events lost", "count", ev.LostEventCount)
	}
	return nil
}

// changeState applies the state table. The new state is recorded even when
// the associated session call fails.
func (c *Context) changeState(to driver.SessionState) error {
	from := c.state
	c.state = to
	c.log.Info("xr: session state changed", "from", from, "to", to)
	if c.opts.beforeState != nil {
		c.opts.beforeState(from, to)
	}

	var err error
	switch to {
	case driver.SessionStateReady:
		if !c.stopped {
			if e := c.session.BeginSession(driver.ViewConfigurationPrimaryStereo); e != nil {
				err = fmt.Errorf("xr: begin session: %w", e)
			}
		}
	case driver.SessionStateStopping:
		if e := c.session.EndSession(); e != nil {
			err = fmt.Errorf("xr: end session: %w", e)
		}
		c.stopped = true
	case driver.SessionStateExiting, driver.SessionStateLossPending:
		if e := c.DestroySession(); e != nil {
			err = e
		}
	}

	if c.opts.onState != nil {
		c.opts.onState(from, to)
	}
	return err
}

// State returns the last session state delivered by PollEvents.
func (c *Context) State() driver.SessionState { return c.state }

// Stopped reports whether the session reached Stopping and was ended.
func (c *Context) Stopped() bool { return c.stopped }

// InstanceLost reports whether the runtime announced instance loss.
func (c *Context) InstanceLost() bool { return c.instanceLost }

// CanSyncActions reports whether the session state permits action
// synchronization and frame submission.
func (c *Context) CanSyncActions() bool {
	if c.session == nil {
		return false
	}
	switch c.state {
	case driver.SessionStateSynchronized, driver.SessionStateVisible, driver.SessionStateFocused:
		return true
	}
	return false
}

// SyncActions synchronizes the action set. Outside Synchronized, Visible and
// Focused it fails with ErrActionsNotSynchronizable.
func (c *Context) SyncActions() error {
	if !c.CanSyncActions() {
		return ErrActionsNotSynchronizable
	}
	return c.binder.Sync()
}

// UpdateHands refreshes the hand snapshots in the base space at the last
// predicted display time.
func (c *Context) UpdateHands() [HandCount]HandState {
	if c.space == nil {
		return c.binder.Hands()
	}
	return c.binder.UpdateHands(c.space, c.frameState.PredictedDisplayTime)
}

// Hands returns the hand snapshots of the last UpdateHands.
func (c *Context) Hands() [HandCount]HandState { return c.binder.Hands() }

// OnFrameStart waits for and begins the next frame.
//
// Outside Synchronized, Visible and Focused no runtime call is made and the
// result is driver.ResultFrameDiscarded. Discarded and loss-pending results
// are not errors; check ShouldRender.
func (c *Context) OnFrameStart(ctx context.Context) (driver.Result, error) {
	c.shouldRender = false
	if !c.CanSyncActions() {
		c.beginResult = driver.ResultFrameDiscarded
		return c.beginResult, nil
	}
	if c.frameBegun {
		return c.beginResult, ErrFrameNotEnded
	}

	fs, err := c.session.WaitFrame(ctx)
	if err != nil {
		c.beginResult = driver.ResultFrameDiscarded
		return c.beginResult, fmt.Errorf("xr: wait frame: %w", err)
	}
	c.frameState = fs

	res, err := c.session.BeginFrame()
	if err != nil {
		c.beginResult = driver.ResultFrameDiscarded
		return c.beginResult, fmt.Errorf("xr: begin frame: %w", err)
	}
	c.beginResult = res
	c.frameBegun = res == driver.ResultSuccess || res == driver.ResultFrameDiscarded
	c.shouldRender = res == driver.ResultSuccess && fs.ShouldRender
	if res != driver.ResultSuccess {
		c.log.Debug("xr: frame not rendered", "result", res)
	}
	return res, nil
}

// ShouldRender reports whether the current frame was begun successfully and
// the runtime wants its content.
func (c *Context) ShouldRender() bool { return c.shouldRender }

// FrameBegun reports whether a frame is waiting for EndFrame.
func (c *Context) FrameBegun() bool { return c.frameBegun }

// FrameState returns the state of the last waited frame.
func (c *Context) FrameState() driver.FrameState { return c.frameState }

// BeginResult returns the result of the last OnFrameStart.
func (c *Context) BeginResult() driver.Result { return c.beginResult }

// EndFrame submits layers for the begun frame. A nil or empty list keeps
// the protocol balanced without showing anything.
//
// Layers passed while ShouldRender is false are not submitted; the frame is
// ended empty and ErrLayersWithoutRender is returned.
func (c *Context) EndFrame(layers ...driver.CompositionLayer) error {
	if !c.frameBegun || c.session == nil {
		return ErrEndFrameWithoutBegin
	}
	c.frameBegun = false

	var violation error
	if len(layers) > 0 && !c.shouldRender {
		layers = nil
		violation = ErrLayersWithoutRender
	}
	c.shouldRender = false

	err := c.session.EndFrame(driver.FrameEndInfo{
		DisplayTime:          c.frameState.PredictedDisplayTime,
		EnvironmentBlendMode: c.opts.blendMode,
		Layers:               layers,
	})
	if err != nil {
		err = fmt.Errorf("xr: end frame: %w", err)
	}
	return errors.Join(violation, err)
}

// UpdateEyeViews locates both eyes at the predicted display time. When the
// runtime cannot report a valid pose the previous eye states are kept.
func (c *Context) UpdateEyeViews() ([2]EyeState, error) {
	if c.session == nil {
		return c.eyes, ErrNoSession
	}
	vs, views, err := c.session.LocateViews(driver.ViewLocateInfo{
		ViewConfiguration: driver.ViewConfigurationPrimaryStereo,
		DisplayTime:       c.frameState.PredictedDisplayTime,
		Space:             c.space,
	})
	if err != nil {
		return c.eyes, fmt.Errorf("xr: locate views: %w", err)
	}
	c.viewState = vs.Flags
	const valid = driver.ViewStateOrientationValid | driver.ViewStatePositionValid
	if vs.Flags&valid != valid || len(views) != len(c.eyes) {
		return c.eyes, nil
	}
	for i, v := range views {
		c.eyes[i] = EyeState{
			Pose:       v.Pose,
			Fov:        v.Fov,
			Projection: ProjectionGL(v.Fov, c.opts.near, c.opts.far),
		}
	}
	return c.eyes, nil
}

// EyeViews returns the eye states of the last successful UpdateEyeViews.
func (c *Context) EyeViews() [2]EyeState { return c.eyes }

// RequestExit asks the runtime to take the session through Stopping.
func (c *Context) RequestExit() error {
	if c.session == nil {
		return ErrNoSession
	}
	if err := c.session.RequestExitSession(); err != nil {
		return fmt.Errorf("xr: request exit: %w", err)
	}
	c.log.Info("xr: session exit requested")
	return nil
}

// SwapchainFormats lists the formats the runtime accepts, in its order of
// preference.
func (c *Context) SwapchainFormats() ([]gputypes.TextureFormat, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	formats, err := c.session.EnumerateSwapchainFormats()
	if err != nil {
		return nil, fmt.Errorf("xr: enumerate swapchain formats: %w", err)
	}
	return formats, nil
}

// ChooseFormat returns the first of preferred the runtime supports. With no
// preference the runtime's first color format is returned.
func (c *Context) ChooseFormat(preferred ...gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	formats, err := c.SwapchainFormats()
	if err != nil {
		return gputypes.TextureFormatUndefined, err
	}
	if len(preferred) == 0 {
		for _, f := range formats {
			if !f.IsDepthStencil() {
				return f, nil
			}
		}
	}
	for _, want := range preferred {
		for _, f := range formats {
			if f == want {
				return f, nil
			}
		}
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("xr: no supported swapchain format among %v: %w",
		preferred, driver.ErrSwapchainFormatUnsupported)
}

// ReferenceSpaces lists the reference spaces the runtime offers.
func (c *Context) ReferenceSpaces() ([]driver.ReferenceSpaceType, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session.EnumerateReferenceSpaces()
}

// CreateReferenceSpace creates an additional reference space owned by the
// session.
func (c *Context) CreateReferenceSpace(t driver.ReferenceSpaceType, offset Pose) (driver.Space, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	sp, err := c.session.CreateReferenceSpace(t, offset)
	if err != nil {
		return nil, fmt.Errorf("xr: create reference space %s: %w", t, err)
	}
	c.track(sp)
	return sp, nil
}

// BoundsRect returns the play area of a reference space. A zero extent means
// the runtime does not know the bounds.
func (c *Context) BoundsRect(t driver.ReferenceSpaceType) (driver.Extent2Df, error) {
	if c.session == nil {
		return driver.Extent2Df{}, ErrNoSession
	}
	return c.session.ReferenceSpaceBoundsRect(t)
}

func (c *Context) track(r destroyer) {
	c.resources = append(c.resources, r)
}

func (c *Context) untrack(r destroyer) {
	for i, x := range c.resources {
		if x == r {
			c.resources = append(c.resources[:i], c.resources[i+1:]...)
			return
		}
	}
}

// DestroySession tears down the session-scoped resources, most recent
// first, and then the session. The instance is kept.
func (c *Context) DestroySession() error {
	if c.session == nil {
		return nil
	}
	var errs []error
	res := c.resources
	c.resources = nil
	for i := len(res) - 1; i >= 0; i-- {
		if err := res[i].Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.binder.detach(); err != nil {
		errs = append(errs, err)
	}
	if c.space != nil {
		if err := c.space.Destroy(); err != nil {
			errs = append(errs, err)
		}
		c.space = nil
	}
	if err := c.session.Destroy(); err != nil {
		errs = append(errs, fmt.Errorf("xr: destroy session: %w", err))
	}
	c.session = nil
	c.frameBegun = false
	c.shouldRender = false
	c.log.Info("xr: session destroyed")
	return errors.Join(errs...)
}

// Destroy releases the session and the action binder. The Instance is not
// destroyed. It is safe to call more than once.
func (c *Context) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	return errors.Join(c.DestroySession(), c.binder.Destroy())
}

// Close implements io.Closer.
func (c *Context) Close() error { return c.Destroy() }
