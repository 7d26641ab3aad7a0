package sim

import (
	"context"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

// nominalPeriod advances display time when frame pacing is disabled.
const nominalPeriod = 11111111 * time.Nanosecond

// stageHeight is the height of the local origin above the stage floor.
const stageHeight = 1.6

type session struct {
	rt      *Runtime
	inst    *instance
	binding gpucontext.DeviceProvider

	state         driver.SessionState
	running       bool
	exitRequested bool
	attached      bool
	sets          []*actionSet
	synced        bool

	waited      int
	begun       bool
	displayTime driver.Time
	lastWait    time.Time
	destroyed   bool
}

// transitionLocked records a state change and queues its event.
func (s *session) transitionLocked(state driver.SessionState) {
	if s.state == state {
		return
	}
	s.rt.logger().Debug("sim: session state", "from", s.state, "to", state)
	s.state = state
	s.rt.events = append(s.rt.events, driver.SessionStateChanged{
		Session: s,
		State:   state,
		Time:    s.displayTime,
	})
}

func (s *session) lock() error {
	s.rt.mu.Lock()
	if s.destroyed {
		s.rt.mu.Unlock()
		return driver.ErrHandleInvalid
	}
	return nil
}

func (s *session) BeginSession(viewConfig driver.ViewConfigurationType) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if viewConfig != driver.ViewConfigurationPrimaryStereo {
		return driver.ErrViewConfigurationUnsupported
	}
	if s.running {
		return s.inst.validationLocked("xrBeginSession", driver.ErrSessionRunning)
	}
	if s.state != driver.SessionStateReady {
		return s.inst.validationLocked("xrBeginSession", driver.ErrSessionNotReady)
	}
	s.running = true
	s.rt.stats.BeginSession++
	if s.rt.opts.autoLifecycle {
		s.transitionLocked(driver.SessionStateSynchronized)
		s.transitionLocked(driver.SessionStateVisible)
		s.transitionLocked(driver.SessionStateFocused)
	}
	return nil
}

func (s *session) EndSession() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if !s.running {
		return s.inst.validationLocked("xrEndSession", driver.ErrSessionNotRunning)
	}
	if s.state != driver.SessionStateStopping {
		return s.inst.validationLocked("xrEndSession", driver.ErrSessionNotStopping)
	}
	s.running = false
	s.begun = false
	s.waited = 0
	s.rt.stats.EndSession++
	if s.rt.opts.autoLifecycle {
		s.transitionLocked(driver.SessionStateIdle)
		if s.exitRequested {
			s.transitionLocked(driver.SessionStateExiting)
		}
	}
	return nil
}

func (s *session) RequestExitSession() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if !s.running {
		return s.inst.validationLocked("xrRequestExitSession", driver.ErrSessionNotRunning)
	}
	s.exitRequested = true
	s.rt.stats.RequestExit++
	if s.rt.opts.autoLifecycle {
		s.transitionLocked(driver.SessionStateVisible)
		s.transitionLocked(driver.SessionStateSynchronized)
		s.transitionLocked(driver.SessionStateStopping)
	}
	return nil
}

func (s *session) WaitFrame(ctx context.Context) (driver.FrameState, error) {
	if err := s.lock(); err != nil {
		return driver.FrameState{}, err
	}
	if !s.running {
		s.rt.mu.Unlock()
		return driver.FrameState{}, driver.ErrSessionNotRunning
	}
	if s.begun {
		err := s.inst.validationLocked("xrWaitFrame", driver.ErrCallOrderInvalid)
		s.rt.mu.Unlock()
		return driver.FrameState{}, err
	}
	period := s.rt.opts.framePeriod
	last := s.lastWait
	s.rt.mu.Unlock()

	now := time.Now()
	if period > 0 && !last.IsZero() {
		if d := last.Add(period).Sub(now); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return driver.FrameState{}, ctx.Err()
			case now = <-timer.C:
			}
		}
	}

	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	if s.destroyed {
		return driver.FrameState{}, driver.ErrHandleInvalid
	}
	if period <= 0 {
		period = nominalPeriod
	}
	s.lastWait = now
	s.displayTime = s.displayTime.Add(period)
	s.waited++
	s.rt.stats.WaitFrame++

	shouldRender := s.state == driver.SessionStateVisible || s.state == driver.SessionStateFocused
	if s.rt.render != nil {
		shouldRender = *s.rt.render
	}
	return driver.FrameState{
		PredictedDisplayTime:   s.displayTime.Add(2 * period),
		PredictedDisplayPeriod: period,
		ShouldRender:           shouldRender,
	}, nil
}

func (s *session) BeginFrame() (driver.Result, error) {
	if err := s.lock(); err != nil {
		return driver.ResultSuccess, err
	}
	defer s.rt.mu.Unlock()

	if !s.running {
		return driver.ResultSuccess, driver.ErrSessionNotRunning
	}
	if s.waited == 0 {
		return driver.ResultSuccess, s.inst.validationLocked("xrBeginFrame", driver.ErrCallOrderInvalid)
	}
	s.waited--
	s.rt.stats.BeginFrame++

	result := driver.ResultSuccess
	if len(s.rt.beginQ) > 0 {
		result = s.rt.beginQ[0]
		s.rt.beginQ = s.rt.beginQ[1:]
	}
	if result != driver.ResultSessionLossPending {
		s.begun = true
	}
	return result, nil
}

func (s *session) EndFrame(info driver.FrameEndInfo) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if !s.begun {
		return s.inst.validationLocked("xrEndFrame", driver.ErrCallOrderInvalid)
	}
	// A rejected submission still consumes the frame.
	s.begun = false
	if uint32(len(info.Layers)) > s.rt.opts.system.MaxLayerCount {
		return s.inst.validationLocked("xrEndFrame", driver.ErrLayerInvalid)
	}
	for _, l := range info.Layers {
		if err := s.checkLayerLocked(l); err != nil {
			return s.inst.validationLocked("xrEndFrame", err)
		}
	}
	s.rt.stats.EndFrame++
	s.rt.frames = append(s.rt.frames, Frame{
		DisplayTime: info.DisplayTime,
		Layers:      append([]driver.CompositionLayer(nil), info.Layers...),
	})
	return nil
}

// checkLayerLocked verifies that every swapchain a layer references has
// released an image at least once, and that the layer kind is enabled.
func (s *session) checkLayerLocked(l driver.CompositionLayer) error {
	if l == nil || l.LayerSpace() == nil {
		return driver.ErrLayerInvalid
	}
	var subs []driver.SwapchainSubImage
	switch l := l.(type) {
	case *driver.ProjectionLayer:
		if len(l.Views) != 2 {
			return driver.ErrLayerInvalid
		}
		for _, v := range l.Views {
			subs = append(subs, v.SubImage)
		}
	case *driver.QuadLayer:
		subs = append(subs, l.SubImage)
	case *driver.CylinderLayer:
		if !s.inst.enabled[driver.ExtensionCompositionCylinder] {
			return driver.ErrExtensionNotPresent
		}
		subs = append(subs, l.SubImage)
	case *driver.CubeLayer:
		if !s.inst.enabled[driver.ExtensionCompositionCube] {
			return driver.ErrExtensionNotPresent
		}
		sc, ok := l.Swapchain.(*swapchain)
		if !ok || sc.released == 0 || sc.info.FaceCount != 6 {
			return driver.ErrLayerInvalid
		}
	default:
		return driver.ErrLayerInvalid
	}
	for _, sub := range subs {
		sc, ok := sub.Swapchain.(*swapchain)
		if !ok || sc.destroyed || sc.released == 0 {
			return driver.ErrLayerInvalid
		}
		r := sub.ImageRect
		if r.Offset.X < 0 || r.Offset.Y < 0 ||
			r.Offset.X+r.Extent.Width > int32(sc.info.Width) ||
			r.Offset.Y+r.Extent.Height > int32(sc.info.Height) {
			return driver.ErrLayerInvalid
		}
	}
	return nil
}

// headPose is the simulated head in local space.
func headPose() driver.Pose { return driver.IdentityPose }

func (s *session) LocateViews(info driver.ViewLocateInfo) (driver.ViewState, []driver.View, error) {
	if err := s.lock(); err != nil {
		return driver.ViewState{}, nil, err
	}
	defer s.rt.mu.Unlock()

	if info.ViewConfiguration != driver.ViewConfigurationPrimaryStereo {
		return driver.ViewState{}, nil, driver.ErrViewConfigurationUnsupported
	}
	baseWorld, _, err := worldLocked(info.Space)
	if err != nil {
		return driver.ViewState{}, nil, err
	}

	fov := s.rt.opts.fov
	mirrored := driver.Fov{
		AngleLeft:  -fov.AngleRight,
		AngleRight: -fov.AngleLeft,
		AngleUp:    fov.AngleUp,
		AngleDown:  fov.AngleDown,
	}
	half := s.rt.opts.ipd / 2
	head := headPose()
	inv := baseWorld.Inverse()
	views := []driver.View{
		{Pose: inv.Mul(head.Mul(driver.Pose{Orientation: f32.Vec4{0, 0, 0, 1}, Position: f32.Vec3{-half, 0, 0}})), Fov: fov},
		{Pose: inv.Mul(head.Mul(driver.Pose{Orientation: f32.Vec4{0, 0, 0, 1}, Position: f32.Vec3{half, 0, 0}})), Fov: mirrored},
	}
	flags := driver.ViewStateOrientationValid | driver.ViewStatePositionValid |
		driver.ViewStateOrientationTracked | driver.ViewStatePositionTracked
	return driver.ViewState{Flags: flags}, views, nil
}

func (s *session) EnumerateSwapchainFormats() ([]gputypes.TextureFormat, error) {
	out := make([]gputypes.TextureFormat, len(s.rt.opts.formats))
	copy(out, s.rt.opts.formats)
	return out, nil
}

func (s *session) EnumerateReferenceSpaces() ([]driver.ReferenceSpaceType, error) {
	return []driver.ReferenceSpaceType{
		driver.ReferenceSpaceView,
		driver.ReferenceSpaceLocal,
		driver.ReferenceSpaceStage,
	}, nil
}

func (s *session) CreateReferenceSpace(refType driver.ReferenceSpaceType, pose driver.Pose) (driver.Space, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.rt.mu.Unlock()

	switch refType {
	case driver.ReferenceSpaceView, driver.ReferenceSpaceLocal, driver.ReferenceSpaceStage:
	default:
		return nil, driver.ErrHandleInvalid
	}
	return &refSpace{sess: s, typ: refType, offset: pose}, nil
}

func (s *session) ReferenceSpaceBoundsRect(refType driver.ReferenceSpaceType) (driver.Extent2Df, error) {
	if refType == driver.ReferenceSpaceStage {
		return driver.Extent2Df{Width: 2.5, Height: 2.0}, nil
	}
	return driver.Extent2Df{}, nil
}

func (s *session) Destroy() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()
	s.destroyed = true
	s.running = false
	if s.rt.session == s {
		s.rt.session = nil
	}
	return nil
}

// refSpace is a reference space. Local space is the world frame.
type refSpace struct {
	sess   *session
	typ    driver.ReferenceSpaceType
	offset driver.Pose
}

func (sp *refSpace) worldLocked() driver.Pose {
	var origin driver.Pose
	switch sp.typ {
	case driver.ReferenceSpaceView:
		origin = headPose()
	case driver.ReferenceSpaceStage:
		origin = driver.Pose{Orientation: f32.Vec4{0, 0, 0, 1}, Position: f32.Vec3{0, -stageHeight, 0}}
	default:
		origin = driver.IdentityPose
	}
	return origin.Mul(sp.offset)
}

func (sp *refSpace) Locate(base driver.Space, _ driver.Time) (driver.SpaceLocation, error) {
	sp.sess.rt.mu.Lock()
	defer sp.sess.rt.mu.Unlock()
	return locateLocked(sp.worldLocked(), fullyTracked, base)
}

func (sp *refSpace) Destroy() error { return nil }

const fullyTracked = driver.SpaceLocationOrientationValid | driver.SpaceLocationPositionValid |
	driver.SpaceLocationOrientationTracked | driver.SpaceLocationPositionTracked

// worldLocked returns the pose of sp in local space.
func worldLocked(sp driver.Space) (driver.Pose, driver.SpaceLocationFlags, error) {
	switch sp := sp.(type) {
	case *refSpace:
		return sp.worldLocked(), fullyTracked, nil
	case *actionSpace:
		pose, flags := sp.worldLocked()
		return pose, flags, nil
	default:
		return driver.Pose{}, 0, driver.ErrHandleInvalid
	}
}

// locateLocked expresses world in base. Flags are cleared when base itself
// cannot be located.
func locateLocked(world driver.Pose, flags driver.SpaceLocationFlags, base driver.Space) (driver.SpaceLocation, error) {
	baseWorld, baseFlags, err := worldLocked(base)
	if err != nil {
		return driver.SpaceLocation{}, err
	}
	flags &= baseFlags
	if flags&(driver.SpaceLocationOrientationValid|driver.SpaceLocationPositionValid) == 0 {
		return driver.SpaceLocation{Flags: flags}, nil
	}
	return driver.SpaceLocation{Flags: flags, Pose: baseWorld.Inverse().Mul(world)}, nil
}
