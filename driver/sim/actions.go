package sim

import (
	"strings"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

type actionSet struct {
	inst      *instance
	info      driver.ActionSetCreateInfo
	actions   []*action
	attached  bool
	destroyed bool
}

type action struct {
	set  *actionSet
	info driver.ActionCreateInfo
	subs []string
}

type binding struct {
	action *action
	path   string
}

type inputKey struct {
	action string
	sub    string
}

// input holds the value a test or demo has set and the state observed at
// the last SyncActions.
type input struct {
	pending driver.ActionStateFloat
	boolV   bool
	vecV    f32.Vec2
	pose    driver.Pose
	flags   driver.SpaceLocationFlags
	hasPose bool

	cur     driver.ActionStateFloat
	curBool driver.ActionStateBoolean
	curVec  driver.ActionStateVector2f
}

func (s *actionSet) CreateAction(info driver.ActionCreateInfo) (driver.Action, error) {
	rt := s.inst.rt
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if s.attached {
		return nil, s.inst.validationLocked("xrCreateAction", driver.ErrActionSetsAlreadyAttached)
	}
	if info.Name == "" {
		return nil, driver.ErrPathInvalid
	}
	for _, a := range s.actions {
		if a.info.Name == info.Name {
			return nil, driver.ErrPathInvalid
		}
	}
	a := &action{set: s, info: info}
	for _, p := range info.SubactionPaths {
		name, ok := rt.pathStringLocked(p)
		if !ok {
			return nil, driver.ErrPathInvalid
		}
		a.subs = append(a.subs, name)
	}
	s.actions = append(s.actions, a)
	return a, nil
}

func (s *actionSet) Destroy() error {
	s.inst.rt.mu.Lock()
	defer s.inst.rt.mu.Unlock()
	s.destroyed = true
	return nil
}

func (a *action) Name() string            { return a.info.Name }
func (a *action) Type() driver.ActionType { return a.info.Type }
func (a *action) Destroy() error          { return nil }

func (s *session) AttachActionSets(sets []driver.ActionSet) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if s.attached {
		return s.inst.validationLocked("xrAttachSessionActionSets", driver.ErrActionSetsAlreadyAttached)
	}
	resolved := make([]*actionSet, 0, len(sets))
	for _, set := range sets {
		as, ok := set.(*actionSet)
		if !ok || as.destroyed {
			return driver.ErrHandleInvalid
		}
		resolved = append(resolved, as)
	}
	for _, as := range resolved {
		as.attached = true
	}
	s.sets = resolved
	s.attached = true
	s.rt.stats.AttachActionSets++
	return nil
}

func (s *session) SyncActions(active []driver.ActiveActionSet) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if !s.running {
		return driver.ErrSessionNotRunning
	}
	for _, a := range active {
		as, ok := a.ActionSet.(*actionSet)
		if !ok || !as.attached {
			return s.inst.validationLocked("xrSyncActions", driver.ErrActionSetNotAttached)
		}
	}
	s.rt.stats.SyncActions++
	if s.state != driver.SessionStateFocused {
		// Unfocused sessions receive no input.
		s.synced = false
		return nil
	}
	s.synced = true
	for _, in := range s.rt.inputs {
		in.cur.ChangedSinceLastSync = in.cur.CurrentState != in.pending.CurrentState
		if in.cur.ChangedSinceLastSync {
			in.cur.LastChangeTime = s.displayTime
		}
		in.cur.CurrentState = in.pending.CurrentState

		in.curBool.ChangedSinceLastSync = in.curBool.CurrentState != in.boolV
		if in.curBool.ChangedSinceLastSync {
			in.curBool.LastChangeTime = s.displayTime
		}
		in.curBool.CurrentState = in.boolV

		in.curVec.ChangedSinceLastSync = in.curVec.CurrentState != in.vecV
		if in.curVec.ChangedSinceLastSync {
			in.curVec.LastChangeTime = s.displayTime
		}
		in.curVec.CurrentState = in.vecV
	}
	return nil
}

func (s *session) CurrentInteractionProfile(topLevel driver.Path) (driver.Path, error) {
	if err := s.lock(); err != nil {
		return driver.NullPath, err
	}
	defer s.rt.mu.Unlock()

	if !s.attached {
		return driver.NullPath, driver.ErrActionSetNotAttached
	}
	if _, ok := s.rt.pathStringLocked(topLevel); !ok {
		return driver.NullPath, driver.ErrPathInvalid
	}
	if _, ok := s.rt.suggested[s.rt.opts.profile]; !ok {
		return driver.NullPath, nil
	}
	return s.rt.pathLocked(s.rt.opts.profile), nil
}

// resolveLocked validates info and reports whether the action is bound for
// the current profile and subaction path and input is being delivered.
func (s *session) resolveLocked(info driver.ActionStateGetInfo, want driver.ActionType) (*action, string, bool, error) {
	a, ok := info.Action.(*action)
	if !ok || a == nil {
		return nil, "", false, driver.ErrHandleInvalid
	}
	if a.info.Type != want {
		return nil, "", false, driver.ErrActionTypeMismatch
	}
	if !a.set.attached {
		return nil, "", false, driver.ErrActionSetNotAttached
	}
	sub := ""
	if info.SubactionPath != driver.NullPath {
		name, ok := s.rt.pathStringLocked(info.SubactionPath)
		if !ok || !a.hasSub(name) {
			return nil, "", false, driver.ErrPathUnsupported
		}
		sub = name
	}
	return a, sub, s.synced && s.boundLocked(a, sub), nil
}

func (a *action) hasSub(name string) bool {
	for _, s := range a.subs {
		if s == name {
			return true
		}
	}
	return false
}

func (s *session) boundLocked(a *action, sub string) bool {
	for _, b := range s.rt.suggested[s.rt.opts.profile] {
		if b.action != a {
			continue
		}
		if sub == "" || strings.HasPrefix(b.path, sub+"/") {
			return true
		}
	}
	return false
}

func (r *Runtime) inputLocked(action, sub string) *input {
	k := inputKey{action: action, sub: sub}
	in, ok := r.inputs[k]
	if !ok {
		in = &input{}
		r.inputs[k] = in
	}
	return in
}

func (s *session) ActionStateBoolean(info driver.ActionStateGetInfo) (driver.ActionStateBoolean, error) {
	if err := s.lock(); err != nil {
		return driver.ActionStateBoolean{}, err
	}
	defer s.rt.mu.Unlock()

	a, sub, active, err := s.resolveLocked(info, driver.ActionTypeBooleanInput)
	if err != nil || !active {
		return driver.ActionStateBoolean{}, err
	}
	st := s.rt.inputLocked(a.info.Name, sub).curBool
	st.IsActive = true
	return st, nil
}

func (s *session) ActionStateFloat(info driver.ActionStateGetInfo) (driver.ActionStateFloat, error) {
	if err := s.lock(); err != nil {
		return driver.ActionStateFloat{}, err
	}
	defer s.rt.mu.Unlock()

	a, sub, active, err := s.resolveLocked(info, driver.ActionTypeFloatInput)
	if err != nil || !active {
		return driver.ActionStateFloat{}, err
	}
	st := s.rt.inputLocked(a.info.Name, sub).cur
	st.IsActive = true
	return st, nil
}

func (s *session) ActionStateVector2f(info driver.ActionStateGetInfo) (driver.ActionStateVector2f, error) {
	if err := s.lock(); err != nil {
		return driver.ActionStateVector2f{}, err
	}
	defer s.rt.mu.Unlock()

	a, sub, active, err := s.resolveLocked(info, driver.ActionTypeVector2fInput)
	if err != nil || !active {
		return driver.ActionStateVector2f{}, err
	}
	st := s.rt.inputLocked(a.info.Name, sub).curVec
	st.IsActive = true
	return st, nil
}

func (s *session) ActionStatePose(info driver.ActionStateGetInfo) (driver.ActionStatePose, error) {
	if err := s.lock(); err != nil {
		return driver.ActionStatePose{}, err
	}
	defer s.rt.mu.Unlock()

	_, _, active, err := s.resolveLocked(info, driver.ActionTypePoseInput)
	return driver.ActionStatePose{IsActive: active}, err
}

func (s *session) ApplyHapticFeedback(info driver.ActionStateGetInfo, vibration driver.HapticVibration) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	if _, _, _, err := s.resolveLocked(info, driver.ActionTypeVibrationOutput); err != nil {
		return err
	}
	s.rt.stats.Haptics = append(s.rt.stats.Haptics, vibration)
	return nil
}

func (s *session) StopHapticFeedback(info driver.ActionStateGetInfo) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.rt.mu.Unlock()

	_, _, _, err := s.resolveLocked(info, driver.ActionTypeVibrationOutput)
	return err
}

func (s *session) CreateActionSpace(act driver.Action, subactionPath driver.Path, pose driver.Pose) (driver.Space, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.rt.mu.Unlock()

	a, ok := act.(*action)
	if !ok || a == nil {
		return nil, driver.ErrHandleInvalid
	}
	if a.info.Type != driver.ActionTypePoseInput {
		return nil, driver.ErrActionTypeMismatch
	}
	sub := ""
	if subactionPath != driver.NullPath {
		name, ok := s.rt.pathStringLocked(subactionPath)
		if !ok || !a.hasSub(name) {
			return nil, driver.ErrPathUnsupported
		}
		sub = name
	}
	return &actionSpace{sess: s, action: a, sub: sub, offset: pose}, nil
}

// actionSpace tracks a pose action.
type actionSpace struct {
	sess   *session
	action *action
	sub    string
	offset driver.Pose
}

// defaultHand is where an untouched controller rests in local space.
func defaultHand(sub string) driver.Pose {
	x := float32(0.2)
	if strings.HasSuffix(sub, "/left") {
		x = -x
	}
	return driver.Pose{
		Orientation: f32.Vec4{0, 0, 0, 1},
		Position:    f32.Vec3{x, -0.3, -0.4},
	}
}

func (sp *actionSpace) worldLocked() (driver.Pose, driver.SpaceLocationFlags) {
	s := sp.sess
	if !s.synced || !s.boundLocked(sp.action, sp.sub) {
		return driver.Pose{}, 0
	}
	in := s.rt.inputLocked(sp.action.info.Name, sp.sub)
	if !in.hasPose {
		return defaultHand(sp.sub).Mul(sp.offset), fullyTracked
	}
	return in.pose.Mul(sp.offset), in.flags
}

func (sp *actionSpace) Locate(base driver.Space, _ driver.Time) (driver.SpaceLocation, error) {
	sp.sess.rt.mu.Lock()
	defer sp.sess.rt.mu.Unlock()
	world, flags := sp.worldLocked()
	return locateLocked(world, flags, base)
}

func (sp *actionSpace) Destroy() error { return nil }

// SetBool sets the value of a boolean action for a subaction path such as
// "/user/hand/left". The value is observed at the next SyncActions.
func (r *Runtime) SetBool(action, sub string, v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputLocked(action, sub).boolV = v
}

// SetFloat sets the value of a scalar action.
func (r *Runtime) SetFloat(action, sub string, v float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputLocked(action, sub).pending.CurrentState = v
}

// SetVector2 sets the value of a two-axis action.
func (r *Runtime) SetVector2(action, sub string, v f32.Vec2) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputLocked(action, sub).vecV = v
}

// SetPose sets the pose and validity flags of a pose action in local space.
func (r *Runtime) SetPose(action, sub string, pose driver.Pose, flags driver.SpaceLocationFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.inputLocked(action, sub)
	in.pose = pose
	in.flags = flags
	in.hasPose = true
}
