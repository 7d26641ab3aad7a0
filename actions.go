package xr

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/driver"
)

// Hand indexes the per-hand subaction paths.
type Hand int

const (
	LeftHand Hand = iota
	RightHand

	// HandCount is the number of hands.
	HandCount = 2
)

func (h Hand) String() string {
	switch h {
	case LeftHand:
		return "left"
	case RightHand:
		return "right"
	default:
		return fmt.Sprintf("Hand(%d)", int(h))
	}
}

var handPaths = [HandCount]string{"/user/hand/left", "/user/hand/right"}

// HandState is the per-frame input snapshot of one hand.
type HandState struct {
	Grip         Pose
	Aim          Pose
	Squeeze      float32
	Trigger      float32
	Thumbstick   f32.Vec2
	ThumbClicked bool
	Quit         bool
}

var actionTypes = map[ActionName]driver.ActionType{
	ActionGripPose:        driver.ActionTypePoseInput,
	ActionAimPose:         driver.ActionTypePoseInput,
	ActionSqueeze:         driver.ActionTypeFloatInput,
	ActionTrigger:         driver.ActionTypeFloatInput,
	ActionThumbstick:      driver.ActionTypeVector2fInput,
	ActionThumbstickClick: driver.ActionTypeBooleanInput,
	ActionQuit:            driver.ActionTypeBooleanInput,
	ActionHaptic:          driver.ActionTypeVibrationOutput,
}

var actionLabels = map[ActionName]string{
	ActionGripPose:        "Grip Pose",
	ActionAimPose:         "Aim Pose",
	ActionSqueeze:         "Squeeze",
	ActionTrigger:         "Trigger",
	ActionThumbstick:      "Thumbstick XY",
	ActionThumbstickClick: "Thumbstick Click",
	ActionQuit:            "Quit Session",
	ActionHaptic:          "Vibrate",
}

// ActionBinder declares the action vocabulary, suggests bindings for each
// interaction profile and answers per-hand input queries.
//
// Queries never fail: an inactive action, a nil action or a runtime error
// yields the zero value of the query type (identity for poses).
type ActionBinder struct {
	inst    *Instance
	log     *slog.Logger
	haptics HapticConfig

	set     driver.ActionSet
	actions map[ActionName]driver.Action
	hands   [HandCount]driver.Path

	session    driver.Session
	attached   bool
	gripSpaces [HandCount]driver.Space
	aimSpaces  [HandCount]driver.Space
	suggested  []string

	states [HandCount]HandState
	pulses int
}

// NewActionBinder creates the action set and its actions and suggests
// bindings for every configured interaction profile.
func NewActionBinder(inst *Instance, opts ...BinderOption) (*ActionBinder, error) {
	o := defaultBinderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = inst.log
	}

	b := &ActionBinder{
		inst:    inst,
		log:     log,
		haptics: o.haptics,
		actions: make(map[ActionName]driver.Action, len(Actions)),
		states:  defaultHandStates(),
	}
	for h := range b.hands {
		p, err := inst.Path(handPaths[h])
		if err != nil {
			return nil, setupErr("hand paths", err)
		}
		b.hands[h] = p
	}

	set, err := inst.Handle().CreateActionSet(driver.ActionSetCreateInfo{
		Name:          o.setName,
		LocalizedName: o.setName,
	})
	if err != nil {
		return nil, setupErr("create action set", err)
	}
	b.set = set

	for _, name := range Actions {
		a, err := set.CreateAction(driver.ActionCreateInfo{
			Name:           string(name),
			Type:           actionTypes[name],
			SubactionPaths: b.hands[:],
			LocalizedName:  actionLabels[name],
		})
		if err != nil {
			_ = set.Destroy()
			return nil, setupErr("create action "+string(name), err)
		}
		b.actions[name] = a
	}

	for _, p := range o.profiles {
		if err := b.suggest(p); err != nil {
			_ = set.Destroy()
			return nil, setupErr("suggest bindings "+p.Path, err)
		}
	}
	return b, nil
}

// suggest registers the bindings of one profile. A profile without any
// binding for the vocabulary is skipped; a profile the runtime does not know
// is logged and skipped.
func (b *ActionBinder) suggest(p BindingProfile) error {
	var bindings []driver.ActionSuggestedBinding
	for _, name := range Actions {
		for _, path := range p.handed(name, handPaths[:]) {
			bp, err := b.inst.Path(path)
			if err != nil {
				return err
			}
			bindings = append(bindings, driver.ActionSuggestedBinding{Action: b.actions[name], Binding: bp})
		}
	}
	if len(bindings) == 0 {
		return nil
	}
	profile, err := b.inst.Path(p.Path)
	if err != nil {
		return err
	}
	err = b.inst.Handle().SuggestInteractionProfileBindings(profile, bindings)
	if errors.Is(err, driver.ErrPathUnsupported) {
		b.log.Warn("xr: interaction profile not supported by runtime", "profile", p.Path)
		return nil
	}
	if err != nil {
		return err
	}
	b.suggested = append(b.suggested, p.Path)
	b.log.Debug("xr: bindings suggested", "profile", p.Path, "count", len(bindings))
	return nil
}

// SuggestedProfiles returns the profiles that received bindings.
func (b *ActionBinder) SuggestedProfiles() []string {
	return append([]string(nil), b.suggested...)
}

// ActionSet returns the driver action set.
func (b *ActionBinder) ActionSet() driver.ActionSet { return b.set }

// Action returns the action for name, or nil.
func (b *ActionBinder) Action(name ActionName) driver.Action { return b.actions[name] }

// HandPath returns the subaction path of h.
func (b *ActionBinder) HandPath(h Hand) driver.Path { return b.hands[h] }

// Attached reports whether AttachTo succeeded.
func (b *ActionBinder) Attached() bool { return b.attached }

// AttachTo attaches the action set to s and creates the per-hand pose
// spaces. It must be called exactly once, before the first Sync.
func (b *ActionBinder) AttachTo(s driver.Session) error {
	if b.attached {
		return ErrBindingsAlreadyAttached
	}
	if err := s.AttachActionSets([]driver.ActionSet{b.set}); err != nil {
		if errors.Is(err, driver.ErrActionSetsAlreadyAttached) {
			return fmt.Errorf("%w: %w", ErrBindingsAlreadyAttached, err)
		}
		return fmt.Errorf("xr: attach action sets: %w", err)
	}
	b.session = s
	b.attached = true

	for h := range b.hands {
		grip, err := s.CreateActionSpace(b.actions[ActionGripPose], b.hands[h], IdentityPose)
		if err != nil {
			return fmt.Errorf("xr: grip space %s: %w", Hand(h), err)
		}
		b.gripSpaces[h] = grip
		aim, err := s.CreateActionSpace(b.actions[ActionAimPose], b.hands[h], IdentityPose)
		if err != nil {
			return fmt.Errorf("xr: aim space %s: %w", Hand(h), err)
		}
		b.aimSpaces[h] = aim
	}
	b.log.Info("xr: action bindings attached", "profiles", len(b.suggested))
	return nil
}

// Sync synchronizes all actions of the set.
func (b *ActionBinder) Sync() error {
	if !b.attached {
		return ErrBindingsNotAttached
	}
	if err := b.session.SyncActions([]driver.ActiveActionSet{{ActionSet: b.set}}); err != nil {
		return fmt.Errorf("xr: sync actions: %w", err)
	}
	return nil
}

func (b *ActionBinder) info(h Hand, a driver.Action) driver.ActionStateGetInfo {
	return driver.ActionStateGetInfo{Action: a, SubactionPath: b.hands[h]}
}

// Bool returns the state of a boolean action for h, or false.
func (b *ActionBinder) Bool(h Hand, a driver.Action) bool {
	if a == nil || b.session == nil {
		return false
	}
	st, err := b.session.ActionStateBoolean(b.info(h, a))
	if err != nil {
		b.log.Debug("xr: boolean action query", "action", a.Name(), "hand", h, "err", err)
		return false
	}
	return st.IsActive && st.CurrentState
}

// Float returns the state of a scalar action for h, or 0.
func (b *ActionBinder) Float(h Hand, a driver.Action) float32 {
	if a == nil || b.session == nil {
		return 0
	}
	st, err := b.session.ActionStateFloat(b.info(h, a))
	if err != nil {
		b.log.Debug("xr: float action query", "action", a.Name(), "hand", h, "err", err)
		return 0
	}
	if !st.IsActive {
		return 0
	}
	return st.CurrentState
}

// Vec2 returns the state of a two-axis action for h, or the zero vector.
func (b *ActionBinder) Vec2(h Hand, a driver.Action) f32.Vec2 {
	if a == nil || b.session == nil {
		return f32.Vec2{}
	}
	st, err := b.session.ActionStateVector2f(b.info(h, a))
	if err != nil {
		b.log.Debug("xr: vector action query", "action", a.Name(), "hand", h, "err", err)
		return f32.Vec2{}
	}
	if !st.IsActive {
		return f32.Vec2{}
	}
	return st.CurrentState
}

// Pose locates space, which tracks pose action a for h, in base at time t.
// The identity pose is returned unless the action is active and both the
// position and the orientation are valid.
func (b *ActionBinder) Pose(h Hand, a driver.Action, space, base driver.Space, t driver.Time) Pose {
	if a == nil || b.session == nil || space == nil || base == nil {
		return IdentityPose
	}
	st, err := b.session.ActionStatePose(b.info(h, a))
	if err != nil || !st.IsActive {
		return IdentityPose
	}
	loc, err := space.Locate(base, t)
	if err != nil {
		b.log.Debug("xr: locate hand space", "hand", h, "err", err)
		return IdentityPose
	}
	const required = driver.SpaceLocationPositionValid | driver.SpaceLocationOrientationValid
	if loc.Flags&required != required {
		return IdentityPose
	}
	return loc.Pose
}

// UpdateHands refreshes the hand snapshots from the last Sync, resolving
// poses in base at time t, and fires the squeeze haptic pulse.
func (b *ActionBinder) UpdateHands(base driver.Space, t driver.Time) [HandCount]HandState {
	for i := range b.states {
		h := Hand(i)
		st := HandState{
			Grip:         b.Pose(h, b.actions[ActionGripPose], b.gripSpaces[h], base, t),
			Aim:          b.Pose(h, b.actions[ActionAimPose], b.aimSpaces[h], base, t),
			Squeeze:      b.Float(h, b.actions[ActionSqueeze]),
			Trigger:      b.Float(h, b.actions[ActionTrigger]),
			Thumbstick:   b.Vec2(h, b.actions[ActionThumbstick]),
			ThumbClicked: b.Bool(h, b.actions[ActionThumbstickClick]),
			Quit:         b.Bool(h, b.actions[ActionQuit]),
		}
		if st.Squeeze > b.haptics.Threshold {
			b.pulse(h)
		}
		b.states[h] = st
	}
	return b.states
}

func (b *ActionBinder) pulse(h Hand) {
	err := b.session.ApplyHapticFeedback(b.info(h, b.actions[ActionHaptic]), driver.HapticVibration{
		Duration:  b.haptics.Duration,
		Frequency: b.haptics.Frequency,
		Amplitude: b.haptics.Amplitude,
	})
	if err != nil {
		b.log.Warn("xr: haptic feedback", "hand", h, "err", err)
		return
	}
	b.pulses++
}

// Pulses returns the number of haptic pulses sent.
func (b *ActionBinder) Pulses() int { return b.pulses }

// Hands returns the snapshots of the last UpdateHands.
func (b *ActionBinder) Hands() [HandCount]HandState { return b.states }

// QuitRequested reports whether either hand pressed the quit action in the
// last UpdateHands.
func (b *ActionBinder) QuitRequested() bool {
	return b.states[LeftHand].Quit || b.states[RightHand].Quit
}

// CurrentProfile returns the interaction profile currently driving h, or ""
// when no bound controller is active.
func (b *ActionBinder) CurrentProfile(h Hand) string {
	if b.session == nil {
		return ""
	}
	p, err := b.session.CurrentInteractionProfile(b.hands[h])
	if err != nil || p == driver.NullPath {
		return ""
	}
	s, err := b.inst.Handle().PathToString(p)
	if err != nil {
		return ""
	}
	return s
}

// detach drops the session-scoped spaces. The action set stays usable for a
// later session.
func (b *ActionBinder) detach() error {
	var errs []error
	for h := range b.hands {
		for _, sp := range []driver.Space{b.gripSpaces[h], b.aimSpaces[h]} {
			if sp != nil {
				if err := sp.Destroy(); err != nil {
					errs = append(errs, err)
				}
			}
		}
		b.gripSpaces[h], b.aimSpaces[h] = nil, nil
	}
	b.session = nil
	b.attached = false
	b.states = defaultHandStates()
	return errors.Join(errs...)
}

// defaultHandStates returns untracked hands: identity poses, no input.
func defaultHandStates() [HandCount]HandState {
	var out [HandCount]HandState
	for h := range out {
		out[h].Grip = IdentityPose
		out[h].Aim = IdentityPose
	}
	return out
}

// Destroy releases the spaces and the action set.
func (b *ActionBinder) Destroy() error {
	err := b.detach()
	if b.set != nil {
		err = errors.Join(err, b.set.Destroy())
		b.set = nil
	}
	return err
}
