package xr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/driver"
	"github.com/gogpu/xr/driver/sim"
)

func TestStateMachineFollowsEvents(t *testing.T) {
	var transitions []driver.SessionState
	rt, c := newSession(t, []sim.Option{sim.WithAutoLifecycle(false)},
		xr.WithStateHook(func(_, to driver.SessionState) { transitions = append(transitions, to) }))

	if c.State() != driver.SessionStateUnknown {
		t.Fatalf("State before events = %v, want Unknown", c.State())
	}

	// The runtime moves on its own; the context sees nothing until polled.
	rt.SetSessionState(driver.SessionStateIdle)
	rt.SetSessionState(driver.SessionStateReady)
	if c.State() != driver.SessionStateUnknown {
		t.Errorf("State changed without PollEvents: %v", c.State())
	}
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if c.State() != driver.SessionStateReady {
		t.Errorf("State = %v, want Ready", c.State())
	}
	if got := rt.Stats().BeginSession; got != 1 {
		t.Errorf("BeginSession calls = %d, want 1", got)
	}

	rt.SetSessionState(driver.SessionStateSynchronized)
	rt.SetSessionState(driver.SessionStateFocused)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	want := []driver.SessionState{
		driver.SessionStateIdle,
		driver.SessionStateReady,
		driver.SessionStateSynchronized,
		driver.SessionStateFocused,
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestPollEventsWithoutSession(t *testing.T) {
	rt, inst := newInstance(t, nil)
	c, err := xr.NewContext(inst)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer c.Destroy()

	rt.LoseInstance(42)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if !c.InstanceLost() {
		t.Error("InstanceLost() = false after InstanceLossPending")
	}
	if c.State() != driver.SessionStateUnknown {
		t.Errorf("State = %v, want Unknown", c.State())
	}
}

func TestEventHookSeesEveryEvent(t *testing.T) {
	var events []driver.Event
	rt, c := newSession(t, nil, xr.WithEventHook(func(ev driver.Event) { events = append(events, ev) }))

	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	rt.PushEvent(driver.EventsLost{LostEventCount: 3})
	rt.PushEvent(driver.ReferenceSpaceChangePending{ReferenceSpaceType: driver.ReferenceSpaceStage})
	rt.SetInteractionProfile(xr.ProfileOculusTouch)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}

	var lost, recenter, profile bool
	for _, ev := range events {
		switch ev.(type) {
		case driver.EventsLost:
			lost = true
		case driver.ReferenceSpaceChangePending:
			recenter = true
		case driver.InteractionProfileChanged:
			profile = true
		}
	}
	if !lost || !recenter || !profile {
		t.Errorf("hook saw lost=%v recenter=%v profile=%v, want all", lost, recenter, profile)
	}
	if c.State() != driver.SessionStateFocused {
		t.Errorf("State = %v, want Focused", c.State())
	}
}

// Scenario: Idle, Ready, Synchronized, Focused with shouldRender every tick
// gives one begin, render and end per tick with a non-empty layer list.
func TestFrameLoopRendersEveryTick(t *testing.T) {
	rt, c := focused(t, nil)
	sc := stereoSwapchain(t, c)

	const ticks = 5
	for i := 0; i < ticks; i++ {
		if err := c.PollEvents(); err != nil {
			t.Fatalf("tick %d: PollEvents: %v", i, err)
		}
		if err := c.SyncActions(); err != nil {
			t.Fatalf("tick %d: SyncActions: %v", i, err)
		}
		c.UpdateHands()
		res, err := c.OnFrameStart(context.Background())
		if err != nil {
			t.Fatalf("tick %d: OnFrameStart: %v", i, err)
		}
		if res != driver.ResultSuccess || !c.ShouldRender() {
			t.Fatalf("tick %d: result %v shouldRender %v", i, res, c.ShouldRender())
		}
		if _, err := c.UpdateEyeViews(); err != nil {
			t.Fatalf("tick %d: UpdateEyeViews: %v", i, err)
		}
		cycle(t, sc)
		layer := c.ProjectionLayer(c.StereoSubImages(sc.Handle()))
		if err := c.EndFrame(layer); err != nil {
			t.Fatalf("tick %d: EndFrame: %v", i, err)
		}
	}

	st := rt.Stats()
	if st.WaitFrame != ticks || st.BeginFrame != ticks || st.EndFrame != ticks {
		t.Errorf("wait/begin/end = %d/%d/%d, want %d each", st.WaitFrame, st.BeginFrame, st.EndFrame, ticks)
	}
	for i, f := range rt.Frames() {
		if len(f.Layers) < 1 {
			t.Errorf("frame %d submitted %d layers", i, len(f.Layers))
		}
	}
}

// Scenario: the session reaches Stopping. EndSession runs once, the context
// is stopped and no further frames are waited for.
func TestStoppingEndsSessionOnce(t *testing.T) {
	rt, c := focused(t, nil)

	if err := c.RequestExit(); err != nil {
		t.Fatalf("RequestExit: %v", err)
	}
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if !c.Stopped() {
		t.Error("Stopped() = false after Stopping")
	}
	if got := rt.Stats().EndSession; got != 1 {
		t.Errorf("EndSession calls = %d, want 1", got)
	}
	if c.State() != driver.SessionStateExiting {
		t.Errorf("State = %v, want Exiting", c.State())
	}
	if c.Session() != nil {
		t.Error("session not destroyed after Exiting")
	}

	waits := rt.Stats().WaitFrame
	for i := 0; i < 3; i++ {
		_ = c.PollEvents()
		res, err := c.OnFrameStart(context.Background())
		if err != nil {
			t.Fatalf("OnFrameStart: %v", err)
		}
		if res != driver.ResultFrameDiscarded || c.ShouldRender() {
			t.Errorf("OnFrameStart after stop = %v shouldRender %v", res, c.ShouldRender())
		}
	}
	if got := rt.Stats().WaitFrame; got != waits {
		t.Errorf("WaitFrame calls after stop = %d, want %d", got, waits)
	}
	if got := rt.Stats().EndSession; got != 1 {
		t.Errorf("EndSession calls = %d, want 1", got)
	}
}

func TestStoppedSessionIsNotRestarted(t *testing.T) {
	rt, c := newSession(t, []sim.Option{sim.WithAutoLifecycle(false)})
	rt.SetSessionState(driver.SessionStateIdle)
	rt.SetSessionState(driver.SessionStateReady)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	rt.SetSessionState(driver.SessionStateSynchronized)
	rt.SetSessionState(driver.SessionStateStopping)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if !c.Stopped() {
		t.Fatal("Stopped() = false")
	}
	rt.SetSessionState(driver.SessionStateIdle)
	rt.SetSessionState(driver.SessionStateReady)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if got := rt.Stats().BeginSession; got != 1 {
		t.Errorf("BeginSession calls = %d, want 1", got)
	}
}

func TestLossPendingDestroysSession(t *testing.T) {
	rt, c := focused(t, nil)
	sc := stereoSwapchain(t, c)

	rt.SetSessionState(driver.SessionStateLossPending)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if c.Session() != nil {
		t.Error("session kept after LossPending")
	}
	if rt.Stats().SwapchainsLive != 0 {
		t.Errorf("SwapchainsLive = %d, want 0", rt.Stats().SwapchainsLive)
	}
	if _, err := sc.Acquire(); !errors.Is(err, xr.ErrSwapchainDestroyed) {
		t.Errorf("Acquire after loss = %v, want ErrSwapchainDestroyed", err)
	}
	if c.Instance().Destroyed() {
		t.Error("instance destroyed with the session")
	}
}

func TestBeforeStateHookRunsFirst(t *testing.T) {
	tests := []struct {
		name string
		to   driver.SessionState
	}{
		{"loss pending", driver.SessionStateLossPending},
		{"exiting", driver.SessionStateExiting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c *xr.Context
			var before, after []bool
			live := func() bool { return c.Session() != nil }
			var rt *sim.Runtime
			rt, c = focused(t, nil,
				xr.WithBeforeStateHook(func(_, to driver.SessionState) {
					if to == tt.to {
						before = append(before, live())
					}
				}),
				xr.WithStateHook(func(_, to driver.SessionState) {
					if to == tt.to {
						after = append(after, live())
					}
				}))

			rt.SetSessionState(tt.to)
			if err := c.PollEvents(); err != nil {
				t.Fatalf("PollEvents: %v", err)
			}
			if len(before) != 1 || !before[0] {
				t.Errorf("session live before the transition = %v, want [true]", before)
			}
			if len(after) != 1 || after[0] {
				t.Errorf("session live after the transition = %v, want [false]", after)
			}
		})
	}
}

func TestShouldRenderGating(t *testing.T) {
	tests := []struct {
		name         string
		state        driver.SessionState
		begin        driver.Result
		runtimeWants bool
		wantBegun    bool
		wantRender   bool
		wantWaits    int
	}{
		{"focused", driver.SessionStateFocused, driver.ResultSuccess, true, true, true, 1},
		{"visible", driver.SessionStateVisible, driver.ResultSuccess, true, true, true, 1},
		{"runtime declines", driver.SessionStateFocused, driver.ResultSuccess, false, true, false, 1},
		{"discarded", driver.SessionStateFocused, driver.ResultFrameDiscarded, true, true, false, 1},
		{"loss pending", driver.SessionStateFocused, driver.ResultSessionLossPending, true, false, false, 1},
		{"ready", driver.SessionStateReady, driver.ResultSuccess, true, false, false, 0},
		{"idle", driver.SessionStateIdle, driver.ResultSuccess, true, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, c := newSession(t, []sim.Option{sim.WithAutoLifecycle(false)})
			rt.SetSessionState(driver.SessionStateIdle)
			rt.SetSessionState(driver.SessionStateReady)
			if err := c.PollEvents(); err != nil {
				t.Fatalf("PollEvents: %v", err)
			}
			switch tt.state {
			case driver.SessionStateReady:
			case driver.SessionStateIdle:
				rt.SetSessionState(driver.SessionStateIdle)
			default:
				rt.SetSessionState(driver.SessionStateSynchronized)
				rt.SetSessionState(tt.state)
			}
			if err := c.PollEvents(); err != nil {
				t.Fatalf("PollEvents: %v", err)
			}
			rt.SetShouldRender(boolPtr(tt.runtimeWants))
			if tt.begin != driver.ResultSuccess {
				rt.QueueBeginResult(tt.begin)
			}

			res, err := c.OnFrameStart(context.Background())
			if err != nil {
				t.Fatalf("OnFrameStart: %v", err)
			}
			if tt.wantWaits == 0 && res != driver.ResultFrameDiscarded {
				t.Errorf("result = %v, want FrameDiscarded", res)
			}
			if got := c.ShouldRender(); got != tt.wantRender {
				t.Errorf("ShouldRender = %v, want %v", got, tt.wantRender)
			}
			if got := c.FrameBegun(); got != tt.wantBegun {
				t.Errorf("FrameBegun = %v, want %v", got, tt.wantBegun)
			}
			if got := rt.Stats().WaitFrame; got != tt.wantWaits {
				t.Errorf("WaitFrame calls = %d, want %d", got, tt.wantWaits)
			}

			err = c.EndFrame()
			if tt.wantBegun && err != nil {
				t.Errorf("EndFrame = %v, want nil", err)
			}
			if !tt.wantBegun && !errors.Is(err, xr.ErrEndFrameWithoutBegin) {
				t.Errorf("EndFrame = %v, want ErrEndFrameWithoutBegin", err)
			}
		})
	}
}

func TestEndFrameProtocol(t *testing.T) {
	rt, c := focused(t, nil)

	if err := c.EndFrame(); !errors.Is(err, xr.ErrEndFrameWithoutBegin) {
		t.Errorf("EndFrame before begin = %v, want ErrEndFrameWithoutBegin", err)
	}
	if _, err := c.OnFrameStart(context.Background()); err != nil {
		t.Fatalf("OnFrameStart: %v", err)
	}
	if _, err := c.OnFrameStart(context.Background()); !errors.Is(err, xr.ErrFrameNotEnded) {
		t.Errorf("second OnFrameStart = %v, want ErrFrameNotEnded", err)
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if err := c.EndFrame(); !errors.Is(err, xr.ErrEndFrameWithoutBegin) {
		t.Errorf("double EndFrame = %v, want ErrEndFrameWithoutBegin", err)
	}

	// Layers for a frame the runtime does not want are dropped.
	rt.SetShouldRender(boolPtr(false))
	if _, err := c.OnFrameStart(context.Background()); err != nil {
		t.Fatalf("OnFrameStart: %v", err)
	}
	quad := xr.NewQuadLayer(c.Space(), driver.SwapchainSubImage{}, xr.IdentityPose)
	err := c.EndFrame(quad)
	if !errors.Is(err, xr.ErrLayersWithoutRender) || !xr.IsProtocolViolation(err) {
		t.Errorf("EndFrame with layers = %v, want ErrLayersWithoutRender", err)
	}
	frames := rt.Frames()
	if last := frames[len(frames)-1]; len(last.Layers) != 0 {
		t.Errorf("submitted %d layers, want 0", len(last.Layers))
	}
	if c.FrameBegun() {
		t.Error("frame still begun after EndFrame")
	}
}

func TestSyncActionsGating(t *testing.T) {
	rt, c := newSession(t, []sim.Option{sim.WithAutoLifecycle(false)})
	if err := c.SyncActions(); !errors.Is(err, xr.ErrActionsNotSynchronizable) {
		t.Errorf("SyncActions in Unknown = %v, want ErrActionsNotSynchronizable", err)
	}
	rt.SetSessionState(driver.SessionStateIdle)
	rt.SetSessionState(driver.SessionStateReady)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if err := c.SyncActions(); !errors.Is(err, xr.ErrActionsNotSynchronizable) {
		t.Errorf("SyncActions in Ready = %v, want ErrActionsNotSynchronizable", err)
	}
	if got := rt.Stats().SyncActions; got != 0 {
		t.Errorf("runtime SyncActions calls = %d, want 0", got)
	}
	rt.SetSessionState(driver.SessionStateSynchronized)
	if err := c.PollEvents(); err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if err := c.SyncActions(); err != nil {
		t.Errorf("SyncActions in Synchronized = %v", err)
	}
}

func TestUpdateEyeViews(t *testing.T) {
	_, c := focused(t, nil, xr.WithClipPlanes(0.05, 100))
	if _, err := c.OnFrameStart(context.Background()); err != nil {
		t.Fatalf("OnFrameStart: %v", err)
	}
	eyes, err := c.UpdateEyeViews()
	if err != nil {
		t.Fatalf("UpdateEyeViews: %v", err)
	}
	if eyes[0].Pose.Position[0] >= eyes[1].Pose.Position[0] {
		t.Errorf("left eye x %v not left of right eye x %v", eyes[0].Pose.Position[0], eyes[1].Pose.Position[0])
	}
	want := xr.ProjectionGL(eyes[0].Fov, 0.05, 100)
	if eyes[0].Projection != want {
		t.Errorf("Projection = %v, want %v", eyes[0].Projection, want)
	}
	if c.EyeViews() != eyes {
		t.Error("EyeViews differs from the last update")
	}
	if err := c.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

func TestChooseFormat(t *testing.T) {
	_, c := focused(t, []sim.Option{sim.WithSwapchainFormats(
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatBGRA8UnormSrgb,
	)})

	got, err := c.ChooseFormat()
	if err != nil || got != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("ChooseFormat() = %v, %v; want first color format", got, err)
	}
	got, err = c.ChooseFormat(gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatDepth24PlusStencil8)
	if err != nil || got != gputypes.TextureFormatDepth24PlusStencil8 {
		t.Errorf("ChooseFormat(pref) = %v, %v", got, err)
	}
	if _, err := c.ChooseFormat(gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, driver.ErrSwapchainFormatUnsupported) {
		t.Errorf("ChooseFormat(unsupported) = %v, want ErrSwapchainFormatUnsupported", err)
	}
}

func TestReferenceSpaces(t *testing.T) {
	_, c := focused(t, nil, xr.WithReferenceSpace(driver.ReferenceSpaceStage))

	spaces, err := c.ReferenceSpaces()
	if err != nil || len(spaces) != 3 {
		t.Fatalf("ReferenceSpaces = %v, %v", spaces, err)
	}
	bounds, err := c.BoundsRect(driver.ReferenceSpaceStage)
	if err != nil || bounds.Width <= 0 || bounds.Height <= 0 {
		t.Errorf("BoundsRect(stage) = %+v, %v", bounds, err)
	}
	local, err := c.CreateReferenceSpace(driver.ReferenceSpaceLocal, xr.IdentityPose)
	if err != nil {
		t.Fatalf("CreateReferenceSpace: %v", err)
	}
	loc, err := local.Locate(c.Space(), 0)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	// The local origin is above the stage floor.
	if loc.Pose.Position[1] <= 0 {
		t.Errorf("local origin in stage space = %v, want above floor", loc.Pose.Position)
	}
}

func TestSessionLifecycleErrors(t *testing.T) {
	_, c := newSession(t, nil)
	if err := c.CreateSession(nil); !errors.Is(err, xr.ErrSessionExists) {
		t.Errorf("second CreateSession = %v, want ErrSessionExists", err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := c.Destroy(); err != nil {
		t.Errorf("second Destroy = %v, want nil", err)
	}
	if err := c.RequestExit(); !errors.Is(err, xr.ErrNoSession) {
		t.Errorf("RequestExit after Destroy = %v, want ErrNoSession", err)
	}
	if _, err := xr.NewSwapchain[*sim.Image](c, xr.SwapchainSpec{Width: 1, Height: 1}); !errors.Is(err, xr.ErrNoSession) {
		t.Errorf("NewSwapchain without session = %v, want ErrNoSession", err)
	}
}
