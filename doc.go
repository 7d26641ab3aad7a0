// Package xr drives an immersive-device runtime's session and frame protocol.
//
// # Overview
//
// xr coordinates an application's rendering loop with an external runtime
// that exposes instance creation, system discovery, a session lifecycle,
// per-frame timing, input actions and swapchain image exchange. The runtime
// itself is reached through the interfaces of package driver; the
// simulated runtime in driver/sim runs everywhere without hardware.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/xr"
//	    _ "github.com/gogpu/xr/driver/sim"
//	)
//
//	inst, err := xr.Create(xr.WithApplicationName("demo"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Destroy()
//
//	xc, err := xr.NewContext(inst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer xc.Destroy()
//
//	if err := xc.CreateSession(device); err != nil {
//	    log.Fatal(err)
//	}
//	for !xc.Stopped() {
//	    xc.PollEvents()
//	    if !xc.CanSyncActions() {
//	        continue
//	    }
//	    xc.OnFrameStart(ctx)
//	    ...
//	    xc.EndFrame(layers)
//	}
//
// Package app wraps that loop, including the window, scene and auxiliary
// layers, into a single orchestrator.
//
// # Frame Protocol
//
// Every iteration polls events first. Frames may only be started while the
// session is Synchronized, Visible or Focused. A frame that was begun with
// result Success or FrameDiscarded must be ended, with an empty layer list if
// nothing was rendered. ShouldRender is true only when the begin succeeded
// and the runtime asked for rendering.
//
// # Errors
//
// Errors fall into three classes: setup errors (*SetupError) abort startup,
// protocol violations (IsProtocolViolation) report misuse at the call site,
// and transient runtime conditions (IsTransient) are absorbed by the frame
// loop. Session and instance loss are reported through Context state.
//
// # Coordinate System
//
// Poses follow the runtime convention: right-handed, +Y up, -Z forward,
// meters. Matrices are row-major like every f32.Mat4; transpose them for
// column-major shader uniforms.
package xr
