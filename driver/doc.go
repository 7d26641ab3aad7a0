// Package driver defines the surface an immersive-device runtime must expose
// to the xr package.
//
// The xr package never talks to a runtime directly. It holds the interfaces
// declared here, in the same way database/sql holds database/sql/driver
// values. A driver implements [Loader] and registers itself with
// xr.Register from an init function:
//
//	func init() {
//	    xr.Register("openxr", 100, func() (driver.Loader, error) {
//	        return newLoader()
//	    }, available)
//	}
//
// # Handles
//
// Instance, Session, Swapchain, Space, ActionSet and Action are opaque
// handles. A nil handle is the "null handle" of the runtime: the xr package
// treats a nil Action as inactive instead of failing.
//
// # Data types
//
// Events, frame state, views, poses and composition layers are plain
// structs. They carry no behavior and are safe to copy.
//
// The in-process reference implementation lives in driver/sim.
package driver
