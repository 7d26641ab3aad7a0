// Command xrdemo runs the stereo frame loop against an xr runtime driver,
// rendering a debug scene and an input panel into a headless window.
//
// Usage:
//
//	xrdemo run --driver sim --frames 300
//	xrdemo info
//
// Every flag has an XR_* environment variable counterpart, for example
// XR_LOG_LEVEL=debug or XR_METRICS_ADDR=:9090.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xrdemo:", err)
		os.Exit(exitCode(err))
	}
}
