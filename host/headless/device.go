// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// NullDevice is the shared device handle of a headless window. It has no
// GPU behind it; runtimes that accept it render nothing on the device and
// exchange CPU images instead.
type NullDevice struct{}

// Device returns nil for the null device.
func (NullDevice) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDevice) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDevice) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat reports the format of the window back buffer.
func (NullDevice) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// AdapterInfo describes the CPU as a software adapter.
func (NullDevice) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "headless software", Type: gpucontext.AdapterTypeSoftware}
}

var _ gpucontext.DeviceProvider = NullDevice{}
