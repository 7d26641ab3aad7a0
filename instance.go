package xr

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/xr/driver"
)

// Instance is a connection to a runtime together with the system and the
// stereo view configuration the application renders for.
//
// Instance is created once and destroyed at teardown. Destroy is idempotent.
type Instance struct {
	loader    driver.Loader
	handle    driver.Instance
	messenger driver.DebugMessenger
	log       *slog.Logger

	available  []driver.ExtensionProperties
	enabled    []string
	properties driver.InstanceProperties
	system     driver.SystemID
	systemInfo driver.SystemProperties
	viewConfig driver.ViewConfigurationProperties
	views      []driver.ViewConfigurationView

	mu        sync.Mutex
	destroyed bool
}

// Create opens a runtime, resolves extensions, creates the runtime instance
// and validates the system's stereo view configuration.
//
// All failures are returned as *SetupError.
func Create(opts ...InstanceOption) (*Instance, error) {
	o := defaultInstanceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	loader := o.loader
	if loader == nil {
		l, err := OpenDriver(o.driverName)
		if err != nil {
			return nil, setupErr("open driver", err)
		}
		loader = l
	}

	available, err := loader.EnumerateExtensions()
	if err != nil {
		return nil, setupErr("enumerate extensions", err)
	}
	enabled, err := resolveExtensions(available, &o)
	if err != nil {
		return nil, setupErr("resolve extensions", err)
	}

	handle, err := loader.CreateInstance(driver.InstanceCreateInfo{
		Application: o.app,
		Extensions:  enabled,
	})
	if err != nil {
		return nil, setupErr("create instance", err)
	}

	inst := &Instance{
		loader:    loader,
		handle:    handle,
		log:       log,
		available: available,
		enabled:   enabled,
	}
	if err := inst.init(&o); err != nil {
		_ = inst.Destroy()
		return nil, err
	}

	log.Info("xr: instance created",
		"runtime", inst.properties.RuntimeName,
		"version", versionString(inst.properties.RuntimeVersion),
		"system", inst.systemInfo.SystemName,
		"extensions", len(enabled))
	return inst, nil
}

// resolveExtensions intersects the wanted extensions with the available
// ones. Mandatory extensions that are missing fail with
// *MissingExtensionError.
func resolveExtensions(available []driver.ExtensionProperties, o *instanceOptions) ([]string, error) {
	offered := make(map[string]bool, len(available))
	for _, e := range available {
		offered[e.Name] = true
	}

	var enabled []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			enabled = append(enabled, name)
		}
	}

	mandatory := append([]string{o.graphics}, o.required...)
	for _, name := range mandatory {
		if name == "" {
			continue
		}
		if !offered[name] {
			return nil, &MissingExtensionError{Name: name}
		}
		add(name)
	}
	for _, name := range o.optional {
		if offered[name] {
			add(name)
		}
	}
	if o.debug && offered[driver.ExtensionDebugUtils] {
		add(driver.ExtensionDebugUtils)
	}
	return enabled, nil
}

func (inst *Instance) init(o *instanceOptions) error {
	if o.debug && inst.HasExtension(driver.ExtensionDebugUtils) {
		log := inst.log
		m, err := inst.handle.CreateDebugMessenger(driver.DebugMessengerCreateInfo{
			Severities: o.severities,
			Types:      driver.DebugTypeAll,
			Callback:   func(msg driver.DebugMessage) { logDebugMessage(log, msg) },
		})
		if err != nil {
			return setupErr("create debug messenger", err)
		}
		inst.messenger = m
	}

	props, err := inst.handle.Properties()
	if err != nil {
		return setupErr("instance properties", err)
	}
	inst.properties = props

	system, err := inst.handle.GetSystem(o.formFactor)
	if err != nil {
		return setupErr("get system", err)
	}
	inst.system = system

	if inst.systemInfo, err = inst.handle.SystemProperties(system); err != nil {
		return setupErr("system properties", err)
	}

	configs, err := inst.handle.EnumerateViewConfigurations(system)
	if err != nil {
		return setupErr("enumerate view configurations", err)
	}
	stereo := false
	for _, c := range configs {
		if c == driver.ViewConfigurationPrimaryStereo {
			stereo = true
			break
		}
	}
	if !stereo {
		return setupErr("view configuration", ErrUnsupportedViewConfiguration)
	}

	if inst.viewConfig, err = inst.handle.ViewConfigurationProperties(system, driver.ViewConfigurationPrimaryStereo); err != nil {
		return setupErr("view configuration properties", err)
	}
	views, err := inst.handle.EnumerateViewConfigurationViews(system, driver.ViewConfigurationPrimaryStereo)
	if err != nil {
		return setupErr("enumerate views", err)
	}
	if err := validateStereoViews(views); err != nil {
		return setupErr("view configuration", err)
	}
	inst.views = views
	return nil
}

// validateStereoViews requires exactly two views with equal recommended
// heights, so both eyes fit side by side in one render target.
func validateStereoViews(views []driver.ViewConfigurationView) error {
	if len(views) != 2 {
		return fmt.Errorf("%w: %d views, want 2", ErrUnsupportedViewConfiguration, len(views))
	}
	if views[0].RecommendedImageRectHeight != views[1].RecommendedImageRectHeight {
		return fmt.Errorf("%w: eye heights %d and %d differ", ErrUnsupportedViewConfiguration,
			views[0].RecommendedImageRectHeight, views[1].RecommendedImageRectHeight)
	}
	if views[0].RecommendedImageRectWidth == 0 || views[0].RecommendedImageRectHeight == 0 {
		return fmt.Errorf("%w: empty recommended image rect", ErrUnsupportedViewConfiguration)
	}
	return nil
}

// Handle returns the driver instance.
func (inst *Instance) Handle() driver.Instance { return inst.handle }

// System returns the selected system.
func (inst *Instance) System() driver.SystemID { return inst.system }

// SystemProperties returns the properties of the selected system.
func (inst *Instance) SystemProperties() driver.SystemProperties { return inst.systemInfo }

// Properties returns the runtime name and version.
func (inst *Instance) Properties() driver.InstanceProperties { return inst.properties }

// Views returns the per-eye image recommendations.
func (inst *Instance) Views() []driver.ViewConfigurationView {
	return append([]driver.ViewConfigurationView(nil), inst.views...)
}

// EnabledExtensions returns the extensions the instance was created with.
func (inst *Instance) EnabledExtensions() []string {
	return append([]string(nil), inst.enabled...)
}

// HasExtension reports whether name was enabled.
func (inst *Instance) HasExtension(name string) bool {
	for _, e := range inst.enabled {
		if e == name {
			return true
		}
	}
	return false
}

// RenderTargetSize returns the size of a side-by-side stereo target: twice
// the recommended eye width by the recommended eye height.
func (inst *Instance) RenderTargetSize() (width, height int) {
	v := inst.views[0]
	return 2 * int(v.RecommendedImageRectWidth), int(v.RecommendedImageRectHeight)
}

// EyeRect returns the image rect of eye (0 left, 1 right) inside the
// side-by-side render target.
func (inst *Instance) EyeRect(eye int) driver.Rect2Di {
	w, h := inst.RenderTargetSize()
	half := int32(w / 2)
	return driver.Rect2Di{
		Offset: driver.Offset2Di{X: int32(eye) * half},
		Extent: driver.Extent2Di{Width: half, Height: int32(h)},
	}
}

// Path interns a semantic path string.
func (inst *Instance) Path(s string) (driver.Path, error) {
	p, err := inst.handle.StringToPath(s)
	if err != nil {
		return driver.NullPath, fmt.Errorf("xr: path %q: %w", s, err)
	}
	return p, nil
}

// Info describes the runtime, the system and its view configuration.
type Info struct {
	Runtime           driver.InstanceProperties
	Available         []driver.ExtensionProperties
	Enabled           []string
	System            driver.SystemProperties
	ViewConfiguration driver.ViewConfigurationProperties
	Views             []driver.ViewConfigurationView
	RenderTarget      driver.Extent2Di
}

// Info returns a snapshot of everything the instance discovered.
func (inst *Instance) Info() Info {
	w, h := inst.RenderTargetSize()
	return Info{
		Runtime:           inst.properties,
		Available:         append([]driver.ExtensionProperties(nil), inst.available...),
		Enabled:           inst.EnabledExtensions(),
		System:            inst.systemInfo,
		ViewConfiguration: inst.viewConfig,
		Views:             inst.Views(),
		RenderTarget:      driver.Extent2Di{Width: int32(w), Height: int32(h)},
	}
}

// Destroy tears down the debug messenger and then the runtime instance.
// It is safe to call more than once.
func (inst *Instance) Destroy() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.destroyed {
		return nil
	}
	inst.destroyed = true

	var errs []error
	if inst.messenger != nil {
		if err := inst.messenger.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("xr: destroy debug messenger: %w", err))
		}
		inst.messenger = nil
	}
	if inst.handle != nil {
		if err := inst.handle.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("xr: destroy instance: %w", err))
		}
	}
	inst.log.Debug("xr: instance destroyed")
	return errors.Join(errs...)
}

// Destroyed reports whether Destroy has been called.
func (inst *Instance) Destroyed() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.destroyed
}

func versionString(v driver.Version) string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
