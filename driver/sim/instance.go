package sim

import (
	"strings"

	"github.com/gogpu/xr/driver"
)

const systemID driver.SystemID = 1

type instance struct {
	rt         *Runtime
	app        driver.ApplicationInfo
	enabled    map[string]bool
	messengers []*messenger
	destroyed  bool
}

type messenger struct {
	inst *instance
	info driver.DebugMessengerCreateInfo
}

// emitLocked delivers a diagnostic message to every matching messenger.
func (i *instance) emitLocked(sev driver.DebugMessageSeverity, typ driver.DebugMessageType, fn, msg string) {
	for _, m := range i.messengers {
		if m.info.Callback == nil || m.info.Severities&sev == 0 || m.info.Types&typ == 0 {
			continue
		}
		m.info.Callback(driver.DebugMessage{
			Severity:     sev,
			Type:         typ,
			MessageID:    "sim",
			FunctionName: fn,
			Message:      msg,
		})
	}
}

// validationLocked reports a misuse through the messengers and returns err.
func (i *instance) validationLocked(fn string, err error) error {
	i.emitLocked(driver.DebugSeverityError, driver.DebugTypeValidation, fn, err.Error())
	return err
}

func (i *instance) Properties() (driver.InstanceProperties, error) {
	return driver.InstanceProperties{
		RuntimeName:    "gogpu simulated runtime",
		RuntimeVersion: driver.MakeVersion(1, 0, 34),
	}, nil
}

func (i *instance) GetSystem(formFactor driver.FormFactor) (driver.SystemID, error) {
	if formFactor != driver.FormFactorHeadMountedDisplay {
		return driver.NullSystemID, driver.ErrFormFactorUnavailable
	}
	return systemID, nil
}

func (i *instance) SystemProperties(system driver.SystemID) (driver.SystemProperties, error) {
	if system != systemID {
		return driver.SystemProperties{}, driver.ErrHandleInvalid
	}
	props := i.rt.opts.system
	props.SystemID = systemID
	return props, nil
}

func (i *instance) EnumerateViewConfigurations(system driver.SystemID) ([]driver.ViewConfigurationType, error) {
	if system != systemID {
		return nil, driver.ErrHandleInvalid
	}
	return []driver.ViewConfigurationType{driver.ViewConfigurationPrimaryStereo}, nil
}

func (i *instance) ViewConfigurationProperties(system driver.SystemID, viewConfig driver.ViewConfigurationType) (driver.ViewConfigurationProperties, error) {
	if system != systemID {
		return driver.ViewConfigurationProperties{}, driver.ErrHandleInvalid
	}
	if viewConfig != driver.ViewConfigurationPrimaryStereo {
		return driver.ViewConfigurationProperties{}, driver.ErrViewConfigurationUnsupported
	}
	return driver.ViewConfigurationProperties{Type: viewConfig}, nil
}

func (i *instance) EnumerateViewConfigurationViews(system driver.SystemID, viewConfig driver.ViewConfigurationType) ([]driver.ViewConfigurationView, error) {
	if system != systemID {
		return nil, driver.ErrHandleInvalid
	}
	if viewConfig != driver.ViewConfigurationPrimaryStereo {
		return nil, driver.ErrViewConfigurationUnsupported
	}
	out := make([]driver.ViewConfigurationView, len(i.rt.opts.views))
	copy(out, i.rt.opts.views)
	return out, nil
}

func (i *instance) StringToPath(path string) (driver.Path, error) {
	if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return driver.NullPath, driver.ErrPathInvalid
	}
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	return i.rt.pathLocked(path), nil
}

func (i *instance) PathToString(path driver.Path) (string, error) {
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	s, ok := i.rt.pathStringLocked(path)
	if !ok {
		return "", driver.ErrPathInvalid
	}
	return s, nil
}

func (i *instance) CreateActionSet(info driver.ActionSetCreateInfo) (driver.ActionSet, error) {
	if info.Name == "" {
		return nil, driver.ErrPathInvalid
	}
	return &actionSet{inst: i, info: info}, nil
}

func (i *instance) SuggestInteractionProfileBindings(profile driver.Path, bindings []driver.ActionSuggestedBinding) error {
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()

	name, ok := i.rt.pathStringLocked(profile)
	if !ok || !strings.HasPrefix(name, "/interaction_profiles/") {
		return i.validationLocked("xrSuggestInteractionProfileBindings", driver.ErrPathUnsupported)
	}
	if i.rt.session != nil && i.rt.session.attached {
		return i.validationLocked("xrSuggestInteractionProfileBindings", driver.ErrActionSetsAlreadyAttached)
	}

	resolved := make([]binding, 0, len(bindings))
	for _, b := range bindings {
		a, ok := b.Action.(*action)
		if !ok {
			return driver.ErrHandleInvalid
		}
		path, ok := i.rt.pathStringLocked(b.Binding)
		if !ok {
			return driver.ErrPathInvalid
		}
		resolved = append(resolved, binding{action: a, path: path})
	}
	if i.rt.suggested == nil {
		i.rt.suggested = make(map[string][]binding)
	}
	// A later suggestion for the same profile replaces the earlier one.
	i.rt.suggested[name] = resolved
	return nil
}

func (i *instance) CreateDebugMessenger(info driver.DebugMessengerCreateInfo) (driver.DebugMessenger, error) {
	if !i.enabled[driver.ExtensionDebugUtils] {
		return nil, driver.ErrExtensionNotPresent
	}
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	m := &messenger{inst: i, info: info}
	i.messengers = append(i.messengers, m)
	return m, nil
}

func (m *messenger) Destroy() error {
	m.inst.rt.mu.Lock()
	defer m.inst.rt.mu.Unlock()
	list := m.inst.messengers
	for k, other := range list {
		if other == m {
			m.inst.messengers = append(list[:k:k], list[k+1:]...)
			return nil
		}
	}
	return driver.ErrHandleInvalid
}

func (i *instance) PollEvent() (driver.Event, bool, error) {
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	if i.destroyed {
		return nil, false, driver.ErrHandleInvalid
	}
	if len(i.rt.events) == 0 {
		return nil, false, nil
	}
	ev := i.rt.events[0]
	i.rt.events = i.rt.events[1:]
	return ev, true, nil
}

func (i *instance) CreateSession(info driver.SessionCreateInfo) (driver.Session, error) {
	if info.System != systemID {
		return nil, driver.ErrHandleInvalid
	}
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	if i.destroyed {
		return nil, driver.ErrHandleInvalid
	}
	s := &session{rt: i.rt, inst: i, binding: info.Binding, state: driver.SessionStateUnknown}
	i.rt.session = s
	i.rt.stats.Sessions++
	if i.rt.opts.autoLifecycle {
		s.transitionLocked(driver.SessionStateIdle)
		s.transitionLocked(driver.SessionStateReady)
	}
	return s, nil
}

func (i *instance) Destroy() error {
	i.rt.mu.Lock()
	defer i.rt.mu.Unlock()
	if i.destroyed {
		return driver.ErrHandleInvalid
	}
	i.destroyed = true
	i.messengers = nil
	if i.rt.instance == i {
		i.rt.instance = nil
	}
	return nil
}
