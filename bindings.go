package xr

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// ActionName names one logical action of the fixed vocabulary.
type ActionName string

// The action vocabulary. Every action is declared for both hands.
const (
	ActionGripPose        ActionName = "grip_pose"
	ActionAimPose         ActionName = "aim_pose"
	ActionSqueeze         ActionName = "squeeze_value"
	ActionTrigger         ActionName = "trigger_value"
	ActionThumbstick      ActionName = "thumbstick"
	ActionThumbstickClick ActionName = "thumbstick_click"
	ActionQuit            ActionName = "quit_session"
	ActionHaptic          ActionName = "hand_vibrate"
)

// Actions lists the vocabulary in declaration order.
var Actions = []ActionName{
	ActionGripPose,
	ActionAimPose,
	ActionSqueeze,
	ActionTrigger,
	ActionThumbstick,
	ActionThumbstickClick,
	ActionQuit,
	ActionHaptic,
}

// Interaction profile paths with default bindings.
const (
	ProfileSimpleController = "/interaction_profiles/khr/simple_controller"
	ProfileOculusTouch      = "/interaction_profiles/oculus/touch_controller"
	ProfileViveController   = "/interaction_profiles/htc/vive_controller"
	ProfileMotionController = "/interaction_profiles/microsoft/motion_controller"
)

// BindingProfile suggests hardware inputs for the actions of one interaction
// profile.
//
// A binding path that starts with "/user/" is used as is. Any other path
// is a component path such as "/input/trigger/value" and is bound for both
// hands.
type BindingProfile struct {
	Path     string                  `yaml:"path"`
	Bindings map[ActionName][]string `yaml:"bindings"`
}

// handed reports the full binding paths of p for action a.
func (p BindingProfile) handed(a ActionName, hands []string) []string {
	var out []string
	for _, b := range p.Bindings[a] {
		if strings.HasPrefix(b, "/user/") {
			out = append(out, b)
			continue
		}
		for _, h := range hands {
			out = append(out, h+b)
		}
	}
	return out
}

// DefaultBindingProfiles returns bindings for the KHR simple controller,
// Oculus Touch, HTC Vive and Windows Mixed Reality motion controllers.
// Components a profile lacks are simply not bound.
func DefaultBindingProfiles() []BindingProfile {
	return []BindingProfile{
		{
			Path: ProfileSimpleController,
			Bindings: map[ActionName][]string{
				ActionGripPose: {"/input/grip/pose"},
				ActionAimPose:  {"/input/aim/pose"},
				ActionTrigger:  {"/input/select/click"},
				ActionQuit:     {"/input/menu/click"},
				ActionHaptic:   {"/output/haptic"},
			},
		},
		{
			Path: ProfileOculusTouch,
			Bindings: map[ActionName][]string{
				ActionGripPose:        {"/input/grip/pose"},
				ActionAimPose:         {"/input/aim/pose"},
				ActionSqueeze:         {"/input/squeeze/value"},
				ActionTrigger:         {"/input/trigger/value"},
				ActionThumbstick:      {"/input/thumbstick"},
				ActionThumbstickClick: {"/input/thumbstick/click"},
				ActionQuit:            {"/user/hand/left/input/menu/click"},
				ActionHaptic:          {"/output/haptic"},
			},
		},
		{
			Path: ProfileViveController,
			Bindings: map[ActionName][]string{
				ActionGripPose:        {"/input/grip/pose"},
				ActionAimPose:         {"/input/aim/pose"},
				ActionSqueeze:         {"/input/squeeze/click"},
				ActionTrigger:         {"/input/trigger/value"},
				ActionThumbstick:      {"/input/trackpad"},
				ActionThumbstickClick: {"/input/trackpad/click"},
				ActionQuit:            {"/input/menu/click"},
				ActionHaptic:          {"/output/haptic"},
			},
		},
		{
			Path: ProfileMotionController,
			Bindings: map[ActionName][]string{
				ActionGripPose:        {"/input/grip/pose"},
				ActionAimPose:         {"/input/aim/pose"},
				ActionSqueeze:         {"/input/squeeze/click"},
				ActionTrigger:         {"/input/trigger/value"},
				ActionThumbstick:      {"/input/thumbstick"},
				ActionThumbstickClick: {"/input/thumbstick/click"},
				ActionQuit:            {"/input/menu/click"},
				ActionHaptic:          {"/output/haptic"},
			},
		},
	}
}

// bindingFile is the on-disk layout read by LoadBindingProfiles.
//
//	profiles:
//	  - path: /interaction_profiles/valve/index_controller
//	    bindings:
//	      squeeze_value: [/input/squeeze/value]
//	      trigger_value: [/input/trigger/value]
type bindingFile struct {
	Profiles []BindingProfile `yaml:"profiles"`
}

// LoadBindingProfiles parses binding profiles from YAML.
func LoadBindingProfiles(r io.Reader) ([]BindingProfile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("xr: read binding profiles: %w", err)
	}
	var f bindingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("xr: parse binding profiles: %w", err)
	}
	known := make(map[ActionName]bool, len(Actions))
	for _, a := range Actions {
		known[a] = true
	}
	for i, p := range f.Profiles {
		if !strings.HasPrefix(p.Path, "/interaction_profiles/") {
			return nil, fmt.Errorf("xr: binding profile %d: invalid path %q", i, p.Path)
		}
		for a, paths := range p.Bindings {
			if !known[a] {
				return nil, fmt.Errorf("xr: binding profile %s: unknown action %q", p.Path, a)
			}
			for _, b := range paths {
				if !strings.HasPrefix(b, "/") {
					return nil, fmt.Errorf("xr: binding profile %s: invalid binding %q", p.Path, b)
				}
			}
		}
	}
	return f.Profiles, nil
}

// LoadBindingProfilesFile parses binding profiles from the YAML file at path.
func LoadBindingProfilesFile(path string) ([]BindingProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xr: open binding profiles: %w", err)
	}
	defer f.Close()
	return LoadBindingProfiles(f)
}

// mergeProfiles appends extra to base, replacing profiles with the same path.
func mergeProfiles(base, extra []BindingProfile) []BindingProfile {
	out := append([]BindingProfile(nil), base...)
	for _, p := range extra {
		replaced := false
		for i := range out {
			if out[i].Path == p.Path {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}
