//go:build linux

package evdevinput

import (
	"fmt"
	"os"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

// SourceSelection is the set of opened devices the runtime reads from.
// HotkeyPaths are devices that expose at least one of the configured hotkeys;
// PointerPaths are devices that expose the left button and so can produce the
// clicks a recording captures.
type SourceSelection struct {
	Devices      []*evdev.InputDevice
	HotkeyPaths  map[string]struct{}
	PointerPaths map[string]struct{}
}

func ListInputDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]DeviceInfo, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}

		devices = append(devices, DeviceInfo{
			Path:      path.Path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
			IsPointer: deviceIsPointer(dev),
		})
		_ = dev.Close()
	}

	return devices, nil
}

// OpenSourceSelection opens the devices the runtime needs for the given
// hotkeys. With an explicit devicePath only that device is used and it must
// expose every hotkey; otherwise all non-virtual devices exposing a hotkey or
// the left button are opened.
func OpenSourceSelection(devicePath string, hotkeyCodes []uint16) (*SourceSelection, error) {
	if devicePath != "" {
		dev, err := openInputDevice(devicePath)
		if err != nil {
			return nil, err
		}
		for _, code := range hotkeyCodes {
			if !deviceSupportsCode(dev, code) {
				_ = dev.Close()
				return nil, fmt.Errorf("%s does not expose hotkey %s", devicePath, FormatCodeName(code))
			}
		}
		path := dev.Path()
		selection := &SourceSelection{
			Devices:      []*evdev.InputDevice{dev},
			HotkeyPaths:  map[string]struct{}{path: {}},
			PointerPaths: map[string]struct{}{},
		}
		if deviceSupportsCode(dev, CodeBTNLeft) {
			selection.PointerPaths[path] = struct{}{}
		}
		return selection, nil
	}

	hotkeyPaths := make(map[string]struct{})
	for _, code := range hotkeyCodes {
		matches, err := findDevicesByCode(code)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no input device exposes hotkey %s; use --list-devices and then pass --device", FormatCodeName(code))
		}
		for _, match := range matches {
			hotkeyPaths[match.Path] = struct{}{}
		}
	}

	pointerMatches, err := findDevicesByCode(CodeBTNLeft)
	if err != nil {
		return nil, err
	}
	if len(pointerMatches) == 0 {
		return nil, fmt.Errorf("no input device exposes %s; cannot observe clicks", FormatCodeName(CodeBTNLeft))
	}
	pointerPaths := make(map[string]struct{}, len(pointerMatches))
	for _, match := range pointerMatches {
		pointerPaths[match.Path] = struct{}{}
	}

	allPathMap := make(map[string]struct{}, len(hotkeyPaths)+len(pointerPaths))
	for path := range hotkeyPaths {
		allPathMap[path] = struct{}{}
	}
	for path := range pointerPaths {
		allPathMap[path] = struct{}{}
	}

	allPaths := make([]string, 0, len(allPathMap))
	for path := range allPathMap {
		allPaths = append(allPaths, path)
	}
	sort.Strings(allPaths)

	devices := make([]*evdev.InputDevice, 0, len(allPaths))
	closeDevices := func() {
		for _, dev := range devices {
			_ = dev.Close()
		}
	}

	for _, path := range allPaths {
		dev, err := openInputDevice(path)
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("found matching input devices, but failed to open any of them")
	}

	opened := make(map[string]struct{}, len(devices))
	for _, dev := range devices {
		opened[dev.Path()] = struct{}{}
	}
	for path := range hotkeyPaths {
		if _, ok := opened[path]; !ok {
			delete(hotkeyPaths, path)
		}
	}
	for path := range pointerPaths {
		if _, ok := opened[path]; !ok {
			delete(pointerPaths, path)
		}
	}

	if len(hotkeyPaths) == 0 {
		closeDevices()
		return nil, fmt.Errorf("failed to open any hotkey-capable input devices")
	}
	if len(pointerPaths) == 0 {
		closeDevices()
		return nil, fmt.Errorf("failed to open any pointer input devices")
	}

	return &SourceSelection{Devices: devices, HotkeyPaths: hotkeyPaths, PointerPaths: pointerPaths}, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func deviceSupportsCode(device *evdev.InputDevice, code uint16) bool {
	needle := evdev.EvCode(code)
	for _, c := range device.CapableEvents(evdev.EV_KEY) {
		if c == needle {
			return true
		}
	}
	return false
}

func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	id, err := device.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func deviceIsPointer(device *evdev.InputDevice) bool {
	var hasRelX, hasRelY bool
	for _, code := range device.CapableEvents(evdev.EV_REL) {
		if code == evdev.REL_X {
			hasRelX = true
		}
		if code == evdev.REL_Y {
			hasRelY = true
		}
	}
	if hasRelX && hasRelY {
		return true
	}
	return len(device.CapableEvents(evdev.EV_ABS)) > 0
}

func findDevicesByCode(code uint16) ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	matches := make([]DeviceInfo, 0)
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}
		if deviceSupportsCode(dev, code) {
			matches = append(matches, DeviceInfo{
				Path:      path.Path,
				Name:      name,
				IsVirtual: deviceIsVirtual(dev, name),
				IsPointer: deviceIsPointer(dev),
			})
		}
		_ = dev.Close()
	}

	if len(matches) == 0 {
		return matches, nil
	}

	// Prefer real hardware; synthetic devices echo our own injected clicks.
	pool := make([]DeviceInfo, 0, len(matches))
	for _, match := range matches {
		if !match.IsVirtual {
			pool = append(pool, match)
		}
	}
	if len(pool) == 0 {
		pool = matches
	}

	if code == CodeBTNLeft {
		pointerPool := make([]DeviceInfo, 0, len(pool))
		for _, match := range pool {
			if match.IsPointer {
				pointerPool = append(pointerPool, match)
			}
		}
		if len(pointerPool) > 0 {
			pool = pointerPool
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Path < pool[j].Path
	})
	return pool, nil
}
