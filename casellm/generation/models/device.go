package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind says where inference runs.
type DeviceKind int

const (
	DeviceCPU DeviceKind = iota
	DeviceGPU
)

// Device is a parsed model.device value.
type Device struct {
	Kind    DeviceKind
	Index   int    // selected GPU, -1 when unset
	Name    string // GPU name as configured, e.g. "NVIDIA GeForce RTX 2070 SUPER"
	Backend string // "gpu", "auto", "cuda", ... when no specific GPU was named
}

// ParseDevice interprets a device string: "cpu", "gpu", a backend name, a GPU index, or a GPU name.
func ParseDevice(s string) (Device, error) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "", "cpu":
		return Device{Kind: DeviceCPU, Index: -1}, nil
	case "gpu", "auto", "cuda", "metal", "vulkan", "kompute":
		return Device{Kind: DeviceGPU, Index: -1, Backend: lower}, nil
	}

	if n, err := strconv.Atoi(lower); err == nil {
		if n < 0 {
			return Device{}, fmt.Errorf("invalid device %q: GPU index cannot be negative", s)
		}
		return Device{Kind: DeviceGPU, Index: n}, nil
	}

	return Device{Kind: DeviceGPU, Index: -1, Name: trimmed}, nil
}

func (d Device) String() string {
	if d.Kind == DeviceCPU {
		return "cpu"
	}
	if d.Index >= 0 {
		return "gpu:" + strconv.Itoa(d.Index)
	}
	if d.Name != "" {
		return d.Name
	}
	if d.Backend != "" {
		return d.Backend
	}
	return "gpu"
}

// ResolveIndex maps a named GPU to its position in gpus, the device names in
// backend enumeration order. Devices without a name keep their index.
func (d Device) ResolveIndex(gpus []string) (int, error) {
	if d.Kind == DeviceCPU || d.Name == "" {
		return d.Index, nil
	}
	for i, g := range gpus {
		if strings.EqualFold(strings.TrimSpace(g), d.Name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("GPU %q is not listed in model.gpus; list the GPUs in device order or select one by index", d.Name)
}
