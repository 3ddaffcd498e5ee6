package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// Device is the part of an NVML device handle the sensor uses.
type Device interface {
	GetName() (string, nvml.Return)
	GetUUID() (string, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
}

// library abstracts NVML initialization and device lookup for testing
type library interface {
	Initialize() error
	Shutdown() error
	GetDeviceCount() (int, error)
	GetDevice(index int) (Device, error)
	GetDeviceByUUID(uuid string) (Device, error)
}
