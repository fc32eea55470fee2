package hardware

import (
	"fmt"
	"os"
)

// ReadAdcValue reads one raw sample from an IIO ADC channel.
func ReadAdcValue(device string, channel int) (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", device, channel)
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	if _, err := fmt.Sscanf(string(data), "%d", &value); err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}

	return value, nil
}

// AdcToPercent maps a raw converter sample onto a 0..100 brightness value.
func AdcToPercent(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > AdcMaxRaw {
		return 100
	}
	return raw * 100 / AdcMaxRaw
}

// AdcReader samples the brightness potentiometer.
type AdcReader struct {
	device  string
	channel int
}

// NewAdcReader creates a reader for the given IIO device and channel.
func NewAdcReader(device string, channel int) *AdcReader {
	return &AdcReader{device: device, channel: channel}
}

// ReadPercent returns the potentiometer position as 0..100.
func (a *AdcReader) ReadPercent() (int, error) {
	raw, err := ReadAdcValue(a.device, a.channel)
	if err != nil {
		return 0, err
	}
	return AdcToPercent(raw), nil
}
