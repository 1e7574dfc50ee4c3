// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"time"
)

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
}

// Type returns "Input", "Output", "Input/Output" or "" for a device without
// channels.
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return ""
}

// CanCapture reports whether the device has input channels.
func (d Device) CanCapture() bool {
	return d.MaxInputChannels > 0
}

// WriteDevices prints one block per device to w.
func WriteDevices(w io.Writer, devices []Device) error {
	if _, err := fmt.Fprintf(w, "\nAvailable Audio Devices\n\n"); err != nil {
		return err
	}
	for _, device := range devices {
		_, err := fmt.Fprintf(w,
			"[%d] %s (%s)\n"+
				"    Input channels: %d, Output channels: %d\n"+
				"    Default sample rate: %.0f Hz\n"+
				"    Latency: Low=%.2fms, High=%.2fms\n\n",
			device.ID, device.Name, device.Type(),
			device.MaxInputChannels, device.MaxOutputChannels,
			device.DefaultSampleRate,
			device.LowInputLatency.Seconds()*1000,
			device.HighInputLatency.Seconds()*1000)
		if err != nil {
			return err
		}
	}
	return nil
}
