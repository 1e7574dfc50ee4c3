// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepitch/internal/audio"
)

var pickerDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
	{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 2, Name: "USB Interface", MaxInputChannels: 4, MaxOutputChannels: 4, DefaultSampleRate: 96000},
}

func pickerUpdate(t *testing.T, m DeviceListModel, msg tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	next, ok := model.(DeviceListModel)
	require.True(t, ok)
	return next, cmd
}

func readyPicker(t *testing.T, fetch DeviceFetcher) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel(fetch)
	msg := m.Init()()
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m, _ = pickerUpdate(t, m, msg)
	return m
}

func TestPickerListsOnlyInputs(t *testing.T) {
	m := readyPicker(t, func() ([]audio.Device, error) { return pickerDevices, nil })

	require.Len(t, m.devices, 2)
	view := m.View()
	assert.Contains(t, view, "Built-in Microphone")
	assert.Contains(t, view, "USB Interface")
	assert.NotContains(t, view, "Speakers")
}

func TestPickerSelectsDeviceAndRate(t *testing.T) {
	m := readyPicker(t, func() ([]audio.Device, error) { return pickerDevices, nil })

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ConfigScreen, m.activeScreen)
	assert.Equal(t, 96000.0, m.selectedSampleRate)
	assert.Contains(t, m.View(), "Configure Device: USB Interface")

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	assert.Equal(t, Selection{
		DeviceID:   2,
		Name:       "USB Interface",
		SampleRate: 88200,
		Channels:   2,
		Chosen:     true,
	}, m.Selection())
}

func TestPickerEscReturnsToList(t *testing.T) {
	m := readyPicker(t, func() ([]audio.Device, error) { return pickerDevices, nil })
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ListScreen, m.activeScreen)
}

func TestPickerQuitWithoutChoosing(t *testing.T) {
	m := readyPicker(t, func() ([]audio.Device, error) { return pickerDevices, nil })
	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.False(t, m.Selection().Chosen)
}

func TestPickerFetchError(t *testing.T) {
	m := readyPicker(t, func() ([]audio.Device, error) { return nil, errors.New("no host API") })
	assert.Contains(t, m.View(), "Error: no host API")
}

func TestSampleRatesFor(t *testing.T) {
	rates, idx := sampleRatesFor(44100)
	assert.Equal(t, 44100.0, rates[idx])

	rates, idx = sampleRatesFor(32000)
	assert.Equal(t, 32000.0, rates[idx])
	assert.Len(t, rates, len(commonSampleRates)+1)

	_, idx = sampleRatesFor(0)
	assert.Equal(t, 1, idx)
}
