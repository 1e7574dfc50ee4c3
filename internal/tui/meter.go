// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	applog "voicepitch/internal/log"
	"voicepitch/internal/pitch"
	"voicepitch/internal/readout"
)

// Status lines shown under the readout.
const (
	StatusIdle      = "Press s to start."
	StatusAnalyzing = "Analyzing voice frequency..."
	StatusStopped   = "Analysis stopped."
)

// gaugeMaxHz is the frequency at which the gauge is full.
const gaugeMaxHz = 1000

var (
	frequencyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)
)

// Opener acquires a sample source when analysis starts. It is called off the
// UI goroutine and may block, e.g. while a device opens.
type Opener func() (pitch.Source, error)

type meterKeys struct {
	Start key.Binding
	Stop  key.Binding
	Quit  key.Binding
}

func (k meterKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Quit}
}

func (k meterKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = meterKeys{
	Start: key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s/enter", "start")),
	Stop:  key.NewBinding(key.WithKeys("x", " ", "space"), key.WithHelp("x/space", "stop")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// MeterOptions configures a MeterModel.
type MeterOptions struct {
	Title    string
	Open     Opener
	Sinks    []pitch.Sink  // Receive every result after the tracker.
	Interval time.Duration // Display refresh period.
}

// MeterModel is the terminal pitch meter. It drives a FrameScheduler from
// its own refresh tick, so the sampling loop runs once per rendered frame.
type MeterModel struct {
	title    string
	open     Opener
	frames   *pitch.FrameScheduler
	tracker  *readout.Tracker
	sink     pitch.Sink
	interval time.Duration

	session *pitch.Session
	opening bool
	gen     int // Invalidates frame ticks from earlier sessions.
	status  string
	err     error

	keys  meterKeys
	help  help.Model
	gauge progress.Model
	log   *applog.Logger
}

type (
	frameMsg  struct{ gen int }
	sourceMsg struct{ source pitch.Source }
	errMsg    struct{ err error }
)

// NewMeter returns a meter that is idle until the start key is pressed.
func NewMeter(opts MeterOptions) MeterModel {
	if opts.Interval <= 0 {
		opts.Interval = pitch.DefaultTimerInterval
	}
	if opts.Title == "" {
		opts.Title = "Voice Pitch"
	}
	tracker := readout.NewTracker()
	sinks := append([]pitch.Sink{tracker}, opts.Sinks...)

	return MeterModel{
		title:    opts.Title,
		open:     opts.Open,
		frames:   pitch.NewFrameScheduler(),
		tracker:  tracker,
		sink:     pitch.Sinks(sinks...),
		interval: opts.Interval,
		status:   StatusIdle,
		keys:     defaultKeys,
		help:     help.New(),
		gauge:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		log:      applog.With("Meter"),
	}
}

// Tracker exposes the readout state, e.g. for a summary after the UI exits.
func (m MeterModel) Tracker() *readout.Tracker {
	return m.tracker
}

// Analyzing reports whether a session is running.
func (m MeterModel) Analyzing() bool {
	return m.session != nil && m.session.Analyzing()
}

// Status returns the status line.
func (m MeterModel) Status() string {
	if m.err != nil {
		return "Error: " + m.err.Error()
	}
	return m.status
}

func (m MeterModel) Init() tea.Cmd {
	return nil
}

func (m MeterModel) frameTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

func (m MeterModel) openSource() tea.Cmd {
	open := m.open
	return func() tea.Msg {
		if open == nil {
			return errMsg{fmt.Errorf("no audio source configured")}
		}
		src, err := open()
		if err != nil {
			return errMsg{err}
		}
		return sourceMsg{src}
	}
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.gauge.Width = min(max(msg.Width-4, 10), 60)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m = m.stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Start):
			if m.Analyzing() || m.opening {
				return m, nil
			}
			m.opening = true
			m.err = nil
			return m, m.openSource()

		case key.Matches(msg, m.keys.Stop):
			if m.Analyzing() {
				m = m.stop()
			}
		}

	case sourceMsg:
		m.opening = false
		session, err := pitch.Start(msg.source, m.frames, m.sink)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.session = session
		m.gen++
		m.status = StatusAnalyzing
		m.log.Infof("analysis started at %.0f Hz", session.SampleRate())
		return m, m.frameTick()

	case errMsg:
		m.opening = false
		m.err = msg.err
		m.log.Errorf("failed to start analysis: %v", msg.err)

	case frameMsg:
		if msg.gen != m.gen || !m.Analyzing() {
			return m, nil
		}
		m.frames.Frame()
		return m, m.frameTick()
	}

	return m, nil
}

// stop ends the running session, if any, and records a close error.
func (m MeterModel) stop() MeterModel {
	if m.session == nil {
		return m
	}
	if err := m.session.Stop(); err != nil {
		m.err = err
		m.log.Errorf("failed to stop analysis: %v", err)
	}
	m.session = nil
	m.status = StatusStopped
	return m
}

func (m MeterModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	hz, detected := m.tracker.Current()
	sb.WriteString("  ")
	sb.WriteString(frequencyStyle.Render(readout.FormatHz(hz, detected) + " Hz"))
	sb.WriteString("  ")
	sb.WriteString(infoStyle.Render(readout.FormatNote(hz, detected)))
	sb.WriteString("\n\n  ")

	level := 0.0
	if detected {
		level = min(hz/gaugeMaxHz, 1)
	}
	sb.WriteString(m.gauge.ViewAs(level))
	sb.WriteString("\n\n")

	maxHz := m.tracker.Max()
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  Max: %s Hz", readout.FormatHz(maxHz, maxHz > 0))))
	sb.WriteString("\n\n  ")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.Status()))
	} else {
		sb.WriteString(infoStyle.Render(m.Status()))
	}
	sb.WriteString("\n\n  ")
	sb.WriteString(m.help.View(m.keys))
	sb.WriteString("\n")

	return sb.String()
}

// RunMeter runs the meter in the alternate screen until the user quits and
// returns the final model.
func RunMeter(opts MeterOptions) (MeterModel, error) {
	final, err := tea.NewProgram(NewMeter(opts), tea.WithAltScreen()).Run()
	if err != nil {
		return MeterModel{}, err
	}
	return final.(MeterModel), nil
}
