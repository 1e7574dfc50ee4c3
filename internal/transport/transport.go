// SPDX-License-Identifier: MIT

// Package transport forwards pitch estimates to displays outside the process.
package transport

import (
	"time"

	applog "voicepitch/internal/log"
	"voicepitch/internal/pitch"
)

// Transport defines a generic interface for sending messages to remote
// displays. Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types sent on the wire.
const (
	TypeReset = "reset"
	TypePitch = "pitch"
)

// ResetMessage tells a display that a new session started and its running
// maximum should be cleared.
type ResetMessage struct {
	Type string `json:"type"`
}

// PitchMessage carries one estimate. Hz is 0 when nothing was detected.
type PitchMessage struct {
	Type     string    `json:"type"`
	Seq      uint64    `json:"seq"`
	Hz       float64   `json:"hz"`
	Detected bool      `json:"detected"`
	Time     time.Time `json:"time"`
}

// NewPitchMessage converts a loop result to its wire form.
func NewPitchMessage(r pitch.Result) PitchMessage {
	msg := PitchMessage{Type: TypePitch, Seq: r.Seq, Detected: r.Detected, Time: r.Time}
	if r.Detected {
		msg.Hz = r.Frequency
	}
	return msg
}

// Publisher is a pitch.Sink that sends every result over a Transport.
// Send errors are logged and never stop the loop.
type Publisher struct {
	transport Transport
	log       *applog.Logger
}

// NewPublisher returns a sink publishing to t.
func NewPublisher(t Transport) *Publisher {
	return &Publisher{transport: t, log: applog.With("Publisher")}
}

func (p *Publisher) Reset() {
	if err := p.transport.Send(ResetMessage{Type: TypeReset}); err != nil {
		p.log.Warnf("failed to send reset: %v", err)
	}
}

func (p *Publisher) Observe(r pitch.Result) {
	if err := p.transport.Send(NewPitchMessage(r)); err != nil {
		p.log.Warnf("failed to send estimate %d: %v", r.Seq, err)
	}
}

// Close closes the underlying transport.
func (p *Publisher) Close() error {
	return p.transport.Close()
}

var _ pitch.Sink = (*Publisher)(nil)
