// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"sync"

	applog "voicepitch/internal/log"
	"voicepitch/internal/pitch"
)

// Logging is a pitch.Sink that writes estimates to the log: every estimate at
// debug level, and detect/lost transitions at info level. It also implements
// Transport for debugging other publishers.
type Logging struct {
	mu       sync.Mutex
	detected bool
	log      *applog.Logger
}

// NewLogging creates a new Logging sink.
func NewLogging() *Logging {
	return &Logging{log: applog.With("Pitch")}
}

func (l *Logging) Reset() {
	l.mu.Lock()
	l.detected = false
	l.mu.Unlock()
	l.log.Infof("analysis started")
}

func (l *Logging) Observe(r pitch.Result) {
	l.mu.Lock()
	was := l.detected
	l.detected = r.Detected
	l.mu.Unlock()

	if r.Detected {
		l.log.Debugf("#%d %.1f Hz", r.Seq, r.Frequency)
	} else {
		l.log.Debugf("#%d no pitch", r.Seq)
	}

	switch {
	case r.Detected && !was:
		l.log.Infof("pitch detected at %.0f Hz", r.Frequency)
	case !r.Detected && was:
		l.log.Infof("pitch lost")
	}
}

// Send logs the JSON form of data at debug level.
func (l *Logging) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	l.log.Debugf("send %s", payload)
	return nil
}

// Close is a no-op.
func (l *Logging) Close() error {
	return nil
}

var (
	_ pitch.Sink = (*Logging)(nil)
	_ Transport  = (*Logging)(nil)
)
