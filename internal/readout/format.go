// SPDX-License-Identifier: MIT
package readout

import (
	"fmt"
	"math"
	"strconv"
)

// ReferenceA4 is the tuning reference for note names, in Hz.
const ReferenceA4 = 440.0

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is the nearest equal-tempered note to a frequency.
type Note struct {
	Name   string  // e.g. "A", "C#"
	Octave int     // scientific pitch notation, A4 = 440 Hz
	Cents  float64 // deviation from the note, in [-50, 50]
}

// String renders the note as name and octave, e.g. "A4".
func (n Note) String() string {
	return n.Name + strconv.Itoa(n.Octave)
}

// NoteFor returns the nearest note to hz. ok is false for non-positive input.
func NoteFor(hz float64) (Note, bool) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return Note{}, false
	}

	semitones := 12 * math.Log2(hz/ReferenceA4)
	rounded := math.Round(semitones)

	// A4 sits 9 semitones above C4.
	fromC4 := int(rounded) + 9
	index := ((fromC4 % 12) + 12) % 12
	octave := 4 + int(math.Floor(float64(fromC4)/12))

	return Note{
		Name:   noteNames[index],
		Octave: octave,
		Cents:  100 * (semitones - rounded),
	}, true
}

// FormatHz renders an estimate as whole Hz, or "0" when nothing was detected.
func FormatHz(hz float64, detected bool) string {
	if !detected {
		return "0"
	}
	return strconv.FormatFloat(math.Floor(hz+0.5), 'f', 0, 64)
}

// FormatNote renders the note and cents for an estimate, or "-" when nothing
// was detected.
func FormatNote(hz float64, detected bool) string {
	if !detected {
		return "-"
	}
	note, ok := NoteFor(hz)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%s %+.0f¢", note, note.Cents)
}
