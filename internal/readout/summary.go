// SPDX-License-Identifier: MIT
package readout

import (
	"fmt"
	"io"
	"slices"

	"gonum.org/v1/gonum/stat"

	"voicepitch/internal/pitch"
)

// Summary describes a finished run of results. Frequency statistics only cover
// ticks that detected a pitch.
type Summary struct {
	Ticks    int
	Detected int
	Max      float64
	Min      float64
	Mean     float64
	Median   float64
	StdDev   float64
}

// Summarize computes a Summary over results. It does not modify results.
func Summarize(results []pitch.Result) Summary {
	s := Summary{Ticks: len(results)}

	values := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Detected {
			values = append(values, r.Frequency)
		}
	}
	s.Detected = len(values)
	if len(values) == 0 {
		return s
	}

	slices.Sort(values)
	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	if len(values) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}
	return s
}

// Voiced returns the fraction of ticks that detected a pitch.
func (s Summary) Voiced() float64 {
	if s.Ticks == 0 {
		return 0
	}
	return float64(s.Detected) / float64(s.Ticks)
}

// Write prints the summary as aligned text.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Frames analysed:  %d\n", s.Ticks)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pitched frames:   %d (%.1f%%)\n", s.Detected, 100*s.Voiced())
	if s.Detected == 0 {
		_, err = fmt.Fprintln(w, "No pitch detected.")
		return err
	}
	fmt.Fprintf(w, "Median:           %s Hz (%s)\n", FormatHz(s.Median, true), FormatNote(s.Median, true))
	fmt.Fprintf(w, "Mean:             %.1f Hz (std dev %.1f)\n", s.Mean, s.StdDev)
	fmt.Fprintf(w, "Range:            %s - %s Hz\n", FormatHz(s.Min, true), FormatHz(s.Max, true))
	_, err = fmt.Fprintf(w, "Max frequency:    %s Hz\n", FormatHz(s.Max, true))
	return err
}
