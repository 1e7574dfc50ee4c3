// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio file format")

// FileSource serves consecutive windows of a decoded file. Each CurrentBlock
// call returns the window at the current position and advances by hop
// samples. Windows that run past the end are zero padded.
type FileSource struct {
	mu         sync.Mutex
	samples    []float64
	sampleRate float64
	block      []float64
	hop        int
	pos        int
}

// NewFileSource wraps already decoded mono samples. A hop <= 0 advances by a
// whole block.
func NewFileSource(samples []float64, sampleRate float64, blockSize, hop int) *FileSource {
	if hop <= 0 {
		hop = blockSize
	}
	return &FileSource{
		samples:    samples,
		sampleRate: sampleRate,
		block:      make([]float64, blockSize),
		hop:        hop,
	}
}

// OpenFile decodes path and returns a FileSource over its mono mix.
func OpenFile(path string, blockSize, hop int) (*FileSource, error) {
	samples, rate, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewFileSource(samples, rate, blockSize, hop), nil
}

func (f *FileSource) CurrentBlock() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	if f.pos < len(f.samples) {
		n = copy(f.block, f.samples[f.pos:])
	}
	clear(f.block[n:])
	f.pos += f.hop
	return f.block
}

func (f *FileSource) SampleRate() float64 {
	return f.sampleRate
}

// Done reports whether every sample has been served.
func (f *FileSource) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos >= len(f.samples)
}

// Len returns the number of decoded samples.
func (f *FileSource) Len() int {
	return len(f.samples)
}

// Windows returns how many CurrentBlock calls it takes to cover the file.
func (f *FileSource) Windows() int {
	return (len(f.samples) + f.hop - 1) / f.hop
}

// DecodeFile decodes a .wav or .mp3 file into mono samples in [-1, 1].
func DecodeFile(path string) ([]float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return decodeWAV(file)
	case ".mp3":
		return decodeMP3(file)
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func decodeWAV(r io.ReadSeeker) ([]float64, float64, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("error reading PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("invalid wav channel count: %d", channels)
	}
	scale := float64(int(1) << (decoder.BitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		var sum int
		for _, s := range buf.Data[i*channels : (i+1)*channels] {
			sum += s
		}
		samples[i] = float64(sum) / float64(channels) / scale
	}
	return samples, float64(buf.Format.SampleRate), nil
}

// decodeMP3 reads the decoder's 16-bit little-endian stereo output.
func decodeMP3(r io.Reader) ([]float64, float64, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("error while decoding the mp3 file: %w", err)
	}

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading MP3 data: %w", err)
	}

	const frameBytes = 4
	frames := len(data) / frameBytes
	samples := make([]float64, frames)
	for i := range frames {
		left := int16(binary.LittleEndian.Uint16(data[i*frameBytes:]))
		right := int16(binary.LittleEndian.Uint16(data[i*frameBytes+2:]))
		samples[i] = (float64(left) + float64(right)) / 2 / 32768
	}
	return samples, float64(decoder.SampleRate()), nil
}
