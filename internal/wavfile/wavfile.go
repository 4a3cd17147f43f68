package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	NumChannels = 1

	FormatPCM   = 1
	FormatFloat = 3

	// RIFF header and fmt chunk ahead of the data chunk
	headerSize = 36
)

var (
	ErrInvalidFile = errors.New("invalid WAV file")
	ErrNotFloat    = errors.New("not a 32-bit float WAV file")
)

// Encoding is the sample layout written to the data chunk
type Encoding struct {
	Format   int
	BitDepth int
}

// Float32 stores samples as IEEE floats, untouched
var Float32 = Encoding{Format: FormatFloat, BitDepth: 32}

// PCM stores samples as signed integers of the given width
func PCM(bitDepth int) Encoding {
	return Encoding{Format: FormatPCM, BitDepth: bitDepth}
}

// MaxFrames is the longest mono stream whose sizes still fit the
// uint32 RIFF and data chunk size fields
func (e Encoding) MaxFrames() int {
	return (math.MaxUint32 - headerSize) / (e.BitDepth / 8)
}

// Info describes the stream of a decoded file
type Info struct {
	Format      int
	SampleRate  int
	NumChannels int
	BitDepth    int
	NumFrames   int
}

// Quantize converts float samples to signed PCM of the given width.
// 1.0 maps to full scale; values past full scale saturate.
func Quantize(samples []float64, bitDepth int) []int {
	full := float64(int64(1)<<(bitDepth-1) - 1)

	ints := make([]int, len(samples))
	for i, v := range samples {
		q := math.Round(v * full)
		if q > full {
			q = full
		}
		if q < -full-1 {
			q = -full - 1
		}
		ints[i] = int(q)
	}
	return ints
}

// floatBits packs samples as float32 bit patterns, which the 32-bit
// encoder path writes out verbatim
func floatBits(samples []float64) []int {
	ints := make([]int, len(samples))
	for i, v := range samples {
		ints[i] = int(int32(math.Float32bits(float32(v))))
	}
	return ints
}

// Encode writes samples as a mono stream to w
func Encode(w io.WriteSeeker, samples []float64, sampleRate int, e Encoding) error {
	if len(samples) > e.MaxFrames() {
		return fmt.Errorf("%d samples exceed the WAV limit of %d", len(samples), e.MaxFrames())
	}

	var data []int
	switch {
	case e.Format == FormatFloat && e.BitDepth == 32:
		data = floatBits(samples)
	case e.Format == FormatPCM:
		data = Quantize(samples, e.BitDepth)
	default:
		return fmt.Errorf("unsupported encoding: format %d, %d bit", e.Format, e.BitDepth)
	}

	enc := wav.NewEncoder(w, sampleRate, e.BitDepth, NumChannels, e.Format)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: NumChannels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: e.BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	return nil
}

// Write creates or truncates path and encodes samples into it
func Write(path string, samples []float64, sampleRate int, e Encoding) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	defer func() {
		cerr := f.Close()
		if cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	return Encode(f, samples, sampleRate, e)
}

// openPCM positions a decoder at the start of the data chunk
func openPCM(f *os.File, path string) (*wav.Decoder, error) {
	// not IsValidFile: it rejects zero-length data chunks
	d := wav.NewDecoder(f)
	d.ReadInfo()
	if d.NumChans < 1 || d.BitDepth < 8 || d.SampleRate == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFile)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%s: failed to locate PCM data: %w", path, err)
	}
	return d, nil
}

// Stat reads the header of the file at path without decoding samples
func Stat(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := openPCM(f, path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Format:      int(d.WavAudioFormat),
		SampleRate:  int(d.SampleRate),
		NumChannels: int(d.NumChans),
		BitDepth:    int(d.BitDepth),
	}
	if frameSize := info.NumChannels * info.BitDepth / 8; frameSize > 0 {
		info.NumFrames = d.PCMSize / frameSize
	}
	return info, nil
}

// ReadSamples decodes every PCM sample of the file at path
func ReadSamples(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFile)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV file: %w", err)
	}
	return buf.Data, nil
}

// ReadFloats returns the samples of a 32-bit float file
func ReadFloats(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := openPCM(f, path)
	if err != nil {
		return nil, err
	}
	if d.WavAudioFormat != FormatFloat || d.BitDepth != 32 {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFloat)
	}

	raw := make([]byte, d.PCMSize)
	if _, err := io.ReadFull(d.PCMChunk, raw); err != nil {
		return nil, fmt.Errorf("failed to read float samples: %w", err)
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
