package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rx3lixir/noisegen/internal/durations"
	"github.com/rx3lixir/noisegen/internal/wavfile"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "durations.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExample(t *testing.T) {
	table := writeTable(t, "speaker1\t1.0\nspeaker2\t0.5\n")
	out := filepath.Join(t.TempDir(), "nested", "out")
	logFile := filepath.Join(t.TempDir(), "run.log")

	args := []string{"-s", "8000", "-vvv", "-l", logFile, table, out}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run: %v", err)
	}

	for name, frames := range map[string]int{"speaker1": 8000, "speaker2": 4000} {
		info, err := wavfile.Stat(filepath.Join(out, name+".wav"))
		if err != nil {
			t.Fatalf("Stat %s: %v", name, err)
		}
		if info.NumChannels != 1 || info.SampleRate != 8000 || info.NumFrames != frames {
			t.Errorf("%s: %+v, want mono 8000 Hz with %d frames", name, info, frames)
		}
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "Generating white noise") {
		t.Errorf("debug lines missing from log file at -vvv: %q", data)
	}

	// same output dir again
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunMalformedLineWritesNothingAfterIt(t *testing.T) {
	table := writeTable(t, "first\t0.1\nbroken\t\tline\nlast\t0.1\n")
	out := t.TempDir()

	err := run(context.Background(), []string{table, out})
	if !errors.Is(err, durations.ErrMalformedLine) {
		t.Fatalf("run error = %v, want ErrMalformedLine", err)
	}
	if _, err := os.Stat(filepath.Join(out, "last.wav")); !os.IsNotExist(err) {
		t.Errorf("last.wav should not exist, stat err = %v", err)
	}
}

func TestRunNonNumericDuration(t *testing.T) {
	table := writeTable(t, "foo\tNaNseconds\n")
	err := run(context.Background(), []string{table, t.TempDir()})
	if !errors.Is(err, durations.ErrInvalidDuration) {
		t.Fatalf("run error = %v, want ErrInvalidDuration", err)
	}
}

func TestRunMissingDurationFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.tsv")
	if err := run(context.Background(), []string{missing, t.TempDir()}); err == nil {
		t.Fatal("expected an error for a missing duration file")
	}
}

func TestRunInvalidConfiguration(t *testing.T) {
	table := writeTable(t, "a\t1\n")
	if err := run(context.Background(), []string{"-s", "0", table, t.TempDir()}); err == nil {
		t.Fatal("expected an error for a zero samplerate")
	}
}

func TestRunFailureReachesLogFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.tsv")
	logFile := filepath.Join(t.TempDir(), "run.log")

	err := run(context.Background(), []string{"-l", logFile, missing, t.TempDir()})
	if !errors.As(err, new(loggedError)) {
		t.Fatalf("run error = %v, want it reported through the configured logger", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "noisegen failed") || !strings.Contains(content, "missing.tsv") {
		t.Errorf("failure missing from log file: %q", content)
	}
	// caller formatting only exists on the configured logger
	if !strings.Contains(content, "main.run") {
		t.Errorf("caller missing from failure line: %q", content)
	}
}

func TestRunConfigErrorIsNotPreLogged(t *testing.T) {
	err := run(context.Background(), []string{"-s", "0", "in.tsv", t.TempDir()})
	if err == nil || errors.As(err, new(loggedError)) {
		t.Fatalf("run error = %v, want a plain configuration error", err)
	}
}

func TestRunSampleFormats(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		format   int
		bitDepth int
	}{
		{"default float", nil, wavfile.FormatFloat, 32},
		{"pcm 16", []string{"-f", "pcm", "-b", "16"}, wavfile.FormatPCM, 16},
		{"pcm 24", []string{"--format", "pcm", "--bit_depth", "24"}, wavfile.FormatPCM, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := writeTable(t, "tone\t0.25\n")
			out := t.TempDir()

			args := append(append([]string{"-s", "8000"}, tt.flags...), table, out)
			if err := run(context.Background(), args); err != nil {
				t.Fatalf("run: %v", err)
			}

			info, err := wavfile.Stat(filepath.Join(out, "tone.wav"))
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Format != tt.format || info.BitDepth != tt.bitDepth {
				t.Errorf("got format %d/%d bit, want %d/%d bit", info.Format, info.BitDepth, tt.format, tt.bitDepth)
			}
			if info.NumFrames != 2000 {
				t.Errorf("NumFrames = %d, want 2000", info.NumFrames)
			}
		})
	}
}

func TestRunOversizedDuration(t *testing.T) {
	table := writeTable(t, "ok\t0.1\nbig\t1e300\n")
	out := t.TempDir()

	err := run(context.Background(), []string{table, out})
	if !errors.Is(err, durations.ErrInvalidDuration) {
		t.Fatalf("run error = %v, want ErrInvalidDuration", err)
	}
	if _, err := os.Stat(filepath.Join(out, "big.wav")); !os.IsNotExist(err) {
		t.Errorf("big.wav should not exist, stat err = %v", err)
	}
}
