package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rx3lixir/noisegen/internal/durations"
	"github.com/rx3lixir/noisegen/internal/noise"
	"github.com/rx3lixir/noisegen/internal/wavfile"
)

const Extension = ".wav"

// Publisher copies a written file somewhere else, e.g. object storage
type Publisher interface {
	Publish(ctx context.Context, runID, basename, path string) (string, error)
}

type Options struct {
	OutputDir  string
	SampleRate int
	Encoding   wavfile.Encoding
	RunID      string
}

// Summary of a completed run
type Summary struct {
	Files     int
	Samples   int64
	Published int
}

// Generator writes one white noise file per duration entry
type Generator struct {
	opts      Options
	source    *noise.Source
	publisher Publisher
	logger    *log.Logger
}

// New creates a generator. publisher may be nil.
func New(opts Options, source *noise.Source, publisher Publisher, logger *log.Logger) *Generator {
	return &Generator{
		opts:      opts,
		source:    source,
		publisher: publisher,
		logger:    logger,
	}
}

// EnsureOutputDir creates the output directory and its parents if needed
func (g *Generator) EnsureOutputDir() error {
	if err := os.MkdirAll(g.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// OutputPath is where the file for basename is written
func (g *Generator) OutputPath(basename string) string {
	return filepath.Join(g.opts.OutputDir, basename+Extension)
}

// Check rejects entries whose sample count cannot be stored in one WAV file.
// It runs before anything is written.
func (g *Generator) Check(entries []durations.Entry) error {
	limit := g.opts.Encoding.MaxFrames()
	for i, entry := range entries {
		if entry.Duration*float64(g.opts.SampleRate) >= float64(limit)+1 {
			return fmt.Errorf(
				"entry %d (%s): %w: %g s at %d Hz exceeds the WAV limit of %d samples",
				i+1, entry.Basename, durations.ErrInvalidDuration, entry.Duration, g.opts.SampleRate, limit,
			)
		}
	}
	return nil
}

// Run processes entries in order and stops at the first failure.
// Files written before a failure or cancellation are left in place.
func (g *Generator) Run(ctx context.Context, entries []durations.Entry) (Summary, error) {
	var sum Summary
	start := time.Now()

	if err := g.Check(entries); err != nil {
		return sum, err
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("interrupted before entry %d (%s): %w", i+1, entry.Basename, err)
		}

		path, n, err := g.generate(entry)
		if err != nil {
			return sum, fmt.Errorf("entry %d (%s): %w", i+1, entry.Basename, err)
		}
		sum.Files++
		sum.Samples += int64(n)

		if g.publisher == nil {
			continue
		}
		object, err := g.publisher.Publish(ctx, g.opts.RunID, entry.Basename, path)
		if err != nil {
			return sum, fmt.Errorf("entry %d (%s): failed to publish %s: %w", i+1, entry.Basename, path, err)
		}
		sum.Published++
		g.logger.Debug("Published white noise file", "basename", entry.Basename, "object", object)
	}

	g.logger.Info(
		"White noise generation finished",
		"files", sum.Files,
		"samples", sum.Samples,
		"published", sum.Published,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return sum, nil
}

func (g *Generator) generate(entry durations.Entry) (string, int, error) {
	n := noise.SampleCount(entry.Duration, g.opts.SampleRate)
	path := g.OutputPath(entry.Basename)

	g.logger.Debug(
		"Generating white noise",
		"basename", entry.Basename,
		"duration", entry.Duration,
		"samples", n,
		"path", path,
	)

	samples := g.source.Normal(n)
	if err := wavfile.Write(path, samples, g.opts.SampleRate, g.opts.Encoding); err != nil {
		return "", 0, err
	}
	return path, n, nil
}
