package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/rx3lixir/noisegen/internal/config"
	"github.com/rx3lixir/noisegen/internal/durations"
	"github.com/rx3lixir/noisegen/internal/generator"
	"github.com/rx3lixir/noisegen/internal/logging"
	"github.com/rx3lixir/noisegen/internal/noise"
	"github.com/rx3lixir/noisegen/internal/wavfile"
	"github.com/rx3lixir/noisegen/pkg/s3storage"
	"github.com/spf13/pflag"
)

var _ generator.Publisher = (*s3storage.MinIOClient)(nil)

// loggedError has already been written through the configured logger
type loggedError struct {
	error
}

func (e loggedError) Unwrap() error {
	return e.error
}

func main() {
	// Interrupts stop the run between two files
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		// Failures before the logger exists go through a console-only one
		if !errors.As(err, new(loggedError)) {
			fallback, _, _ := logging.New(0, "")
			fallback.Error("noisegen failed", "error", err)
		}
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Initializing config manager
	cm, err := config.NewConfigManager(args)
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			config.NewFlagSet().Usage()
		}
		return err
	}

	c := cm.GetConfig()

	// Validating configuration
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setting up logger
	logger, closeLog, err := logging.New(c.LogParams.Verbosity, c.LogParams.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	if err := generate(ctx, c, runID, logger); err != nil {
		logger.Error("noisegen failed", "error", err)
		return loggedError{err}
	}
	return nil
}

// encoding maps the configured sample format to the WAV layout
func encoding(p config.AudioParams) wavfile.Encoding {
	if p.Format == config.FormatPCM {
		return wavfile.PCM(p.BitDepth)
	}
	return wavfile.Float32
}

func generate(ctx context.Context, c *config.Config, runID string, logger *log.Logger) error {
	source := noise.NewSource(c.AudioParams.Seed)

	logger.Info(
		"Configuration loaded",
		"duration_file", c.GeneralParams.DurationFile,
		"output_dir", c.GeneralParams.OutputDir,
		"samplerate", c.AudioParams.SampleRate,
		"format", c.AudioParams.Format,
		"bit_depth", c.AudioParams.BitDepth,
		"seed", source.Seed(),
		"s3", c.S3Params.Enabled(),
	)

	// Optional S3 client for publishing generated files
	var publisher generator.Publisher
	if c.S3Params.Enabled() {
		s3Client, err := s3storage.NewMinIOClient(
			ctx,
			c.S3Params.Endpoint,
			c.S3Params.AccessKeyID,
			c.S3Params.SecretAccessKey,
			c.S3Params.BucketName,
			c.S3Params.Prefix,
			c.S3Params.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		publisher = s3Client

		logger.Info("S3 storage client initialized", "bucket", c.S3Params.BucketName)
	}

	gen := generator.New(generator.Options{
		OutputDir:  c.GeneralParams.OutputDir,
		SampleRate: c.AudioParams.SampleRate,
		Encoding:   encoding(c.AudioParams),
		RunID:      runID,
	}, source, publisher, logger)

	// Ensure the output directory exists
	if err := gen.EnsureOutputDir(); err != nil {
		return err
	}

	// Load duration information
	entries, err := durations.Load(c.GeneralParams.DurationFile)
	if err != nil {
		return err
	}
	logger.Info("Duration table loaded", "entries", len(entries))

	// Generate white noise samples
	if _, err := gen.Run(ctx, entries); err != nil {
		return err
	}

	return nil
}
