package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = FormatFloat
	DefaultBitDepth   = 32

	FormatFloat = "float"
	FormatPCM   = "pcm"

	envPrefix = "NOISEGEN"
)

// ErrUsage is returned when the command line does not have the expected shape
var ErrUsage = errors.New("usage error")

type Config struct {
	GeneralParams GeneralParams
	AudioParams   AudioParams
	LogParams     LogParams
	S3Params      S3Params
}

type GeneralParams struct {
	DurationFile string
	OutputDir    string
}

type AudioParams struct {
	SampleRate int
	Format     string
	BitDepth   int
	Seed       uint64
}

type LogParams struct {
	Verbosity int
	LogFile   string
}

type S3Params struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Prefix          string
}

type ConfigManager struct {
	v      *viper.Viper
	flags  *pflag.FlagSet
	config *Config
}

// NewFlagSet declares every command line option of noisegen
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("noisegen", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("log_file", "l", "", "Logger file")
	fs.IntP("samplerate", "s", DefaultSampleRate, "The sample rate of the output samples")
	fs.CountP("verbosity", "v", "increase output verbosity")
	fs.StringP("format", "f", DefaultFormat, "sample format: float keeps the noise unclipped, pcm saturates at full scale")
	fs.IntP("bit_depth", "b", DefaultBitDepth, "bit depth of the output samples (pcm: 16, 24 or 32; float: 32)")
	fs.Uint64("seed", 0, "seed of the noise generator (0 picks a random seed)")
	fs.StringP("config", "c", "", "optional YAML configuration file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Generate white noise wave files from given durations\n\n")
		fmt.Fprintf(fs.Output(), "usage: noisegen [options] duration_file output_dir\n\n")
		fs.PrintDefaults()
	}

	return fs
}

// NewConfigManager parses the command line, binds it into viper together
// with the environment and an optional config file, and builds the Config
func NewConfigManager(args []string) (*ConfigManager, error) {
	fs := NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Flags keep their short CLI names but live under nested config keys
	bindings := map[string]string{
		"audio_params.samplerate": "samplerate",
		"audio_params.format":     "format",
		"audio_params.bit_depth":  "bit_depth",
		"audio_params.seed":       "seed",
		"log_params.verbosity":    "verbosity",
		"log_params.log_file":     "log_file",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if configPath, _ := fs.GetString("config"); configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cm := &ConfigManager{v: v, flags: fs}

	if err := cm.loadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// Extracting positional arguments and bound values into Config
func (cm *ConfigManager) loadConfig() error {
	positional := cm.flags.Args()
	if len(positional) != 2 {
		return fmt.Errorf("%w: expected duration_file and output_dir, got %d argument(s)", ErrUsage, len(positional))
	}

	cm.config = &Config{
		GeneralParams: GeneralParams{
			DurationFile: positional[0],
			OutputDir:    positional[1],
		},
		AudioParams: AudioParams{
			SampleRate: cm.v.GetInt("audio_params.samplerate"),
			Format:     strings.ToLower(cm.v.GetString("audio_params.format")),
			BitDepth:   cm.v.GetInt("audio_params.bit_depth"),
			Seed:       cm.v.GetUint64("audio_params.seed"),
		},
		LogParams: LogParams{
			Verbosity: cm.v.GetInt("log_params.verbosity"),
			LogFile:   cm.v.GetString("log_params.log_file"),
		},
		S3Params: S3Params{
			Endpoint:        cm.v.GetString("s3_params.endpoint"),
			AccessKeyID:     cm.v.GetString("s3_params.access_key_id"),
			SecretAccessKey: cm.v.GetString("s3_params.secret_access_key"),
			UseSSL:          cm.v.GetBool("s3_params.use_ssl"),
			BucketName:      cm.v.GetString("s3_params.bucket_name"),
			Prefix:          cm.v.GetString("s3_params.prefix"),
		},
	}
	return nil
}

// Geting config instance
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// Parse is a shortcut for NewConfigManager followed by GetConfig
func Parse(args []string) (*Config, error) {
	cm, err := NewConfigManager(args)
	if err != nil {
		return nil, err
	}
	return cm.GetConfig(), nil
}

// Enabled reports whether generated files should also go to object storage
func (s *S3Params) Enabled() bool {
	return s.Endpoint != ""
}

// Validate only rejects values that can never produce a wave file.
// Paths are left alone, they fail later when they are used.
func (c *Config) Validate() error {
	if c.AudioParams.SampleRate <= 0 {
		return fmt.Errorf("samplerate must be positive, got %d", c.AudioParams.SampleRate)
	}

	switch c.AudioParams.Format {
	case FormatFloat:
		if c.AudioParams.BitDepth != 32 {
			return fmt.Errorf("bit_depth is invalid for float samples: %d. only 32 is supported", c.AudioParams.BitDepth)
		}
	case FormatPCM:
		switch c.AudioParams.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("bit_depth is invalid: %d. try 16/24/32 instead", c.AudioParams.BitDepth)
		}
	default:
		return fmt.Errorf("format is invalid: %s. try float/pcm instead", c.AudioParams.Format)
	}

	if c.LogParams.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative")
	}

	// Checking S3 params, only when uploads are requested
	if c.S3Params.Enabled() {
		if c.S3Params.AccessKeyID == "" {
			return fmt.Errorf("S3 access_key_id is required")
		}
		if c.S3Params.SecretAccessKey == "" {
			return fmt.Errorf("S3 secret_access_key is required")
		}
		if c.S3Params.BucketName == "" {
			return fmt.Errorf("S3 bucket name is required")
		}
	}

	return nil
}
