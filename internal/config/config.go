// Package config loads the blockifier configuration from flags, an optional
// YAML file, the environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// build info set by goreleaser
var (
	Version = "unknown"
	Commit  = "unknown"
)

// EnvPrefix prefixes environment overrides, e.g. BLOCKIFIER_WHISPER_MODEL_SIZE.
const EnvPrefix = "BLOCKIFIER"

// Backends.
const (
	BackendBanana = "banana"
	BackendAWS    = "aws"
)

// DefaultMimeTypes is the default accepted media allow-list.
var DefaultMimeTypes = []string{"audio/mpeg", "audio/wav", "video/mp4", "audio/mp4"}

// Flags are the command-line parameters.
type Flags struct {
	ConfigFile string
	EnvFile    string
	InputFile  string
	OutputFile string
	MimeType   string
	Serve      bool
	Segments   bool
}

// Config is the full application configuration.
type Config struct {
	Backend   string          `mapstructure:"backend" validate:"oneof=banana aws"`
	Banana    BananaConfig    `mapstructure:"banana"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Whisper   WhisperConfig   `mapstructure:"whisper"`
	Media     MediaConfig     `mapstructure:"media"`
	Payload   PayloadConfig   `mapstructure:"payload"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Poll      PollConfig      `mapstructure:"poll"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Secrets   Secrets         `mapstructure:"-"`
}

// BananaConfig configures the banana.dev backend.
type BananaConfig struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"omitempty,url"`
	StartOnly bool          `mapstructure:"start_only"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// AWSConfig configures S3 staging and the Transcribe backend.
type AWSConfig struct {
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	OutputBucket  string        `mapstructure:"output_bucket"`
	LanguageCode  string        `mapstructure:"language_code"`
	SpeakerLabels bool          `mapstructure:"speaker_labels"`
	MaxSpeakers   int           `mapstructure:"max_speakers" validate:"gte=2,lte=30"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl" validate:"gte=0"`
}

// WhisperConfig holds the per-job model options.
type WhisperConfig struct {
	ModelSize      string `mapstructure:"model_size" validate:"oneof=tiny base small medium"`
	ReturnSegments bool   `mapstructure:"return_segments"`
}

// MediaConfig selects which declared media types are accepted.
type MediaConfig struct {
	Policy  string   `mapstructure:"policy" validate:"oneof=allowlist families"`
	Allowed []string `mapstructure:"allowed"`
}

// PayloadConfig selects how audio reaches the backend.
type PayloadConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=inline url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	Auth bool   `mapstructure:"auth"`
}

// PollConfig is the cadence the CLI re-checks a running job at.
type PollConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gtefield=InitialInterval"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// Secrets are read from the environment only.
type Secrets struct {
	BananaAPIKey   string `env:"BANANA_API_KEY"`
	BananaModelKey string `env:"BANANA_MODEL_KEY"`
	JWTSecret      string `env:"AUTH_JWT_SECRET"`
}

// New parses flags and performs initial validation.
func New(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("", flag.ExitOnError)

	configFile := fs.String("c", "", "Path to YAML config file")
	envFile := fs.String("e", "", "Path to .env file with secrets")
	inputFilePath := fs.String("f", "", "Path to input audio file")
	outputFilePath := fs.String("o", "", "Path to output text file")
	mimeType := fs.String("m", "", "MIME type of the input file (sniffed when empty)")
	serve := fs.Bool("serve", false, "Serve the HTTP API instead of transcribing a file")
	segments := fs.Bool("segments", false, "Write timestamped segments instead of plain text")
	version := fs.Bool("v", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if *version {
		PrintVersion()
	}

	// fail fast
	if !*serve && (*inputFilePath == "" || *outputFilePath == "") {
		fs.Usage()
		return nil, errors.New("-f and -o are required unless -serve is set")
	}

	return &Flags{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		InputFile:  *inputFilePath,
		OutputFile: *outputFilePath,
		MimeType:   *mimeType,
		Serve:      *serve,
		Segments:   *segments,
	}, nil
}

// PrintVersion prints version information and exits
func PrintVersion() {
	fmt.Printf("Version: %s\n", Version)
	if len(Commit) >= 7 {
		fmt.Printf("Commit: %s\n", Commit[:7])
	} else {
		fmt.Printf("Commit: %s\n", Commit)
	}
	os.Exit(0)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendBanana)
	v.SetDefault("banana.endpoint", "https://api.banana.dev/")
	v.SetDefault("banana.start_only", true)
	v.SetDefault("banana.timeout", "60s")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.output_bucket", "")
	v.SetDefault("aws.language_code", "en-US")
	v.SetDefault("aws.speaker_labels", false)
	v.SetDefault("aws.max_speakers", 10)
	v.SetDefault("aws.presign_ttl", "15m")
	v.SetDefault("whisper.model_size", "base")
	v.SetDefault("whisper.return_segments", false)
	v.SetDefault("media.policy", "allowlist")
	v.SetDefault("media.allowed", DefaultMimeTypes)
	v.SetDefault("payload.mode", "inline")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.auth", false)
	v.SetDefault("poll.initial_interval", "2s")
	v.SetDefault("poll.max_interval", "30s")
	v.SetDefault("poll.timeout", "30m")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "whisper-blockifier")
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Load builds the configuration. Precedence, lowest first: defaults, the
// config file, the environment. The .env file only fills variables that are
// not already set.
func Load(flags *Flags) (*Config, error) {
	if flags == nil {
		flags = &Flags{}
	}

	if flags.EnvFile != "" {
		if err := godotenv.Load(flags.EnvFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", flags.EnvFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if flags.ConfigFile != "" {
		v.SetConfigFile(flags.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", flags.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	if flags.Segments {
		cfg.Whisper.ReturnSegments = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Backend {
	case BackendBanana:
		if c.Secrets.BananaAPIKey == "" || c.Secrets.BananaModelKey == "" {
			return errors.New("invalid config: banana backend requires BANANA_API_KEY and BANANA_MODEL_KEY")
		}
		if c.Payload.Mode == "url" {
			if err := checkBucket("aws.bucket", c.AWS.Bucket); err != nil {
				return fmt.Errorf("invalid config: url payload mode stages audio in S3: %w", err)
			}
		}
	case BackendAWS:
		if err := checkBucket("aws.bucket", c.AWS.Bucket); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if c.AWS.OutputBucket != "" {
			if err := checkBucket("aws.output_bucket", c.AWS.OutputBucket); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
		}
	}

	if c.Media.Policy == "allowlist" && len(c.Media.Allowed) == 0 {
		return errors.New("invalid config: media.allowed must not be empty with the allowlist policy")
	}
	if c.Server.Auth && c.Secrets.JWTSecret == "" {
		return errors.New("invalid config: server.auth requires AUTH_JWT_SECRET")
	}
	return nil
}

func checkBucket(field, bucket string) error {
	if bucket == "" {
		return fmt.Errorf("%s is required", field)
	}
	isValid, err := validateBucketName(bucket)
	if err != nil {
		return fmt.Errorf("invalid bucket name %q: %w", bucket, err)
	}
	if !isValid {
		return fmt.Errorf("invalid bucket name %q", bucket)
	}
	return nil
}

// validateBucketName validates an S3 bucket name
func validateBucketName(bucket string) (bool, error) {
	re, err := regexp.Compile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	if err != nil {
		return false, fmt.Errorf("compile regex: %w", err)
	}
	return re.MatchString(bucket), nil
}
