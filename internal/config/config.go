// Package config assembles runtime settings from defaults, an optional .env
// file, LIVECHECK_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ayusman/livecheck/internal/liveness"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LIVECHECK_"

// Config holds every setting of a livecheck process.
type Config struct {
	DataDir   string `validate:"required"`
	DBPath    string `validate:"required"`
	Addr      string `validate:"required"`
	StaticDir string

	// Camera is a device index ("0") or a video file / stream URL.
	Camera       string        `validate:"required"`
	TickInterval time.Duration `validate:"gt=0"`

	DetectorScript string
	PythonPath     string
	MinConfidence  float64       `validate:"gte=0,lte=1"`
	DetectorIdle   time.Duration `validate:"gte=0"`

	// AutoStart begins a session when the presence gate sees movement in
	// front of the camera. Without it sessions start on launch.
	AutoStart         bool
	PresenceThreshold float64 `validate:"gt=0,lte=100"`

	PluginDir     string
	ExportPlugin  string
	ExportTimeout time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	Liveness liveness.Config
}

// Default returns the built-in settings rooted at ~/.livecheck.
func Default() Config {
	dataDir := ".livecheck"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".livecheck")
	}

	return Config{
		DataDir:           dataDir,
		Addr:              "127.0.0.1:8080",
		Camera:            "0",
		TickInterval:      50 * time.Millisecond,
		MinConfidence:     0.5,
		DetectorIdle:      30 * time.Second,
		PresenceThreshold: 2.0,
		ExportTimeout:     10 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Liveness:          liveness.DefaultConfig(),
	}
}

// setting binds one field to its environment variable and flag.
type setting struct {
	name  string // flag name; the env var is EnvPrefix + upper snake case
	usage string
	flag  bool // registered as a boolean flag
	set   func(c *Config, v string) error
	get   func(c *Config) string
}

func (s setting) env() string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(s.name, "-", "_"))
}

func str(name, usage string, field func(*Config) *string) setting {
	return setting{name: name, usage: usage,
		set: func(c *Config, v string) error {
			*field(c) = v
			return nil
		},
		get: func(c *Config) string {
			return *field(c)
		},
	}
}

func float(name, usage string, field func(*Config) *float64) setting {
	return setting{name: name, usage: usage,
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*field(c) = f
			return nil
		},
		get: func(c *Config) string {
			return strconv.FormatFloat(*field(c), 'g', -1, 64)
		},
	}
}

func integer(name, usage string, field func(*Config) *int) setting {
	return setting{name: name, usage: usage,
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
		get: func(c *Config) string {
			return strconv.Itoa(*field(c))
		},
	}
}

func millis(name, usage string, field func(*Config) *int64) setting {
	return setting{name: name, usage: usage,
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
		get: func(c *Config) string {
			return strconv.FormatInt(*field(c), 10)
		},
	}
}

func duration(name, usage string, field func(*Config) *time.Duration) setting {
	return setting{name: name, usage: usage,
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*field(c) = d
			return nil
		},
		get: func(c *Config) string {
			return field(c).String()
		},
	}
}

func boolean(name, usage string, field func(*Config) *bool) setting {
	return setting{name: name, usage: usage, flag: true,
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
		get: func(c *Config) string {
			return strconv.FormatBool(*field(c))
		},
	}
}

var settings = []setting{
	str("data-dir", "directory for the database and plugins", func(c *Config) *string { return &c.DataDir }),
	str("db", "SQLite database path (default <data-dir>/livecheck.db)", func(c *Config) *string { return &c.DBPath }),
	str("addr", "HTTP listen address", func(c *Config) *string { return &c.Addr }),
	str("static-dir", "directory of static web files", func(c *Config) *string { return &c.StaticDir }),
	str("camera", "camera device index or video file", func(c *Config) *string { return &c.Camera }),
	duration("tick", "frame period", func(c *Config) *time.Duration { return &c.TickInterval }),
	str("detector-script", "face landmark service script", func(c *Config) *string { return &c.DetectorScript }),
	str("python", "python interpreter for the landmark service", func(c *Config) *string { return &c.PythonPath }),
	float("min-confidence", "minimum face detection confidence", func(c *Config) *float64 { return &c.MinConfidence }),
	duration("detector-idle", "stop the landmark service after this long unused", func(c *Config) *time.Duration { return &c.DetectorIdle }),
	boolean("auto-start", "start a session when someone steps in front of the camera", func(c *Config) *bool { return &c.AutoStart }),
	float("presence-threshold", "percentage of changed pixels that counts as presence", func(c *Config) *float64 { return &c.PresenceThreshold }),
	str("plugin-dir", "plugin directory (default <data-dir>/plugins)", func(c *Config) *string { return &c.PluginDir }),
	str("export-plugin", "plugin that receives completed captures", func(c *Config) *string { return &c.ExportPlugin }),
	duration("export-timeout", "export plugin timeout", func(c *Config) *time.Duration { return &c.ExportTimeout }),
	str("log-level", "debug, info, warn or error", func(c *Config) *string { return &c.LogLevel }),
	str("log-format", "json or console", func(c *Config) *string { return &c.LogFormat }),

	float("blink-ear-threshold", "eye aspect ratio below which eyes count as closed", func(c *Config) *float64 { return &c.Liveness.BlinkEARThreshold }),
	integer("blink-min-closed-frames", "closed frames required before a blink", func(c *Config) *int { return &c.Liveness.BlinkMinClosedFrames }),
	float("mouth-mar-threshold", "mouth aspect ratio above which the mouth counts as open", func(c *Config) *float64 { return &c.Liveness.MouthMARThreshold }),
	integer("mouth-hold-frames", "consecutive open-mouth frames required", func(c *Config) *int { return &c.Liveness.MouthHoldFrames }),
	float("head-turn-low", "nose ratio below which the head counts as turned left", func(c *Config) *float64 { return &c.Liveness.HeadTurnLowRatio }),
	float("head-turn-high", "nose ratio above which the head counts as turned right", func(c *Config) *float64 { return &c.Liveness.HeadTurnHighRatio }),
	millis("head-turn-window-ms", "maximum gap between the two head turns", func(c *Config) *int64 { return &c.Liveness.HeadTurnWindowMs }),
	float("frontal-min", "lower nose ratio bound of a frontal pose", func(c *Config) *float64 { return &c.Liveness.FrontalMin }),
	float("frontal-max", "upper nose ratio bound of a frontal pose", func(c *Config) *float64 { return &c.Liveness.FrontalMax }),
}

// RegisterFlags adds a flag for every setting to fs, showing the built-in
// defaults in the help text.
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()
	for _, s := range settings {
		usage := s.usage + " (env " + s.env() + ")"
		if s.flag {
			b, _ := strconv.ParseBool(s.get(&def))
			flags.Bool(s.name, b, usage)
			continue
		}
		flags.String(s.name, s.get(&def), usage)
	}
}

// Load builds a Config. envFile is loaded with godotenv when it exists;
// variables already set in the environment win over it. Only flags the
// user changed override the environment. flags may be nil.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	for _, s := range settings {
		if v, ok := os.LookupEnv(s.env()); ok && v != "" {
			if err := s.set(&cfg, v); err != nil {
				return nil, fmt.Errorf("%s: %w", s.env(), err)
			}
		}
	}

	if flags != nil {
		for _, s := range settings {
			f := flags.Lookup(s.name)
			if f == nil || !f.Changed {
				continue
			}
			if err := s.set(&cfg, f.Value.String()); err != nil {
				return nil, fmt.Errorf("--%s: %w", s.name, err)
			}
		}
	}

	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "livecheck.db")
	}
	if c.PluginDir == "" {
		c.PluginDir = filepath.Join(c.DataDir, "plugins")
	}
}

var validate = validator.New()

// Validate checks ranges and cross-field constraints, including the
// liveness thresholds.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
