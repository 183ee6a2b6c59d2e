package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Lookup   LookupConfig  `mapstructure:"lookup"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Server   ServerConfig  `mapstructure:"server"`
	Paths    PathsConfig   `mapstructure:"paths"`
	LogLevel string        `mapstructure:"log_level"`
}

// LookupConfig holds the default evaluation policies applied when a caller
// does not name a method.
type LookupConfig struct {
	Interp      string `mapstructure:"interp"`
	Extrap      string `mapstructure:"extrap"`
	Extrapolate bool   `mapstructure:"extrapolate"`
	Step        bool   `mapstructure:"step"`
}

type RuntimeConfig struct {
	Workers  int `mapstructure:"workers"`
	MinChunk int `mapstructure:"min_chunk"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	MaxPoints       int           `mapstructure:"max_points"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PathsConfig struct {
	GridDir string `mapstructure:"grid_dir"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Lookup: LookupConfig{
			Interp:      "linear",
			Extrap:      "hold",
			Extrapolate: true,
			Step:        false,
		},
		Runtime: RuntimeConfig{
			Workers:  runtime.NumCPU(),
			MinChunk: 256,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxPoints:       1_000_000,
			MaxConcurrent:   runtime.NumCPU(),
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Paths: PathsConfig{
			GridDir: "grids",
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("lookup-interp", defaults.Lookup.Interp, "Default interpolation method (hold|nearest|linear|akima|fritsch_butland|steffen)")
	fs.String("interp", defaults.Lookup.Interp, "Default interpolation method (alias for --lookup-interp)")
	fs.String("lookup-extrap", defaults.Lookup.Extrap, "Extrapolation used when --lookup-extrapolate is false (hold|linear)")
	fs.String("extrap", defaults.Lookup.Extrap, "Extrapolation method (alias for --lookup-extrap)")
	fs.Bool("lookup-extrapolate", defaults.Lookup.Extrapolate, "Extrapolate linearly outside the grid unless an extrapolation is named")
	fs.Bool("lookup-step", defaults.Lookup.Step, "Treat grids as step functions (hold/hold)")
	fs.Int("runtime-workers", defaults.Runtime.Workers, "Worker goroutines per evaluation")
	fs.Int("workers", defaults.Runtime.Workers, "Worker goroutines per evaluation (alias for --runtime-workers)")
	fs.Int("runtime-min-chunk", defaults.Runtime.MinChunk, "Minimum query points per worker")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-max-points", defaults.Server.MaxPoints, "Maximum query points per request")
	fs.Int("server-max-concurrent", defaults.Server.MaxConcurrent, "Maximum concurrent evaluation requests")
	fs.Duration("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout")
	fs.Duration("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout")
	fs.String("paths-grid-dir", defaults.Paths.GridDir, "Directory of .lerp grid files")
	fs.String("grid-dir", defaults.Paths.GridDir, "Directory of .lerp grid files (alias for --paths-grid-dir)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("LERP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("lerp")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// flagKeys maps command-line flags to config keys. Several flags may feed
// one key; a changed flag wins over an unchanged one.
var flagKeys = map[string][]string{
	"lookup.interp":           {"lookup-interp", "interp"},
	"lookup.extrap":           {"lookup-extrap", "extrap"},
	"lookup.extrapolate":      {"lookup-extrapolate"},
	"lookup.step":             {"lookup-step"},
	"runtime.workers":         {"runtime-workers", "workers"},
	"runtime.min_chunk":       {"runtime-min-chunk"},
	"server.listen_addr":      {"server-listen-addr"},
	"server.max_points":       {"server-max-points"},
	"server.max_concurrent":   {"server-max-concurrent"},
	"server.request_timeout":  {"server-request-timeout"},
	"server.shutdown_timeout": {"server-shutdown-timeout"},
	"paths.grid_dir":          {"paths-grid-dir", "grid-dir"},
	"log_level":               {"log-level"},
}

// bindFlags binds each config key to the first changed flag among its
// spellings, or to the primary spelling. Binding by key rather than through
// aliases keeps config file values visible to Unmarshal.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, names := range flagKeys {
		var chosen *pflag.Flag

		for _, name := range names {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}

			if chosen == nil || (f.Changed && !chosen.Changed) {
				chosen = f
			}
		}

		if chosen == nil {
			continue
		}

		if err := v.BindPFlag(key, chosen); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("lookup.interp", c.Lookup.Interp)
	v.SetDefault("lookup.extrap", c.Lookup.Extrap)
	v.SetDefault("lookup.extrapolate", c.Lookup.Extrapolate)
	v.SetDefault("lookup.step", c.Lookup.Step)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("runtime.min_chunk", c.Runtime.MinChunk)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_points", c.Server.MaxPoints)
	v.SetDefault("server.max_concurrent", c.Server.MaxConcurrent)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("paths.grid_dir", c.Paths.GridDir)
	v.SetDefault("log_level", c.LogLevel)
}
