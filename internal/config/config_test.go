package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/example/go-lerp/internal/lookup"
	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered and parses args.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lookup.Interp != "linear" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "linear")
	}

	if cfg.Lookup.Extrap != "hold" {
		t.Errorf("Lookup.Extrap = %q; want %q", cfg.Lookup.Extrap, "hold")
	}

	if !cfg.Lookup.Extrapolate {
		t.Error("Lookup.Extrapolate = false; want true")
	}

	if cfg.Lookup.Step {
		t.Error("Lookup.Step = true; want false")
	}

	if cfg.Runtime.Workers != runtime.NumCPU() {
		t.Errorf("Runtime.Workers = %d; want %d", cfg.Runtime.Workers, runtime.NumCPU())
	}

	if cfg.Runtime.MinChunk != 256 {
		t.Errorf("Runtime.MinChunk = %d; want 256", cfg.Runtime.MinChunk)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}

	if cfg.Server.MaxPoints != 1_000_000 {
		t.Errorf("Server.MaxPoints = %d; want 1000000", cfg.Server.MaxPoints)
	}

	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Server.RequestTimeout = %v; want 30s", cfg.Server.RequestTimeout)
	}

	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v; want 10s", cfg.Server.ShutdownTimeout)
	}

	if cfg.Paths.GridDir != "grids" {
		t.Errorf("Paths.GridDir = %q; want %q", cfg.Paths.GridDir, "grids")
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	cases := []struct {
		flag string
		want string
	}{
		{"lookup-interp", "linear"},
		{"interp", "linear"},
		{"lookup-extrap", "hold"},
		{"lookup-extrapolate", "true"},
		{"lookup-step", "false"},
		{"runtime-min-chunk", "256"},
		{"server-listen-addr", ":8080"},
		{"server-max-points", "1000000"},
		{"server-request-timeout", "30s"},
		{"paths-grid-dir", "grids"},
		{"grid-dir", "grids"},
		{"log-level", "info"},
	}

	for _, c := range cases {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want %+v", cfg, defaults)
	}
}

func TestLoad_NilCmd(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lookup.Interp != "linear" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "linear")
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())

	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults,
		"--interp=akima",
		"--lookup-extrapolate=false",
		"--workers=3",
		"--server-request-timeout=5s",
		"--log-level=debug",
	)

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lookup.Interp != "akima" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "akima")
	}

	if cfg.Lookup.Extrapolate {
		t.Error("Lookup.Extrapolate = true; want false")
	}

	if cfg.Runtime.Workers != 3 {
		t.Errorf("Runtime.Workers = %d; want 3", cfg.Runtime.Workers)
	}

	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("Server.RequestTimeout = %v; want 5s", cfg.Server.RequestTimeout)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_PrimaryFlagWinsWhenBothUnchanged(t *testing.T) {
	t.Chdir(t.TempDir())

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults, "--paths-grid-dir=tables"),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.GridDir != "tables" {
		t.Errorf("Paths.GridDir = %q; want %q", cfg.Paths.GridDir, "tables")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LERP_LOG_LEVEL", "warn")
	t.Setenv("LERP_SERVER_LISTEN_ADDR", ":9999")
	t.Setenv("LERP_LOOKUP_INTERP", "steffen")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}

	if cfg.Lookup.Interp != "steffen" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "steffen")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "lerp.yaml")

	content := `
log_level: error
lookup:
  interp: fritsch_butland
  step: true
server:
  max_points: 500
  request_timeout: 2s
paths:
  grid_dir: /srv/grids
`

	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Lookup.Interp != "fritsch_butland" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "fritsch_butland")
	}

	if !cfg.Lookup.Step {
		t.Error("Lookup.Step = false; want true")
	}

	if cfg.Server.MaxPoints != 500 {
		t.Errorf("Server.MaxPoints = %d; want 500", cfg.Server.MaxPoints)
	}

	if cfg.Server.RequestTimeout != 2*time.Second {
		t.Errorf("Server.RequestTimeout = %v; want 2s", cfg.Server.RequestTimeout)
	}

	if cfg.Paths.GridDir != "/srv/grids" {
		t.Errorf("Paths.GridDir = %q; want %q", cfg.Paths.GridDir, "/srv/grids")
	}

	// Untouched keys keep their defaults.
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}
}

func TestLoad_FlagBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "lerp.yaml")

	if err := os.WriteFile(cfgFile, []byte("lookup:\n  interp: akima\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--interp=nearest"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Lookup.Interp != "nearest" {
		t.Errorf("Lookup.Interp = %q; want %q", cfg.Lookup.Interp, "nearest")
	}
}

func TestLoad_ConfigFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, "lerp.yaml"), []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/lerp.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

// --- lookup helpers ---

func TestLookupConfig_Methods(t *testing.T) {
	interp, extrap, err := LookupConfig{Interp: "Fritsch-Butland", Extrap: "linear"}.Methods()
	if err != nil {
		t.Fatalf("Methods() error = %v", err)
	}

	if interp != lookup.FritschButland {
		t.Errorf("interp = %v; want %v", interp, lookup.FritschButland)
	}

	if extrap != lookup.ExtrapLinear {
		t.Errorf("extrap = %v; want %v", extrap, lookup.ExtrapLinear)
	}

	_, _, err = LookupConfig{Interp: "spline", Extrap: "hold"}.Methods()
	if !errors.Is(err, lookup.ErrUnknownMethod) {
		t.Errorf("Methods() error = %v; want ErrUnknownMethod", err)
	}

	_, _, err = LookupConfig{Interp: "linear", Extrap: "none"}.Methods()
	if !errors.Is(err, lookup.ErrUnknownMethod) {
		t.Errorf("Methods() error = %v; want ErrUnknownMethod", err)
	}
}

func TestLookupConfig_MeshOptions(t *testing.T) {
	got := LookupConfig{Extrapolate: false, Step: true}.MeshOptions()
	if got.Extrapolate || !got.Step {
		t.Errorf("MeshOptions() = %+v; want Extrapolate=false Step=true", got)
	}
}

func TestRuntimeConfig_RunOptions(t *testing.T) {
	if got := len(RuntimeConfig{}.RunOptions()); got != 0 {
		t.Errorf("len(RunOptions()) = %d; want 0", got)
	}

	if got := len(RuntimeConfig{Workers: 2, MinChunk: 64}.RunOptions()); got != 2 {
		t.Errorf("len(RunOptions()) = %d; want 2", got)
	}
}
