package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/example/go-lerp/internal/config"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
	"github.com/example/go-lerp/internal/query"
	"github.com/example/go-lerp/internal/server"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "lerp",
		Short:         "N-dimensional lookup table interpolation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg = loaded
			setupLogger(loaded.LogLevel)

			if loaded.Runtime.Workers > 0 {
				lookup.SetWorkers(loaded.Runtime.Workers)
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newDerivCmd())
	cmd.AddCommand(newResampleCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newWAVCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.LogLevel == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}

// loadMesh reads a grid file with the configured mesh and runtime options.
func loadMesh(cfg config.Config, path string) (*mesh.Mesh, error) {
	m, err := mesh.Load(path, cfg.Lookup.MeshOptions(), cfg.Runtime.RunOptions()...)
	if err != nil {
		return nil, err
	}

	slog.Debug("grid loaded", slog.String("path", path), slog.String("grid", m.String()))

	return m, nil
}

// callOptions resolves the configured methods. The configured extrapolation
// applies when it was named on the command line or when the mesh does not
// extrapolate by default.
func callOptions(cmd *cobra.Command, cfg config.Config) ([]mesh.CallOption, error) {
	interp, extrap, err := cfg.Lookup.Methods()
	if err != nil {
		return nil, err
	}

	opts := []mesh.CallOption{mesh.WithInterp(interp)}

	flags := cmd.Flags()
	if !cfg.Lookup.Extrapolate || flags.Changed("extrap") || flags.Changed("lookup-extrap") {
		opts = append(opts, mesh.WithExtrap(extrap))
	}

	return opts, nil
}

// parseBinding splits "name=value".
func parseBinding(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)

	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid binding %q (want name=value)", s)
	}

	return name, value, nil
}

// parseArgs parses repeated "name=v1,v2" flags into named query arguments.
func parseArgs(bindings []string) (map[string]query.Arg, error) {
	out := make(map[string]query.Arg, len(bindings))

	for _, b := range bindings {
		name, value, err := parseBinding(b)
		if err != nil {
			return nil, err
		}

		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("dimension %q bound twice", name)
		}

		a, err := query.ParseArg(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		out[name] = a
	}

	return out, nil
}

// buildQuery binds named arguments to the mesh dimensions.
func buildQuery(m *mesh.Mesh, args map[string]query.Arg) (query.Query, error) {
	b := m.Query()
	for name, a := range args {
		b.Set(name, a)
	}

	return b.Build()
}

func checkFormat(format string) error {
	if format != "table" && format != "json" {
		return errors.New("--format must be 'table' or 'json'")
	}

	return nil
}
