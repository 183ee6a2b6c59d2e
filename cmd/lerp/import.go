package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/example/go-lerp/internal/gridio"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		csvPath string
		names   string
		label   string
		unit    string
		comma   string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert a CSV table to a grid file",
		Long: `Convert a CSV table to a grid file.

A 1-D table has x,value rows with an optional header. A 2-D table has the
second axis breakpoints in its first row and the first axis breakpoints in
its first column; a corner cell "x\y" names both dimensions.`,
		Example: "  lerp import --csv torque.csv --names speed,load --unit N.m -o torque.lerp",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := requireConfig(); err != nil {
				return err
			}

			if csvPath == "" {
				return errors.New("--csv is required for import")
			}

			if output == "" {
				return errors.New("--output is required for import")
			}

			opts := gridio.CSVOptions{Label: label, Unit: unit}

			if names != "" {
				for _, n := range strings.Split(names, ",") {
					opts.Names = append(opts.Names, strings.TrimSpace(n))
				}
			}

			if comma != "" {
				r, size := utf8.DecodeRuneInString(comma)
				if size != len(comma) {
					return fmt.Errorf("--comma must be a single character, got %q", comma)
				}

				opts.Comma = r
			}

			g, err := gridio.ReadCSVFile(csvPath, opts)
			if err != nil {
				return err
			}

			if err := gridio.WriteFile(output, g); err != nil {
				return err
			}

			slog.Info("grid imported", slog.String("csv", csvPath), slog.String("output", output), slog.String("grid", g.String()))

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", g, output)

			return err
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV table to import (required)")
	cmd.Flags().StringVar(&names, "names", "", "Comma-separated dimension names")
	cmd.Flags().StringVar(&label, "label", "", "Label of the tabulated quantity")
	cmd.Flags().StringVar(&unit, "unit", "", "Unit of the tabulated quantity")
	cmd.Flags().StringVar(&comma, "comma", "", "Field delimiter (default ',')")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output grid file (required)")

	return cmd
}
