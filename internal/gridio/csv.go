package gridio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/go-lerp/internal/grid"
)

// ErrCSV is returned for CSV tables that cannot be read as a grid.
var ErrCSV = errors.New("gridio: invalid csv table")

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	// Names overrides the dimension names taken from the table.
	Names []string
	Label string
	Unit  string
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// ReadCSV reads a 1-D or 2-D lookup table.
//
// A 1-D table has two columns, breakpoint and value, with an optional header
// row naming them. A 2-D table has breakpoints of the second dimension along
// the first row and breakpoints of the first dimension down the first
// column; the corner cell is empty or holds "x\y" dimension names.
func ReadCSV(r io.Reader, opts CSVOptions) (*grid.Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCSV, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrCSV)
	}

	var (
		axes []grid.Axis
		data []float64
	)

	if is2D(rows[0]) {
		axes, data, err = read2D(rows)
	} else {
		axes, data, err = read1D(rows, &opts)
	}

	if err != nil {
		return nil, err
	}

	for d, name := range opts.Names {
		if d < len(axes) {
			axes[d].Name = name
		}
	}

	return grid.New(axes, data, nil, grid.WithLabel(opts.Label), grid.WithUnit(opts.Unit))
}

// ReadCSVFile is ReadCSV on a file.
func ReadCSVFile(path string, opts CSVOptions) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gridio: open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

func is2D(first []string) bool {
	if len(first) > 2 {
		return true
	}

	return len(first) == 2 && (first[0] == "" || strings.Contains(first[0], `\`))
}

func read1D(rows [][]string, opts *CSVOptions) ([]grid.Axis, []float64, error) {
	axis := grid.Axis{}

	if _, err := parseFloat(rows[0][0]); err != nil {
		if len(rows[0]) == 2 {
			axis.Name = strings.TrimSpace(rows[0][0])
			if opts.Label == "" {
				opts.Label = strings.TrimSpace(rows[0][1])
			}
		}

		rows = rows[1:]
	}

	data := make([]float64, 0, len(rows))

	for i, row := range rows {
		if len(row) != 2 {
			return nil, nil, fmt.Errorf("%w: row %d has %d fields, want 2", ErrCSV, i+1, len(row))
		}

		x, err := parseFloat(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %w", ErrCSV, i+1, err)
		}

		v, err := parseFloat(row[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %w", ErrCSV, i+1, err)
		}

		axis.Breakpoints = append(axis.Breakpoints, x)
		data = append(data, v)
	}

	return []grid.Axis{axis}, data, nil
}

func read2D(rows [][]string) ([]grid.Axis, []float64, error) {
	var xAxis, yAxis grid.Axis

	if names := strings.SplitN(rows[0][0], `\`, 2); len(names) == 2 {
		xAxis.Name = strings.TrimSpace(names[0])
		yAxis.Name = strings.TrimSpace(names[1])
	}

	for j, cell := range rows[0][1:] {
		y, err := parseFloat(cell)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: header column %d: %w", ErrCSV, j+1, err)
		}

		yAxis.Breakpoints = append(yAxis.Breakpoints, y)
	}

	width := len(rows[0])
	data := make([]float64, 0, (len(rows)-1)*(width-1))

	for i, row := range rows[1:] {
		if len(row) != width {
			return nil, nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrCSV, i+2, len(row), width)
		}

		for j, cell := range row {
			v, err := parseFloat(cell)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: row %d column %d: %w", ErrCSV, i+2, j, err)
			}

			if j == 0 {
				xAxis.Breakpoints = append(xAxis.Breakpoints, v)
				continue
			}

			data = append(data, v)
		}
	}

	return []grid.Axis{xAxis, yAxis}, data, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
