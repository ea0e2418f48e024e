// Package bench compares engine configurations on one recording: speed for
// benchmark runs, word differences for comparison runs.
package bench

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Row is one decoding configuration.
type Row struct {
	Model   string `yaml:"model"`
	Compute string `yaml:"compute"`
	Beam    int    `yaml:"beam"`
	BestOf  int    `yaml:"best_of"`
}

// Name is the label used in reports.
func (r Row) Name() string {
	return fmt.Sprintf("%s/%s/beam=%d", r.Model, r.Compute, r.Beam)
}

// Matrix holds the rows for both commands.
type Matrix struct {
	Bench   []Row `yaml:"bench"`
	Compare []Row `yaml:"compare"`
}

// DefaultMatrix returns the built-in configurations. The first row of each
// list is the reference.
func DefaultMatrix() Matrix {
	return Matrix{
		Bench: []Row{
			{"medium", "float16", 5, 5},
			{"medium", "float16", 1, 1},
			{"medium", "int8", 5, 5},
			{"medium", "int8", 1, 1},
			{"small", "float16", 5, 5},
			{"small", "int8", 1, 1},
			{"base", "float16", 5, 5},
			{"base", "int8", 1, 1},
			{"tiny", "float16", 5, 5},
			{"tiny", "int8", 1, 1},
		},
		Compare: []Row{
			{"medium", "float16", 5, 5},
			{"medium", "float16", 1, 1},
			{"small", "float16", 5, 5},
			{"small", "int8", 1, 1},
			{"base", "int8", 1, 1},
			{"tiny", "int8", 1, 1},
		},
	}
}

// LoadMatrix reads a YAML matrix. Lists missing from the file keep their
// defaults.
func LoadMatrix(path string) (Matrix, error) {
	m := DefaultMatrix()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading matrix: %w", err)
	}
	var file Matrix
	if err := yaml.Unmarshal(data, &file); err != nil {
		return m, fmt.Errorf("parsing matrix %s: %w", path, err)
	}
	if len(file.Bench) > 0 {
		m.Bench = file.Bench
	}
	if len(file.Compare) > 0 {
		m.Compare = file.Compare
	}
	for _, rows := range [][]Row{m.Bench, m.Compare} {
		for i, r := range rows {
			if r.Model == "" || r.Beam < 1 || r.BestOf < 1 {
				return m, fmt.Errorf("matrix row %d (%s): model, beam and best_of are required", i+1, r.Name())
			}
			if r.Compute != "float16" && r.Compute != "int8" {
				return m, fmt.Errorf("matrix row %d (%s): compute must be float16 or int8", i+1, r.Name())
			}
		}
	}
	return m, nil
}
