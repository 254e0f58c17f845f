package lib

import (
	"go.uber.org/zap"

	"github.com/phil-mansfield/vizgrid/lib/grid"
)

// Summary describes a loaded grid. It's what the info mode prints.
type Summary struct {
	File     string          `yaml:"file"`
	Module   string          `yaml:"module"`
	Dims     [3]int          `yaml:"dims,flow"`
	Vertices int             `yaml:"vertices"`
	Bounds   BoundsSummary   `yaml:"bounds"`
	Fields   []FieldSummary  `yaml:"fields"`
	Vectors  []VectorSummary `yaml:"vectors,omitempty"`
}

type BoundsSummary struct {
	Min [3]float64 `yaml:"min,flow"`
	Max [3]float64 `yaml:"max,flow"`
}

type FieldSummary struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Mean float64 `yaml:"mean"`
	Std  float64 `yaml:"std"`
	NaN  int     `yaml:"nan,omitempty"`
}

type VectorSummary struct {
	Name       string    `yaml:"name"`
	Components [3]string `yaml:"components,flow"`
}

// Summarize creates a Summary of a grid.
func Summarize(fileName, module string, g *grid.Grid) *Summary {
	b := g.Bounds()
	s := &Summary{
		File: fileName, Module: module,
		Dims: g.Dims(), Vertices: g.NumVertices(),
		Bounds: BoundsSummary{b[0], b[1]},
	}

	names := g.Names()
	for f, name := range names {
		st := g.Stats(f)
		s.Fields = append(s.Fields, FieldSummary{
			name, st.Min, st.Max, st.Mean, st.Std, st.NaN,
		})
	}
	for _, v := range g.Vectors() {
		s.Vectors = append(s.Vectors, VectorSummary{v.Name, [3]string{
			names[v.Components[0]], names[v.Components[1]],
			names[v.Components[2]],
		}})
	}

	return s
}

// Info loads every file and summarizes it. Files that failed to load have
// a nil Summary.
func Info(args *Args, logger *zap.Logger) ([]*Summary, error) {
	summaries := make([]*Summary, len(args.Files))
	err := batch(InfoMode, args, logger, func(i int) error {
		name := args.Files[i].Name
		g, module, err := LoadFile(args, name, logger)
		if err != nil {
			return err
		}
		summaries[i] = Summarize(name, module, g)
		return nil
	})
	return summaries, err
}
