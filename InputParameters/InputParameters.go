package InputParameters

import (
	"fmt"
	"io"
	"math"

	"github.com/ghodss/yaml"
)

const MaxRefinements = 6

type GridRefinementStudy struct {
	GridLeft       float64 `json:"GridLeft"`
	GridRight      float64 `json:"GridRight"`
	GridSize       int     `json:"GridSize"`
	NumRefinements int     `json:"NumRefinements"` // Each refinement doubles GridSize
}

type AdaptationParameters struct {
	Policy        string  `json:"Policy"`    // progressive or simple
	Tolerance     float64 `json:"Tolerance"` // Zero selects the policy default
	MaxIterations int     `json:"MaxIterations"`
}

type LinearSolverParameters struct {
	Tolerance      float64 `json:"Tolerance"`
	MaxRefinements int     `json:"MaxRefinements"`
}

// Parameters obtained from the YAML input file, ghodss/yaml routes through
// encoding/json so the json tags name the YAML keys
type ReducedOrderParameters struct {
	Title               string                 `json:"Title"`
	RewienskiA          float64                `json:"RewienskiA"`
	RewienskiB          float64                `json:"RewienskiB"`
	FinalTime           float64                `json:"FinalTime"`
	CFL                 float64                `json:"CFL"`
	NumSnapshots        int                    `json:"NumSnapshots"`
	NumBasis            int                    `json:"NumBasis"`
	NumCoarse           int                    `json:"NumCoarse"`
	ParallelDegree      int                    `json:"ParallelDegree"` // Zero uses all CPUs
	GridRefinementStudy GridRefinementStudy    `json:"GridRefinementStudy"`
	Adaptation          AdaptationParameters   `json:"Adaptation"`
	LinearSolver        LinearSolverParameters `json:"LinearSolver"`
}

func NewReducedOrderParameters() *ReducedOrderParameters {
	return &ReducedOrderParameters{
		Title:        "Burgers Rewienski",
		RewienskiA:   math.Sqrt(5),
		RewienskiB:   0.02,
		FinalTime:    50,
		CFL:          0.5,
		NumSnapshots: 20,
		NumBasis:     10,
		NumCoarse:    3,
		GridRefinementStudy: GridRefinementStudy{
			GridLeft:  0,
			GridRight: 100,
			GridSize:  64,
		},
		Adaptation: AdaptationParameters{
			Policy:        "progressive",
			MaxIterations: 10,
		},
		LinearSolver: LinearSolverParameters{
			Tolerance:      1.e-10,
			MaxRefinements: 2,
		},
	}
}

// Parse overlays the deck onto the receiver, keys absent from the deck keep
// their current values
func (ip *ReducedOrderParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("parsing input deck: %w", err)
	}
	return ip.Validate()
}

// NumCells is the grid size after the requested refinements
func (ip *ReducedOrderParameters) NumCells() int {
	return ip.GridRefinementStudy.GridSize << ip.GridRefinementStudy.NumRefinements
}

func (ip *ReducedOrderParameters) Validate() error {
	var (
		grid = ip.GridRefinementStudy
	)
	checkRange := func(name string, val, min, max float64) error {
		if math.IsNaN(val) || val < min || val > max {
			return fmt.Errorf("%s = %g is outside [%g, %g]", name, val, min, max)
		}
		return nil
	}
	for _, err := range []error{
		checkRange("RewienskiA", ip.RewienskiA, 2, 10),
		checkRange("RewienskiB", ip.RewienskiB, 0.01, 0.08),
		checkRange("FinalTime", ip.FinalTime, 0, 1000),
		checkRange("CFL", ip.CFL, 1.e-6, 1),
		checkRange("NumRefinements", float64(grid.NumRefinements), 0, MaxRefinements),
	} {
		if err != nil {
			return err
		}
	}
	switch {
	case ip.FinalTime == 0:
		return fmt.Errorf("FinalTime must be positive to collect snapshots")
	case grid.GridSize < 2:
		return fmt.Errorf("GridSize = %d, need at least 2 cells", grid.GridSize)
	case grid.GridRight <= grid.GridLeft:
		return fmt.Errorf("grid bounds [%g, %g] must increase", grid.GridLeft, grid.GridRight)
	case ip.NumSnapshots < 1:
		return fmt.Errorf("NumSnapshots = %d, need at least one", ip.NumSnapshots)
	case ip.NumBasis < 1 || ip.NumBasis > min(ip.NumSnapshots, ip.NumCells()):
		return fmt.Errorf("NumBasis = %d must be in [1, %d]", ip.NumBasis, min(ip.NumSnapshots, ip.NumCells()))
	case ip.NumCoarse < 1 || ip.NumCoarse > ip.NumBasis:
		return fmt.Errorf("NumCoarse = %d must be in [1, NumBasis = %d]", ip.NumCoarse, ip.NumBasis)
	case ip.ParallelDegree < 0:
		return fmt.Errorf("ParallelDegree = %d must not be negative", ip.ParallelDegree)
	case ip.Adaptation.MaxIterations < 1:
		return fmt.Errorf("Adaptation.MaxIterations = %d, need at least one", ip.Adaptation.MaxIterations)
	case ip.Adaptation.Tolerance < 0:
		return fmt.Errorf("Adaptation.Tolerance = %g must not be negative", ip.Adaptation.Tolerance)
	case ip.LinearSolver.Tolerance < 0 || ip.LinearSolver.MaxRefinements < 0:
		return fmt.Errorf("LinearSolver tolerance and refinements must not be negative")
	}
	return nil
}

func (ip *ReducedOrderParameters) Print(w io.Writer) {
	grid := ip.GridRefinementStudy
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "%8.5f\t\t= Rewienski a\n", ip.RewienskiA)
	fmt.Fprintf(w, "%8.5f\t\t= Rewienski b\n", ip.RewienskiB)
	fmt.Fprintf(w, "%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Fprintf(w, "%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Fprintf(w, "[%g, %g]\t\t= Domain\n", grid.GridLeft, grid.GridRight)
	fmt.Fprintf(w, "[%d x 2^%d = %d]\t= Cells\n", grid.GridSize, grid.NumRefinements, ip.NumCells())
	fmt.Fprintf(w, "[%d]\t\t\t\t= Snapshots\n", ip.NumSnapshots)
	fmt.Fprintf(w, "[%d / %d]\t\t\t= Coarse / Total POD Basis\n", ip.NumCoarse, ip.NumBasis)
	fmt.Fprintf(w, "[%s]\t\t= Adaptation Policy, Tolerance %g, MaxIterations %d\n",
		ip.Adaptation.Policy, ip.Adaptation.Tolerance, ip.Adaptation.MaxIterations)
}
