/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/adaptation"
	"github.com/notargets/gorom/model_problems/BurgersRewienski"
	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/utils"
)

type ModelROM struct {
	ICFile    string
	BasisFile string
	Rank      int
	Debug     bool
}

const exampleFile = `
########################################
Title: "Burgers Rewienski"
RewienskiA: 2.2360679775
RewienskiB: 0.02
FinalTime: 50
CFL: 0.5
NumSnapshots: 20
NumBasis: 10
NumCoarse: 3
GridRefinementStudy:
  GridLeft: 0
  GridRight: 100
  GridSize: 64
  NumRefinements: 0
Adaptation:
  Policy: progressive # Can be "simple"
  Tolerance: 0.1
  MaxIterations: 10
########################################
`

// ROMCmd represents the ROM command
var ROMCmd = &cobra.Command{
	Use:   "ROM",
	Short: "Adaptive POD reduced order model of the Rewienski Burgers problem",
	Long: `Collects full order snapshots of the Rewienski Burgers problem, builds a POD
basis and adapts its coarse part with dual weighted residual error estimates
of the solution integral`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ip     *InputParameters.ReducedOrderParameters
			logger *zap.Logger
		)
		mr := &ModelROM{
			Rank:  viper.GetInt("rank"),
			Debug: viper.GetBool("debug"),
		}
		if mr.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if mr.BasisFile, err = cmd.Flags().GetString("basisFile"); err != nil {
			return
		}
		if ip, err = processInput(mr); err != nil {
			return
		}
		if logger, err = newLogger(mr.Debug); err != nil {
			return
		}
		defer func() { _ = logger.Sync() }()
		_, err = RunROM(mr, ip, logger, os.Stdout)
		return
	},
}

func init() {
	rootCmd.AddCommand(ROMCmd)
	ROMCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- RewienskiA, RewienskiB\n\t- NumBasis, NumCoarse\n\t- Adaptation policy and tolerance")
	ROMCmd.Flags().StringP("basisFile", "B", "", "file to write the POD basis and its partition to")
	ROMCmd.Flags().IntP("rank", "r", 0, "process rank, only rank 0 writes reports")
	ROMCmd.Flags().BoolP("debug", "d", false, "debug level logging")
	// Rank and log level may also come from the config file or GOROM_RANK, GOROM_DEBUG
	for _, name := range []string{"rank", "debug"} {
		if err := viper.BindPFlag(name, ROMCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func processInput(mr *ModelROM) (ip *InputParameters.ReducedOrderParameters, err error) {
	var (
		data []byte
	)
	if len(mr.ICFile) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile), example file:%s", exampleFile)
		return
	}
	if data, err = os.ReadFile(mr.ICFile); err != nil {
		return
	}
	ip = InputParameters.NewReducedOrderParameters()
	if err = ip.Parse(data); err != nil {
		err = fmt.Errorf("%s: %w", mr.ICFile, err)
	}
	return
}

// RunROM runs the whole pipeline: snapshots, POD basis, adaptation. Reports go
// to out on rank 0 only.
func RunROM(mr *ModelROM, ip *InputParameters.ReducedOrderParameters, logger *zap.Logger,
	out io.Writer) (res *adaptation.Result, err error) {
	var (
		w     = utils.RankWriter(out, mr.Rank)
		grid  = ip.GridRefinementStudy
		c     *BurgersRewienski.Burgers
		S     *mat.Dense
		basis *pod.ReducedBasis
		pol   adaptation.Policy
		d     *adaptation.Driver
	)
	ip.Print(w)
	if pol, err = adaptation.NewPolicy(ip.Adaptation.Policy, ip.Adaptation.Tolerance, ip.Adaptation.MaxIterations); err != nil {
		return
	}
	if c, err = BurgersRewienski.NewBurgers(ip.RewienskiA, ip.RewienskiB, grid.GridLeft, grid.GridRight,
		ip.NumCells(), ip.ParallelDegree, w); err != nil {
		return
	}
	c.CFL = ip.CFL
	c.Solver = utils.NewLUSolver(ip.LinearSolver.Tolerance, ip.LinearSolver.MaxRefinements)
	if S, err = c.Snapshots(ip.FinalTime, ip.NumSnapshots); err != nil {
		return
	}
	if basis, err = pod.NewFromSnapshots(S, ip.NumBasis, ip.NumCoarse); err != nil {
		return
	}
	logger.Info("POD basis built",
		zap.Int("cells", c.K),
		zap.Int("snapshots", ip.NumSnapshots),
		zap.Float64s("singularValues", basis.SingularValues),
		zap.String("memory", utils.GetMemUsage()))
	est := adaptation.NewEstimator(c, BurgersRewienski.NewSolutionIntegral(c), c.Solver, w)
	if d, err = adaptation.NewDriver(basis, est, pol, logger); err != nil {
		return
	}
	res, err = d.Run()
	if len(mr.BasisFile) != 0 {
		if werr := writeBasis(mr.BasisFile, basis); werr != nil && err == nil {
			err = werr
		}
	}
	return
}

func writeBasis(fileName string, basis *pod.ReducedBasis) (err error) {
	var (
		f *os.File
	)
	if f, err = os.Create(fileName); err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	basis.Print(f)
	return
}
