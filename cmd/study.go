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
	"sort"

	"github.com/spf13/cobra"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/model_problems/BurgersRewienski"
	"github.com/notargets/gorom/tools/convOrder"
)

// StudyCmd represents the grid refinement study command
var StudyCmd = &cobra.Command{
	Use:   "study",
	Short: "Grid refinement study of the full order solution integral",
	Long: `Solves the full order steady state on GridSize * 2^r cells for r = 0..NumRefinements
and reports the observed order of accuracy of the solution integral. With --csvFile
and no input deck, an existing study is read back and its orders are reported.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			icFile, csvFile string
			ip              *InputParameters.ReducedOrderParameters
			cs              *convOrder.ConvergenceStudy
		)
		if icFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if csvFile, err = cmd.Flags().GetString("csvFile"); err != nil {
			return
		}
		if len(icFile) == 0 && len(csvFile) != 0 {
			return printStudies(csvFile, os.Stdout)
		}
		if ip, err = processInput(&ModelROM{ICFile: icFile}); err != nil {
			return
		}
		if cs, err = RunStudy(ip, os.Stdout); err != nil {
			return
		}
		if len(csvFile) != 0 {
			err = writeStudy(csvFile, cs)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(StudyCmd)
	StudyCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file with the GridRefinementStudy parameters")
	StudyCmd.Flags().StringP("csvFile", "c", "", "file containing entries of a convergence study")
}

func RunStudy(ip *InputParameters.ReducedOrderParameters, out io.Writer) (cs *convOrder.ConvergenceStudy, err error) {
	var (
		grid = ip.GridRefinementStudy
		c    *BurgersRewienski.Burgers
	)
	cs = convOrder.NewConvergenceStudy(ip.Title)
	for r := 0; r <= grid.NumRefinements; r++ {
		if c, err = BurgersRewienski.NewBurgers(ip.RewienskiA, ip.RewienskiB, grid.GridLeft, grid.GridRight,
			grid.GridSize<<r, ip.ParallelDegree, nil); err != nil {
			return
		}
		var val float64
		if val, _, err = BurgersRewienski.NewSolutionIntegral(c).Evaluate(c.DiscreteSteadyState()); err != nil {
			return
		}
		cs.Add(c.K, c.DX, val)
	}
	cs.Print(out)
	return
}

func writeStudy(fileName string, cs *convOrder.ConvergenceStudy) (err error) {
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
	return convOrder.WriteCSV(f, cs)
}

func printStudies(fileName string, out io.Writer) (err error) {
	var (
		f       *os.File
		studies map[string]*convOrder.ConvergenceStudy
	)
	if f, err = os.Open(fileName); err != nil {
		return
	}
	defer f.Close()
	if studies, err = convOrder.ReadCSV(f); err != nil {
		return fmt.Errorf("%s: %w", fileName, err)
	}
	titles := make([]string, 0, len(studies))
	for title := range studies {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	fmt.Fprintf(out, "Input file: %v\n", fileName)
	for _, title := range titles {
		studies[title].Print(out)
	}
	return
}
