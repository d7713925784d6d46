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
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"

	graphics2D "github.com/notargets/avs/geometry"

	"github.com/hydronet/gopinn/geometry2D"
	"github.com/hydronet/gopinn/model_problems/Transport2D"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/utils"
)

type ModelPredict struct {
	Checkpoint  string
	PointsFile  string
	Time        float64
	Nx, Ny      int
	OutFile     string
	Extrapolate bool
	Graph       bool
	Delay       int
}

// PredictCmd represents the predict command
var PredictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Evaluate a trained checkpoint on a grid or at listed points",
	Long: `Loads the network from a checkpoint and writes the concentration
field at the requested time as x,y,c rows, one per grid point. With -p
the grid is replaced by the x,y,t query points listed in a YAML file`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		mp := &ModelPredict{}
		if mp.Checkpoint, err = cmd.Flags().GetString("checkpointFile"); err != nil {
			panic(err)
		}
		mp.PointsFile, _ = cmd.Flags().GetString("pointsFile")
		mp.Time, _ = cmd.Flags().GetFloat64("time")
		mp.Nx, _ = cmd.Flags().GetInt("nx")
		mp.Ny, _ = cmd.Flags().GetInt("ny")
		mp.OutFile, _ = cmd.Flags().GetString("outputFile")
		mp.Extrapolate, _ = cmd.Flags().GetBool("extrapolate")
		mp.Graph, _ = cmd.Flags().GetBool("graph")
		mp.Delay, _ = cmd.Flags().GetInt("delay")
		if len(mp.Checkpoint) == 0 {
			fmt.Printf("error: must supply a checkpoint file (-C, --checkpointFile)\n")
			os.Exit(1)
		}
		RunPredict(mp)
	},
}

func init() {
	rootCmd.AddCommand(PredictCmd)
	PredictCmd.Flags().StringP("checkpointFile", "C", "", "checkpoint file holding the trained network")
	PredictCmd.Flags().StringP("pointsFile", "p", "", "YAML list of {X, Y, T} query points, replaces the grid")
	PredictCmd.Flags().Float64P("time", "t", 0, "solution time to evaluate")
	PredictCmd.Flags().Int("nx", 51, "grid points along x")
	PredictCmd.Flags().Int("ny", 51, "grid points along y")
	PredictCmd.Flags().StringP("outputFile", "o", "", "write rows to this file instead of stdout")
	PredictCmd.Flags().Bool("extrapolate", false, "allow evaluation outside the trained domain and time window")
	PredictCmd.Flags().BoolP("graph", "g", false, "render the field as a surface plot")
	PredictCmd.Flags().IntP("delay", "d", 10000, "milliseconds to hold the plot window open")
}

func RunPredict(mp *ModelPredict) {
	p, err := Transport2D.LoadPredictor(mp.Checkpoint)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	p.AllowExtrapolation = mp.Extrapolate
	if len(mp.PointsFile) != 0 {
		runPredictPoints(mp, p)
		return
	}
	x, y, C, err := p.PredictGrid(mp.Nx, mp.Ny, mp.Time)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	w := os.Stdout
	if len(mp.OutFile) != 0 {
		if w, err = os.Create(mp.OutFile); err != nil {
			panic(err)
		}
		defer w.Close()
	}
	fmt.Fprintf(w, "x,y,c\n")
	for i := range C {
		fmt.Fprintf(w, "%g,%g,%g\n", x[i], y[i], C[i])
	}
	if len(mp.OutFile) != 0 {
		fmt.Printf("Wrote %d rows to %s\n", len(C), mp.OutFile)
	}
	if mp.Graph {
		plotSurface(x, y, C, p, mp.Delay)
	}
}

// pointSpec is one query location in the -p points file
type pointSpec struct {
	X float64 `yaml:"X"`
	Y float64 `yaml:"Y"`
	T float64 `yaml:"T"`
}

func readPoints(path string) (pts []sampler.Point, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var specs []pointSpec
	if err = yaml.Unmarshal(data, &specs); err != nil {
		return
	}
	if len(specs) == 0 {
		err = fmt.Errorf("points file %s holds no points", path)
		return
	}
	pts = make([]sampler.Point, len(specs))
	for i, ps := range specs {
		if pts[i], err = sampler.NewPoint(ps.X, ps.Y, ps.T); err != nil {
			return nil, fmt.Errorf("points file %s entry %d: %s", path, i, err)
		}
	}
	return
}

func runPredictPoints(mp *ModelPredict, p *Transport2D.Predictor) {
	pts, err := readPoints(mp.PointsFile)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	results, err := p.PredictPoints(pts)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	w := os.Stdout
	if len(mp.OutFile) != 0 {
		if w, err = os.Create(mp.OutFile); err != nil {
			panic(err)
		}
		defer w.Close()
	}
	fmt.Fprintf(w, "x,y,t,c\n")
	for _, r := range results {
		fmt.Fprintf(w, "%g,%g,%g,%g\n", r.Point.X, r.Point.Y, r.Point.T, r.C)
	}
	if len(mp.OutFile) != 0 {
		fmt.Printf("Wrote %d rows to %s\n", len(results), mp.OutFile)
	}
}

func plotSurface(x, y, C []float64, p *Transport2D.Predictor, delay int) {
	tm, err := geometry2D.NewTriMesh(x, y)
	if err != nil {
		panic(err)
	}
	gm := &graphics2D.TriMesh{
		Triangles: make([]graphics2D.Triangle, len(tm.Tris)),
		Geometry:  utils.ArraysToPoints(x, y),
	}
	for k, tri := range tm.Tris {
		gm.Triangles[k].Nodes = tri
	}
	var (
		fI         = make([]float32, len(C))
		fmin, fmax = C[0], C[0]
		marginX    = 0.05 * p.Dom.Width()
		marginY    = 0.05 * p.Dom.Height()
	)
	for i, c := range C {
		fI[i] = float32(c)
		if c < fmin {
			fmin = c
		}
		if c > fmax {
			fmax = c
		}
	}
	sp := utils.NewSurfacePlot(1280, 1024,
		p.Dom.XMin-marginX, p.Dom.XMax+marginX,
		p.Dom.YMin-marginY, p.Dom.YMax+marginY, gm)
	sp.AddColorMap(0.99*fmin, 1.01*fmax+1.e-12)
	sp.AddFunctionSurface(fI)
	utils.SleepFor(delay)
}
