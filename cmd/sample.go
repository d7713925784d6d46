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

	"github.com/spf13/cobra"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/sampler"
)

type ModelSample struct {
	ICFile  string
	Set     string
	OutFile string
}

// SampleCmd represents the sample command
var SampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw and inspect the collocation sets of a configuration",
	Long: `Draws the interior, boundary and initial collocation sets exactly as
the first training iteration would see them and writes the points as CSV
rows, for checking the coverage of a new configuration before a long run`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("sample called")
		ms := &ModelSample{}
		if ms.ICFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		ms.Set, _ = cmd.Flags().GetString("set")
		ms.OutFile, _ = cmd.Flags().GetString("outputFile")
		if len(ms.ICFile) == 0 {
			fmt.Printf("error: must supply an input parameters file (-I, --inputParametersFile)\n")
			os.Exit(1)
		}
		if err = validSetName(ms.Set); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		RunSample(ms)
	},
}

func init() {
	rootCmd.AddCommand(SampleCmd)
	SampleCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for run parameters")
	SampleCmd.Flags().StringP("set", "s", "all", "which set to write - interior, boundary, initial or all")
	SampleCmd.Flags().StringP("outputFile", "o", "", "write rows to this file instead of stdout")
}

func validSetName(set string) (err error) {
	switch set {
	case "interior", "boundary", "initial", "all":
	default:
		err = fmt.Errorf("unknown set [%s], choose interior, boundary, initial or all", set)
	}
	return
}

func RunSample(ms *ModelSample) {
	ip := InputParameters.Defaults()
	data, err := os.ReadFile(ms.ICFile)
	if err != nil {
		panic(err)
	}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	if err = ip.Validate(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	var (
		dom    = physics.Domain{XMin: ip.XMin, XMax: ip.XMax, YMin: ip.YMin, YMax: ip.YMax}
		span   = physics.TimeSpan{T0: ip.TimeStart, T1: ip.FinalTime}
		coeffs = &physics.Coefficients{
			Diffusion: ip.Diffusivity,
			Velocity:  ip.Velocity,
			Source:    ip.Source,
		}
	)
	s, err := sampler.New(dom, span, coeffs, sampler.Config{
		NumInterior: ip.NumInterior,
		NumBoundary: ip.NumBoundary,
		NumInitial:  ip.NumInitial,
		Seed:        ip.Seed,
	})
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	w := os.Stdout
	if len(ms.OutFile) != 0 {
		if w, err = os.Create(ms.OutFile); err != nil {
			panic(err)
		}
		defer w.Close()
	}
	var (
		rows     int
		excluded int
	)
	fmt.Fprintf(w, "set,x,y,t,edge,D,vx,vy,S\n")
	if ms.Set == "interior" || ms.Set == "all" {
		interior, serr := s.Interior()
		if serr != nil {
			fmt.Printf("error: %s\n", serr.Error())
			os.Exit(1)
		}
		excluded = interior.Excluded
		xd := interior.X.DataP
		for i := 0; i < interior.Len(); i++ {
			fmt.Fprintf(w, "interior,%g,%g,%g,,%g,%g,%g,%g\n",
				xd[3*i], xd[3*i+1], xd[3*i+2],
				interior.D.DataP[i], interior.Vx.DataP[i], interior.Vy.DataP[i],
				interior.S.DataP[i])
			rows++
		}
	}
	if ms.Set == "boundary" || ms.Set == "all" {
		bnd := s.Boundary()
		xd := bnd.X.DataP
		for i := 0; i < bnd.Len(); i++ {
			fmt.Fprintf(w, "boundary,%g,%g,%g,%s,,,,\n",
				xd[3*i], xd[3*i+1], xd[3*i+2], bnd.Edges[i])
			rows++
		}
	}
	if ms.Set == "initial" || ms.Set == "all" {
		initial := s.Initial()
		xd := initial.X.DataP
		for i := 0; i < initial.Len(); i++ {
			fmt.Fprintf(w, "initial,%g,%g,%g,,,,,\n",
				xd[3*i], xd[3*i+1], xd[3*i+2])
			rows++
		}
	}
	if len(ms.OutFile) != 0 {
		fmt.Printf("Wrote %d rows to %s\n", rows, ms.OutFile)
		if excluded > 0 {
			fmt.Printf("%d interior draws excluded by undefined coefficients\n", excluded)
		}
	}
}
