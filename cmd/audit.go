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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hydronet/gopinn/model_problems/Transport2D"
	"github.com/hydronet/gopinn/utils"
)

// AuditCmd represents the audit command
var AuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check mass conservation of a trained checkpoint",
	Long: `Integrates the predicted concentration over the domain at a series
of times and reports the drift of total mass, a physical sanity check on
the trained field`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		ckFile, err := cmd.Flags().GetString("checkpointFile")
		if err != nil {
			panic(err)
		}
		if len(ckFile) == 0 {
			fmt.Printf("error: must supply a checkpoint file (-C, --checkpointFile)\n")
			os.Exit(1)
		}
		nSide, _ := cmd.Flags().GetInt("nSide")
		timeSpec, _ := cmd.Flags().GetString("times")
		graph, _ := cmd.Flags().GetBool("graph")
		delay, _ := cmd.Flags().GetInt("delay")
		RunAudit(ckFile, timeSpec, nSide, graph, delay)
	},
}

func init() {
	rootCmd.AddCommand(AuditCmd)
	AuditCmd.Flags().StringP("checkpointFile", "C", "", "checkpoint file holding the trained network")
	AuditCmd.Flags().Int("nSide", 64, "quadrature lattice points per side")
	AuditCmd.Flags().String("times", "", "comma separated audit times, defaults to start, middle and end of the trained window")
	AuditCmd.Flags().BoolP("graph", "g", false, "plot total mass against time")
	AuditCmd.Flags().IntP("delay", "d", 10000, "milliseconds to hold the plot window open")
}

func RunAudit(ckFile, timeSpec string, nSide int, graph bool, delay int) {
	c, err := Transport2D.ResumeTransport(ckFile, false)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	var times []float64
	if len(timeSpec) == 0 {
		t0, t1 := c.Span.T0, c.Span.T1
		times = []float64{t0, 0.5 * (t0 + t1), t1}
	} else if times, err = parseTimes(timeSpec); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	ma, err := c.AuditMass(nSide, times)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	fmt.Printf("%s", ma.String())
	if graph && len(ma.Times) > 1 {
		var (
			mmin, mmax = ma.Mass[0], ma.Mass[0]
		)
		for _, m := range ma.Mass {
			if m < mmin {
				mmin = m
			}
			if m > mmax {
				mmax = m
			}
		}
		pad := 0.1*(mmax-mmin) + 1.e-12
		lc := utils.NewLineChart(1280, 1024,
			ma.Times[0], ma.Times[len(ma.Times)-1], mmin-pad, mmax+pad)
		lc.AddLine(ma.Times, ma.Mass, -1, "mass")
		utils.SleepFor(delay)
	}
}

func parseTimes(spec string) (times []float64, err error) {
	for _, f := range strings.Split(spec, ",") {
		var t float64
		if t, err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return nil, fmt.Errorf("bad time value [%s] in --times", f)
		}
		times = append(times, t)
	}
	return
}
