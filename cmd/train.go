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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/avs/chart2d"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/model_problems/Transport2D"
)

type ModelTrain struct {
	ICFile     string
	Resume     string
	OutDir     string
	Graph      bool
	GraphField int
	PlotSteps  int
	PlotTime   float64
	Delay      time.Duration
	Profile    bool
	Verbose    bool
}

// TrainCmd represents the train command
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the transport surrogate from a YAML parameters file",
	Long: `Trains the network against the PDE residual, boundary and initial
conditions, and any observed concentrations, checkpointing on the
configured cadence. A run interrupted with Ctrl-C stops cleanly and can
be resumed from its last checkpoint with --resume`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("train called")
		mt := &ModelTrain{}
		if mt.ICFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			panic(err)
		}
		if mt.Resume, err = cmd.Flags().GetString("resume"); err != nil {
			panic(err)
		}
		mt.OutDir, _ = cmd.Flags().GetString("outputDirectory")
		mt.Graph, _ = cmd.Flags().GetBool("graph")
		mt.GraphField, _ = cmd.Flags().GetInt("graphField")
		ps, _ := cmd.Flags().GetInt("plotSteps")
		mt.PlotSteps = ps
		mt.PlotTime, _ = cmd.Flags().GetFloat64("plotTime")
		dr, _ := cmd.Flags().GetInt("delay")
		mt.Delay = time.Duration(dr) * time.Millisecond
		mt.Profile, _ = cmd.Flags().GetBool("profile")
		mt.Verbose, _ = cmd.Flags().GetBool("verbose")
		ip := processInput(mt)
		RunTrain(mt, ip)
	},
}

func processInput(mt *ModelTrain) (ip *InputParameters.TransportParameters) {
	var (
		err      error
		willExit bool
	)
	if len(mt.ICFile) == 0 && len(mt.Resume) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputParametersFile) or a checkpoint (-R, --resume)")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Plume Test Case"
XMin: 0.
XMax: 1.
YMin: 0.
YMax: 1.
FinalTime: 1.
Diffusivity: 0.01
Velocity: [0.5, 0.]
InitType: gaussian # Can be "zero"
InitParams:
  Amplitude: 1.
  X0: 0.25
  Y0: 0.5
  Sigma: 0.1
BCs:
  - {Name: inflow, Edge: left, Type: dirichlet, Value: 0.}
  - {Name: outflow, Edge: right, Type: neumann, Flux: 0.}
  - {Name: bed, Edge: bottom, Type: neumann, Flux: 0.}
  - {Name: surface, Edge: top, Type: neumann, Flux: 0.}
HiddenLayers: [50, 50, 50]
MaxIterations: 5000
LearningRate: 0.001
CheckpointEvery: 1000
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		willExit = true
	}
	if willExit {
		os.Exit(1)
	}
	ip = InputParameters.Defaults()
	if len(mt.ICFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(mt.ICFile); err != nil {
			panic(err)
		}
		if err = ip.Parse(data); err != nil {
			panic(err)
		}
	}
	return
}

func init() {
	rootCmd.AddCommand(TrainCmd)
	TrainCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for run parameters like:\n\t- Diffusivity\n\t- Velocity\n\t- BCs")
	TrainCmd.Flags().StringP("resume", "R", "", "checkpoint file to resume training from")
	TrainCmd.Flags().StringP("outputDirectory", "o", "", "directory for checkpoint output, overrides CheckpointDir")
	TrainCmd.Flags().BoolP("graph", "g", false, "display a graph of the field while training")
	TrainCmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
	TrainCmd.Flags().IntP("plotSteps", "s", 100, "number of iterations before plotting each frame")
	TrainCmd.Flags().IntP("graphField", "q", 0, "which field should be displayed - 0=concentration, 1=residual")
	TrainCmd.Flags().Float64P("plotTime", "t", -1, "solution time rendered while training, defaults to the final time")
	TrainCmd.Flags().Bool("profile", false, "write a CPU profile of the training run")
	TrainCmd.Flags().BoolP("verbose", "v", false, "print the configuration and network summary")
}

func RunTrain(mt *ModelTrain, ip *InputParameters.TransportParameters) {
	if mt.Profile {
		defer profile.Start(profile.CPUProfile).Stop()
	}
	var (
		c   *Transport2D.Transport
		err error
	)
	if len(mt.Resume) != 0 {
		c, err = Transport2D.ResumeTransport(mt.Resume, mt.Verbose)
	} else {
		c, err = Transport2D.NewTransport(ip, mt.Verbose)
	}
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if len(mt.OutDir) != 0 {
		if err = os.MkdirAll(mt.OutDir, 0755); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		c.Params.CheckpointDir = mt.OutDir
	}
	if mt.Verbose {
		c.Params.Print()
	}
	plotTime := mt.PlotTime
	if plotTime < c.Span.T0 || plotTime > c.Span.T1 {
		plotTime = c.Span.T1
	}
	pm := &Transport2D.PlotMeta{
		Plot:            mt.Graph,
		Scale:           1.1,
		Field:           Transport2D.PlotField(mt.GraphField),
		Time:            plotTime,
		FieldMinP:       nil,
		FieldMaxP:       nil,
		FrameTime:       mt.Delay,
		StepsBeforePlot: mt.PlotSteps,
		LineType:        chart2d.NoLine,
	}

	// Ctrl-C lands the run in a resumable state instead of killing it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping...")
		cancel()
	}()

	rep, err := c.Train(ctx, pm)
	if err != nil {
		fmt.Printf("training ended with error: %s\n", err.Error())
	}
	if rep == nil {
		os.Exit(1)
	}
	fmt.Printf("%s\n", Transport2D.TerminalLossChart(rep.LossHistory, 0, 0))

	name := strings.ReplaceAll(c.Params.Title, " ", "_")
	path := filepath.Join(c.Params.CheckpointDir, fmt.Sprintf("%s-final.ckpt", name))
	if err = c.WriteCheckpoint(path); err != nil {
		fmt.Printf("error writing final checkpoint: %s\n", err.Error())
		os.Exit(1)
	}
	fmt.Printf("Final state written to %s\n", path)
}
