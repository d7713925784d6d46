package cmd

import (
	"testing"

	"github.com/magiconair/properties/assert"

	"github.com/hydronet/gopinn/InputParameters"
)

func TestRunTrain(t *testing.T) {
	var (
		err error
	)
	fileInput := []byte(`
Title: Plume Test Case
XMax: 2.
YMax: 1.
FinalTime: 2.
Diffusivity: 0.02
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
  - {Name: bed, Edge: bottom, Type: neumann}
  - {Name: surface, Edge: top, Type: neumann}
HiddenLayers: [20, 20]
MaxIterations: 500
Observations:
  - {X: 0.5, Y: 0.5, T: 1.0, C: 0.25}
`)
	input := InputParameters.Defaults()
	if err = input.Parse(fileInput); err != nil {
		panic(err)
	}
	// Check parsed values override the defaults
	assert.Equal(t, input.Title, "Plume Test Case")
	assert.Equal(t, input.XMax, 2.)
	assert.Equal(t, input.Diffusivity, 0.02)
	assert.Equal(t, input.Velocity[0], 0.5)
	assert.Equal(t, input.InitParams["Sigma"], 0.1)
	assert.Equal(t, input.BCs[0].Edge, "left")
	assert.Equal(t, input.BCs[1].Type, "neumann")
	assert.Equal(t, input.Observations[0].C, 0.25)
	// Check untouched fields keep their defaults
	assert.Equal(t, input.LearningRate, 0.001)
	input.Print()
	assert.Equal(t, input.FinalTime, 2.)
	if err = input.Validate(); err != nil {
		panic(err)
	}
}
