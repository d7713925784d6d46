package Transport2D

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/hydronet/gopinn/geometry2D"
	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/utils"
	"github.com/notargets/avs/chart2d"
	"github.com/notargets/avs/functions"
	graphics2D "github.com/notargets/avs/geometry"
	utils2 "github.com/notargets/avs/utils"
)

type PlotField uint8

const (
	PlotConcentration PlotField = iota
	PlotResidual
)

func (pf PlotField) String() string {
	switch pf {
	case PlotResidual:
		return "Residual"
	default:
		return "Concentration"
	}
}

// PlotMeta configures the live field rendering during or after training
type PlotMeta struct {
	Plot            bool
	Field           PlotField
	Time            float64
	GridN           int
	StepsBeforePlot int
	FrameTime       time.Duration
	LineType        chart2d.LineType
	Scale           float64
	TranslateX      float64
	TranslateY      float64
	FieldMinP       *float64
	FieldMaxP       *float64
}

type ChartState struct {
	chart *chart2d.Chart2D
	fs    *functions.FSurface
	gm    *graphics2D.TriMesh
	grid  sampler.InteriorSet
	jet   *mlp.Jet
	res   utils.Vector
}

// GetPlotField evaluates the named diagnostic on the fixed render grid at
// time t. Concentration is the network value, Residual the magnitude of
// the transport operator applied to it
func (c *Transport) GetPlotField(pf PlotField, t float64) (field utils.Vector) {
	var (
		g = c.chart.grid
		n = g.Len()
		d = g.X.DataP
	)
	for p := 0; p < n; p++ {
		var (
			x, y = d[3*p], d[3*p+1]
		)
		d[3*p+2] = t
		D, _ := c.Coeffs.DiffusionAt(x, y)
		vx, vy, _ := c.Coeffs.VelocityAt(x, y, t)
		s, _ := c.Coeffs.SourceAt(x, y, t)
		g.D.DataP[p], g.Vx.DataP[p], g.Vy.DataP[p], g.S.DataP[p] = D, vx, vy, s
	}
	c.chart.jet = c.Net.JetForward(g.X, c.chart.jet)
	switch pf {
	case PlotResidual:
		PDEResidual(c.chart.jet, g, c.chart.res)
		for p, r := range c.chart.res.DataP {
			c.chart.res.DataP[p] = math.Abs(r)
		}
		field = c.chart.res
	default:
		field = utils.NewVector(n, c.chart.jet.C.DataP)
	}
	return
}

// PlotC renders the current solution on a regular grid over the domain,
// triangulated once and reused across frames
func (c *Transport) PlotC(pm *PlotMeta, width, height int) {
	var (
		delay     = pm.FrameTime
		lineType  = pm.LineType
		scale     = pm.Scale
		translate = [2]float32{float32(pm.TranslateX), float32(pm.TranslateY)}
	)
	if c.chart.gm == nil {
		c.buildRenderGrid(pm.GridN)
	}
	var (
		field = c.GetPlotField(pm.Field, pm.Time)
		fI    = make([]float32, field.Len())
	)
	for i, f := range field.DataP {
		fI[i] = float32(f)
	}
	c.chart.fs = functions.NewFSurface(c.chart.gm, [][]float32{fI}, 0)
	fmt.Printf(" Plot>%s t=%.4f min,max = %8.5f,%8.5f\n",
		pm.Field.String(), pm.Time, field.Min(), field.Max())
	c.PlotFS(width, height,
		pm.FieldMinP, pm.FieldMaxP, 0.99*field.Min(), 1.01*field.Max(),
		scale, translate, lineType)
	utils.SleepFor(int(delay.Milliseconds()))
	return
}

func (c *Transport) PlotFS(width, height int,
	fminP, fmaxP *float64, fmin, fmax float64,
	scale float64, translate [2]float32, ltO ...chart2d.LineType) {
	var (
		fs             = c.chart.fs
		trimesh        = fs.Tris
		lt             = chart2d.NoLine
		specifiedScale = fminP != nil || fmaxP != nil
		autoScale      = !specifiedScale
	)
	if c.chart.chart == nil {
		box := graphics2D.NewBoundingBox(trimesh.GetGeometry())
		box = box.Scale(float32(scale))
		box = box.Translate(translate)
		c.chart.chart = chart2d.NewChart2D(width, height, box.XMin[0], box.XMax[0], box.XMin[1], box.XMax[1])
		go c.chart.chart.Plot()
		if specifiedScale {
			// Scale field min/max to preset values
			switch {
			case fminP != nil && fmaxP != nil:
				fmin, fmax = *fminP, *fmaxP
			case fminP != nil:
				fmin = *fminP
			case fmaxP != nil:
				fmax = *fmaxP
			}
			colorMap := utils2.NewColorMap(float32(fmin), float32(fmax), 1.)
			c.chart.chart.AddColorMap(colorMap)
		}
	}
	if autoScale {
		// Autoscale field min/max every time
		colorMap := utils2.NewColorMap(float32(fmin), float32(fmax), 1.)
		c.chart.chart.AddColorMap(colorMap)
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 1}
	if len(ltO) != 0 {
		lt = ltO[0]
	}
	if err := c.chart.chart.AddFunctionSurface("FSurface", *fs, lt, white); err != nil {
		panic("unable to add function surface series")
	}
}

// buildRenderGrid lays an n x n point lattice over the domain and Delaunay
// triangulates it. The same mesh serves every frame, only the sampled field
// changes
func (c *Transport) buildRenderGrid(n int) {
	if n < 2 {
		n = 48
	}
	var (
		nG = n * n
		x  = make([]float64, nG)
		y  = make([]float64, nG)
		dx = c.Dom.Width() / float64(n-1)
		dy = c.Dom.Height() / float64(n-1)
	)
	for j := 0; j < n; j++ {
		yv := c.Dom.YMin + dy*float64(j)
		for i := 0; i < n; i++ {
			p := j*n + i
			x[p] = c.Dom.XMin + dx*float64(i)
			y[p] = yv
		}
	}
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
	c.chart.gm = gm

	X := utils.NewMatrix(nG, 3)
	for p := 0; p < nG; p++ {
		X.DataP[3*p], X.DataP[3*p+1] = x[p], y[p]
	}
	c.chart.grid = sampler.InteriorSet{
		X:  X,
		D:  utils.NewVector(nG),
		Vx: utils.NewVector(nG),
		Vy: utils.NewVector(nG),
		S:  utils.NewVector(nG),
	}
	c.chart.res = utils.NewVector(nG)
}

// TerminalLossChart draws the loss history as an ASCII sparkline, log10
// scaled, downsampled to the requested width
func TerminalLossChart(history []float64, width, height int) (s string) {
	if len(history) == 0 {
		return
	}
	if width <= 0 {
		width = 72
	}
	if height <= 0 {
		height = 12
	}
	var (
		n      = len(history)
		stride = 1
	)
	if n > width {
		stride = (n + width - 1) / width
	}
	logged := make([]float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		v := history[i]
		if !(v > 0) || math.IsInf(v, 0) || math.IsNaN(v) {
			v = 1e-300
		}
		logged = append(logged, math.Log10(v))
	}
	s = asciigraph.Plot(logged,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("log10(loss), %d iterations", n)))
	return
}
