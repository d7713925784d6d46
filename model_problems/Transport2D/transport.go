package Transport2D

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/logging"
	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/telemetry"
	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
)

/*
	The trainer fits a smooth network surrogate C(x,y,t) to the transient
	advection diffusion equation

		Ct + v . grad(C) = div(D grad(C)) + S

	by minimizing mean square residuals at collocation points: the PDE in
	the interior, the boundary conditions on the edges, the initial
	condition at t = T0, plus an optional misfit against observed
	concentrations. All derivatives come from the exact jet propagation in
	the mlp package, never from finite differences.
*/
type Transport struct {
	// Problem definition
	Params *InputParameters.TransportParameters
	Dom    physics.Domain
	Span   physics.TimeSpan
	Coeffs *physics.Coefficients
	IC     func(x, y float64) float64

	// Components
	Net     *mlp.Network
	Smp     *sampler.Sampler
	Encoder *BoundaryEncoder
	Agg     Aggregator
	Opt     Optimizer
	Sched   Schedule
	Mon     *Monitor
	Log     *logging.EventLog
	Collect telemetry.Collector

	// Parallel execution, collocation points sharded across workers
	ParallelDegree                    int
	pmInterior, pmBoundary, pmInitial *utils.PartitionMap

	RunID string
	State types.SolverState

	// Flat parameter and gradient vectors, the network matrices are
	// synced from params after every optimizer step
	params, grad []float64
	gradTotal    *mlp.Gradient

	// Observation misfit set, fixed for the run
	obsX    utils.Matrix
	obsC    utils.Vector
	jetObs  *mlp.Jet
	adjObs  mlp.Adjoint
	resObs  utils.Vector
	gradObs *mlp.Gradient

	shards     *trainShards
	streamMark []byte // sampler stream state before the live sets were drawn
	iter       int    // completed iterations
	history    []float64
	states     []TrainingState
	lastCkpt   string  // most recent snapshot on disk, empty before the first write
	bestSaved  float64 // best loss covered by the best snapshot
	chart      ChartState

	verbose bool
}

func NewTransport(ip *InputParameters.TransportParameters, verbose bool) (c *Transport, err error) {
	if err = ip.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	c = &Transport{
		Params: ip,
		Dom:    physics.Domain{XMin: ip.XMin, XMax: ip.XMax, YMin: ip.YMin, YMax: ip.YMax},
		Span:   physics.TimeSpan{T0: ip.TimeStart, T1: ip.FinalTime},
		Coeffs: &physics.Coefficients{
			Diffusion: ip.Diffusivity,
			Velocity:  ip.Velocity,
			Source:    ip.Source,
		},
		IC:      ip.InitialCondition(),
		State:   types.Initializing,
		RunID:   uuid.New().String(),
		Log:     logging.Nop(),
		Collect: telemetry.NewCollector(),
		verbose: verbose,
	}

	// Seed handling: the network draw stream and the sampler stream are
	// independent PCGs derived from the one configured seed
	act, _ := types.ParseActivation(ip.Activation)
	netSeed := ip.Seed ^ 0x5851f42d4c957f2d
	rng := rand.New(rand.NewPCG(netSeed, netSeed^0x9e3779b97f4a7c15))
	if c.Net, err = mlp.NewNetwork(ip.HiddenLayers, act, rng); err != nil {
		return nil, configErr("HiddenLayers", "%s", err)
	}
	c.Net.SetInputScaling(
		[3]float64{2 / c.Dom.Width(), 2 / c.Dom.Height(), 2 / c.Span.Duration()},
		[3]float64{
			-(ip.XMin + ip.XMax) / c.Dom.Width(),
			-(ip.YMin + ip.YMax) / c.Dom.Height(),
			-(ip.TimeStart + ip.FinalTime) / c.Span.Duration(),
		})

	var clauses []BCClause
	if clauses, err = ClausesFromParams(ip.BCs); err != nil {
		return nil, err
	}
	if c.Encoder, err = NewBoundaryEncoder(c.Dom, clauses); err != nil {
		return nil, err
	}
	if c.Smp, err = sampler.New(c.Dom, c.Span, c.Coeffs, sampler.Config{
		NumInterior: ip.NumInterior,
		NumBoundary: ip.NumBoundary,
		NumInitial:  ip.NumInitial,
		Seed:        ip.Seed,
	}); err != nil {
		return nil, configErr("Sampling", "%s", err)
	}
	c.SetParallelDegree(ip.ParallelDegree, ip.NumInterior)

	ot, _ := types.ParseOptimizer(ip.Optimizer)
	if c.Opt, err = NewOptimizer(ot, c.Net.NumParameters(),
		ip.Beta1, ip.Beta2, ip.Epsilon, ip.Momentum); err != nil {
		return nil, configErr("Optimizer", "%s", err)
	}
	st, _ := types.ParseScheduler(ip.Scheduler)
	if c.Sched, err = NewSchedule(st, ip.LearningRate, ip.SchedulerGamma,
		ip.SchedulerStep, ip.MaxIterations); err != nil {
		return nil, configErr("Scheduler", "%s", err)
	}
	c.Agg = StaticWeights{
		Physics:  ip.WeightPhysics,
		Boundary: ip.WeightBoundary,
		Initial:  ip.WeightInitial,
		Data:     ip.WeightData,
	}
	c.Mon = NewMonitor(ip.ConvergenceWindow, ip.ConvergenceTol, ip.Patience,
		ip.DivergenceFactor, ip.MaxNonFinite)

	c.params = c.Net.Parameters()
	c.grad = make([]float64, len(c.params))
	c.gradTotal = c.Net.NewGradient()
	c.bestSaved = math.Inf(1)
	c.buildObservations()

	if verbose {
		fmt.Printf("Advection Diffusion Transport in 2 Dimensions\n")
		fmt.Printf("Using %d go routines in parallel\n", c.ParallelDegree)
		fmt.Printf("Domain [%g,%g] x [%g,%g], time window [%g,%g]\n",
			ip.XMin, ip.XMax, ip.YMin, ip.YMax, ip.TimeStart, ip.FinalTime)
		fmt.Printf("D = %8.5f, v = (%8.5f,%8.5f), S = %8.5f\n",
			ip.Diffusivity, ip.Velocity[0], ip.Velocity[1], ip.Source)
		fmt.Printf("Optimizer: %s, LR schedule: %s\n", ot, st)
		fmt.Printf("%s", c.Net.Summary())
	}
	return
}

func (c *Transport) buildObservations() {
	var (
		n = len(c.Params.Observations)
	)
	if n == 0 || c.Params.WeightData <= 0 {
		return
	}
	c.obsX = utils.NewMatrix(n, 3)
	c.obsC = utils.NewVector(n)
	for i, ob := range c.Params.Observations {
		c.obsX.DataP[3*i] = ob.X
		c.obsX.DataP[3*i+1] = ob.Y
		c.obsX.DataP[3*i+2] = ob.T
		c.obsC.DataP[i] = ob.C
	}
	c.adjObs = newAdjoint(n, mlp.ChVal)
	c.resObs = utils.NewVector(n)
	c.gradObs = c.Net.NewGradient()
}

// refreshSets draws new collocation sets and cuts them into worker
// shards. The stream mark taken before the draws lets a resumed run
// replay exactly these sets
func (c *Transport) refreshSets() (err error) {
	if c.streamMark, err = c.Smp.MarshalState(); err != nil {
		return
	}
	var interior sampler.InteriorSet
	if interior, err = c.Smp.Interior(); err != nil {
		return
	}
	rb := c.Encoder.Resolve(c.Smp.Boundary())
	initial := c.Smp.Initial()
	var (
		n0 = initial.Len()
		c0 = utils.NewVector(n0)
		xd = initial.X.DataP
	)
	for i := 0; i < n0; i++ {
		c0.DataP[i] = c.IC(xd[3*i], xd[3*i+1])
	}
	if c.shards == nil {
		c.shards = c.newTrainShards()
	}
	c.shardSets(interior, rb, initial, c0)
	return
}

// computeLossAndGradient runs one forward/backward pass over all shards
// and reduces into c.grad. The reduction is in fixed worker order, so a
// repeated run produces bit identical results
func (c *Transport) computeLossAndGradient(w Weights) (parts LossParts) {
	var (
		NP     = c.ParallelDegree
		sh     = c.shards
		wg     = sync.WaitGroup{}
		scaleP = 2 * w.Physics / float64(c.Params.NumInterior)
		scaleB = 2 * w.Boundary / float64(c.Params.NumBoundary)
		scale0 = 2 * w.Initial / float64(c.Params.NumInitial)
	)
	for np := 0; np < NP; np++ {
		wg.Add(1)
		go func(np int) {
			g := sh.grads[np]
			g.Zero()
			sh.sumsq[np] = [4]float64{}
			if w.Physics > 0 && sh.inter[np].Len() > 0 {
				sh.jetI[np] = c.Net.JetForward(sh.inter[np].X, sh.jetI[np])
				sh.sumsq[np][0] = physicsTerm(sh.jetI[np], sh.inter[np], sh.adjI[np], scaleP, sh.resI[np])
				c.Net.Backprop(sh.jetI[np], sh.adjI[np], g)
			}
			if w.Boundary > 0 && sh.bnd[np].Len() > 0 {
				sh.jetB[np] = c.Net.JetForward(sh.bnd[np].X, sh.jetB[np])
				sh.sumsq[np][1] = boundaryTerm(sh.jetB[np], sh.bnd[np], sh.adjB[np], scaleB, sh.resB[np])
				c.Net.Backprop(sh.jetB[np], sh.adjB[np], g)
			}
			if w.Initial > 0 && sh.init[np].Len() > 0 {
				sh.jet0[np] = c.Net.JetForward(sh.init[np].X, sh.jet0[np])
				sh.sumsq[np][2] = valueTerm(sh.jet0[np], sh.initC[np], sh.adj0[np], scale0, sh.res0[np])
				c.Net.Backprop(sh.jet0[np], sh.adj0[np], g)
			}
			wg.Done()
		}(np)
	}
	wg.Wait()

	// Observations run unsharded, the set is tiny next to collocation
	var sumsqD float64
	if c.gradObs != nil && w.Data > 0 {
		scaleD := 2 * w.Data / float64(c.obsC.Len())
		c.gradObs.Zero()
		c.jetObs = c.Net.JetForward(c.obsX, c.jetObs)
		sumsqD = valueTerm(c.jetObs, c.obsC, c.adjObs, scaleD, c.resObs)
		c.Net.Backprop(c.jetObs, c.adjObs, c.gradObs)
	}

	c.gradTotal.Zero()
	for np := 0; np < NP; np++ {
		c.gradTotal.Add(sh.grads[np])
		parts.Physics += sh.sumsq[np][0]
		parts.Boundary += sh.sumsq[np][1]
		parts.Initial += sh.sumsq[np][2]
	}
	if c.gradObs != nil && w.Data > 0 {
		c.gradTotal.Add(c.gradObs)
		parts.Data = sumsqD / float64(c.obsC.Len())
	}
	c.gradTotal.Flatten(c.grad)

	parts.Physics /= float64(c.Params.NumInterior)
	parts.Boundary /= float64(c.Params.NumBoundary)
	parts.Initial /= float64(c.Params.NumInitial)
	return
}

// TrainingState is the record emitted once per optimization step.
// Checkpoint names the most recent parameter snapshot on disk at the
// time of the step, empty until the first write. GradNorm is the
// gradient norm before clipping, NaN on steps skipped for a non finite
// loss
type TrainingState struct {
	Iteration  int
	Total      float64
	Parts      LossParts
	RelChange  float64
	GradNorm   float64
	Checkpoint string
	Timestamp  time.Time
}

// stateHistoryLimit bounds the retained TrainingState records. When the
// bound is reached the older half is dropped. The plain float64 loss
// history keeps the full run for the terminal chart
const stateHistoryLimit = 4096

func (c *Transport) appendState(ts TrainingState) {
	if len(c.states) >= stateHistoryLimit {
		n := copy(c.states, c.states[stateHistoryLimit/2:])
		c.states = c.states[:n]
	}
	c.states = append(c.states, ts)
}

// States returns the retained per iteration records in iteration order
func (c *Transport) States() []TrainingState { return c.states }

// TrainReport summarizes a completed run
type TrainReport struct {
	RunID          string
	Status         types.RunStatus
	FinalState     types.SolverState
	Iterations     int
	FinalLoss      float64
	BestLoss       float64
	RelChange      float64
	Parts          LossParts
	Elapsed        time.Duration
	LossHistory    []float64
	States         []TrainingState
	LastCheckpoint string
	BestCheckpoint string
	Mass           *MassAudit
}

// Train runs the optimization loop until convergence, divergence, the
// iteration limit, or context cancellation. A non nil pm with Plot set
// renders the live field on the pm.StepsBeforePlot cadence. The returned
// report is non nil whenever training ran at all
func (c *Transport) Train(ctx context.Context, pm *PlotMeta) (rep *TrainReport, err error) {
	if c.State != types.Initializing && c.State != types.Training {
		return nil, fmt.Errorf("solver in state %s cannot train", c.State)
	}
	var (
		start   = time.Now()
		ip      = c.Params
		parts   LossParts
		total   float64
		outcome = types.MaxIterationsReached
		status  = types.StatusConvergenceFailure
	)
	c.State = types.Training
	_ = c.Collect.Start()
	defer func() { _ = c.Collect.Close() }()
	c.Log.RunStart(c.RunID, c.Net.Dims, ip.Activation, c.Net.NumParameters())
	if c.shards == nil {
		if err = c.refreshSets(); err != nil {
			c.State = types.Terminated
			return nil, err
		}
	}
	c.PrintInitialization()

Loop:
	for c.iter < ip.MaxIterations {
		select {
		case <-ctx.Done():
			outcome = types.Terminated
			status = types.StatusCancelled
			break Loop
		default:
		}
		iter := c.iter
		if ip.ResampleEvery > 0 && iter > 0 && iter%ip.ResampleEvery == 0 {
			if err = c.refreshSets(); err != nil {
				break Loop
			}
			c.Log.SampleRefresh(iter, ip.NumInterior, ip.NumBoundary, ip.NumInitial)
		}
		var (
			w  = c.Agg.Weights(iter)
			lr = c.Sched.LearningRate(iter)
		)
		parts = c.computeLossAndGradient(w)
		total = parts.Total(w)
		c.history = append(c.history, total)

		gn := math.NaN()
		if parts.Finite() {
			gn = ClipGradient(c.grad, ip.GradientClip)
			c.Opt.Step(c.params, c.grad, lr)
			if err = c.Net.SetParameters(c.params); err != nil {
				break Loop
			}
		}
		c.iter++

		verdict := c.Mon.Observe(total)
		c.appendState(TrainingState{
			Iteration:  iter,
			Total:      total,
			Parts:      parts,
			RelChange:  c.Mon.RelChange(),
			GradNorm:   gn,
			Checkpoint: c.lastCkpt,
			Timestamp:  time.Now(),
		})
		switch verdict {
		case Unstable:
			err = &InstabilityError{Iteration: iter, Streak: c.Mon.NonFiniteStreak()}
			outcome = types.Diverged
			status = types.StatusDiverged
			break Loop
		case Diverged:
			c.Log.Divergence(iter, total, c.Mon.BestLoss())
			outcome = types.Diverged
			status = types.StatusDiverged
			break Loop
		case Converged:
			outcome = types.Converged
			status = types.StatusConverged
			break Loop
		}
		if !parts.Finite() {
			c.Log.Instability(iter, c.Mon.NonFiniteStreak(), ip.MaxNonFinite)
		}

		if pm != nil && pm.Plot && pm.StepsBeforePlot > 0 && iter%pm.StepsBeforePlot == 0 {
			c.PlotC(pm, 1280, 1024)
		}
		if iter%ip.LogEvery == 0 || c.iter == ip.MaxIterations {
			c.PrintUpdate(iter, total, parts, lr)
			c.Log.Iteration(iter, total, parts.Physics, parts.Boundary, parts.Initial, parts.Data, lr)
			c.Log.Telemetry(iter, c.Collect.Snapshot())
		}
		if ip.CheckpointEvery > 0 && c.iter%ip.CheckpointEvery == 0 {
			path := c.checkpointPath()
			if werr := c.WriteCheckpoint(path); werr != nil {
				err = werr
				break Loop
			}
			c.lastCkpt = path
			c.Log.Checkpoint(c.iter, path)
			// The best snapshot rewrites on the same cadence, so a long
			// run that later diverges still leaves its best state behind
			if best := c.Mon.BestLoss(); best < c.bestSaved {
				bp := c.bestCheckpointPath()
				if werr := c.WriteCheckpoint(bp); werr != nil {
					err = werr
					break Loop
				}
				c.bestSaved = best
				c.Log.Checkpoint(c.iter, bp)
			}
		}
	}

	c.State = outcome
	elapsed := time.Since(start)
	var mass *MassAudit
	if ip.AuditMassSide >= 2 && outcome != types.Diverged {
		// Post run diagnostic only, an audit failure never fails the run
		mass, _ = c.AuditMass(ip.AuditMassSide, []float64{c.Span.T0, c.Span.T1})
	}
	var bestCkpt string
	if !math.IsInf(c.bestSaved, 1) {
		bestCkpt = c.bestCheckpointPath()
	}
	rep = &TrainReport{
		RunID:          c.RunID,
		Status:         status,
		FinalState:     outcome,
		Iterations:     c.iter,
		FinalLoss:      total,
		BestLoss:       c.Mon.BestLoss(),
		RelChange:      c.Mon.RelChange(),
		Parts:          parts,
		Elapsed:        elapsed,
		LossHistory:    c.history,
		States:         c.states,
		LastCheckpoint: c.lastCkpt,
		BestCheckpoint: bestCkpt,
		Mass:           mass,
	}
	c.PrintFinal(rep)
	c.Log.RunEnd(c.RunID, status.String(), c.iter, total, elapsed)
	c.State = types.Terminated
	return
}

// Iteration is the number of completed training iterations
func (c *Transport) Iteration() int { return c.iter }

func (c *Transport) checkpointPath() string {
	name := strings.ReplaceAll(c.Params.Title, " ", "_")
	return filepath.Join(c.Params.CheckpointDir,
		fmt.Sprintf("%s-%06d.ckpt", name, c.iter))
}

func (c *Transport) bestCheckpointPath() string {
	name := strings.ReplaceAll(c.Params.Title, " ", "_")
	return filepath.Join(c.Params.CheckpointDir, name+"-best.ckpt")
}

func (c *Transport) PrintInitialization() {
	fmt.Printf("Training run %s\n", c.RunID)
	fmt.Printf("Solving until Max Iterations = %d\n", c.Params.MaxIterations)
	fmt.Printf("    iter       total     physics    boundary     initial        data          lr\n")
}

func (c *Transport) PrintUpdate(iter int, total float64, parts LossParts, lr float64) {
	format := "%12.4e"
	fmt.Printf("%8d", iter)
	fmt.Printf(format, total)
	fmt.Printf(format, parts.Physics)
	fmt.Printf(format, parts.Boundary)
	fmt.Printf(format, parts.Initial)
	fmt.Printf(format, parts.Data)
	fmt.Printf(format, lr)
	fmt.Printf("\n")
}

func (c *Transport) PrintFinal(rep *TrainReport) {
	var (
		nPoints = c.Params.NumInterior + c.Params.NumBoundary + c.Params.NumInitial
	)
	if rep.Iterations > 0 {
		rate := float64(rep.Elapsed.Microseconds()) / float64(nPoints*rep.Iterations)
		fmt.Printf("\nRate of execution = %8.5f us/(point*iteration) over %d iterations\n",
			rate, rep.Iterations)
	}
	fmt.Printf("Final status: %s, loss = %11.4e, best = %11.4e, windowed change = %11.4e\n",
		rep.Status, rep.FinalLoss, rep.BestLoss, rep.RelChange)
	if rep.Mass != nil {
		fmt.Printf("%s", rep.Mass.String())
	}
	if c.verbose {
		fmt.Printf("%s\n", utils.GetMemUsage())
	}
}
