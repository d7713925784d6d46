package InputParameters

import (
	"fmt"
	"math"

	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"

	"github.com/hydronet/gopinn/types"
)

// Parameters obtained from the YAML input file
type TransportParameters struct {
	Title string `yaml:"Title"`
	// Spatial domain is the axis aligned rectangle [XMin,XMax] x [YMin,YMax]
	XMin float64 `yaml:"XMin"`
	XMax float64 `yaml:"XMax"`
	YMin float64 `yaml:"YMin"`
	YMax float64 `yaml:"YMax"`
	// Time window for the transient solve
	TimeStart float64 `yaml:"TimeStart"`
	FinalTime float64 `yaml:"FinalTime"`
	// Physical coefficients of the advection diffusion equation
	Diffusivity float64    `yaml:"Diffusivity"`
	Velocity    [2]float64 `yaml:"Velocity"`
	Source      float64    `yaml:"Source"`
	// Initial condition preset and its parameters
	InitType   string             `yaml:"InitType"`
	InitParams map[string]float64 `yaml:"InitParams"`
	// Boundary conditions in declaration order. Order matters at corners
	// where two edges meet, the earlier declaration claims the point
	BCs []BoundarySpec `yaml:"BCs"`
	// Network shape
	HiddenLayers []int  `yaml:"HiddenLayers" validate:"min=1,dive,gt=0"`
	Activation   string `yaml:"Activation"`
	// Optimization
	MaxIterations  int     `yaml:"MaxIterations" validate:"gte=1"`
	LearningRate   float64 `yaml:"LearningRate" validate:"gt=0"`
	Optimizer      string  `yaml:"Optimizer"`
	Beta1          float64 `yaml:"Beta1" validate:"gte=0,lt=1"`
	Beta2          float64 `yaml:"Beta2" validate:"gte=0,lt=1"`
	Epsilon        float64 `yaml:"Epsilon" validate:"gt=0"`
	Momentum       float64 `yaml:"Momentum" validate:"gte=0,lte=1"`
	GradientClip   float64 `yaml:"GradientClip" validate:"gte=0"`
	Scheduler      string  `yaml:"Scheduler"`
	SchedulerStep  int     `yaml:"SchedulerStep" validate:"gte=1"`
	SchedulerGamma float64 `yaml:"SchedulerGamma" validate:"gt=0,lte=1"`
	// Composite loss weights
	WeightPhysics  float64 `yaml:"WeightPhysics" validate:"gt=0"`
	WeightBoundary float64 `yaml:"WeightBoundary" validate:"gte=0"`
	WeightInitial  float64 `yaml:"WeightInitial" validate:"gte=0"`
	WeightData     float64 `yaml:"WeightData" validate:"gte=0"`
	// Collocation sampling
	NumInterior   int    `yaml:"NumInterior" validate:"gte=1"`
	NumBoundary   int    `yaml:"NumBoundary" validate:"gte=1"`
	NumInitial    int    `yaml:"NumInitial" validate:"gte=1"`
	ResampleEvery int    `yaml:"ResampleEvery" validate:"gte=0"`
	Seed          uint64 `yaml:"Seed"`
	// Convergence monitoring
	ConvergenceWindow int     `yaml:"ConvergenceWindow" validate:"gte=2"`
	ConvergenceTol    float64 `yaml:"ConvergenceTol" validate:"gt=0"`
	Patience          int     `yaml:"Patience" validate:"gte=1"`
	DivergenceFactor  float64 `yaml:"DivergenceFactor" validate:"gt=1"`
	MaxNonFinite      int     `yaml:"MaxNonFinite" validate:"gte=1"`
	// Observed concentration measurements for the data misfit term
	Observations []Observation `yaml:"Observations"`
	// Run control
	CheckpointEvery int    `yaml:"CheckpointEvery" validate:"gte=0"`
	CheckpointDir   string `yaml:"CheckpointDir"`
	LogEvery        int    `yaml:"LogEvery" validate:"gte=1"`
	ParallelDegree  int    `yaml:"ParallelDegree" validate:"gte=0"` // 0 selects NumCPU
	// Lattice side for the post run mass audit, 0 disables it
	AuditMassSide int `yaml:"AuditMassSide" validate:"gte=0"`
}

// One boundary condition clause. Edge names an edge of the rectangle,
// Type selects the condition kind. Value is the prescribed concentration
// for dirichlet and mixed, Flux the prescribed normal flux for neumann
// and mixed, Theta the dirichlet fraction of a mixed condition
type BoundarySpec struct {
	Name  string  `yaml:"Name"`
	Edge  string  `yaml:"Edge"`
	Type  string  `yaml:"Type"`
	Value float64 `yaml:"Value"`
	Flux  float64 `yaml:"Flux"`
	Theta float64 `yaml:"Theta"`
}

// Resolve parses the string fields of a clause into typed tags
func (bs BoundarySpec) Resolve() (kind types.BCKind, edge types.EdgeTag, err error) {
	if kind, err = types.ParseBCKind(bs.Type); err != nil {
		return
	}
	if edge, err = types.ParseEdgeTag(bs.Edge); err != nil {
		return
	}
	return
}

// A single measured concentration at a space time location
type Observation struct {
	X float64 `yaml:"X"`
	Y float64 `yaml:"Y"`
	T float64 `yaml:"T"`
	C float64 `yaml:"C"`
}

var validate = validator.New()

// Defaults returns a parameter set that trains a small plume problem on
// the unit square. Every field is overridable from the YAML file
func Defaults() (ip *TransportParameters) {
	ip = &TransportParameters{
		Title:       "transport",
		XMin:        0,
		XMax:        1,
		YMin:        0,
		YMax:        1,
		TimeStart:   0,
		FinalTime:   1,
		Diffusivity: 0.01,
		Velocity:    [2]float64{0, 0},
		InitType:    "zero",
		BCs: []BoundarySpec{
			{Name: "walls", Edge: "left", Type: "dirichlet"},
			{Name: "walls2", Edge: "right", Type: "dirichlet"},
			{Name: "walls3", Edge: "bottom", Type: "dirichlet"},
			{Name: "walls4", Edge: "top", Type: "dirichlet"},
		},
		HiddenLayers:      []int{50, 50, 50},
		Activation:        "tanh",
		MaxIterations:     1000,
		LearningRate:      0.001,
		Optimizer:         "adam",
		Beta1:             0.9,
		Beta2:             0.999,
		Epsilon:           1.e-8,
		Momentum:          0.9,
		GradientClip:      0,
		Scheduler:         "fixed",
		SchedulerStep:     200,
		SchedulerGamma:    0.5,
		WeightPhysics:     1,
		WeightBoundary:    1,
		WeightInitial:     1,
		WeightData:        1,
		NumInterior:       2000,
		NumBoundary:       400,
		NumInitial:        400,
		ResampleEvery:     0,
		Seed:              42,
		ConvergenceWindow: 50,
		ConvergenceTol:    1.e-6,
		Patience:          10,
		DivergenceFactor:  1.e4,
		MaxNonFinite:      5,
		CheckpointEvery:   0,
		CheckpointDir:     ".",
		LogEvery:          100,
		ParallelDegree:    0,
		AuditMassSide:     0,
	}
	return
}

func (ip *TransportParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Validate checks field ranges, then the cross field constraints the tag
// based checks cannot express
func (ip *TransportParameters) Validate() (err error) {
	if err = validate.Struct(ip); err != nil {
		return fmt.Errorf("parameter range check failed: %s", err)
	}
	if ip.XMax <= ip.XMin {
		return fmt.Errorf("XMax (%v) must exceed XMin (%v)", ip.XMax, ip.XMin)
	}
	if ip.YMax <= ip.YMin {
		return fmt.Errorf("YMax (%v) must exceed YMin (%v)", ip.YMax, ip.YMin)
	}
	if ip.FinalTime <= ip.TimeStart {
		return fmt.Errorf("FinalTime (%v) must exceed TimeStart (%v)", ip.FinalTime, ip.TimeStart)
	}
	if ip.Diffusivity <= 0 {
		return fmt.Errorf("Diffusivity must be positive, got %v", ip.Diffusivity)
	}
	if ip.AuditMassSide == 1 {
		return fmt.Errorf("AuditMassSide must be 0 (disabled) or at least 2, got 1")
	}
	if _, err = types.ParseActivation(ip.Activation); err != nil {
		return err
	}
	if _, err = types.ParseOptimizer(ip.Optimizer); err != nil {
		return err
	}
	if _, err = types.ParseScheduler(ip.Scheduler); err != nil {
		return err
	}
	if err = ip.validateInit(); err != nil {
		return err
	}
	if err = ip.validateBCs(); err != nil {
		return err
	}
	if ip.WeightData > 0 && len(ip.Observations) == 0 {
		// Zero the data term rather than failing, a config that sets no
		// observations simply has no data misfit
		ip.WeightData = 0
	}
	for i, ob := range ip.Observations {
		if ob.X < ip.XMin || ob.X > ip.XMax || ob.Y < ip.YMin || ob.Y > ip.YMax {
			return fmt.Errorf("observation %d at (%v,%v) lies outside the domain", i, ob.X, ob.Y)
		}
		if ob.T < ip.TimeStart || ob.T > ip.FinalTime {
			return fmt.Errorf("observation %d at t=%v lies outside the time window", i, ob.T)
		}
	}
	return nil
}

func (ip *TransportParameters) validateInit() error {
	switch ip.InitType {
	case "zero", "":
	case "gaussian":
		sigma, present := ip.InitParams["Sigma"]
		if !present || sigma <= 0 {
			return fmt.Errorf("gaussian initial condition requires InitParams Sigma > 0")
		}
	default:
		return fmt.Errorf("unknown initial condition type [%s]", ip.InitType)
	}
	return nil
}

func (ip *TransportParameters) validateBCs() (err error) {
	if len(ip.BCs) == 0 {
		return fmt.Errorf("at least one boundary condition is required")
	}
	var (
		kind types.BCKind
		edge types.EdgeTag
		seen = make(map[types.EdgeTag]string)
	)
	for _, bs := range ip.BCs {
		if kind, edge, err = bs.Resolve(); err != nil {
			return fmt.Errorf("boundary condition [%s]: %s", bs.Name, err)
		}
		if prev, present := seen[edge]; present {
			return fmt.Errorf("boundary conditions [%s] and [%s] both claim the %s edge",
				prev, bs.Name, edge)
		}
		seen[edge] = bs.Name
		if kind == types.BCMixed && (bs.Theta < 0 || bs.Theta > 1) {
			return fmt.Errorf("boundary condition [%s]: Theta must lie in [0,1], got %v",
				bs.Name, bs.Theta)
		}
	}
	return nil
}

// InitialCondition builds the concentration field at TimeStart from the
// configured preset
func (ip *TransportParameters) InitialCondition() func(x, y float64) float64 {
	switch ip.InitType {
	case "gaussian":
		var (
			amp   = paramOr(ip.InitParams, "Amplitude", 1)
			x0    = paramOr(ip.InitParams, "X0", 0.5*(ip.XMin+ip.XMax))
			y0    = paramOr(ip.InitParams, "Y0", 0.5*(ip.YMin+ip.YMax))
			sigma = ip.InitParams["Sigma"]
		)
		return func(x, y float64) float64 {
			var (
				dx = x - x0
				dy = y - y0
			)
			return amp * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
		}
	default:
		return func(x, y float64) float64 { return 0 }
	}
}

func paramOr(params map[string]float64, key string, def float64) float64 {
	if v, present := params[key]; present {
		return v
	}
	return def
}

func (ip *TransportParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%8.5f,%8.5f] x [%8.5f,%8.5f]\t= Domain\n", ip.XMin, ip.XMax, ip.YMin, ip.YMax)
	fmt.Printf("[%8.5f,%8.5f]\t= Time Window\n", ip.TimeStart, ip.FinalTime)
	fmt.Printf("%8.5f\t\t= Diffusivity\n", ip.Diffusivity)
	fmt.Printf("[%8.5f,%8.5f]\t= Velocity\n", ip.Velocity[0], ip.Velocity[1])
	fmt.Printf("[%s]\t\t\t= InitType\n", ip.InitType)
	fmt.Printf("%v\t\t= Hidden Layers\n", ip.HiddenLayers)
	fmt.Printf("[%s]\t\t\t= Activation\n", ip.Activation)
	fmt.Printf("[%s]\t\t\t= Optimizer\n", ip.Optimizer)
	fmt.Printf("%8.5f\t\t= Learning Rate\n", ip.LearningRate)
	fmt.Printf("%8d\t\t= Max Iterations\n", ip.MaxIterations)
	fmt.Printf("%8d/%d/%d\t= Interior/Boundary/Initial Points\n",
		ip.NumInterior, ip.NumBoundary, ip.NumInitial)
	for _, bs := range ip.BCs {
		fmt.Printf("BCs[%s] = %s on %s edge, value=%v flux=%v theta=%v\n",
			bs.Name, bs.Type, bs.Edge, bs.Value, bs.Flux, bs.Theta)
	}
	if len(ip.Observations) != 0 {
		fmt.Printf("%8d\t\t= Observations\n", len(ip.Observations))
	}
}
