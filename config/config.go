// Package config reads the flat, all-numeric configuration struct shared by
// the GVI-GH and PGCS drivers. It mirrors github.com/cpmech/gofem/inp's
// Simulation type: a plain struct with json tags, read with encoding/json
// and a handful of defaults filled in by SetDefault.
package config

import (
	"encoding/json"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Config holds every scalar parameter named in the external interface.
type Config struct {
	// dimensions and horizon
	Nx        int     `json:"nx"`         // state dimension
	Nu        int     `json:"nu"`         // control dimension
	TotalTime float64 `json:"total_time"` // horizon
	Nt        int     `json:"nt"`         // number of support states

	// GP / obstacle cost parameters
	CoeffQc float64 `json:"coeff_qc"` // process-noise intensity for GP prior
	SigObs  float64 `json:"sig_obs"`  // obstacle-cost scale
	EpsSDF  float64 `json:"eps_sdf"`  // hinge margin
	Radius  float64 `json:"radius"`   // robot sphere radius

	// GVI-GH optimizer
	StepSize            float64 `json:"step_size"`             // gamma, base of backtracking geometric sequence
	InitPrecisionFactor float64 `json:"init_precision_factor"` // scalar * I for initial Lambda
	BoundaryPenalties   float64 `json:"boundary_penalties"`    // inverse variance for fixed start/goal priors
	Temperature         float64 `json:"temperature"`
	HighTemperature     float64 `json:"high_temperature"`
	LowTempIterations   int     `json:"low_temp_iterations"`
	StopErr             float64 `json:"stop_err"`
	MaxIter             int     `json:"max_iter"`
	MaxBacktrack        int     `json:"max_backtrack"`
	DecaySteps          bool    `json:"decay_steps"` // read from the file but not used by gvigh.Optimizer: gamma stays constant whatever its value

	// PGCS
	Eta  float64   `json:"eta"`  // proximal weight
	Eps  float64   `json:"eps"`  // dynamics-noise coefficient
	Sig0 float64   `json:"sig0"` // boundary covariance diagonal, t=0
	SigT float64   `json:"sigt"` // boundary covariance diagonal, t=T
	M0   []float64 `json:"m0"`   // boundary mean, t=0
	MT   []float64 `json:"mt"`   // boundary mean, t=T

	// external collaborators (locators only -- loading is out of core scope)
	MapName string `json:"map_name"`
	SDFFile string `json:"sdf_file"`
}

// SetDefault fills unset numeric fields with the values used throughout the
// worked examples in spec.md's Scenarios, matching gofem's
// Simulation.SetDefault conservative-defaults pattern.
func (o *Config) SetDefault() {
	if o.StepSize == 0 {
		o.StepSize = 0.9
	}
	if o.InitPrecisionFactor == 0 {
		o.InitPrecisionFactor = 1.0
	}
	if o.Temperature == 0 {
		o.Temperature = 1.0
	}
	if o.HighTemperature == 0 {
		o.HighTemperature = 100.0
	}
	if o.StopErr == 0 {
		o.StopErr = 1e-3
	}
	if o.MaxIter == 0 {
		o.MaxIter = 50
	}
	if o.MaxBacktrack == 0 {
		o.MaxBacktrack = 10
	}
	if o.Eta == 0 {
		o.Eta = 0.1
	}
	if o.Eps == 0 {
		o.Eps = 0.01
	}
}

// DeltaT returns total_time / (nt - 1), the uniform grid spacing.
func (o *Config) DeltaT() float64 {
	if o.Nt <= 1 {
		chk.Panic("config: nt must be > 1 to compute delta_t, got %d", o.Nt)
	}
	return o.TotalTime / float64(o.Nt-1)
}

// ReadFile reads a JSON configuration file and fills in defaults, mirroring
// gofem's inp.ReadSim.
func ReadFile(filename string) (o *Config, err error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, chk.Err("config: cannot read %q: %v", filename, err)
	}
	o = new(Config)
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("config: cannot parse %q: %v", filename, err)
	}
	o.SetDefault()
	return o, nil
}

// Report prints a human-readable summary, mirroring gofem's verbose startup
// messages (io.Pfcyan is used throughout fem.Main for stage reporting).
func (o *Config) Report() {
	io.Pfcyan("nx=%d nu=%d nt=%d total_time=%v\n", o.Nx, o.Nu, o.Nt, o.TotalTime)
	io.Pfcyan("step_size=%v max_iter=%d max_backtrack=%d stop_err=%v\n", o.StepSize, o.MaxIter, o.MaxBacktrack, o.StopErr)
}
