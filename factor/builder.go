package factor

import (
	"gonum.org/v1/gonum/mat"
)

// PlanarGraphParams bundles the scalars BuildPlanarGraph needs, mirroring
// the inline per-state factor-ordering construction in
// original_source/vimp/src/gvimp/gvi_Arm2_prior_factors.cpp: one fixed prior
// per boundary state, one GP prior per consecutive state pair, one obstacle
// factor per state (boundary states included).
type PlanarGraphParams struct {
	NumStates       int
	StateDim        int
	Dt              float64
	Qc              float64
	BoundaryPenalty float64
	Start, Goal     *mat.VecDense
	Field           SDF
	EpsSDF, SigObs  float64
	ToConf          func(x *mat.VecDense) []float64
}

// BuildPlanarGraph assembles the standard motion-planning factor graph:
// boundary priors anchor the first and last states, GP priors couple every
// consecutive pair, and an obstacle factor sits at every state (including
// the boundary ones, matching the original driver, which does not exempt
// endpoints from collision cost).
func BuildPlanarGraph(p PlanarGraphParams) []Factor {
	factors := make([]Factor, 0, p.NumStates*2)

	factors = append(factors, NewFixedPrior(0, p.StateDim, p.Start, p.BoundaryPenalty))
	factors = append(factors, NewFixedPrior(p.NumStates-1, p.StateDim, p.Goal, p.BoundaryPenalty))

	for i := 0; i < p.NumStates-1; i++ {
		factors = append(factors, NewGPPrior(i, p.StateDim, p.Dt, p.Qc))
	}

	if p.Field != nil {
		for i := 0; i < p.NumStates; i++ {
			factors = append(factors, &Obstacle{
				State:    i,
				StateDim: p.StateDim,
				Field:    p.Field,
				EpsSDF:   p.EpsSDF,
				SigObs:   p.SigObs,
				ToConf:   p.ToConf,
			})
		}
	}

	return factors
}
