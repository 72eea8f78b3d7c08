package factor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/sparsegauss"
)

// SDF is the external signed-distance-field collaborator contract (spec.md
// 1): sdf(x) returns the signed distance and its spatial gradient at a
// query point. Loading/building the field is explicitly out of this
// module's scope; planarenv provides a minimal reference implementation
// used only by the example drivers and tests.
type SDF interface {
	Value(x []float64) (dist float64, grad []float64, err error)
}

// Obstacle is the collision-cost factor over a single state's configuration
// (spec.md 4.C, "Obstacle factor"). GVI-GH evaluates its cost by cubature,
// so it only needs the SDF value, never the robot Jacobian that PGCS uses.
type Obstacle struct {
	State    int
	StateDim int
	Field    SDF
	EpsSDF   float64
	SigObs   float64

	// ToConf maps a full state vector (position, velocity, ...) to the
	// robot configuration (position) the SDF is queried at; for a planar
	// point robot this is typically the identity on the first two
	// components.
	ToConf func(x *mat.VecDense) []float64
}

func (o *Obstacle) Pattern() sparsegauss.Pattern {
	return sparsegauss.UnaryPattern(o.State, o.StateDim)
}

// hingeError returns hinge(eps - sdf(conf)).
func (o *Obstacle) hingeError(x *mat.VecDense) float64 {
	conf := o.ToConf(x)
	dist, _, err := o.Field.Value(conf)
	if err != nil {
		return 0
	}
	h := o.EpsSDF - dist
	if h < 0 {
		return 0
	}
	return h
}

// Cost = vec_err^T (I/sig_obs^2) vec_err; vec_err is scalar for a
// single-sphere point robot, so this reduces to err^2/sig_obs^2.
func (o *Obstacle) Cost(x *mat.VecDense) float64 {
	e := o.hingeError(x)
	return e * e / (o.SigObs * o.SigObs)
}

func (o *Obstacle) Vmu(x, mu *mat.VecDense) *mat.VecDense {
	var diff mat.VecDense
	diff.SubVec(x, mu)
	c := o.Cost(x)
	diff.ScaleVec(c, &diff)
	return &diff
}

func (o *Obstacle) Vmumu(x, mu *mat.VecDense) *mat.Dense {
	n := x.Len()
	var diff mat.VecDense
	diff.SubVec(x, mu)
	c := o.Cost(x)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, c*diff.AtVec(i)*diff.AtVec(j))
		}
	}
	return out
}

// IsLinearGaussian is always false: collision cost is piecewise-quadratic
// through the hinge and has no closed form, so it always goes through
// Gauss-Hermite cubature.
func (o *Obstacle) IsLinearGaussian() bool { return false }

// CostNoEntropy evaluates err^2/sig_obs^2/tau at a point, matching
// spec.md Scenario 3's cost_no_entropy quantity (used directly by tests,
// without going through the full Evaluate/cubature pipeline).
func (o *Obstacle) CostNoEntropy(x *mat.VecDense, tau float64) float64 {
	return o.Cost(x) / tau
}

// HingeAt evaluates hinge(eps - sdf(conf)) at a raw configuration point,
// matching spec.md Scenario 2's "Hinge error" quantity.
func HingeAt(field SDF, conf []float64, eps float64) (float64, error) {
	dist, _, err := field.Value(conf)
	if err != nil {
		return 0, err
	}
	return math.Max(0, eps-dist), nil
}
