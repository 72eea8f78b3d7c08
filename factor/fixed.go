package factor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/sparsegauss"
)

// FixedPrior penalizes deviation from a fixed target (mu0, K0inv), used for
// the boundary states (start/goal) with a large K0inv (spec.md 4.C,
// "Fixed prior"). Cost(x) = 0.5 (x-mu0)^T K0inv (x-mu0), the negative log of
// N(x; mu0, K0inv^-1) up to a constant.
type FixedPrior struct {
	State    int
	StateDim int
	Mu0      *mat.VecDense
	K0inv    *mat.Dense
}

// NewFixedPrior builds a fixed-prior factor anchoring state idx to mu0 with
// precision boundaryPenalty*I.
func NewFixedPrior(state, stateDim int, mu0 *mat.VecDense, boundaryPenalty float64) *FixedPrior {
	k0inv := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		k0inv.Set(i, i, boundaryPenalty)
	}
	return &FixedPrior{State: state, StateDim: stateDim, Mu0: mu0, K0inv: k0inv}
}

func (o *FixedPrior) Pattern() sparsegauss.Pattern {
	return sparsegauss.UnaryPattern(o.State, o.StateDim)
}

func (o *FixedPrior) Cost(x *mat.VecDense) float64 {
	var diff mat.VecDense
	diff.SubVec(x, o.Mu0)
	var tmp mat.VecDense
	tmp.MulVec(o.K0inv, &diff)
	return 0.5 * mat.Dot(&diff, &tmp)
}

func (o *FixedPrior) Vmu(x, mu *mat.VecDense) *mat.VecDense {
	var diff mat.VecDense
	diff.SubVec(x, mu)
	c := o.Cost(x)
	diff.ScaleVec(c, &diff)
	return &diff
}

func (o *FixedPrior) Vmumu(x, mu *mat.VecDense) *mat.Dense {
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

func (o *FixedPrior) IsLinearGaussian() bool { return true }

// ClosedForm implements the linear-Gaussian fast path: for the quadratic
// potential anchored at mu0 with precision K0inv, the exact variational
// partials are those of the target Gaussian itself, so the optimizer
// converges to (mu0, K0inv) without invoking Gauss-Hermite cubature.
func (o *FixedPrior) ClosedForm(mu *mat.VecDense, Sigma *mat.Dense) (*mat.VecDense, *mat.Dense) {
	var diff mat.VecDense
	diff.SubVec(mu, o.Mu0)
	var Vdmu mat.VecDense
	Vdmu.MulVec(o.K0inv, &diff)
	return &Vdmu, mat.DenseCopyOf(o.K0inv)
}
