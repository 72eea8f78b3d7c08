package factor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/sparsegauss"
)

// GPPrior is the minimum-acceleration Gaussian-process prior coupling two
// consecutive states (x_i, x_i+1) via a continuous-time white-noise
// acceleration process model (spec.md 4.C). Each state is [pos; vel] of
// half-dimension m, full dimension d=2m. The process noise intensity Qc is
// isotropic over the m position channels.
type GPPrior struct {
	State    int
	StateDim int // d = 2m
	Dt       float64
	Qc       float64

	precision *mat.Dense // cached 2d x 2d precision block, depends only on (Dt, Qc, d)
}

// NewGPPrior builds the GP-prior factor between states i and i+1.
func NewGPPrior(state, stateDim int, dt, qc float64) *GPPrior {
	o := &GPPrior{State: state, StateDim: stateDim, Dt: dt, Qc: qc}
	o.precision = gpPrecisionBlock(stateDim, dt, qc)
	return o
}

// gpPrecisionBlock builds the analytic 2d x 2d precision of the joint
// (x_i, x_i+1) marginal under the minimum-acceleration GP prior:
//
//	Phi = [ I   dt*I ]      Q = [ dt^3/3*Qc   dt^2/2*Qc ]
//	      [ 0     I  ]          [ dt^2/2*Qc    dt*Qc    ]
//
//	Lambda = [ Phi^T*Q^-1*Phi   -Phi^T*Q^-1 ]
//	         [ -Q^-1*Phi         Q^-1       ]
//
// so that [x_i; x_i+1]^T Lambda [x_i; x_i+1] = e^T Q^-1 e with
// e = x_i+1 - Phi*x_i
// (the standard GP motion-prior factor of Barfoot's batch continuous-time
// trajectory estimation, as used by the obstacle-avoidance planners this
// spec targets).
func gpPrecisionBlock(d int, dt, qc float64) *mat.Dense {
	m := d / 2
	Phi := mat.NewDense(d, d, nil)
	Q := mat.NewDense(d, d, nil)
	for i := 0; i < m; i++ {
		Phi.Set(i, i, 1)
		Phi.Set(i, m+i, dt)
		Phi.Set(m+i, m+i, 1)
		Q.Set(i, i, dt*dt*dt/3*qc)
		Q.Set(i, m+i, dt*dt/2*qc)
		Q.Set(m+i, i, dt*dt/2*qc)
		Q.Set(m+i, m+i, dt*qc)
	}
	var Qinv mat.Dense
	Qinv.Inverse(Q)

	var PhiTQinv, PhiTQinvPhi mat.Dense
	PhiTQinv.Mul(Phi.T(), &Qinv)
	PhiTQinvPhi.Mul(&PhiTQinv, Phi)

	lam := mat.NewDense(2*d, 2*d, nil)
	setBlock(lam, 0, 0, &PhiTQinvPhi)
	var negPhiTQinv mat.Dense
	negPhiTQinv.Scale(-1, &PhiTQinv)
	setBlock(lam, 0, d, &negPhiTQinv)
	setBlock(lam, d, 0, negPhiTQinv.T())
	setBlock(lam, d, d, &Qinv)
	return lam
}

func setBlock(dst *mat.Dense, r0, c0 int, src mat.Matrix) {
	rows, cols := src.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(r0+i, c0+j, src.At(i, j))
		}
	}
}

func (o *GPPrior) Pattern() sparsegauss.Pattern {
	return sparsegauss.BinaryPattern(o.State, o.StateDim)
}

func (o *GPPrior) Cost(x *mat.VecDense) float64 {
	var tmp mat.VecDense
	tmp.MulVec(o.precision, x)
	return 0.5 * mat.Dot(x, &tmp)
}

func (o *GPPrior) Vmu(x, mu *mat.VecDense) *mat.VecDense {
	var diff mat.VecDense
	diff.SubVec(x, mu)
	c := o.Cost(x)
	diff.ScaleVec(c, &diff)
	return &diff
}

func (o *GPPrior) Vmumu(x, mu *mat.VecDense) *mat.Dense {
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

func (o *GPPrior) IsLinearGaussian() bool { return true }

func (o *GPPrior) ClosedForm(mu *mat.VecDense, Sigma *mat.Dense) (*mat.VecDense, *mat.Dense) {
	var Vdmu mat.VecDense
	Vdmu.MulVec(o.precision, mu)
	return &Vdmu, mat.DenseCopyOf(o.precision)
}
