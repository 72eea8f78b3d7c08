package planarenv

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/factor"
	"github.com/ChenZhenY/VIMP/traj"
)

// PointRobot is a planar point mass with state [x, y, vx, vy]: a linear
// double-integrator, so its own dynamics never need linearizing. The only
// nonlinear ingredient PGCS's outer loop needs from it is the obstacle
// cost's gradient contribution nTrt, computed against Field.
type PointRobot struct {
	Field  SDF
	EpsSDF float64
	SigObs float64
	B      *mat.Dense // constant control matrix, (nx, nu)
}

// SDF is the narrow collaborator contract planarenv's environments satisfy;
// identical in shape to factor.SDF so a *GridSDF serves either.
type SDF interface {
	Value(x []float64) (dist float64, grad []float64, err error)
}

// ToConf extracts the 2-D position from a [x,y,vx,vy] point robot state,
// the func(mu)->[]float64 adapter factor.Obstacle needs.
func ToConf(x *mat.VecDense) []float64 {
	return []float64{x.AtVec(0), x.AtVec(1)}
}

// Linearize implements pgcs.Dynamics for a point robot: Akt/Bt are already
// exact linear dynamics so hAkt=Akt passes through unchanged and hakt is zero;
// nTrt carries the obstacle cost's state gradient, -2/sigObs^2 * hinge(x) *
// grad(hinge)(x), zero-padded over the velocity rows (spec.md 4.F:
// "nTrt couples the state-cost gradient into the proximal blend").
func (r *PointRobot) Linearize(zkt *traj.Tensor3, sig float64, Akt, Sigkt *traj.Tensor3) (hAkt, Bt, hakt, nTrt *traj.Tensor3, err error) {
	nx, nt := zkt.R, zkt.T
	hAkt = traj.NewTensor3(nx, nx, nt)
	hakt = traj.NewTensor3(nx, 1, nt)
	nTrt = traj.NewTensor3(nx, 1, nt)

	for i := 0; i < nt; i++ {
		hAkt.Compress(i, Akt.Extract(i))
		hakt.CompressVec(i, zeroVec(nx))

		z := zkt.ExtractVec(i)
		conf := []float64{z.AtVec(0), z.AtVec(1)}
		dist, grad, ferr := r.Field.Value(conf)
		if ferr != nil {
			err = ferr
			return
		}
		g := mat.NewVecDense(nx, nil)
		if hinge := r.EpsSDF - dist; hinge > 0 {
			coeff := -2 * hinge / (r.SigObs * r.SigObs)
			g.SetVec(0, coeff*(-grad[0]))
			g.SetVec(1, coeff*(-grad[1]))
		}
		nTrt.CompressVec(i, g)
	}
	Bt = traj.Replicate(r.B, nt)
	return hAkt, Bt, hakt, nTrt, nil
}

func zeroVec(n int) *mat.VecDense { return mat.NewVecDense(n, nil) }

// NewObstacleFactors is a convenience wrapper around factor.BuildPlanarGraph
// for the point-robot configuration, wiring ToConf and the GridSDF
// collaborator together.
func NewObstacleFactors(p factor.PlanarGraphParams, field *GridSDF) []factor.Factor {
	p.Field = field
	p.ToConf = ToConf
	return factor.BuildPlanarGraph(p)
}
