// Package covsteer implements the linear covariance steering subproblem
// (spec.md 4.E): given time-varying linearized dynamics (A, B, a) and cost
// (Q, r) over a fixed horizon, it finds the affine feedback (K, d) steering
// a Gaussian from (m0, Sig0) to (m1, Sig1) while minimizing expected
// quadratic control effort, following Chen-Georgiou-Pavon's Hamiltonian
// formulation.
package covsteer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/traj"
	"github.com/ChenZhenY/VIMP/vimperr"
)

// Problem bundles one linear covariance steering boundary-value problem.
// Every *t field is a time-varying tensor with T columns; nx, nu are the
// state/control dimensions and Eps is the steering temperature epsilon.
type Problem struct {
	Nx, Nu, Nt int
	DeltaT     float64
	Eps        float64

	At, Bt, Aoff *traj.Tensor3 // (nx,nx,nt), (nx,nu,nt), (nx,1,nt) -- Aoff is the affine drift offset "a_t"
	Qt, Rt       *traj.Tensor3 // (nx,nx,nt), (nx,1,nt) -- Rt here plays the role of "rt" (linear cost term)

	M0, M1           *mat.VecDense
	Sig0Mat, Sig1Mat *mat.Dense // boundary covariances
}

// Solution holds the feedback law and propagated costate recovered by Solve.
type Solution struct {
	Kt  *traj.Tensor3 // (nu, nx, nt)
	Dt  *traj.Tensor3 // (nu, 1, nt)
	Pit *traj.Tensor3 // (nx, nx, nt), the Riccati-like costate precision
	Phi *mat.Dense    // (2nx, 2nx), the Hamiltonian flow at t=1
}

// Solve computes (K, d) per the Hamiltonian-block construction: propagate
// the Mt/Phi block flow forward by explicit Euler, solve the boundary value
// problem for the initial costate via Phi12, propagate the forward/adjoint
// state, match the t=0 costate precision via a matrix-square-root closed
// form, then run a Riccati-like recursion forward for Pi(t) and read off
// (K, d) (spec.md 4.E).
func (p *Problem) Solve() (*Solution, error) {
	nx, nu, nt := p.Nx, p.Nu, p.Nt
	dt := p.DeltaT

	Mt := make([]*mat.Dense, nt)
	for i := 0; i < nt; i++ {
		Ai := p.At.Extract(i)
		Bi := p.Bt.Extract(i)
		Qi := p.Qt.Extract(i)

		M := mat.NewDense(2*nx, 2*nx, nil)
		setBlockCS(M, 0, 0, Ai)
		var BBt mat.Dense
		BBt.Mul(Bi, Bi.T())
		BBt.Scale(-1, &BBt)
		setBlockCS(M, 0, nx, &BBt)
		var negQ mat.Dense
		negQ.Scale(-1, Qi)
		setBlockCS(M, nx, 0, &negQ)
		var negAt mat.Dense
		negAt.CloneFrom(Ai.T())
		negAt.Scale(-1, &negAt)
		setBlockCS(M, nx, nx, &negAt)
		Mt[i] = M
	}

	// forward-propagated homogeneous flow Phi(t=1), explicit Euler.
	Phi := identity(2 * nx)
	for i := 0; i < nt-1; i++ {
		var MPhi mat.Dense
		MPhi.Mul(Mt[i], Phi)
		MPhi.Scale(dt, &MPhi)
		Phi.Add(Phi, &MPhi)
	}
	Phi11 := Phi.Slice(0, nx, 0, nx).(*mat.Dense)
	Phi12 := Phi.Slice(0, nx, nx, 2*nx).(*mat.Dense)

	// particular solution s(t) of the inhomogeneous flow, carrying (a, -r).
	s := mat.NewVecDense(2*nx, nil)
	for i := 0; i < nt-1; i++ {
		ai := p.Aoff.ExtractVec(i)
		ri := p.Rt.ExtractVec(i)
		ar := mat.NewVecDense(2*nx, nil)
		for k := 0; k < nx; k++ {
			ar.SetVec(k, ai.AtVec(k))
		}
		for k := 0; k < nx; k++ {
			ar.SetVec(nx+k, -ri.AtVec(k))
		}
		var Ms mat.VecDense
		Ms.MulVec(Mt[i], s)
		Ms.AddVec(&Ms, ar)
		Ms.ScaleVec(dt, &Ms)
		s.AddVec(s, &Ms)
	}
	sTop := mat.NewVecDense(nx, nil)
	for k := 0; k < nx; k++ {
		sTop.SetVec(k, s.AtVec(k))
	}

	rhs := mat.NewVecDense(nx, nil)
	var phi11m0 mat.VecDense
	phi11m0.MulVec(Phi11, p.M0)
	rhs.SubVec(p.M1, &phi11m0)
	rhs.SubVec(rhs, sTop)

	Phi12Inv, err := invert(Phi12)
	if err != nil {
		return nil, vimperr.New(vimperr.BoundaryInfeasible, "Phi12 is singular: %v", err)
	}
	var lambda0 mat.VecDense
	lambda0.MulVec(Phi12Inv, rhs)

	X0 := mat.NewVecDense(2*nx, nil)
	for k := 0; k < nx; k++ {
		X0.SetVec(k, p.M0.AtVec(k))
		X0.SetVec(nx+k, lambda0.AtVec(k))
	}

	Xt := make([]*mat.VecDense, nt)
	Xt[0] = X0
	for i := 0; i < nt-1; i++ {
		ai := p.Aoff.ExtractVec(i)
		ri := p.Rt.ExtractVec(i)
		ar := mat.NewVecDense(2*nx, nil)
		for k := 0; k < nx; k++ {
			ar.SetVec(k, ai.AtVec(k))
		}
		for k := 0; k < nx; k++ {
			ar.SetVec(nx+k, -ri.AtVec(k))
		}
		var MX mat.VecDense
		MX.MulVec(Mt[i], Xt[i])
		MX.AddVec(&MX, ar)
		MX.ScaleVec(dt, &MX)
		next := mat.NewVecDense(2*nx, nil)
		next.AddVec(Xt[i], &MX)
		Xt[i+1] = next
	}

	lbdt := make([]*mat.VecDense, nt)
	for i := 0; i < nt; i++ {
		l := mat.NewVecDense(nx, nil)
		for k := 0; k < nx; k++ {
			l.SetVec(k, Xt[i].AtVec(nx+k))
		}
		lbdt[i] = l
	}

	v := make([]*mat.VecDense, nt)
	for i := 0; i < nt; i++ {
		Bi := p.Bt.Extract(i)
		var vi mat.VecDense
		vi.MulVec(Bi.T(), lbdt[i])
		vi.ScaleVec(-1, &vi)
		v[i] = &vi
	}

	Sig0InvSqrt, err := invSqrtmSPD(p.Sig0Mat)
	if err != nil {
		return nil, vimperr.New(vimperr.BoundaryInfeasible, "Sig0 is not SPD: %v", err)
	}
	Sig0Sqrt, err := sqrtmSPD(p.Sig0Mat)
	if err != nil {
		return nil, vimperr.New(vimperr.BoundaryInfeasible, "Sig0 is not SPD: %v", err)
	}

	Phi12InvT := matTranspose(Phi12Inv)
	var inner mat.Dense
	inner.Mul(Sig0Sqrt, Phi12Inv)
	inner.Mul(&inner, p.Sig1Mat)
	inner.Mul(&inner, Phi12InvT)
	inner.Mul(&inner, Sig0Sqrt)

	epsTerm := identity(nx)
	epsTerm.Scale(p.Eps*p.Eps/4, epsTerm)
	inner.Add(&inner, epsTerm)

	innerSqrt, err := sqrtmSPD(&inner)
	if err != nil {
		return nil, vimperr.New(vimperr.BoundaryInfeasible, "boundary matching term is not SPD: %v", err)
	}

	Sig0Inv, err := invert(p.Sig0Mat)
	if err != nil {
		return nil, vimperr.New(vimperr.BoundaryInfeasible, "Sig0 is singular: %v", err)
	}
	var pi0 mat.Dense
	pi0.Scale(p.Eps/2, Sig0Inv)
	pi0.Sub(&pi0, matMul(Phi12Inv, Phi11))
	var sandwich mat.Dense
	sandwich.Mul(Sig0InvSqrt, innerSqrt)
	sandwich.Mul(&sandwich, Sig0InvSqrt)
	pi0.Sub(&pi0, &sandwich)
	symmetrize(&pi0)

	Pit := make([]*mat.Dense, nt)
	Pit[0] = &pi0
	for i := 0; i < nt-1; i++ {
		Ai := p.At.Extract(i)
		Bi := p.Bt.Extract(i)
		Qi := p.Qt.Extract(i)
		lPi := Pit[i]

		var AtPi, PiA, PiBBtPi, Bt, BBt mat.Dense
		AtPi.Mul(Ai.T(), lPi)
		PiA.Mul(lPi, Ai)
		Bt.CloneFrom(Bi.T())
		BBt.Mul(Bi, &Bt)
		PiBBtPi.Mul(lPi, &BBt)
		PiBBtPi.Mul(&PiBBtPi, lPi)

		var delta mat.Dense
		delta.Add(&AtPi, &PiA)
		delta.Sub(&delta, &PiBBtPi)
		delta.Add(&delta, Qi)
		delta.Scale(dt, &delta)

		var next mat.Dense
		next.Sub(lPi, &delta)
		Pit[i+1] = &next
	}

	Kt := traj.NewTensor3(nu, nx, nt)
	Dt := traj.NewTensor3(nu, 1, nt)
	for i := 0; i < nt; i++ {
		Bi := p.Bt.Extract(i)
		lPi := Pit[i]
		var BiT mat.Dense
		BiT.CloneFrom(Bi.T())
		var Ki mat.Dense
		Ki.Mul(&BiT, lPi)
		Ki.Scale(-1, &Ki)
		Kt.Compress(i, &Ki)

		var BtPix mat.VecDense
		var BtPi mat.Dense
		BtPi.Mul(&BiT, lPi)
		BtPix.MulVec(&BtPi, xt(Xt[i], nx))
		var di mat.VecDense
		di.AddVec(v[i], &BtPix)
		Dt.CompressVec(i, &di)
	}

	PitTensor := traj.NewTensor3(nx, nx, nt)
	for i := 0; i < nt; i++ {
		PitTensor.Compress(i, Pit[i])
	}

	return &Solution{Kt: Kt, Dt: Dt, Pit: PitTensor, Phi: Phi}, nil
}

func xt(X *mat.VecDense, nx int) *mat.VecDense {
	out := mat.NewVecDense(nx, nil)
	for k := 0; k < nx; k++ {
		out.SetVec(k, X.AtVec(k))
	}
	return out
}
