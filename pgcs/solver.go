// Package pgcs implements Proximal-Gradient Covariance Steering (spec.md
// 4.F): the outer loop that steers a nonlinear stochastic system between
// Gaussian boundary conditions by repeatedly linearizing the dynamics and
// state cost around the current nominal trajectory, solving the resulting
// linear covariance steering subproblem (package covsteer), and propagating
// the closed-loop mean/covariance forward.
package pgcs

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cpmech/gosl/io"

	"github.com/ChenZhenY/VIMP/covsteer"
	"github.com/ChenZhenY/VIMP/record"
	"github.com/ChenZhenY/VIMP/traj"
)

// Dynamics linearizes the (possibly nonlinear) system dynamics around the
// current nominal mean/covariance trajectory, returning the linearized
// drift (hAt, hat), the (possibly state-dependent) control matrix Bt, and
// the state-cost gradient contribution nTrt (spec.md 4.F: "NonlinearDynamics
// collaborator").
type Dynamics interface {
	Linearize(zkt *traj.Tensor3, sig float64, Akt, Sigkt *traj.Tensor3) (hAt, Bt, hat, nTrt *traj.Tensor3, err error)
}

// Params bundles one PGCS run's boundary conditions and schedule, mirroring
// spec.md 6's Configuration table entries for the PGCS driver.
type Params struct {
	Nx, Nu, Nt int
	Sig        float64 // total horizon duration, deltaT = Sig/(Nt-1)
	Eta        float64
	Eps        float64
	Z0, ZT     *mat.VecDense
	Sig0, SigT *mat.Dense
	StopErr    float64
	MaxIter    int

	Qt *traj.Tensor3 // fixed quadratic state-cost matrix, replicated per timestep
}

// Solver runs the PGCS outer loop.
type Solver struct {
	p    Params
	dyn  Dynamics
	deltaT float64

	Akt, akt, Bt *traj.Tensor3
	pinvBBTt     *traj.Tensor3
	Qkt, rkt     *traj.Tensor3
	hAkt, hakt   *traj.Tensor3
	nTrt         *traj.Tensor3
	zkt, Sigkt   *traj.Tensor3
	Kt, dt       *traj.Tensor3

	Recorder *record.PGCSRecorder
}

// New builds a solver seeded with a linear-time-invariant nominal (A0, a0,
// B), replicated over the horizon, per the original constructor's
// replicate3d calls.
func New(p Params, dyn Dynamics, A0 *mat.Dense, a0 *mat.VecDense, B *mat.Dense) *Solver {
	nx, nt := p.Nx, p.Nt
	s := &Solver{
		p:      p,
		dyn:    dyn,
		deltaT: p.Sig / float64(p.Nt-1),

		Akt: traj.Replicate(A0, nt),
		akt: traj.Replicate(asColumnPGCS(a0), nt),
		Bt:  traj.Replicate(B, nt),

		pinvBBTt: traj.NewTensor3(nx, nx, nt),
		Qkt:      traj.NewTensor3(nx, nx, nt),
		rkt:      traj.NewTensor3(nx, 1, nt),
		hAkt:     traj.NewTensor3(nx, nx, nt),
		hakt:     traj.NewTensor3(nx, 1, nt),
		nTrt:     traj.NewTensor3(nx, 1, nt),

		zkt:   traj.Replicate(asColumnPGCS(p.Z0), nt),
		Sigkt: traj.Replicate(p.Sig0, nt),

		Kt: traj.NewTensor3(p.Nu, nx, nt),
		dt: traj.NewTensor3(p.Nu, 1, nt),

		Recorder: record.NewPGCSRecorder(p.MaxIter + 1),
	}
	s.Sigkt.Compress(nt-1, p.SigT)
	s.computePinvBBT()
	return s
}

func asColumnPGCS(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, v.AtVec(i))
	}
	return m
}

func (s *Solver) computePinvBBT() {
	for i := 0; i < s.p.Nt; i++ {
		Bi := s.Bt.Extract(i)
		var BBt mat.Dense
		BBt.Mul(Bi, Bi.T())
		s.pinvBBTt.Compress(i, pseudoInverseSPD(&BBt))
	}
}

// Optimize runs the outer loop until the normalized change in (Akt, akt)
// drops below StopErr or MaxIter is reached (spec.md 4.F, "Convergence").
func (s *Solver) Optimize() (int, error) {
	err := 1.0
	AkPrev := copyTensor(s.Akt)
	akPrev := copyTensor(s.akt)

	step := 1
	for err > s.p.StopErr && step <= s.p.MaxIter {
		if stepErr := s.Step(step); stepErr != nil {
			return step, stepErr
		}

		diffA := tensorFrobeniusDiff(AkPrev, s.Akt) / tensorNorm(s.Akt) / float64(s.p.Nt)
		diffa := tensorFrobeniusDiff(akPrev, s.akt) / tensorNorm(s.akt) / float64(s.p.Nt)
		err = diffA + diffa

		AkPrev = copyTensor(s.Akt)
		akPrev = copyTensor(s.akt)

		s.Recorder.Add(record.PGCSSnapshot{
			Iter: step,
			Kt:   copyTensor(s.Kt),
			Dt:   copyTensor(s.dt),
			Zk:   copyTensor(s.zkt),
			Sk:   copyTensor(s.Sigkt),
			Err:  err,
		})
		step++
	}
	if err > s.p.StopErr {
		io.Pfyel("pgcs: max_iter reached at iter %d (err=%.3g > stop_err=%.3g)\n", step-1, err, s.p.StopErr)
	}
	return step - 1, nil
}

// Step runs one proximal-gradient iteration: propagate mean/covariance,
// linearize, blend proximal (A,a)/(Q,r), solve the linear CS subproblem,
// and close the loop (spec.md 4.F, items 1-5).
func (s *Solver) Step(indx int) error {
	s.propagateMean()

	hAkt, Bt, hakt, nTrt, err := s.dyn.Linearize(s.zkt, s.p.Sig, s.Akt, s.Sigkt)
	if err != nil {
		return err
	}
	s.hAkt, s.Bt, s.hakt, s.nTrt = hAkt, Bt, hakt, nTrt
	s.computePinvBBT()

	eta := s.p.Eta
	nx, nt := s.p.Nx, s.p.Nt
	Aprior := traj.NewTensor3(nx, nx, nt)
	aprior := traj.NewTensor3(nx, 1, nt)
	for i := 0; i < nt; i++ {
		Ai := s.Akt.Extract(i)
		hAi := s.hAkt.Extract(i)
		var blendedA mat.Dense
		blendedA.Scale(1/(1+eta), Ai)
		var hAterm mat.Dense
		hAterm.Scale(eta/(1+eta), hAi)
		blendedA.Add(&blendedA, &hAterm)
		Aprior.Compress(i, &blendedA)

		ai := s.akt.ExtractVec(i)
		hai := s.hakt.ExtractVec(i)
		blendeda := mat.NewVecDense(nx, nil)
		blendeda.AddScaledVec(blendeda, 1/(1+eta), ai)
		blendeda.AddScaledVec(blendeda, eta/(1+eta), hai)
		aprior.CompressVec(i, blendeda)
	}

	s.updateQrk()

	problem := &covsteer.Problem{
		Nx: nx, Nu: s.p.Nu, Nt: nt,
		DeltaT: s.deltaT,
		Eps:    s.p.Eps,
		At:     Aprior, Bt: s.Bt, Aoff: aprior,
		Qt: s.Qkt, Rt: s.rkt,
		M0: s.p.Z0, M1: s.p.ZT,
		Sig0Mat: s.p.Sig0, Sig1Mat: s.p.SigT,
	}
	sol, err := problem.Solve()
	if err != nil {
		return err
	}
	s.Kt, s.dt = sol.Kt, sol.Dt

	for i := 0; i < nt; i++ {
		Aprior_i := Aprior.Extract(i)
		aprior_i := aprior.ExtractVec(i)
		Bi := s.Bt.Extract(i)
		Ki := s.Kt.Extract(i)
		di := s.dt.ExtractVec(i)

		var BK mat.Dense
		BK.Mul(Bi, Ki)
		var Ai mat.Dense
		Ai.Add(Aprior_i, &BK)
		s.Akt.Compress(i, &Ai)

		var Bd mat.VecDense
		Bd.MulVec(Bi, di)
		ai := mat.NewVecDense(nx, nil)
		ai.AddVec(aprior_i, &Bd)
		s.akt.CompressVec(i, ai)
	}
	return nil
}

// updateQrk blends the fixed state-cost Qt with the proximal linearization
// residual, per spec.md 4.F ("proximal blended cost").
func (s *Solver) updateQrk() {
	nx, nt := s.p.Nx, s.p.Nt
	eta := s.p.Eta
	for i := 0; i < nt; i++ {
		Aki := s.Akt.Extract(i)
		aki := s.akt.ExtractVec(i)
		hAi := s.hAkt.Extract(i)
		hai := s.hakt.ExtractVec(i)
		pinvBBTi := s.pinvBBTt.Extract(i)
		Qti := s.p.Qt.Extract(i)
		nTri := s.nTrt.ExtractVec(i)
		zi := s.zkt.ExtractVec(i)

		var diffA mat.Dense
		diffA.Sub(Aki, hAi)
		var diffAT mat.Dense
		diffAT.CloneFrom(diffA.T())

		var Qki mat.Dense
		Qki.Scale(2*eta/(1+eta), Qti)
		var quad mat.Dense
		quad.Mul(&diffAT, pinvBBTi)
		quad.Mul(&quad, &diffA)
		quad.Scale(eta/(1+eta)/(1+eta), &quad)
		Qki.Add(&Qki, &quad)
		s.Qkt.Compress(i, &Qki)

		var Qzi mat.VecDense
		Qzi.MulVec(Qti, zi)
		rki := mat.NewVecDense(nx, nil)
		rki.AddScaledVec(rki, -eta/(1+eta), &Qzi)
		rki.AddScaledVec(rki, eta/2, nTri)

		var diffa mat.VecDense
		diffa.SubVec(aki, hai)
		var term mat.VecDense
		var qdiff mat.VecDense
		qdiff.MulVec(pinvBBTi, &diffa)
		term.MulVec(&diffAT, &qdiff)
		rki.AddScaledVec(rki, eta/(1+eta)/(1+eta), &term)
		s.rkt.CompressVec(i, rki)
	}
}

func (s *Solver) propagateMean() {
	nt := s.p.Nt
	for i := 0; i < nt-1; i++ {
		zi := s.zkt.ExtractVec(i)
		Ai := s.Akt.Extract(i)
		ai := s.akt.ExtractVec(i)
		Bi := s.Bt.Extract(i)
		Si := s.Sigkt.Extract(i)

		var Az mat.VecDense
		Az.MulVec(Ai, zi)
		znew := mat.NewVecDense(s.p.Nx, nil)
		znew.AddVec(zi, scaledSum(s.deltaT, &Az, ai))
		s.zkt.CompressVec(i+1, znew)

		var AS, SAT, BBt, Snew mat.Dense
		AS.Mul(Ai, Si)
		SAT.Mul(Si, Ai.T())
		BBt.Mul(Bi, Bi.T())
		BBt.Scale(s.p.Eps, &BBt)
		Snew.Add(&AS, &SAT)
		Snew.Add(&Snew, &BBt)
		Snew.Scale(s.deltaT, &Snew)
		Snew.Add(&Snew, Si)
		s.Sigkt.Compress(i+1, &Snew)
	}
}

func scaledSum(dt float64, Az *mat.VecDense, a *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(Az.Len(), nil)
	out.AddVec(Az, a)
	out.ScaleVec(dt, out)
	return out
}

func copyTensor(t *traj.Tensor3) *traj.Tensor3 {
	cp := traj.NewTensor3(t.R, t.C, t.T)
	for i := 0; i < t.T; i++ {
		cp.Compress(i, t.Extract(i))
	}
	return cp
}

// tensorFrobeniusDiff sums squared elementwise differences across every
// timestep's matrix, matching the original's flattened Matrix3D .norm()
// over the whole (nx*nx, nt) block.
func tensorFrobeniusDiff(a, b *traj.Tensor3) float64 {
	var sum float64
	for i := 0; i < a.T; i++ {
		ma, mb := a.Extract(i), b.Extract(i)
		r, c := ma.Dims()
		for row := 0; row < r; row++ {
			for col := 0; col < c; col++ {
				d := ma.At(row, col) - mb.At(row, col)
				sum += d * d
			}
		}
	}
	return math.Sqrt(sum)
}

func tensorNorm(a *traj.Tensor3) float64 {
	zero := traj.NewTensor3(a.R, a.C, a.T)
	return tensorFrobeniusDiff(a, zero)
}

// pseudoInverseSPD computes the Moore-Penrose pseudoinverse of a symmetric
// PSD matrix (here, B B^T) via its eigendecomposition, zeroing the
// reciprocal of eigenvalues below a numerical tolerance (spec.md 4.F:
// "pinv(B B^T) replaces a literal matrix inverse so that underactuated B is
// handled without raising invalid_covariance").
func pseudoInverseSPD(A *mat.Dense) *mat.Dense {
	n, _ := A.Dims()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = (A.At(i, j) + A.At(j, i)) / 2
		}
	}
	sym := mat.NewSymDense(n, data)
	var eig mat.EigenSym
	eig.Factorize(sym, true)
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	const tol = 1e-10
	diag := mat.NewDense(n, n, nil)
	maxVal := 0.0
	for _, v := range vals {
		if v > maxVal {
			maxVal = v
		}
	}
	for i, v := range vals {
		if v > tol*math.Max(maxVal, 1) {
			diag.Set(i, i, 1/v)
		}
	}
	var tmp, out mat.Dense
	tmp.Mul(&vecs, diag)
	out.Mul(&tmp, vecs.T())
	return &out
}
