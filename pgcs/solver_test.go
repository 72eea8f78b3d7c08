package pgcs

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/traj"
)

// passthroughDynamics is a trivial Dynamics collaborator for a
// already-linear system: it reports the caller's own Akt/Bt back
// unchanged and contributes no extra state-cost gradient, exercising the
// Solver's plumbing without a genuinely nonlinear linearization step.
type passthroughDynamics struct {
	b *mat.Dense
}

func (d *passthroughDynamics) Linearize(zkt *traj.Tensor3, sig float64, Akt, Sigkt *traj.Tensor3) (hAt, Bt, hat, nTrt *traj.Tensor3, err error) {
	nx, nt := zkt.R, zkt.T
	hAt = copyTensor(Akt)
	Bt = traj.Replicate(d.b, nt)
	hat = traj.NewTensor3(nx, 1, nt)
	nTrt = traj.NewTensor3(nx, 1, nt)
	return hAt, Bt, hat, nTrt, nil
}

func Test_solverConstructionAndStep01(tst *testing.T) {

	chk.PrintTitle("pgcs.New/Step plumbing over a single-integrator system")

	nx, nu, nt := 2, 2, 20
	A0 := mat.NewDense(nx, nx, nil)
	a0 := mat.NewVecDense(nx, nil)
	B := mat.NewDense(nx, nu, []float64{1, 0, 0, 1})

	z0 := mat.NewVecDense(nx, []float64{0, 0})
	zT := mat.NewVecDense(nx, []float64{1, 1})
	sig0 := mat.NewDense(nx, nx, []float64{1, 0, 0, 1})
	sigT := mat.NewDense(nx, nx, []float64{0.1, 0, 0, 0.1})

	params := Params{
		Nx: nx, Nu: nu, Nt: nt,
		Sig:     1.0,
		Eta:     0.1,
		Eps:     0.01,
		Z0:      z0,
		ZT:      zT,
		Sig0:    sig0,
		SigT:    sigT,
		StopErr: 1e-3,
		MaxIter: 10,
		Qt:      traj.NewTensor3(nx, nx, nt),
	}

	s := New(params, &passthroughDynamics{b: B}, A0, a0, B)

	if s.Akt.R != nx || s.Akt.C != nx || s.Akt.T != nt {
		tst.Fatalf("Akt shape = (%d,%d,%d), want (%d,%d,%d)", s.Akt.R, s.Akt.C, s.Akt.T, nx, nx, nt)
	}
	chk.Scalar(tst, "Sigkt[0]==Sig0", 1e-15, s.Sigkt.Extract(0).At(0, 0), 1.0)
	chk.Scalar(tst, "Sigkt[last]==SigT", 1e-15, s.Sigkt.Extract(nt-1).At(0, 0), 0.1)
	chk.Scalar(tst, "zkt[0]==Z0[0]", 1e-15, s.zkt.ExtractVec(0).AtVec(0), 0.0)

	if err := s.Step(1); err != nil {
		tst.Fatalf("Step failed: %v", err)
	}

	// propagateMean never touches the seed index.
	chk.Scalar(tst, "zkt[0] unchanged by Step", 1e-12, s.zkt.ExtractVec(0).AtVec(0), 0.0)

	kr, kc, kt := s.Kt.R, s.Kt.C, s.Kt.T
	if kr != nu || kc != nx || kt != nt {
		tst.Fatalf("Kt shape = (%d,%d,%d), want (%d,%d,%d)", kr, kc, kt, nu, nx, nt)
	}
}

func Test_optimizeReportsIterations01(tst *testing.T) {

	chk.PrintTitle("pgcs.Optimize runs until StopErr or MaxIter")

	nx, nu, nt := 2, 2, 10
	A0 := mat.NewDense(nx, nx, nil)
	a0 := mat.NewVecDense(nx, nil)
	B := mat.NewDense(nx, nu, []float64{1, 0, 0, 1})

	params := Params{
		Nx: nx, Nu: nu, Nt: nt,
		Sig:     1.0,
		Eta:     0.2,
		Eps:     0.01,
		Z0:      mat.NewVecDense(nx, []float64{0, 0}),
		ZT:      mat.NewVecDense(nx, []float64{1, 1}),
		Sig0:    mat.NewDense(nx, nx, []float64{1, 0, 0, 1}),
		SigT:    mat.NewDense(nx, nx, []float64{0.1, 0, 0, 0.1}),
		StopErr: 1e-6,
		MaxIter: 5,
		Qt:      traj.NewTensor3(nx, nx, nt),
	}

	s := New(params, &passthroughDynamics{b: B}, A0, a0, B)

	iters, err := s.Optimize()
	if err != nil {
		tst.Fatalf("Optimize failed: %v", err)
	}
	if iters <= 0 || iters > params.MaxIter {
		tst.Fatalf("iters = %d, want in (0, %d]", iters, params.MaxIter)
	}
	if s.Recorder.Len() == 0 {
		tst.Fatal("expected at least one recorded PGCS snapshot")
	}
}
