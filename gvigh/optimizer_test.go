package gvigh

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/factor"
	"github.com/ChenZhenY/VIMP/sparsegauss"
)

// Test_scenario1Convergence reproduces spec.md's worked Scenario 1: a single
// two-state target N(mu_t, Lambda_t^-1) recovered from a standard-normal
// seed after 50 iterations of backtracking at gamma=0.9.
func Test_scenario1Convergence(tst *testing.T) {

	chk.PrintTitle("scenario 1: GVI-GH recovers a target Gaussian")

	muT := mat.NewVecDense(2, []float64{1, 1})
	lamT := mat.NewDense(2, 2, []float64{1, -0.74, -0.74, 1})

	f := &factor.FixedPrior{State: 0, StateDim: 2, Mu0: muT, K0inv: lamT}

	seed := mat.NewVecDense(2, []float64{0, 0})
	joint := sparsegauss.NewJoint(seed, 1.0)
	if err := joint.Factorize(); err != nil {
		tst.Fatalf("Factorize failed: %v", err)
	}

	opt := New(joint, []factor.Factor{f}, Options{
		Degree:            factor.DefaultDegree,
		StepSize:          0.9,
		Temperature:       1.0,
		HighTemperature:   1.0,
		LowTempIterations: 0,
		StopErr:           1e-12,
		MaxIter:           50,
		MaxBacktrack:      30,
	})

	if err := opt.Run(); err != nil {
		tst.Fatalf("Run failed: %v", err)
	}

	muErr := math.Hypot(opt.Joint.Mu.AtVec(0)-1, opt.Joint.Mu.AtVec(1)-1)
	if muErr > 1e-3 {
		tst.Fatalf("||mu - mu_t|| = %.6g, want < 1e-3 (mu = %.6f, %.6f)",
			muErr, opt.Joint.Mu.AtVec(0), opt.Joint.Mu.AtVec(1))
	}

	var lamErrSq float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			d := opt.Joint.Lambda.At(i, j) - lamT.At(i, j)
			lamErrSq += d * d
		}
	}
	lamErr := math.Sqrt(lamErrSq)
	if lamErr > 1e-3 {
		tst.Fatalf("||Lambda - Lambda_t|| = %.6g, want < 1e-3", lamErr)
	}

	if opt.Recorder.Len() == 0 {
		tst.Fatal("expected at least one recorded snapshot")
	}
}
