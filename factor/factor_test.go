package factor

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

func Test_fixedPriorClosedForm01(tst *testing.T) {

	chk.PrintTitle("FixedPrior.Evaluate dispatches to the closed form")

	mu0 := mat.NewVecDense(2, []float64{0, 0})
	f := NewFixedPrior(0, 2, mu0, 10.0)

	mu := mat.NewVecDense(2, []float64{1, -2})
	Sigma := mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})

	p, err := Evaluate(f, mu, Sigma, DefaultDegree, 1.0)
	if err != nil {
		tst.Fatalf("Evaluate failed: %v", err)
	}
	chk.Vector(tst, "Vdmu", 1e-12, []float64{p.Vdmu.AtVec(0), p.Vdmu.AtVec(1)}, []float64{10, -20})
	chk.Scalar(tst, "Vddmu[0][0]", 1e-12, p.Vddmu.At(0, 0), 10.0)
	chk.Scalar(tst, "Vddmu[1][1]", 1e-12, p.Vddmu.At(1, 1), 10.0)
	chk.Scalar(tst, "Vddmu[0][1]", 1e-12, p.Vddmu.At(0, 1), 0.0)
}

func Test_fixedPriorExpectedCost01(tst *testing.T) {

	chk.PrintTitle("ExpectedCost matches 0.5*(tr(K0inv*Sigma) + (mu-mu0)^T K0inv (mu-mu0))")

	mu0 := mat.NewVecDense(2, []float64{1, 1})
	f := NewFixedPrior(0, 2, mu0, 4.0)

	mu := mat.NewVecDense(2, []float64{2, 0})
	Sigma := mat.NewDense(2, 2, []float64{0.25, 0, 0, 0.25})

	ec, err := ExpectedCost(f, mu, Sigma, DefaultDegree)
	if err != nil {
		tst.Fatalf("ExpectedCost failed: %v", err)
	}

	// tr(K0inv*Sigma) = 4*0.25 + 4*0.25 = 2; (mu-mu0) = (1,-1),
	// (mu-mu0)^T K0inv (mu-mu0) = 4*(1+1) = 8; total = 0.5*(2+8) = 5.
	want := 5.0
	chk.Scalar(tst, "E[cost]", 1e-4, ec, want)
}

func Test_fixedPriorIsLinearGaussian01(tst *testing.T) {
	mu0 := mat.NewVecDense(1, []float64{0})
	f := NewFixedPrior(0, 1, mu0, 1.0)
	if !f.IsLinearGaussian() {
		tst.Fatal("FixedPrior must report IsLinearGaussian() == true")
	}
}
