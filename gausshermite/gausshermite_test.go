package gausshermite

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

func Test_nodes01(tst *testing.T) {

	chk.PrintTitle("nodes sum to sqrt(pi)")

	for _, p := range []int{1, 2, 3, 5, 8} {
		_, w := nodesAndWeights(p)
		sum := 0.0
		for _, wi := range w {
			sum += wi
		}
		chk.Scalar(tst, "sum(weights)", 1e-8, sum, math.Sqrt(math.Pi))
	}
}

func Test_integrate1D(tst *testing.T) {

	chk.PrintTitle("integrate scalar Gaussian moments, d=1")

	mu := mat.NewVecDense(1, []float64{2.0})
	P := mat.NewDense(1, 1, []float64{3.0})
	q, err := New(10, 1, mu, P)
	if err != nil {
		tst.Fatalf("New failed: %v", err)
	}

	mean := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		return mat.NewDense(1, 1, []float64{x.AtVec(0)})
	})
	chk.Scalar(tst, "E[x]", 1e-6, mean.At(0, 0), 2.0)

	second := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		v := x.AtVec(0) - 2.0
		return mat.NewDense(1, 1, []float64{v * v})
	})
	chk.Scalar(tst, "E[(x-mu)^2]", 1e-6, second.At(0, 0), 3.0)
}

func Test_integrate2D(tst *testing.T) {

	chk.PrintTitle("integrate scalar Gaussian moments, d=2")

	mu := mat.NewVecDense(2, []float64{1.0, -1.0})
	P := mat.NewDense(2, 2, []float64{2.0, 0.3, 0.3, 1.0})
	q, err := New(8, 2, mu, P)
	if err != nil {
		tst.Fatalf("New failed: %v", err)
	}

	mean := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		return mat.NewDense(2, 1, []float64{x.AtVec(0), x.AtVec(1)})
	})
	chk.Scalar(tst, "E[x0]", 1e-5, mean.At(0, 0), 1.0)
	chk.Scalar(tst, "E[x1]", 1e-5, mean.At(1, 0), -1.0)
}

func Test_curseOfDimensionality(tst *testing.T) {

	chk.PrintTitle("cubature refuses when p^d exceeds the cap")

	mu := mat.NewVecDense(4, nil)
	P := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		P.Set(i, i, 1.0)
	}
	_, err := New(20, 4, mu, P)
	if err == nil {
		tst.Fatal("expected curse_of_dimensionality error, got nil")
	}
}

func Test_invalidCovariance(tst *testing.T) {

	chk.PrintTitle("non-PD covariance is rejected")

	mu := mat.NewVecDense(2, nil)
	P := mat.NewDense(2, 2, []float64{1, 2, 2, 1}) // not PD
	_, err := New(4, 2, mu, P)
	if err == nil {
		tst.Fatal("expected invalid_covariance error, got nil")
	}
}
