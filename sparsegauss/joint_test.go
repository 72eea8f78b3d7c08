package sparsegauss

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

func Test_newJoint01(tst *testing.T) {

	chk.PrintTitle("NewJoint seeds an isotropic diagonal precision")

	seed := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	j := NewJoint(seed, 2.5)
	if j.N != 4 {
		tst.Fatalf("N = %d, want 4", j.N)
	}
	for i := 0; i < 4; i++ {
		chk.Scalar(tst, "mu_i", 1e-15, j.Mu.AtVec(i), float64(i+1))
		for k := 0; k < 4; k++ {
			want := 0.0
			if i == k {
				want = 2.5
			}
			chk.Scalar(tst, "lambda_ik", 1e-15, j.Lambda.At(i, k), want)
		}
	}
}

func Test_scatterAddIdempotent01(tst *testing.T) {

	chk.PrintTitle("ScatterAdd of the zero matrix is a no-op")

	seed := mat.NewVecDense(4, []float64{0, 0, 0, 0})
	j := NewJoint(seed, 1.0)
	before := mat.DenseCopyOf(j.Lambda)

	pat := BinaryPattern(0, 2)
	zero := mat.NewDense(pat.Dim(), pat.Dim(), nil)
	ScatterAdd(j.Lambda, pat, zero)

	chk.Matrix(tst, "lambda unchanged", 1e-15, extractSlice(j.Lambda), extractSlice(before))
}

func Test_scatterAddSymmetric01(tst *testing.T) {

	chk.PrintTitle("ScatterAdd preserves symmetry for a symmetric block")

	n := 6
	seed := mat.NewVecDense(n, nil)
	j := NewJoint(seed, 1.0)

	pat := BinaryPattern(0, 2)
	M := mat.NewDense(4, 4, []float64{
		2, 1, 0, 0,
		1, 2, 1, 0,
		0, 1, 2, 1,
		0, 0, 1, 2,
	})
	ScatterAdd(j.Lambda, pat, M)

	res := j.SymmetryResidual()
	chk.Scalar(tst, "symmetry residual", 1e-12, res, 0.0)
}

func Test_partialInverseRoundTrip01(tst *testing.T) {

	chk.PrintTitle("PartialInverse matches a direct dense inverse")

	n := 4
	seed := mat.NewVecDense(n, nil)
	j := NewJoint(seed, 1.0)
	// perturb off the pure-diagonal case so the recursion is exercised.
	pat := BinaryPattern(0, 2)
	M := mat.NewDense(4, 4, []float64{
		1, 0.2, 0, 0,
		0.2, 1, 0.1, 0,
		0, 0.1, 1, 0.2,
		0, 0, 0.2, 1,
	})
	ScatterAdd(j.Lambda, pat, M)

	if err := j.Factorize(); err != nil {
		tst.Fatalf("Factorize failed: %v", err)
	}

	var direct mat.Dense
	if err := direct.Inverse(j.Lambda); err != nil {
		tst.Fatalf("direct inverse failed: %v", err)
	}

	allPats := []Pattern{
		UnaryPattern(0, 2), UnaryPattern(1, 2),
		BinaryPattern(0, 2),
	}
	sigma, err := j.PartialInverse(allPats)
	if err != nil {
		tst.Fatalf("PartialInverse failed: %v", err)
	}

	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			chk.Scalar(tst, "sigma entry", 1e-8, sigma.At(i, k), direct.At(i, k))
		}
	}
}

func Test_logDetMatchesDirect01(tst *testing.T) {

	chk.PrintTitle("LogDet matches log(det) computed directly")

	n := 3
	seed := mat.NewVecDense(n, nil)
	j := NewJoint(seed, 2.0)
	if err := j.Factorize(); err != nil {
		tst.Fatalf("Factorize failed: %v", err)
	}
	logdet, err := j.LogDet()
	if err != nil {
		tst.Fatalf("LogDet failed: %v", err)
	}
	want := 3 * 0.6931471805599453 // log(2) per diagonal entry
	chk.Scalar(tst, "logdet", 1e-10, logdet, want)
	if !j.IsPD() {
		tst.Fatal("expected IsPD() == true for a positive diagonal")
	}
}

func Test_notPositiveDefinite01(tst *testing.T) {

	chk.PrintTitle("factorization rejects a non-PD matrix")

	seed := mat.NewVecDense(2, nil)
	j := NewJoint(seed, 1.0)
	j.Lambda.Set(0, 0, -1) // break positive-definiteness directly
	if err := j.Factorize(); err == nil {
		tst.Fatal("expected not_positive_definite error, got nil")
	}
	if j.IsPD() {
		tst.Fatal("expected IsPD() == false")
	}
}

func extractSlice(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for k := 0; k < c; k++ {
			out[i][k] = m.At(i, k)
		}
	}
	return out
}
