package covsteer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func setBlockCS(dst *mat.Dense, r0, c0 int, src mat.Matrix) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(r0+i, c0+j, src.At(i, j))
		}
	}
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func matTranspose(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(c, r, nil)
	out.CloneFrom(m.T())
	return out
}

func matMul(a, b *mat.Dense) *mat.Dense {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out
}

func symmetrize(m *mat.Dense) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, avg)
			m.Set(j, i, avg)
		}
	}
}

// invert solves A X = I via LU, used for the (generally non-symmetric)
// Phi12 block inverse in the boundary-matching step.
func invert(A *mat.Dense) (*mat.Dense, error) {
	var lu mat.LU
	lu.Factorize(A)
	var inv mat.Dense
	if err := lu.InverseTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// eigSPD returns the symmetric eigendecomposition of A, symmetrizing first
// to absorb floating-point asymmetry from upstream products.
func eigSPD(A *mat.Dense) (values []float64, vectors *mat.Dense, err error) {
	n, _ := A.Dims()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = (A.At(i, j) + A.At(j, i)) / 2
		}
	}
	sym := mat.NewSymDense(n, data)
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, nil, errEigenFailed
	}
	values = eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return values, &vecs, nil
}

var errEigenFailed = &eigError{"eigendecomposition did not converge"}

type eigError struct{ msg string }

func (e *eigError) Error() string { return e.msg }

// sqrtmSPD computes the principal matrix square root of an SPD matrix via
// its eigendecomposition, V diag(sqrt(lambda)) V^T, the closed-form
// boundary-matching step needs (spec.md 4.E).
func sqrtmSPD(A *mat.Dense) (*mat.Dense, error) {
	vals, vecs, err := eigSPD(A)
	if err != nil {
		return nil, err
	}
	n := len(vals)
	diag := mat.NewDense(n, n, nil)
	for i, v := range vals {
		if v < 0 {
			if v > -1e-9 {
				v = 0
			} else {
				return nil, errEigenFailed
			}
		}
		diag.Set(i, i, math.Sqrt(v))
	}
	var tmp, out mat.Dense
	tmp.Mul(vecs, diag)
	out.Mul(&tmp, vecs.T())
	return &out, nil
}

// invSqrtmSPD computes A^{-1/2} for SPD A the same way, via reciprocal
// eigenvalues.
func invSqrtmSPD(A *mat.Dense) (*mat.Dense, error) {
	vals, vecs, err := eigSPD(A)
	if err != nil {
		return nil, err
	}
	n := len(vals)
	diag := mat.NewDense(n, n, nil)
	for i, v := range vals {
		if v <= 0 {
			return nil, errEigenFailed
		}
		diag.Set(i, i, 1/math.Sqrt(v))
	}
	var tmp, out mat.Dense
	tmp.Mul(vecs, diag)
	out.Mul(&tmp, vecs.T())
	return &out, nil
}
