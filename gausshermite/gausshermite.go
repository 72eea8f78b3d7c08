// Package gausshermite implements deterministic Gauss-Hermite cubature: the
// expectation of a user-supplied matrix-valued function under a Gaussian
// N(mu, P). Nodes and weights are cached and only recomputed when the
// degree p changes; the Cholesky factor of P is only recomputed when P
// changes (spec.md 4.A).
package gausshermite

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// MaxPowD bounds p^d: cubature refused above this to avoid the curse of
// dimensionality (callers must split the problem into factored marginals).
const MaxPowD = 100000

// Integrand is a user-supplied function of a sample point, returning a
// fixed-shape matrix (a scalar is a 1x1 matrix, a gradient an n x 1
// matrix, a Hessian an n x n matrix).
type Integrand func(x *mat.VecDense) *mat.Dense

// Quadrature computes E[f(X)] for X ~ N(mu, P) by tensor-product
// Gauss-Hermite cubature of degree p in dimension d.
type Quadrature struct {
	p, d int
	mu   *mat.VecDense
	P    *mat.Dense

	nodes   []float64 // 1-D nodes, length p
	weights []float64 // 1-D weights, length p
	degreeOf int      // degree nodes/weights were computed for (0 == none yet)

	L *mat.Cholesky // cached Cholesky factor of P
}

// New builds a quadrature rule of degree p over a d-dimensional Gaussian.
func New(p, d int, mu *mat.VecDense, P *mat.Dense) (*Quadrature, error) {
	o := &Quadrature{p: p, d: d}
	if err := o.SetMeanCov(mu, P); err != nil {
		return nil, err
	}
	if err := o.setDegree(p); err != nil {
		return nil, err
	}
	return o, nil
}

// SetDegree updates p, recomputing nodes/weights if it actually changed.
func (o *Quadrature) SetDegree(p int) error { return o.setDegree(p) }

func (o *Quadrature) setDegree(p int) error {
	if p == o.degreeOf && o.nodes != nil {
		return nil
	}
	pow := 1
	for i := 0; i < o.d; i++ {
		pow *= p
		if pow > MaxPowD {
			return chk.Err("curse_of_dimensionality: p^d = %d exceeds cap %d", pow, MaxPowD)
		}
	}
	o.p = p
	o.nodes, o.weights = nodesAndWeights(p)
	o.degreeOf = p
	return nil
}

// SetMeanCov updates mean and covariance, reshaping the cached Cholesky
// factor whenever P changes.
func (o *Quadrature) SetMeanCov(mu *mat.VecDense, P *mat.Dense) error {
	o.mu = mu
	o.P = P
	var chol mat.Cholesky
	n, _ := P.Dims()
	sym := mat.NewSymDense(n, symmetrize(P).RawMatrix().Data)
	ok := chol.Factorize(sym)
	if !ok {
		return chk.Err("invalid_covariance: covariance is not positive-definite")
	}
	o.L = &chol
	return nil
}

// nodesAndWeights returns the p one-dimensional Gauss-Hermite nodes (the
// eigenvalues of the symmetric tridiagonal matrix with off-diagonals sqrt(i)
// for i=1..p-1) and weights w_i = p! / (p^2 H_{p-1}(x_i)^2). These are the
// nodes and weights of a standard normal N(0, 1): the weights sum to one.
func nodesAndWeights(p int) (nodes, weights []float64) {
	if p == 1 {
		return []float64{0}, []float64{1}
	}
	jacobi := mat.NewSymDense(p, nil)
	for i := 0; i < p-1; i++ {
		off := math.Sqrt(float64(i + 1))
		jacobi.SetSym(i, i+1, off)
	}
	var eig mat.EigenSym
	ok := eig.Factorize(jacobi, false)
	if !ok {
		chk.Panic("gausshermite: tridiagonal eigendecomposition failed for p=%d", p)
	}
	nodes = eig.Values(nil)

	weights = make([]float64, p)
	factP := factorial(p)
	for i, x := range nodes {
		h := hermite(p-1, x)
		weights[i] = factP / (float64(p) * float64(p) * h * h)
	}
	return nodes, weights
}

// hermite evaluates the probabilists' Hermite polynomial of degree deg at x
// via the three-term recurrence H_{k+1} = x H_k - k H_{k-1}, H0=1, H1=x.
func hermite(deg int, x float64) float64 {
	if deg == 0 {
		return 1
	}
	if deg == 1 {
		return x
	}
	h0, h1 := 1.0, x
	for k := 1; k < deg; k++ {
		h2 := x*h1 - float64(k)*h0
		h0, h1 = h1, h2
	}
	return h1
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

func symmetrize(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Add(m, m.T())
	out.Scale(0.5, out)
	return out
}

// Integrate approximates E[f(X)] for X ~ N(mu, P) under the cached degree
// and covariance. d=1 uses univariate quadrature directly; for d>=2 the
// tensor-product nodes are visited in lexicographic order so floating-point
// summation order is reproducible across runs, per spec.md 5.
func (o *Quadrature) Integrate(f Integrand) *mat.Dense {
	var Lmat mat.TriDense
	o.L.LTo(&Lmat)

	// probe shape with the mean itself
	probe := f(o.mu)
	rows, cols := probe.Dims()
	res := mat.NewDense(rows, cols, nil)

	idx := make([]int, o.d)
	for {
		xi := mat.NewVecDense(o.d, nil)
		w := 1.0
		for k := 0; k < o.d; k++ {
			xi.SetVec(k, o.nodes[idx[k]])
			w *= o.weights[idx[k]]
		}
		var Lxi mat.VecDense
		Lxi.MulVec(&Lmat, xi)
		Lxi.AddVec(&Lxi, o.mu)

		val := f(&Lxi)
		var scaled mat.Dense
		scaled.Scale(w, val)
		res.Add(res, &scaled)

		if !increment(idx, o.p) {
			break
		}
	}
	return res
}

// increment advances a lexicographic odometer of o.d digits base p in place;
// returns false once it has wrapped past the last combination.
func increment(idx []int, p int) bool {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < p {
			return true
		}
		idx[k] = 0
	}
	return false
}
