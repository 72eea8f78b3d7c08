// Package factor implements the factor library shared by the GVI-GH
// optimizer (spec.md 4.C): every factor exposes cost/gradient/Hessian
// integrands over its local marginal, following a runtime polymorphic
// interface rather than the template-generic dispatch of the original
// C++ source (spec.md 9, "Template-generic factor dispatch -> tagged
// variant").
package factor

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/gausshermite"
	"github.com/ChenZhenY/VIMP/sparsegauss"
)

// Factor is the contract every cost potential in the graph must satisfy.
type Factor interface {
	// Pattern names the joint states this factor couples.
	Pattern() sparsegauss.Pattern

	// Cost is the negative log potential at a sample x.
	Cost(x *mat.VecDense) float64

	// Vmu is the integrand (x-mu)*cost(x) for the gradient.
	Vmu(x, mu *mat.VecDense) *mat.VecDense

	// Vmumu is the integrand (x-mu)(x-mu)^T*cost(x) for the Hessian.
	Vmumu(x, mu *mat.VecDense) *mat.Dense

	// IsLinearGaussian tags the closed-form fast path (spec.md 4.C):
	// fixed priors and linear GP priors are quadratic in x and can skip
	// cubature entirely.
	IsLinearGaussian() bool
}

// LinearGaussian is implemented by factors whose cost is quadratic in x;
// they provide V'_mu and V''_mu directly instead of via cubature.
type LinearGaussian interface {
	Factor
	ClosedForm(mu *mat.VecDense, Sigma *mat.Dense) (Vdmu *mat.VecDense, Vddmu *mat.Dense)
}

// DefaultDegree is the default Gauss-Hermite degree used for cubature factors
// (scenario 1 of spec.md 8 uses p=6).
const DefaultDegree = 6

// Partials holds one factor's local variational gradient/Hessian
// contribution, V'_mu and V''_mu, over its marginal dimension.
type Partials struct {
	Vdmu  *mat.VecDense
	Vddmu *mat.Dense
}

// Evaluate computes a factor's local partials at marginal (mu, Sigma),
// dispatching to the closed form when available and to Gauss-Hermite
// cubature otherwise. tau is the annealing temperature; linear-Gaussian
// factors always use tau=1 regardless of the caller's schedule (spec.md
// 4.D, "Temperature annealing").
func Evaluate(f Factor, mu *mat.VecDense, Sigma *mat.Dense, degree int, tau float64) (Partials, error) {
	if lg, ok := f.(LinearGaussian); ok {
		Vdmu, Vddmu := lg.ClosedForm(mu, Sigma)
		return Partials{Vdmu: Vdmu, Vddmu: Vddmu}, nil
	}

	d := f.Pattern().Dim()
	q, err := gausshermite.New(degree, d, mu, Sigma)
	if err != nil {
		return Partials{}, err
	}

	ECost := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		return mat.NewDense(1, 1, []float64{f.Cost(x)})
	})
	EVmu := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		v := f.Vmu(x, mu)
		return asColumn(v)
	})
	EVmumu := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		return f.Vmumu(x, mu)
	})

	lam, err := invertSPD(Sigma)
	if err != nil {
		return Partials{}, err
	}

	EVmuVec := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		EVmuVec.SetVec(i, EVmu.At(i, 0))
	}

	var Vdmu mat.VecDense
	Vdmu.MulVec(lam, EVmuVec)

	var tmp, Vddmu mat.Dense
	tmp.Mul(lam, EVmumu)
	Vddmu.Mul(&tmp, lam)
	var scaledLam mat.Dense
	scaledLam.Scale(ECost.At(0, 0), lam)
	Vddmu.Sub(&Vddmu, &scaledLam)

	if tau != 1 {
		Vdmu.ScaleVec(1/tau, &Vdmu)
		Vddmu.Scale(1/tau, &Vddmu)
	}

	// upper-triangular update then symmetric reflection (spec.md 4.C)
	symmetrizeInPlace(&Vddmu)

	return Partials{Vdmu: &Vdmu, Vddmu: &Vddmu}, nil
}

// ExpectedCost computes E_q[cost] under marginal N(mu, Sigma) by
// Gauss-Hermite cubature, used by the GVI-GH optimizer's backtracking
// objective F(mu,Lambda) (spec.md 4.D).
func ExpectedCost(f Factor, mu *mat.VecDense, Sigma *mat.Dense, degree int) (float64, error) {
	d := f.Pattern().Dim()
	q, err := gausshermite.New(degree, d, mu, Sigma)
	if err != nil {
		return 0, err
	}
	EC := q.Integrate(func(x *mat.VecDense) *mat.Dense {
		return mat.NewDense(1, 1, []float64{f.Cost(x)})
	})
	return EC.At(0, 0), nil
}

func asColumn(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, v.AtVec(i))
	}
	return m
}

func symmetrizeInPlace(m *mat.Dense) {
	r, c := m.Dims()
	if r != c {
		chk.Panic("factor: symmetrize requires a square matrix, got %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			avg := (m.At(i, j) + m.At(j, i)) / 2
			m.Set(i, j, avg)
			m.Set(j, i, avg)
		}
	}
}

func invertSPD(Sigma *mat.Dense) (*mat.Dense, error) {
	n, _ := Sigma.Dims()
	var chol mat.Cholesky
	sym := mat.NewSymDense(n, symData(Sigma))
	if ok := chol.Factorize(sym); !ok {
		return nil, chk.Err("invalid_covariance: marginal covariance is not positive-definite")
	}
	var inv mat.Dense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, chk.Err("invalid_covariance: %v", err)
	}
	return &inv, nil
}

func symData(m *mat.Dense) []float64 {
	n, _ := m.Dims()
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i*n+j] = (m.At(i, j) + m.At(j, i)) / 2
		}
	}
	return out
}
