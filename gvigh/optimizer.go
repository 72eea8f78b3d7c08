// Package gvigh implements the proximal natural-gradient optimizer over a
// joint Gaussian (GVI-GH, spec.md 4.D): it aggregates per-factor gradients
// and Hessians computed by Gauss-Hermite cubature (or closed form) in each
// factor's marginal, then takes a globally damped natural-gradient step
// with backtracking line search.
package gvigh

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/factor"
	"github.com/ChenZhenY/VIMP/record"
	"github.com/ChenZhenY/VIMP/sparsegauss"
	"github.com/ChenZhenY/VIMP/vimperr"
)

// Options configures one optimizer run, matching the annealing/backtracking
// knobs of spec.md 6's Configuration table.
type Options struct {
	Degree            int     // Gauss-Hermite degree, e.g. 6
	StepSize          float64 // gamma, base of the backtracking geometric sequence
	Temperature       float64
	HighTemperature   float64
	LowTempIterations int
	StopErr           float64
	MaxIter           int
	MaxBacktrack      int
	Verbose           bool
}

// Optimizer holds the joint (mu, Lambda), the registered factors, and the
// per-iteration recorder.
type Optimizer struct {
	Joint    *sparsegauss.Joint
	Factors  []factor.Factor
	Opts     Options
	Recorder *record.Recorder

	iter int
}

// New builds an optimizer over a freshly constructed joint.
func New(joint *sparsegauss.Joint, factors []factor.Factor, opts Options) *Optimizer {
	return &Optimizer{
		Joint:    joint,
		Factors:  factors,
		Opts:     opts,
		Recorder: record.NewRecorder(opts.MaxIter + 1),
	}
}

// Iterations returns the number of iterations actually run by the last Run
// call.
func (o *Optimizer) Iterations() int { return o.iter }

// temperatureFor returns the annealing temperature for a given 0-based
// iteration index (spec.md 4.D, "Temperature annealing").
func (o *Optimizer) temperatureFor(it int) float64 {
	if it < o.Opts.LowTempIterations {
		return o.Opts.HighTemperature
	}
	return o.Opts.Temperature
}

// Run executes iterations until the configured cap, the free-energy
// stopping tolerance, or convergence_stalled (spec.md 4.D, "Stopping").
func (o *Optimizer) Run() error {
	prevF, err := o.totalCost(o.Joint.Mu, o.Joint.Lambda, o.temperatureFor(0))
	if err != nil {
		return err
	}
	for it := 0; it < o.Opts.MaxIter; it++ {
		newF, err := o.Step(it)
		if err != nil {
			if e, ok := err.(*vimperr.Error); ok && e.Kind == vimperr.ConvergenceStalled {
				if o.Opts.Verbose {
					io.Pfyel("gvigh: convergence_stalled at iter %d, committing last proposal\n", it)
				}
				return nil
			}
			return err
		}
		if math.Abs(prevF-newF) < o.Opts.StopErr {
			if o.Opts.Verbose {
				io.Pfgreen("gvigh: converged at iter %d (|dF|=%.3g)\n", it, math.Abs(prevF-newF))
			}
			return nil
		}
		prevF = newF
	}
	return nil
}

// Step performs one GVI-GH iteration (spec.md 4.D, items 1-5) and returns
// the accepted total free energy.
func (o *Optimizer) Step(it int) (float64, error) {
	tau := o.temperatureFor(it)

	// 1. refresh marginals via the partial inverse.
	patterns := make([]sparsegauss.Pattern, len(o.Factors))
	for i, f := range o.Factors {
		patterns[i] = f.Pattern()
	}
	sigma, err := o.Joint.PartialInverse(patterns)
	if err != nil {
		return 0, err
	}

	n := o.Joint.N
	Vmu := mat.NewVecDense(n, nil)
	Vmumu := mat.NewDense(n, n, nil)
	factorCosts := make([]float64, len(o.Factors))

	// 2. accumulate gradients (summed in factor-registration order, per
	// spec.md 5, for reproducibility).
	for i, f := range o.Factors {
		pat := f.Pattern()
		muK := extractMu(o.Joint.Mu, pat)
		sigK := sigma.Block(pat)

		tauK := tau
		if f.IsLinearGaussian() {
			tauK = 1 // linear-Gaussian factors always use tau=1 (spec.md 4.D)
		}

		part, err := factor.Evaluate(f, muK, sigK, o.Opts.Degree, tauK)
		if err != nil {
			return 0, err
		}
		ec, err := factor.ExpectedCost(f, muK, sigK, o.Opts.Degree)
		if err != nil {
			return 0, err
		}
		factorCosts[i] = ec / tauK

		scatterAddVec(Vmu, pat, part.Vdmu)
		sparsegauss.ScatterAdd(Vmumu, pat, part.Vddmu)
	}

	// 3. search direction: dMu solves Vmumu*dMu = -Vmu (sparse CG would be
	// used for a true sparse Vmumu; here solveSPD's dense Cholesky solve,
	// with an LU fallback, serves as the direct solve fallback the spec
	// names for CG non-convergence).
	dLambda := mat.NewDense(n, n, nil)
	dLambda.Sub(Vmumu, o.Joint.Lambda)

	negVmu := mat.NewVecDense(n, nil)
	negVmu.ScaleVec(-1, Vmu)
	dMu, err := solveSPD(Vmumu, negVmu)
	if err != nil {
		return 0, err
	}

	// 4. backtracking line search.
	gamma := o.Opts.StepSize
	baseF, err := o.totalCost(o.Joint.Mu, o.Joint.Lambda, tau)
	if err != nil {
		return 0, err
	}

	var acceptedMu *mat.VecDense
	var acceptedLambda *mat.Dense
	var acceptedF float64
	accepted := false

	for b := 1; b <= o.Opts.MaxBacktrack; b++ {
		alpha := math.Pow(gamma, float64(b))

		muProp := mat.NewVecDense(n, nil)
		muProp.AddScaledVec(o.Joint.Mu, alpha, dMu)

		lamProp := mat.NewDense(n, n, nil)
		lamProp.Scale(alpha, dLambda)
		lamProp.Add(lamProp, o.Joint.Lambda)

		candidateF, err := o.totalCost(muProp, lamProp, tau)
		if err != nil {
			continue // non-PD proposal: reject and keep backtracking
		}
		if candidateF < baseF-1e-12 {
			acceptedMu, acceptedLambda, acceptedF = muProp, lamProp, candidateF
			accepted = true
			break
		}
		acceptedMu, acceptedLambda, acceptedF = muProp, lamProp, candidateF
	}

	if !accepted {
		if o.Opts.Verbose {
			io.Pfyel("gvigh: max_backtrack exceeded at iter %d, committing last proposal\n", it)
		}
	}

	// 5. commit.
	o.Joint.Mu = acceptedMu
	o.Joint.Lambda = acceptedLambda
	o.Joint.Symmetrize()
	if err := o.Joint.Factorize(); err != nil {
		return 0, err
	}

	o.Recorder.Add(record.Snapshot{
		Iter:        it,
		Mu:          o.Joint.Mu,
		Sigma:       sigma.Block(sparsegauss.Pattern{States: allStates(o.Joint.N), StateDim: 1}),
		Lambda:      o.Joint.Lambda,
		TotalCost:   acceptedF,
		FactorCosts: factorCosts,
	})
	o.iter = it + 1

	if !accepted {
		return acceptedF, vimperr.New(vimperr.ConvergenceStalled, "iter %d: max_backtrack exceeded", it).WithIterate(acceptedMu)
	}
	return acceptedF, nil
}

// totalCost evaluates F(mu,Lambda) = sum_k E_q[phi_k]/tau + 0.5 log det(Lambda).
func (o *Optimizer) totalCost(mu *mat.VecDense, lambda *mat.Dense, tau float64) (float64, error) {
	joint := &sparsegauss.Joint{N: lambda.RawMatrix().Rows, Mu: mu, Lambda: lambda}
	if err := joint.Factorize(); err != nil {
		return 0, err
	}
	if !joint.IsPD() {
		return 0, chk.Err("not_positive_definite: proposed Lambda is not PD")
	}
	logDet, err := joint.LogDet()
	if err != nil {
		return 0, err
	}

	patterns := make([]sparsegauss.Pattern, len(o.Factors))
	for i, f := range o.Factors {
		patterns[i] = f.Pattern()
	}
	sigma, err := joint.PartialInverse(patterns)
	if err != nil {
		return 0, err
	}

	total := 0.5 * logDet
	for _, f := range o.Factors {
		pat := f.Pattern()
		muK := extractMu(mu, pat)
		sigK := sigma.Block(pat)
		tauK := tau
		if f.IsLinearGaussian() {
			tauK = 1
		}
		ec, err := factor.ExpectedCost(f, muK, sigK, o.Opts.Degree)
		if err != nil {
			return 0, err
		}
		total += ec / tauK
	}
	return total, nil
}

func extractMu(mu *mat.VecDense, pat sparsegauss.Pattern) *mat.VecDense {
	idx := pat.GlobalIndices()
	out := mat.NewVecDense(len(idx), nil)
	for a, gi := range idx {
		out.SetVec(a, mu.AtVec(gi))
	}
	return out
}

func scatterAddVec(dst *mat.VecDense, pat sparsegauss.Pattern, v *mat.VecDense) {
	idx := pat.GlobalIndices()
	for a, gi := range idx {
		dst.SetVec(gi, dst.AtVec(gi)+v.AtVec(a))
	}
}

func allStates(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// solveSPD solves A x = b for SPD A via Cholesky, falling back to a direct
// LU solve if the Cholesky factorization or solve fails (spec.md
// 4.D: "CG does not converge: fall back to sparse LDLT direct solve").
func solveSPD(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	n, _ := A.Dims()
	var chol mat.Cholesky
	sym := mat.NewSymDense(n, symmetricData(A))
	x := mat.NewVecDense(n, nil)
	if chol.Factorize(sym) {
		if err := chol.SolveVecTo(x, b); err == nil {
			return x, nil
		}
	}
	var lu mat.LU
	lu.Factorize(A)
	if err := lu.SolveVecTo(x, false, b); err != nil {
		return nil, chk.Err("not_positive_definite: search-direction solve failed: %v", err)
	}
	return x, nil
}

func symmetricData(A *mat.Dense) []float64 {
	n, _ := A.Dims()
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i*n+j] = (A.At(i, j) + A.At(j, i)) / 2
		}
	}
	return out
}
