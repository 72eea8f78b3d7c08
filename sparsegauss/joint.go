// Package sparsegauss implements the block-structured sparse joint Gaussian
// shared by every factor in the motion-planning factor graph (spec.md 4.B):
// a joint precision Lambda whose nonzero pattern is the union of each
// factor's block footprint, plus the two primitives that couple per-factor
// marginals to it -- ExtractBlock and ScatterAdd -- and the partial-inverse
// routine (a Takahashi recursion over a dense working matrix) used to recover
// those marginals.
//
// Assembly follows the same idiom gofem uses to build its global Jacobian:
// each element (here, factor) Puts its local contribution into a
// la.Triplet accumulator which is then collapsed into the working matrix.
package sparsegauss

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// Joint is the joint Gaussian (mu, Lambda) over a trajectory of T states of
// dimension d, n = d*T.
type Joint struct {
	N      int
	Mu     *mat.VecDense
	Lambda *mat.Dense

	ldl *ldlt // cached factorization; invalidated whenever Lambda mutates
}

// NewJoint builds the joint at construction time from a seed mean (typically
// linear interpolation of start and goal) and an isotropic precision scaled
// by initPrecisionFactor, per spec.md 3 ("Lifecycle"). Assembly goes through
// an la.Triplet exactly the way gofem accumulates element contributions into
// Kb before collapsing it into a usable matrix: each diagonal entry is
// scattered in as its own 1x1 "block" via ScatterAddTriplet, then the
// Triplet is collapsed with ToDense.
func NewJoint(seed *mat.VecDense, initPrecisionFactor float64) *Joint {
	n := seed.Len()
	Kb := new(la.Triplet)
	Kb.Init(n, n, n)
	unit := mat.NewDense(1, 1, []float64{initPrecisionFactor})
	for i := 0; i < n; i++ {
		ScatterAddTriplet(Kb, UnaryPattern(i, 1), unit)
	}
	o := &Joint{N: n, Mu: mat.VecDenseCopyOf(seed), Lambda: tripletToDense(Kb, n)}
	return o
}

// tripletToDense collapses a freshly assembled la.Triplet into a gonum dense
// matrix, mirroring gofem's Kb.ToMatrix(nil).ToDense()/Kb.ToDense() idiom.
func tripletToDense(Kb *la.Triplet, n int) *mat.Dense {
	gm := Kb.ToDense()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, gm.Get(i, j))
		}
	}
	return out
}

// ExtractBlock reads the (dim x dim) block of the joint covariance Sigma =
// Lambda^-1 corresponding to a factor's global indices, by calling
// PartialInverse (which computes the full dense Sigma) and slicing out the
// requested pattern.
func (o *Joint) ExtractBlock(pat Pattern) (*mat.Dense, error) {
	sigma, err := o.PartialInverse([]Pattern{pat})
	if err != nil {
		return nil, err
	}
	return sigma.Block(pat), nil
}

// ScatterAdd adds a local block M (shape pat.Dim() x pat.Dim()) into dst at
// the rows/cols named by pat, preserving symmetry. Adding the zero matrix
// is a no-op (scatter_add idempotency, spec.md 8 invariant 4).
func ScatterAdd(dst *mat.Dense, pat Pattern, M *mat.Dense) {
	idx := pat.GlobalIndices()
	for a, gi := range idx {
		for b, gj := range idx {
			dst.Set(gi, gj, dst.At(gi, gj)+M.At(a, b))
		}
	}
}

// ScatterAddTriplet is the assembly-time counterpart of ScatterAdd: it Puts
// a local block into a *la.Triplet accumulator instead of adding directly
// into a dense matrix, the way gofem's ele.Element.AddToKb Puts element
// contributions into Kb before NewJoint collapses it with tripletToDense.
func ScatterAddTriplet(Kb *la.Triplet, pat Pattern, M *mat.Dense) {
	idx := pat.GlobalIndices()
	for a, gi := range idx {
		for b, gj := range idx {
			Kb.Put(gi, gj, M.At(a, b))
		}
	}
}

// Symmetrize enforces Lambda == Lambda^T via upper-triangular update then
// reflection, per spec.md 4.C ("Upper-triangular update then symmetric
// reflection enforces symmetry").
func (o *Joint) Symmetrize() {
	n := o.N
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := (o.Lambda.At(i, j) + o.Lambda.At(j, i)) / 2
			o.Lambda.Set(i, j, avg)
			o.Lambda.Set(j, i, avg)
		}
	}
	o.ldl = nil
}

// SymmetryResidual returns ||Lambda - Lambda^T|| (Frobenius), used to check
// spec.md 8 invariant 1 after every accepted step.
func (o *Joint) SymmetryResidual() float64 {
	n := o.N
	var sumSq float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := o.Lambda.At(i, j) - o.Lambda.At(j, i)
			sumSq += d * d
		}
	}
	return math.Sqrt(sumSq)
}

// Factorize runs the dense LDL^T decomposition used by PartialInverse and
// LogDet, caching the result until the next mutation.
func (o *Joint) Factorize() error {
	fac, err := factorizeLDLT(o.Lambda)
	if err != nil {
		return err
	}
	o.ldl = fac
	return nil
}

// LogDet returns log(det(Lambda)) = sum(log(D_ii)), read from the cached
// LDL^T factor (spec.md 4.B: "Determinant ... is read from diag(D)").
func (o *Joint) LogDet() (float64, error) {
	if o.ldl == nil {
		if err := o.Factorize(); err != nil {
			return 0, err
		}
	}
	sum := 0.0
	for _, d := range o.ldl.D {
		if d <= 0 {
			return 0, chk.Err("not_positive_definite: D has a nonpositive diagonal entry %v", d)
		}
		sum += math.Log(d)
	}
	return sum, nil
}

// IsPD reports whether the cached (or freshly computed) LDL^T factorization
// has an entirely positive diagonal D.
func (o *Joint) IsPD() bool {
	if o.ldl == nil {
		if err := o.Factorize(); err != nil {
			return false
		}
	}
	for _, d := range o.ldl.D {
		if d <= 0 {
			return false
		}
	}
	return true
}
