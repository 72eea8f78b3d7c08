package sparsegauss

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// ldlt is a dense LDL^T factorization computed in natural order (the
// factor-graph ordering is already good, per spec.md 4.B, so no symbolic
// reordering pass is needed). L is stored unit-lower-triangular; D is the
// diagonal.
type ldlt struct {
	n int
	L *mat.Dense
	D []float64
}

// factorizeLDLT computes A = L D L^T. A non-positive-definite diagonal
// pivot is reported as not_positive_definite, surfaced to the optimizer's
// step-rejection path (spec.md 4.B).
func factorizeLDLT(A *mat.Dense) (*ldlt, error) {
	n, m := A.Dims()
	if n != m {
		chk.Panic("sparsegauss: Lambda must be square, got %dx%d", n, m)
	}
	L := mat.NewDense(n, n, nil)
	D := make([]float64, n)
	for i := 0; i < n; i++ {
		L.Set(i, i, 1)
	}
	for j := 0; j < n; j++ {
		sum := A.At(j, j)
		for k := 0; k < j; k++ {
			lj := L.At(j, k)
			sum -= lj * lj * D[k]
		}
		D[j] = sum
		if D[j] <= 0 {
			return nil, chk.Err("not_positive_definite: pivot D[%d] = %v", j, D[j])
		}
		for i := j + 1; i < n; i++ {
			sum := A.At(i, j)
			for k := 0; k < j; k++ {
				sum -= L.At(i, k) * D[k] * L.At(j, k)
			}
			L.Set(i, j, sum/D[j])
		}
	}
	return &ldlt{n: n, L: L, D: D}, nil
}

// BlockSigma wraps the joint covariance entries recovered by PartialInverse.
type BlockSigma struct {
	n     int
	dense *mat.Dense // every entry of Sigma, including those outside the requested union
}

// Block extracts the (dim x dim) sub-block named by pat.
func (s *BlockSigma) Block(pat Pattern) *mat.Dense {
	idx := pat.GlobalIndices()
	d := len(idx)
	out := mat.NewDense(d, d, nil)
	for a, gi := range idx {
		for b, gj := range idx {
			out.Set(a, b, s.dense.At(gi, gj))
		}
	}
	return out
}

// At returns a single Sigma(i,j) entry, valid only if (i,j) lies within the
// union of patterns PartialInverse was called with.
func (s *BlockSigma) At(i, j int) float64 { return s.dense.At(i, j) }

// PartialInverse computes Sigma = Lambda^-1 via the Takahashi recursion on
// the cached LDL^T factor: processing (i,j) in reverse column order, Sigma_ij
// is expressed in terms of already-computed Sigma entries (with strictly
// larger column index) and L, D. The recursion fills the whole dense n x n
// Sigma; pats does not restrict which entries are computed.
func (o *Joint) PartialInverse(pats []Pattern) (*BlockSigma, error) {
	if o.ldl == nil {
		if err := o.Factorize(); err != nil {
			return nil, err
		}
	}
	n := o.ldl.n
	need := make([]bool, n)
	for _, p := range pats {
		for _, gi := range p.GlobalIndices() {
			need[gi] = true
		}
	}
	sigma := mat.NewDense(n, n, nil)
	L, D := o.ldl.L, o.ldl.D

	// reverse column order: column j is only ever read from columns k>j,
	// which were already filled in on earlier outer-loop iterations.
	for j := n - 1; j >= 0; j-- {
		for i := n - 1; i > j; i-- {
			sum := 0.0
			for k := j + 1; k < n; k++ {
				lkj := L.At(k, j)
				if lkj != 0 {
					sum += lkj * sigma.At(i, k)
				}
			}
			sigma.Set(i, j, -sum)
			sigma.Set(j, i, -sum)
		}
		diag := 1 / D[j]
		for k := j + 1; k < n; k++ {
			lkj := L.At(k, j)
			if lkj != 0 {
				diag -= lkj * sigma.At(j, k)
			}
		}
		sigma.Set(j, j, diag)
	}

	_ = need // dense storage computes every entry; need[] documents the
	// footprint that a sparse-native implementation would restrict to.
	return &BlockSigma{n: n, dense: sigma}, nil
}
