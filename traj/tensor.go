// Package traj implements the time-varying matrix data model shared by the
// GVI-GH and PGCS engines: a trajectory tensor is a stack of T per-timestep
// r×c matrices. Every time-varying coefficient in the system (A, B, a, Q, r,
// K, d, Sigma, z) is represented this way.
package traj

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// Tensor3 is a trajectory of T matrices of shape (R, C), stored as a single
// dense block of shape (R*C, T) with each column holding one timestep's
// matrix flattened in row-major order.
type Tensor3 struct {
	R, C, T int
	data    *mat.Dense
}

// NewTensor3 allocates a zeroed tensor of T timesteps of R×C matrices.
func NewTensor3(r, c, t int) *Tensor3 {
	return &Tensor3{R: r, C: c, T: t, data: mat.NewDense(r*c, t, nil)}
}

// Replicate builds a tensor whose every timestep is a copy of m.
func Replicate(m *mat.Dense, t int) *Tensor3 {
	r, c := m.Dims()
	o := NewTensor3(r, c, t)
	for i := 0; i < t; i++ {
		o.Compress(i, m)
	}
	return o
}

// Extract returns the r×c matrix stored at timestep i.
func (o *Tensor3) Extract(i int) *mat.Dense {
	if i < 0 || i >= o.T {
		chk.Panic("traj: timestep %d out of range [0,%d)", i, o.T)
	}
	m := mat.NewDense(o.R, o.C, nil)
	for row := 0; row < o.R; row++ {
		for col := 0; col < o.C; col++ {
			m.Set(row, col, o.data.At(row*o.C+col, i))
		}
	}
	return m
}

// Compress writes m into timestep i, overwriting whatever was there.
func (o *Tensor3) Compress(i int, m mat.Matrix) {
	if i < 0 || i >= o.T {
		chk.Panic("traj: timestep %d out of range [0,%d)", i, o.T)
	}
	r, c := m.Dims()
	if r != o.R || c != o.C {
		chk.Panic("traj: cannot compress %dx%d matrix into %dx%d tensor slot", r, c, o.R, o.C)
	}
	for row := 0; row < r; row++ {
		for col := 0; col < c; col++ {
			o.data.Set(row*o.C+col, i, m.At(row, col))
		}
	}
}

// ExtractVec returns timestep i as a flat vector; valid only when C == 1.
func (o *Tensor3) ExtractVec(i int) *mat.VecDense {
	if o.C != 1 {
		chk.Panic("traj: ExtractVec requires C==1, got C=%d", o.C)
	}
	v := mat.NewVecDense(o.R, nil)
	for row := 0; row < o.R; row++ {
		v.SetVec(row, o.data.At(row, i))
	}
	return v
}

// CompressVec writes a flat vector into timestep i; valid only when C == 1.
func (o *Tensor3) CompressVec(i int, v mat.Vector) {
	if o.C != 1 {
		chk.Panic("traj: CompressVec requires C==1, got C=%d", o.C)
	}
	n := v.Len()
	if n != o.R {
		chk.Panic("traj: cannot compress length-%d vector into %d-row tensor slot", n, o.R)
	}
	for row := 0; row < n; row++ {
		o.data.Set(row, i, v.AtVec(row))
	}
}

// Linspace builds a (r,1,t) tensor linearly interpolating between the column
// vectors z0 and zT over t timesteps (used to seed the PGCS nominal mean).
func Linspace(z0, zT *mat.VecDense, t int) *Tensor3 {
	n := z0.Len()
	o := NewTensor3(n, 1, t)
	for i := 0; i < t; i++ {
		lam := float64(i) / float64(t-1)
		v := mat.NewVecDense(n, nil)
		for k := 0; k < n; k++ {
			v.SetVec(k, (1-lam)*z0.AtVec(k)+lam*zT.AtVec(k))
		}
		o.CompressVec(i, v)
	}
	return o
}
