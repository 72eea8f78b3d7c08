package planarenv

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/factor"
	"github.com/ChenZhenY/VIMP/traj"
)

// ArmSphere places one collision-checked body sphere at a fractional
// distance along a link, the Go-native stand-in for gpmp2's per-link
// BodySphere local offsets (original_source/vimp/robots/PlanarArmSDFExample.h
// places several spheres per link at fixed local coordinates; here Frac=0
// is the link's proximal joint and Frac=1 its distal joint).
type ArmSphere struct {
	Link int // index into LinkLengths this sphere rides on
	Frac float64
}

// PlanarArm is a serial planar manipulator with zero-offset, zero-twist DH
// parameters (a_k = LinkLengths[k], alpha_k = 0, d_k = 0), the same
// simplified 2-link configuration original_source/vimp/robots/
// PlanarArmSDFExample.h builds via gpmp2's ArmModel: state is
// [theta_1..theta_n, omega_1..omega_n], so joint dynamics are decoupled
// double integrators exactly like PointRobot, and the only nonlinear
// ingredient PGCS needs is the obstacle gradient, now pulled back through
// the manipulator Jacobian instead of the identity.
type PlanarArm struct {
	BaseX, BaseY float64
	LinkLengths  []float64
	Spheres      []ArmSphere

	Field  SDF
	EpsSDF float64
	SigObs float64
	B      *mat.Dense // constant control matrix, (nx, nu)
}

// NDof is the number of joints, n = len(LinkLengths).
func (a *PlanarArm) NDof() int { return len(a.LinkLengths) }

// jointPositions returns the base plus every joint's 2-D position (n+1
// points) given the n joint angles theta, by chaining the DH transforms
// (each a pure rotation by the cumulative angle followed by a translation
// along the rotated x-axis, since alpha=d=0 collapses the chain to planar
// rotations).
func (a *PlanarArm) jointPositions(theta []float64) [][2]float64 {
	n := a.NDof()
	pos := make([][2]float64, n+1)
	pos[0] = [2]float64{a.BaseX, a.BaseY}
	cum := 0.0
	for k := 0; k < n; k++ {
		cum += theta[k]
		pos[k+1] = [2]float64{
			pos[k][0] + a.LinkLengths[k]*math.Cos(cum),
			pos[k][1] + a.LinkLengths[k]*math.Sin(cum),
		}
	}
	return pos
}

// spherePosition returns the world position of sphere s and its Jacobian
// row pair d(pos)/d(theta_j) for every joint j, given the per-joint
// cumulative angles implied by theta. The Jacobian follows the standard
// planar-manipulator identity: moving joint j sweeps every point beyond it
// around joint j, so d(pos)/d(theta_j) is the vector from joint j's
// position to pos, rotated by +90 degrees.
func (a *PlanarArm) spherePosition(theta []float64, s ArmSphere) (pos [2]float64, jac [][2]float64) {
	n := a.NDof()
	joints := a.jointPositions(theta)
	cum := 0.0
	cumAt := make([]float64, n)
	for k := 0; k < n; k++ {
		cum += theta[k]
		cumAt[k] = cum
	}
	link := s.Link
	pos = [2]float64{
		joints[link][0] + s.Frac*a.LinkLengths[link]*math.Cos(cumAt[link]),
		joints[link][1] + s.Frac*a.LinkLengths[link]*math.Sin(cumAt[link]),
	}
	jac = make([][2]float64, n)
	for j := 0; j < n; j++ {
		if j > link {
			jac[j] = [2]float64{0, 0}
			continue
		}
		dx := pos[0] - joints[j][0]
		dy := pos[1] - joints[j][1]
		// rotate (dx,dy) by +90deg: (-dy, dx), the instantaneous velocity
		// of a point rigidly attached to the chain at joint j's angular rate.
		jac[j] = [2]float64{-dy, dx}
	}
	return pos, jac
}

// SphereConf returns the func(mu)->[]float64 adapter factor.Obstacle needs
// for one body sphere, extracting joint angles from the state and running
// forward kinematics.
func (a *PlanarArm) SphereConf(s ArmSphere) func(x *mat.VecDense) []float64 {
	n := a.NDof()
	return func(x *mat.VecDense) []float64 {
		theta := make([]float64, n)
		for k := 0; k < n; k++ {
			theta[k] = x.AtVec(k)
		}
		pos, _ := a.spherePosition(theta, s)
		return []float64{pos[0], pos[1]}
	}
}

// NewArmObstacleFactors builds the standard planar motion-planning factor
// graph for an arm: the boundary/GP priors come from factor.BuildPlanarGraph
// (Field left nil there, since a point-robot-shaped single obstacle factor
// per state cannot represent several body spheres), with one factor.Obstacle
// appended per (state, body sphere) pair -- mirroring the body_spheres loop
// in original_source/vimp/robots/PlanarArmSDFExample.h, which checks every
// sphere against the same signed-distance field.
func (a *PlanarArm) NewArmObstacleFactors(p factor.PlanarGraphParams) []factor.Factor {
	p.Field = nil
	factors := factor.BuildPlanarGraph(p)
	for i := 0; i < p.NumStates; i++ {
		for _, s := range a.Spheres {
			factors = append(factors, &factor.Obstacle{
				State:    i,
				StateDim: p.StateDim,
				Field:    a.Field,
				EpsSDF:   a.EpsSDF,
				SigObs:   a.SigObs,
				ToConf:   a.SphereConf(s),
			})
		}
	}
	return factors
}

// Linearize implements pgcs.Dynamics for the arm: Akt/Bt pass through
// unchanged since the per-joint theta/omega dynamics are exact double
// integrators (same as PointRobot.Linearize), and nTrt sums each body
// sphere's hinge-loss gradient pulled back through its manipulator
// Jacobian, zero-padded over the velocity rows (spec.md 4.F).
func (a *PlanarArm) Linearize(zkt *traj.Tensor3, sig float64, Akt, Sigkt *traj.Tensor3) (hAkt, Bt, hakt, nTrt *traj.Tensor3, err error) {
	nx, nt := zkt.R, zkt.T
	n := a.NDof()
	hAkt = traj.NewTensor3(nx, nx, nt)
	hakt = traj.NewTensor3(nx, 1, nt)
	nTrt = traj.NewTensor3(nx, 1, nt)

	for i := 0; i < nt; i++ {
		hAkt.Compress(i, Akt.Extract(i))
		hakt.CompressVec(i, mat.NewVecDense(nx, nil))

		z := zkt.ExtractVec(i)
		theta := make([]float64, n)
		for k := 0; k < n; k++ {
			theta[k] = z.AtVec(k)
		}

		g := mat.NewVecDense(nx, nil)
		for _, s := range a.Spheres {
			pos, jac := a.spherePosition(theta, s)
			dist, grad, ferr := a.Field.Value([]float64{pos[0], pos[1]})
			if ferr != nil {
				err = ferr
				return
			}
			hinge := a.EpsSDF - dist
			if hinge <= 0 {
				continue
			}
			coeff := -2 * hinge / (a.SigObs * a.SigObs)
			for j := 0; j < n; j++ {
				dDdtheta := grad[0]*jac[j][0] + grad[1]*jac[j][1]
				g.SetVec(j, g.AtVec(j)+coeff*(-dDdtheta))
			}
		}
		nTrt.CompressVec(i, g)
	}
	Bt = traj.Replicate(a.B, nt)
	return hAkt, Bt, hakt, nTrt, nil
}
