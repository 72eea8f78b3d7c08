package planarenv

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/traj"
)

func testArm() *PlanarArm {
	return &PlanarArm{
		LinkLengths: []float64{1, 2},
		Spheres:     []ArmSphere{{Link: 0, Frac: 1}, {Link: 1, Frac: 0.5}},
		EpsSDF:      1,
		SigObs:      0.5,
		B:           mat.NewDense(4, 2, []float64{0, 0, 0, 0, 1, 0, 0, 1}),
	}
}

func Test_armJointPositionsStraight01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.jointPositions chains link lengths along a straight arm")

	a := testArm()
	pos := a.jointPositions([]float64{0, 0})
	chk.Vector(tst, "base", 1e-12, pos[0][:], []float64{0, 0})
	chk.Vector(tst, "joint1", 1e-12, pos[1][:], []float64{1, 0})
	chk.Vector(tst, "joint2", 1e-12, pos[2][:], []float64{3, 0})
}

func Test_armJointPositionsBentRightAngle01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.jointPositions folds the second link by its cumulative angle")

	a := testArm()
	pos := a.jointPositions([]float64{math.Pi / 2, 0})
	chk.Vector(tst, "joint1", 1e-12, pos[1][:], []float64{0, 1})
	chk.Vector(tst, "joint2", 1e-12, pos[2][:], []float64{0, 3})
}

func Test_armSpherePositionAndJacobianOnFirstLink01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.spherePosition: a sphere on link 0 only depends on theta_0")

	a := testArm()
	pos, jac := a.spherePosition([]float64{0, 0}, ArmSphere{Link: 0, Frac: 1})
	chk.Vector(tst, "pos", 1e-12, pos[:], []float64{1, 0})
	chk.Vector(tst, "jac[0]", 1e-12, jac[0][:], []float64{0, 1})
	chk.Vector(tst, "jac[1]", 1e-12, jac[1][:], []float64{0, 0})
}

func Test_armSpherePositionAndJacobianOnSecondLink01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.spherePosition: a sphere on link 1 depends on both joints")

	a := testArm()
	pos, jac := a.spherePosition([]float64{0, 0}, ArmSphere{Link: 1, Frac: 0.5})
	chk.Vector(tst, "pos", 1e-12, pos[:], []float64{2, 0})
	chk.Vector(tst, "jac[0]", 1e-12, jac[0][:], []float64{0, 2})
	chk.Vector(tst, "jac[1]", 1e-12, jac[1][:], []float64{0, 1})
}

func Test_armSphereConfMatchesSpherePosition01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.SphereConf extracts joint angles and ignores velocity rows")

	a := testArm()
	s := ArmSphere{Link: 1, Frac: 0.5}
	x := mat.NewVecDense(4, []float64{0, 0, 7, -3})
	conf := a.SphereConf(s)(x)
	pos, _ := a.spherePosition([]float64{0, 0}, s)
	chk.Vector(tst, "conf", 1e-12, conf, pos[:])
}

func Test_armLinearizePassthroughWithZeroGradient01(tst *testing.T) {
	chk.PrintTitle("PlanarArm.Linearize passes Akt through and zeros nTrt for a gradient-free sdf")

	a := testArm()
	a.Field = &flatSDFArm{dist: 0, grad: []float64{0, 0}}

	nx, nt := 4, 2
	zCol := mat.NewVecDense(nx, []float64{0, 0, 0, 0})
	zkt := traj.Linspace(zCol, zCol, nt)
	AkBlock := mat.NewDense(nx, nx, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	Akt := traj.Replicate(AkBlock, nt)
	Sigkt := traj.Replicate(mat.NewDense(nx, nx, nil), nt)

	hAkt, Bt, hakt, nTrt, err := a.Linearize(zkt, 1.0, Akt, Sigkt)
	if err != nil {
		tst.Fatalf("Linearize failed: %v", err)
	}
	for i := 0; i < nt; i++ {
		gotA := hAkt.Extract(i)
		gotB := Bt.Extract(i)
		for r := 0; r < nx; r++ {
			for c := 0; c < nx; c++ {
				chk.Scalar(tst, "hAkt passthrough", 1e-12, gotA.At(r, c), AkBlock.At(r, c))
			}
		}
		br, bc := a.B.Dims()
		for r := 0; r < br; r++ {
			for c := 0; c < bc; c++ {
				chk.Scalar(tst, "Bt passthrough", 1e-12, gotB.At(r, c), a.B.At(r, c))
			}
		}
		hv := hakt.ExtractVec(i)
		nv := nTrt.ExtractVec(i)
		for k := 0; k < nx; k++ {
			chk.Scalar(tst, "hakt zero", 1e-12, hv.AtVec(k), 0)
			chk.Scalar(tst, "nTrt zero", 1e-12, nv.AtVec(k), 0)
		}
	}
}

// flatSDFArm is a trivial constant-distance SDF, mirroring factor.flatSDF,
// used here so planarenv's own tests don't depend on factor's test file.
type flatSDFArm struct {
	dist float64
	grad []float64
}

func (f *flatSDFArm) Value(x []float64) (float64, []float64, error) {
	return f.dist, f.grad, nil
}
