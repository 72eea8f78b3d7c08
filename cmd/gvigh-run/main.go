// Command gvigh-run drives the GVI-GH optimizer over a planar point-robot
// motion-planning problem, reporting results the way gofem's main.go reports
// a finite-element run: a single panic-recovering wrapper around Start/Run,
// with io.Pf*-colored status lines.
package main

import (
	"flag"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/config"
	"github.com/ChenZhenY/VIMP/factor"
	"github.com/ChenZhenY/VIMP/gvigh"
	"github.com/ChenZhenY/VIMP/planarenv"
	"github.com/ChenZhenY/VIMP/sparsegauss"
	"github.com/ChenZhenY/VIMP/traj"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			io.PfRed("ERROR: %v\n", err)
			os.Exit(1)
		}
	}()

	flag.Parse()
	if len(flag.Args()) < 1 {
		chk.Panic("usage: gvigh-run <config.json> [output-dir]\n")
	}
	cfgPath := flag.Arg(0)
	outDir := "out"
	if len(flag.Args()) > 1 {
		outDir = flag.Arg(1)
	}

	cfg, err := config.ReadFile(cfgPath)
	if err != nil {
		chk.Panic("%v\n", err)
	}
	cfg.SetDefault()
	cfg.Report()

	io.PfWhite("\ngvigh-run -- Gaussian variational inference via Gauss-Hermite cubature\n\n")

	var field *planarenv.GridSDF
	if cfg.SDFFile != "" {
		field, err = planarenv.LoadGridSDF(cfg.SDFFile)
		if err != nil {
			chk.Panic("%v\n", err)
		}
	}

	start := vecOf(cfg.M0)
	goal := vecOf(cfg.MT)
	seed := traj.Linspace(start, goal, cfg.Nt)
	seedVec := flattenSeed(seed, cfg.Nt)

	factors := planarenv.NewObstacleFactors(factor.PlanarGraphParams{
		NumStates:       cfg.Nt,
		StateDim:        cfg.Nx,
		Dt:              cfg.DeltaT(),
		Qc:              cfg.CoeffQc,
		BoundaryPenalty: cfg.BoundaryPenalties,
		Start:           start,
		Goal:            goal,
		EpsSDF:          cfg.EpsSDF,
		SigObs:          cfg.SigObs,
	}, field)

	joint := sparsegauss.NewJoint(seedVec, cfg.InitPrecisionFactor)
	if err := joint.Factorize(); err != nil {
		chk.Panic("%v\n", err)
	}

	opt := gvigh.New(joint, factors, gvigh.Options{
		Degree:            factor.DefaultDegree,
		StepSize:          cfg.StepSize,
		Temperature:       cfg.Temperature,
		HighTemperature:   cfg.HighTemperature,
		LowTempIterations: cfg.LowTempIterations,
		StopErr:           cfg.StopErr,
		MaxIter:           cfg.MaxIter,
		MaxBacktrack:      cfg.MaxBacktrack,
		Verbose:           true,
	})

	if err := opt.Run(); err != nil {
		chk.Panic("%v\n", err)
	}

	io.Pfgreen("gvigh-run: completed %d iterations, %d snapshots recorded (%d dropped)\n",
		opt.Iterations(), opt.Recorder.Len(), opt.Recorder.Dropped())

	if err := opt.Recorder.Export(outDir); err != nil {
		chk.Panic("%v\n", err)
	}
	io.Pfcyan("gvigh-run: wrote results to %s\n", outDir)
}

func vecOf(vals []float64) *mat.VecDense {
	return mat.NewVecDense(len(vals), vals)
}

// flattenSeed concatenates every timestep's state into one (N*d)-length
// joint mean vector, in the joint's global state ordering.
func flattenSeed(seed *traj.Tensor3, nt int) *mat.VecDense {
	d := seed.R
	out := mat.NewVecDense(d*nt, nil)
	for i := 0; i < nt; i++ {
		v := seed.ExtractVec(i)
		for k := 0; k < d; k++ {
			out.SetVec(i*d+k, v.AtVec(k))
		}
	}
	return out
}
