package vimperr

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := New(NotPositiveDefinite, "step %d rejected", 3)
	want := "not_positive_definite: step 3 rejected"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestErrorMessageEmpty(t *testing.T) {
	e := Sentinel(IOError)
	if e.Error() != "io_error" {
		t.Fatalf("Error() = %q, want %q", e.Error(), "io_error")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	e := New(BoundaryInfeasible, "phi12 singular")
	if !errors.Is(e, Sentinel(BoundaryInfeasible)) {
		t.Fatal("expected errors.Is to match on Kind")
	}
	if errors.Is(e, Sentinel(ConvergenceStalled)) {
		t.Fatal("expected errors.Is to not match a different Kind")
	}
}

func TestWithIterateChains(t *testing.T) {
	last := map[string]float64{"mu0": 1.0}
	e := New(ConvergenceStalled, "max_backtrack exceeded").WithIterate(last)
	if e.Iterate == nil {
		t.Fatal("expected Iterate to be attached")
	}
	got, ok := e.Iterate.(map[string]float64)
	if !ok || got["mu0"] != 1.0 {
		t.Fatalf("Iterate = %#v, want the attached payload back unchanged", e.Iterate)
	}
}
