package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sample is one side of a two-sample comparison: a summarized group of
// measurements rather than the raw values.
type Sample struct {
	Mean   float64
	StdDev float64
	N      int
}

// Verdict is the outcome of comparing a p-value against a significance level.
type Verdict int

const (
	// NotApplicable means the test was undefined (too few samples or zero
	// pooled variance) and must be rendered as N/A, never as a decision.
	NotApplicable Verdict = iota
	Reject
	FailToReject
)

func (v Verdict) String() string {
	switch v {
	case Reject:
		return "Reject"
	case FailToReject:
		return "Fail"
	default:
		return "N/A"
	}
}

// Result holds a two-sample t-test outcome. P is the -1 sentinel when the
// test is undefined.
type Result struct {
	T  float64
	DF int
	P  float64
}

// Defined reports whether the test produced a usable p-value.
func (r Result) Defined() bool {
	return r.P != Sentinel
}

// Verdict applies the decision rule at significance level alpha.
func (r Result) Verdict(alpha float64) Verdict {
	if !r.Defined() {
		return NotApplicable
	}
	if r.P < alpha {
		return Reject
	}
	return FailToReject
}

// TTest runs a two-sample t-test of observed against expected.
//
// The degrees of freedom are min(n1,n2)-1, a deliberately conservative
// choice over the Welch-Satterthwaite approximation, kept as documented
// policy for comparability with earlier analyses of the same recordings.
func TTest(observed, expected Sample) Result {
	if observed.N < 2 || expected.N < 2 {
		return Result{P: Sentinel}
	}

	pooled := observed.StdDev*observed.StdDev/float64(observed.N) +
		expected.StdDev*expected.StdDev/float64(expected.N)
	if pooled == 0 {
		return Result{P: Sentinel}
	}

	t := (observed.Mean - expected.Mean) / math.Sqrt(pooled)
	df := min(observed.N, expected.N) - 1

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return Result{T: t, DF: df, P: p}
}
