package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Result is one test reported by the firmware.
type Result struct {
	Name string
	Pass bool
	Msg  string // failure reason, empty on pass
}

// Report accumulates the firmware's test output. Two layouts are
// understood: the self-test's
//
//	[Test] name
//	  PASS | FAIL: reason
//
// and the integrity test's one-line "[PASS] name" / "[FAIL] name : reason".
// Both end with
//
//	Summary
//	  passed = N
//	  failed = N
type Report struct {
	Results  []Result
	Passed   int
	Failed   int
	Complete bool // the Summary block has been seen in full

	current   string
	inSummary bool
	gotPassed bool
}

var (
	errNoSummary    = errors.New("firmware output ended before the Summary block")
	errCountsDiffer = errors.New("summary counts disagree with reported tests")
)

// Feed consumes one line of output.
func (r *Report) Feed(line string) {
	t := strings.TrimSpace(line)
	if t == "" {
		return
	}

	if r.inSummary {
		if n, ok := countAfter(t, "passed ="); ok {
			r.Passed, r.gotPassed = n, true
			return
		}
		if n, ok := countAfter(t, "failed ="); ok {
			r.Failed = n
			r.Complete = r.gotPassed
			r.inSummary = false
			return
		}
	}

	switch {
	case t == "Summary":
		r.inSummary = true
		r.gotPassed = false
	case strings.HasPrefix(t, "[Test]"):
		r.current = strings.TrimSpace(strings.TrimPrefix(t, "[Test]"))
	case t == "PASS" && r.current != "":
		r.Results = append(r.Results, Result{Name: r.current, Pass: true})
		r.current = ""
	case strings.HasPrefix(t, "FAIL:") && r.current != "":
		r.Results = append(r.Results, Result{Name: r.current, Msg: strings.TrimSpace(strings.TrimPrefix(t, "FAIL:"))})
		r.current = ""
	case strings.HasPrefix(t, "[PASS]"):
		r.Results = append(r.Results, Result{Name: strings.TrimSpace(strings.TrimPrefix(t, "[PASS]")), Pass: true})
	case strings.HasPrefix(t, "[FAIL]"):
		name, msg, _ := strings.Cut(strings.TrimPrefix(t, "[FAIL]"), " : ")
		r.Results = append(r.Results, Result{Name: strings.TrimSpace(name), Msg: strings.TrimSpace(msg)})
	}
}

// Err returns nil only for a complete report with no failures.
func (r *Report) Err() error {
	if !r.Complete {
		return errNoSummary
	}
	if r.Failed > 0 {
		return fmt.Errorf("%d of %d tests failed", r.Failed, r.Passed+r.Failed)
	}
	if len(r.Results) > 0 && len(r.Results) != r.Passed+r.Failed {
		return errCountsDiffer
	}
	return nil
}

// Failures returns the failed results in report order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Pass {
			out = append(out, res)
		}
	}
	return out
}

func countAfter(line, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}
