package owner

import (
	"errors"

	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

// StepResult is the outcome of one load step.
type StepResult struct {
	Step Step
	Path string
	Code tlslib.Code

	// Err is a *LoadError when the step failed.
	Err error
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool {
	return r.Err == nil
}

// LoadReport collects the three load steps of one CreateContext call. The
// steps are independent: a failing step does not skip the others.
type LoadReport struct {
	Steps []StepResult
}

// OK reports whether every step succeeded.
func (r LoadReport) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the failed steps, in order.
func (r LoadReport) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Err joins the step errors, or returns nil when all succeeded.
func (r LoadReport) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, s.Err)
	}
	return errors.Join(errs...)
}
