package pipeline

import "github.com/askiada/go-medallion/pkg/pipeline/model"

// StepOption configures a step when it is added.
type StepOption func(details *model.StepInfo)

// StepConcurrency sets how many goroutines consume the step input. Values
// lower than 1 are ignored.
func StepConcurrency(concurrent int) StepOption {
	return func(details *model.StepInfo) {
		if concurrent > 0 {
			details.Concurrent = concurrent
		}
	}
}
