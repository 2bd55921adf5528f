package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/pkg/pipeline/model"
)

// AddRootStep adds the step that feeds the pipeline. stepFn owns rootChan only
// for sending; it is closed once stepFn returns.
func AddRootStep[O any](pipe *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if name == "" {
		return nil, ErrNameMustBeSet
	}

	output := make(chan O)
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: output,
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare root step")
		}
	}

	errC := make(chan error, 1)
	go func() {
		defer func() {
			close(output)
			close(errC)
		}()
		err := stepFn(pipe.ctx, output)
		if err != nil {
			errC <- err
		}
	}()
	pipe.errcList.add(newErrorChan(name, errC))

	return step, nil
}
