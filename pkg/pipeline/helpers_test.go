package pipeline_test

import (
	"context"
	"testing"
)

func rootFromSlice[T any](t *testing.T, values []T) func(ctx context.Context, out chan<- T) error {
	t.Helper()

	return func(ctx context.Context, out chan<- T) error {
		for _, v := range values {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- v:
			}
		}

		return nil
	}
}

func intRange(total int) []int {
	res := make([]int, total)
	for i := range res {
		res[i] = i
	}

	return res
}
