package drawer

import (
	"time"

	"github.com/askiada/go-medallion/pkg/pipeline/measure"
)

// Drawer renders the graph of a pipeline.
type Drawer interface {
	// AddStep adds a step to the graph.
	AddStep(stepName string) error
	// AddLink adds a link between a parent and a child step.
	AddLink(parentStepName, childStepName string) error
	// Draw writes the graph.
	Draw() error
	// SetTotalTime labels a step with the time elapsed since startTime.
	SetTotalTime(stepName string, startTime time.Time) error
	// AddMeasure labels steps and links with the measured durations.
	AddMeasure(measure measure.Measure) error
}
