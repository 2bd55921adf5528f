// Package pipeline runs small in-process dataflows made of a root step, any
// number of transformation steps and one or more sinks, connected by channels.
//
// Each step runs in its own goroutines as soon as it is added. Run waits for
// every step and sink, and returns the first error reported by any of them; the
// shared context is cancelled at that point so that the remaining goroutines
// stop feeding the dataflow. Steps can be made concurrent with StepConcurrency.
//
// Options implementing model.PipelineOption observe the dataflow: the measure
// package records durations per step and the drawer package renders the step
// graph as a DOT file.
package pipeline
