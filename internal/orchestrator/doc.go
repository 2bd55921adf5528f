// Package orchestrator sequences a pipeline run.
//
// A run optionally downloads the raw files of a blob container, then builds
// the bronze, silver and gold layers one after the other on a single engine
// session. The driver only passes directories and the session around; what a
// stage does is up to its implementation.
package orchestrator
