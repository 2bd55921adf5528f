// Package telemetry configures structured logging for the pipeline.
//
// Every command builds its logger with SetupLogger, stores it in the context
// with WithLogger, and stages retrieve it with FromContext.
package telemetry
