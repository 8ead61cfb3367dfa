// Package weave is the execution engine for chained LLM block programs
package weave

const (
	// Name is the service name reported in logs and health responses
	Name = "weave"

	// Version is the current engine version
	Version = "0.1.0"
)
