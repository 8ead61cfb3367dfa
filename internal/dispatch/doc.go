// Package dispatch routes chat requests to LLM providers, resolving them
// through a generation cache or streaming their incremental events
package dispatch
