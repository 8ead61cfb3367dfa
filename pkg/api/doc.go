// Package api defines the core data types and interfaces for the block engine
//
// This package contains the shared types used across the engine, including
// the run context handed to every block execution, block specifications,
// chat requests and generations, stream events, and the collaborator
// interfaces (dispatcher, cache store, event sink) that blocks consume
package api
