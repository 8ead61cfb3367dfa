// Package block implements the compiled blocks of a weave program. Blocks
// are parsed once from their specification, are immutable afterwards, and
// may be executed concurrently against any number of run contexts
package block
