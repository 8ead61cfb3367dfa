// Package program loads block programs from YAML and runs them over a set
// of inputs. Blocks run one after another; each block runs over every
// input concurrently
package program
