// Package server exposes block execution over HTTP. Runs may also be
// requested over a websocket, which streams the block's events as they
// are produced
package server
