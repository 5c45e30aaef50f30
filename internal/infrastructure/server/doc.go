// Package server wires configuration, logging, tracing, metrics, the sandbox
// and the providers into one gin engine and runs it.
package server
