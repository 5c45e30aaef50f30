// Package frame keeps the registry of render targets.
//
// Every frame is addressed by a uuid and owns one isolated document. The
// Manager routes runs, clears and event dispatches to the right frame and
// keeps a rolling latency summary of recent runs.
package frame
