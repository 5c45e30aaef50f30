// Package ws provides the live preview channel for a frame.
//
// A client connects to /frames/:id/live and sends JSON messages; every
// message is handled to completion before the next one is read, so runs
// against the frame stay sequential. Messages are encoded with sonic.
//
// Message Types (Client → Server):
//   - run: markup, style and script to render into the frame
//   - dispatch: selector and event to deliver in the live document
//   - clear: reset the frame to an empty document
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection established
//   - outcome: result of a run or dispatch
//   - cleared: frame was cleared
//   - pong: reply to ping
//   - error: request could not be served
package ws
