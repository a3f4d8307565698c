// Package events buffers job progress events in memory and wakes waiters
// when new ones arrive.
//
// The pipeline publishes one event per state change and per progress step;
// the API replays a job's history to websocket subscribers and then follows
// it live until the job reaches a terminal state. Sinks receive every event
// after it is sequenced (the job store is one).
package events
