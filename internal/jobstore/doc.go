// Package jobstore records job state in SQLite.
//
// The store subscribes to the events hub as a sink: every published event
// upserts the job row, so API readers see the latest state, stage, progress
// and output without talking to the pipeline. The default DSN ":memory:"
// keeps history for the life of the process only.
package jobstore
