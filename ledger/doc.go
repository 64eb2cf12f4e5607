// Package ledger implements the durable, crash-resumable storage of Task
// Records, Workflow States, and Cost Entries for one project directory.
//
// All writes go through create-temp-then-rename so an interrupted write
// never leaves a partially visible document. There is no in-process or
// cross-process locking beyond that; concurrent writers to the same id are
// the caller's problem to avoid by using fresh ids.
package ledger
