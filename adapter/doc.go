// Package adapter drives one invocation of the external code-generation
// agent to termination and delivers its event stream.
//
// The agent is an opaque child process: stdin is closed, stdout is read as
// newline-delimited JSON and parsed into a closed set of Event variants,
// and stderr is logged. Process creation goes through a ProcessStarter seam
// so tests never spawn a real binary.
package adapter
