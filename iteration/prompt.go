package iteration

import "fmt"

// maxContinuationTail bounds how much of the previous iteration's output is
// carried into the next prompt — enough for the agent to see where it left
// off without re-feeding an unbounded transcript.
const maxContinuationTail = 2000

// truncateTail keeps at most the trailing max runes of s.
func truncateTail(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[len(r)-max:])
}

// firstIterationPrompt builds the prompt for the first iteration: the
// original task plus the completion-marker instruction, appended verbatim
// so the agent knows the exact contract before it ever starts working.
func firstIterationPrompt(original, marker string) string {
	return fmt.Sprintf(
		"%s\n\nEmit %s once the task above is fully complete.",
		original, marker,
	)
}

// continuationPrompt builds the prompt for every iteration after the first:
// the original task plus a tail-truncated view of the previous iteration's
// assistant output, with a reminder of the completion marker.
func continuationPrompt(original, previousOutput, marker string) string {
	tail := truncateTail(previousOutput, maxContinuationTail)
	return fmt.Sprintf(
		"%s\n\n--- previous iteration output (tail) ---\n%s\n\nContinue the task above. Emit %s once it is fully complete.",
		original, tail, marker,
	)
}
