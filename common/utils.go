package common

import "fmt"

// Assert checks a condition and panics if it is false.
//
// WHY USE THIS INSTEAD OF RETURNING ERROR?
// In idiomatic Go, you are encouraged to return error values for conditions that might reasonably happen
// (e.g., "file not found" or "disk full"). However, storage engineering relies on invariants:
//
//	truths about the system state that must always be valid. Assertions are useful for the following cases:
//	1. Fail Fast: if internal logic is broken (e.g., a page offset went negative),
//	   continuing execution is dangerous. It is better to crash than to persist corrupted blocks.
//	2. Documentation: an Assert tells other developers: "I guarantee this condition is true here."
//	3. Debugging: the panic provides a stack trace immediately pointing to the logic error.
//
// WHEN TO USE:
// - Checking for "impossible" conditions (e.g., switch default cases that shouldn't be reached).
// - Catching offset bookkeeping mistakes before they hit the disk.
//
// WHEN NOT TO USE:
// - Validating user input (return an error instead).
// - Handling I/O failures (return an error instead).
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
