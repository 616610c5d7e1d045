// Package shell provides the run_command tool. Commands share a working
// directory that persists across invocations in a session, and a cancelled
// command reports whatever output it produced before the interrupt instead
// of discarding it.
package shell
