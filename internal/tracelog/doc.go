// Package tracelog records what the debugger itself does during a session.
//
// A Recorder attributes every event to the shell line that caused it and,
// for cursor moves, to the frame the cursor landed on. Evaluation phases
// nest under the command that started them:
//
//	mdb> evaluate fib<5>
//	  [     1] command → command
//	  [     2] phase     → evaluate (fib<5>, normal)
//	  [     3] phase       → build
//	  [     4] phase       ← build (42 edges)
//	  ...
//
// It is unrelated to the compiler trace being debugged. A nil *Recorder
// records nothing.
package tracelog
