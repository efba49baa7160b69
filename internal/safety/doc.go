// Package safety holds the guards that keep saneprocess itself from getting
// in the agent's way, and documents what the process checks defend against.
//
// saneprocess sits in the hot path of every agent tool call. A bug here can
// stall an entire session, so the package centralizes the rules for when the
// checks stand down.
//
// # Threat Model
//
// T1 - Skipped Procedure: an agent asked to build something starts editing
// files before reading the code or writing a plan. Mitigation: prompts are
// classified into requirement sets and file edits are blocked until the
// research and plan steps have been observed.
//
// T2 - Unverified Completion: a task is marked done without tests having
// run, or after the last run failed. Mitigation: task completion requires
// the verify step, and a fresh failing build result produces a warning.
//
// T3 - Failure Spirals: an agent repeats a failing action many times in a
// row. Mitigation: a consecutive-failure circuit breaker that blocks all
// actions once tripped and only closes on operator reset or a new session.
//
// T4 - Override Abuse: a single-use skip that can be consumed twice, or by
// two concurrent hooks, silently turns into a standing exemption.
// Mitigation: the skip token is consumed under an exclusive lock and every
// consumption is written to the append-only audit log.
//
// T5 - Self-Inflicted Outage: a corrupt state file, a held lock or a
// malformed hook document makes the guard block everything. Mitigation:
// reads of corrupt state fall back to permissive defaults, and malformed
// input, setup failures and panics allow the action.
//
// # Design Principles
//
// Fail open on infrastructure, fail closed on policy: missing state or a
// broken hook allows the action, but a tripped breaker or an unmet
// requirement that was read successfully always blocks.
//
// Kill switches: SANEPROCESS_HOOKS_DISABLED disables every hook, and
// SANEPROCESS_<HOOK>_DISABLED (for example SANEPROCESS_PRE_TOOL_DISABLED)
// disables one, so operators can stand the checks down without touching
// state or config.
//
// Everything is audited: verdicts and skip consumption are appended to the
// audit log and never rewritten.
package safety
