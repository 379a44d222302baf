package reconcile

// Package reconcile orders and executes the create/update/delete
// operations of one pass against the local directory.
//
// Ordering protocol:
//   1. Groups before users.
//   2. Deletions before creations, except the lockout guard: the last
//      remaining admin account is never deleted.
//   3. The token-holder admin is resolved once per pass and reused for
//      every delegated operation.
//   4. Creation is atomic per account; a failed post-creation existence
//      check halts the whole pass.
//   5. Every touched account ends with the managed marker and hidden
//      flag re-asserted, so re-running a pass converges.
//
// Execution is strictly sequential: later steps depend on the directory
// changes earlier steps made.
