package check

// Package check validates cross-entity invariants of the declared
// configuration before any mutation is attempted.
//
// All violations are collected and reported together so the operator
// sees the complete picture in one run; the pass aborts if any fatal
// violation is present.
