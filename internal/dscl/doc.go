package dscl

// Package dscl adapts the local directory utilities (dscl, sysadminctl,
// createhomedir, ditto) behind typed commands.
//
// Every mutation is a Command value built by a dedicated constructor;
// there is no string templating and no shell involved, so the exact
// invocation sequence a pass would issue can be asserted in tests with
// a recording runner. Passwords never appear on argv: commands carrying
// secrets run behind a PTY and answer the tool's interactive prompts.
