package config

// Package config declares the desired user/group state applied by a
// reconciliation pass.
//
// Configuration arrives as one or more fragments (YAML or TOML files).
// Fragments are combined by Merge with explicit priority ordering; the
// merged Config is the single source of truth for a pass. Observed
// system state is never written back into it.
