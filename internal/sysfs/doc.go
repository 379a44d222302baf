package sysfs

// Package sysfs provides safe write helpers for files the reconciler
// publishes on the local filesystem (per-user profile environments,
// home-directory archive markers).
//
// Writes are atomic: data lands in a temp file which is fsynced and
// renamed over the destination, so a crashed pass never leaves a
// half-written file behind.
