// ABOUTME: Filter plugin contracts and a minimal concrete filter chain
// ABOUTME: Provides Port/ReplayGain/Convert plus Chain
// Package filter defines the interfaces the output worker consumes for its
// filter chain (Port, and the ReplayGain/Convert extensions), plus a
// chain container (Chain) and two concrete filters (scalar
// replay gain, linear-resample format conversion) good enough to exercise
// the worker end to end.
package filter
