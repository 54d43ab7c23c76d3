// Package signal implements the debounce state machine that turns a noisy
// per-frame condition into a stable warning.
//
// A Monitor moves Idle -> Pending when its condition becomes true, Pending ->
// Warning once the condition has held for the threshold, and back to Idle on
// the very first false sample.
package signal
