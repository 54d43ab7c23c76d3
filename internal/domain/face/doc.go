// Package face turns detector landmarks into the two signals the monitor
// watches: head tilt relative to a session baseline and eye closure.
package face
