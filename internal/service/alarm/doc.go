// Package alarm coordinates the audible alarm shared by all signal monitors.
//
// The Controller accepts idempotent start and stop requests from the frame
// loop and applies them to a looping playback Device on one background worker.
package alarm
