// Package sound plays the alarm through an external command-line player.
//
// Player relaunches the configured command every time it finishes the file,
// which turns any one-shot player into a looping one. KillOrphans cleans up
// players left running by a monitor that did not shut down cleanly.
package sound
