// Package monitor runs the attention monitoring session.
//
// Loop processes frames strictly one at a time: detect landmarks, measure the
// head angle and eye state, feed the two debounced monitors and forward their
// intents to the alarm (stops before starts). Run wires the loop to the
// camera, landmark sidecar, sound player, journal and health endpoint from
// settings.
package monitor
