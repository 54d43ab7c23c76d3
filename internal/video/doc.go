// Package video adapts OpenCV (gocv) to the monitor: Source captures frames
// from a camera or stream, Window shows them with the warning overlay.
package video
