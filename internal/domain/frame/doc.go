// Package frame defines the image and overlay types exchanged between the
// video adapters and the monitoring loop, without depending on OpenCV.
package frame
