// Package status queries the health endpoint of a running monitor and prints
// the serving status of the process and of every signal, once or on an
// interval.
package status
