package main

import (
	"runtime"

	"github.com/oshokin/attention-monitor/cmd/attention-monitor/cmd"
)

//nolint:gochecknoinits // OpenCV windows must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
