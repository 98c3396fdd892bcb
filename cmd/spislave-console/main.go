// spislave-console - host side of the on-board tests.
//
// The self-test, integrity and probe firmwares report over the Pico's USB
// serial port. This tool follows that output, highlights results, and turns
// the firmware's Summary block into a process exit status.

package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
