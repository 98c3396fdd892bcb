package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	portName string
	baudRate int
	timeout  time.Duration
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "spislave-console",
	Short: "Follow and check spislave firmware test output",
	Long: `spislave-console reads the USB serial output of the spislave test
firmwares (spislave_selftest, spislave_integrity, spislave_probe).

  monitor   print everything the board sends
  check     wait for the Summary block and exit non-zero on failures
  ports     list serial ports`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "Give up after this long (0 = never)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
