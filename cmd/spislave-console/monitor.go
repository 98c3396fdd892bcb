package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print the board's output",
	Long: `Print every line the board sends, with test results highlighted when
stdout is a terminal. Runs until the port closes, --timeout expires, or
Ctrl+C.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	port, err := OpenSerialConnection(portName, baudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	out := cmd.OutOrStdout()
	color := colorEnabled()
	fmt.Fprintf(out, "Port: %s @ %d baud\n", portName, baudRate)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	lines := make(chan string, 16)
	errc := make(chan error, 1)
	go readLines(port, lines, errc)

	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = time.After(timeout)
	}
	for {
		select {
		case line := <-lines:
			fmt.Fprintln(out, highlight(line, color))
		case err := <-errc:
			return fmt.Errorf("read: %v", err)
		case <-deadline:
			return nil
		}
	}
}
