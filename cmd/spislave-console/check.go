package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var quiet bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Wait for the test Summary and report pass/fail",
	Long: `Follow the board's output until the firmware prints its Summary block,
then exit 0 if every test passed and 1 otherwise. Reset the board after
starting this command so the whole run is captured.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the verdict")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	port, err := OpenSerialConnection(portName, baudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	lines := make(chan string, 16)
	errc := make(chan error, 1)
	go readLines(port, lines, errc)

	var deadline <-chan time.Time
	if timeout > 0 {
		deadline = time.After(timeout)
	}

	out := cmd.OutOrStdout()
	color := colorEnabled()
	rep := &Report{}
	for !rep.Complete {
		select {
		case line := <-lines:
			rep.Feed(line)
			if !quiet {
				fmt.Fprintln(out, highlight(line, color))
			}
		case err := <-errc:
			return fmt.Errorf("read: %v (%v)", err, errNoSummary)
		case <-deadline:
			return fmt.Errorf("timeout after %s: %v", timeout, errNoSummary)
		}
	}

	printVerdict(out, rep, color)
	return rep.Err()
}

func printVerdict(out io.Writer, rep *Report, color bool) {
	fmt.Fprintln(out)
	for _, f := range rep.Failures() {
		fmt.Fprintln(out, highlight("FAIL: "+f.Name+": "+f.Msg, color))
	}
	verdict := fmt.Sprintf("[PASS] %d passed, %d failed", rep.Passed, rep.Failed)
	if rep.Err() != nil {
		verdict = fmt.Sprintf("[FAIL] %d passed, %d failed", rep.Passed, rep.Failed)
	}
	fmt.Fprintln(out, highlight(verdict, color))
}
