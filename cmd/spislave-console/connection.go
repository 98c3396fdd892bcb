package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
)

// OpenSerialConnection opens the board's serial port
func OpenSerialConnection(name string, baud int) (serial.Port, error) {
	if name == "" {
		return nil, fmt.Errorf("--port must be specified")
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", name, err)
	}
	return port, nil
}

// readLines sends each line read from r, without its line ending, until r
// fails. The error is sent last.
func readLines(r io.Reader, lines chan<- string, errc chan<- error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- strings.TrimRight(sc.Text(), "\r")
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	errc <- err
}
