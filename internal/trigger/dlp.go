// Package trigger drives a DLP-IO8-G USB digital I/O box so EEG and
// physiology amplifiers receive TTL markers in step with the log.
package trigger

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	cmdPing   = 0x27 // '
	cmdBinary = 0x5C // \
	pingReply = 'Q'

	// DefaultBaudRate is the DLP-IO8-G factory setting.
	DefaultBaudRate = 115200

	pingTimeout = time.Second
)

// unsetCodes maps a line number to the command that drives it low.
var unsetCodes = map[byte]byte{
	'1': 'Q', '2': 'W', '3': 'E', '4': 'R',
	'5': 'T', '6': 'Y', '7': 'U', '8': 'I',
}

// Box is an open DLP-IO8-G. Lines are named '1' to '8'.
type Box struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
}

// Open opens device, checks the box answers a ping and switches it to
// binary mode.
func Open(device string, baudrate int) (*Box, error) {
	if baudrate <= 0 {
		baudrate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(pingTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	box, err := newBox(port)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("%s: %w", device, err)
	}
	return box, nil
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func newBox(port io.ReadWriteCloser) (*Box, error) {
	b := &Box{port: port}
	if !b.Ping() {
		return nil, errors.New("device did not respond to ping")
	}
	if _, err := port.Write([]byte{cmdBinary}); err != nil {
		return nil, fmt.Errorf("failed to enter binary mode: %w", err)
	}
	return b, nil
}

// Ping reports whether the box answers.
func (b *Box) Ping() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.port.Write([]byte{cmdPing}); err != nil {
		return false
	}
	buf := make([]byte, 1)
	n, err := b.port.Read(buf)
	return err == nil && n == 1 && buf[0] == pingReply
}

// Set drives the given lines high.
func (b *Box) Set(lines string) error {
	if err := validLines(lines); err != nil {
		return err
	}
	return b.write([]byte(lines))
}

// Unset drives the given lines low.
func (b *Box) Unset(lines string) error {
	if err := validLines(lines); err != nil {
		return err
	}
	cmd := make([]byte, len(lines))
	for i := 0; i < len(lines); i++ {
		cmd[i] = unsetCodes[lines[i]]
	}
	return b.write(cmd)
}

func (b *Box) write(cmd []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.port.Write(cmd)
	return err
}

// Close releases the serial port.
func (b *Box) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port.Close()
}

func validLines(lines string) error {
	if lines == "" {
		return errors.New("no trigger lines given")
	}
	for i := 0; i < len(lines); i++ {
		if _, ok := unsetCodes[lines[i]]; !ok {
			return fmt.Errorf("invalid trigger line %q", lines[i])
		}
	}
	return nil
}
