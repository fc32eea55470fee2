// Package terminal drives the serial console: it puts the tty into raw mode,
// classifies inbound bytes into commands, and serializes outbound writes.
package terminal

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// CommandType classifies a byte received from the console.
type CommandType int

const (
	CommandChar CommandType = iota // printable character, Char holds it
	CommandEnter
	CommandBackspace
	CommandToggleInfo      // 'i'
	CommandToggleBlinkMode // 'b'
)

// Command is one classified console input.
type Command struct {
	Type CommandType
	Char byte
}

// Classify maps a raw byte to a command. The second return is false for
// bytes the console ignores (control characters other than enter and
// backspace).
func Classify(b byte) (Command, bool) {
	switch {
	case b == '\r' || b == '\n':
		return Command{Type: CommandEnter}, true
	case b == 0x08 || b == 0x7F:
		return Command{Type: CommandBackspace}, true
	case b == 'i':
		return Command{Type: CommandToggleInfo, Char: b}, true
	case b == 'b':
		return Command{Type: CommandToggleBlinkMode, Char: b}, true
	case b >= 0x20 && b <= 0x7E:
		return Command{Type: CommandChar, Char: b}, true
	default:
		return Command{}, false
	}
}

// Terminal owns the console tty. Reads run on their own goroutine; writes
// from any goroutine serialize through the write mutex.
type Terminal struct {
	file  *os.File
	saved *unix.Termios

	writeMu  sync.Mutex
	commands chan Command
	stopChan chan struct{}
	stopOnce sync.Once
}

// Open opens the tty at path and switches it to raw mode. The previous
// termios settings are restored on Close.
func Open(path string) (*Terminal, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open tty %s: %w", path, err)
	}

	fd := int(file.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("get termios: %w", err)
	}

	raw := *saved
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		file.Close()
		return nil, fmt.Errorf("set raw termios: %w", err)
	}

	return &Terminal{
		file:     file,
		saved:    saved,
		commands: make(chan Command, 16),
		stopChan: make(chan struct{}),
	}, nil
}

// Commands returns the channel of classified console inputs. The channel is
// closed when the read loop stops.
func (t *Terminal) Commands() <-chan Command {
	return t.commands
}

// Run reads the tty byte by byte until Close or a read error, delivering
// classified commands. Intended to run on its own goroutine.
func (t *Terminal) Run() {
	defer close(t.commands)

	buf := make([]byte, 1)
	for {
		n, err := t.file.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		cmd, ok := Classify(buf[0])
		if !ok {
			continue
		}

		select {
		case t.commands <- cmd:
		case <-t.stopChan:
			return
		}
	}
}

// Write sends s to the console verbatim.
func (t *Terminal) Write(s string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.file.WriteString(s)
	return err
}

// WriteLine sends s followed by CRLF.
func (t *Terminal) WriteLine(s string) error {
	return t.Write(s + "\r\n")
}

// EchoBackspace erases the last echoed character.
func (t *Terminal) EchoBackspace() error {
	return t.Write("\b \b")
}

// Close restores the saved termios settings and closes the tty.
func (t *Terminal) Close() error {
	t.stopOnce.Do(func() { close(t.stopChan) })

	fd := int(t.file.Fd())
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t.saved); err != nil {
		t.file.Close()
		return fmt.Errorf("restore termios: %w", err)
	}
	return t.file.Close()
}
