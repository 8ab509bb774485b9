package fluency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Device is an open capture source
type Device interface {
	// Record writes captured audio to w until the source ends or the device is released
	Record(w io.Writer) error
	// Release stops the capture and frees the underlying handle. It is safe to call more than once.
	Release() error
}

// Opener opens a capture device. A failure is reported to the user as PermissionDenied.
type Opener interface {
	Open(ctx context.Context) (Device, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context) (Device, error)

// Open calls f
func (f OpenerFunc) Open(ctx context.Context) (Device, error) {
	return f(ctx)
}

// ReaderDevice replays an already captured buffer, e.g. an uploaded recording
type ReaderDevice struct {
	r        io.Reader
	once     sync.Once
	released chan struct{}
}

// NewReaderDevice wraps r; r is closed on release when it is an io.Closer
func NewReaderDevice(r io.Reader) *ReaderDevice {
	return &ReaderDevice{r: r, released: make(chan struct{})}
}

// Record copies the whole buffer into w
func (d *ReaderDevice) Record(w io.Writer) error {
	_, err := io.Copy(w, d.r)
	select {
	case <-d.released:
		// reads racing a release are not failures
		return nil
	default:
		return err
	}
}

// Release closes the reader
func (d *ReaderDevice) Release() error {
	var err error
	d.once.Do(func() {
		close(d.released)
		if c, ok := d.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// BytesOpener opens a ReaderDevice over data
func BytesOpener(data []byte) Opener {
	return OpenerFunc(func(context.Context) (Device, error) {
		return NewReaderDevice(bytes.NewReader(data)), nil
	})
}

// FileOpener opens the capture stored at path. The file is read in full on
// open so that an immediate release cannot truncate it.
func FileOpener(path string) Opener {
	return OpenerFunc(func(context.Context) (Device, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture file: %w", err)
		}
		return NewReaderDevice(bytes.NewReader(data)), nil
	})
}

// DefaultStopGrace is how long a capture command gets to exit after an interrupt
const DefaultStopGrace = 2 * time.Second

// CommandDevice runs a capture command (for example arecord writing WAV to
// stdout) and records its standard output. Release interrupts the command and
// kills it if it does not exit within the grace period.
type CommandDevice struct {
	cmd   *exec.Cmd
	pr    *io.PipeReader
	pw    *io.PipeWriter
	grace time.Duration

	once    sync.Once
	waitErr error
}

// CommandOpener starts name with args on Open
func CommandOpener(name string, args ...string) Opener {
	return OpenerFunc(func(ctx context.Context) (Device, error) {
		return StartCommandDevice(ctx, name, args...)
	})
}

// StartCommandDevice starts the capture command. The command is not bound to
// ctx; it runs until Release.
func StartCommandDevice(ctx context.Context, name string, args ...string) (*CommandDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	cmd := exec.Command(name, args...)
	cmd.Stdout = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, fmt.Errorf("failed to start capture command %s: %w", name, err)
	}
	return &CommandDevice{cmd: cmd, pr: pr, pw: pw, grace: DefaultStopGrace}, nil
}

// Record streams the command output into w
func (d *CommandDevice) Record(w io.Writer) error {
	_, err := io.Copy(w, d.pr)
	return err
}

// Release stops the command and closes its output once it has exited
func (d *CommandDevice) Release() error {
	d.once.Do(func() {
		done := make(chan error, 1)
		_ = d.cmd.Process.Signal(os.Interrupt)
		go func() { done <- d.cmd.Wait() }()

		select {
		case err := <-done:
			d.waitErr = err
		case <-time.After(d.grace):
			_ = d.cmd.Process.Kill()
			d.waitErr = <-done
		}
		_ = d.pw.Close()

		var exitErr *exec.ExitError
		if errors.As(d.waitErr, &exitErr) {
			// interrupted capture tools exit non-zero
			d.waitErr = nil
		}
	})
	return d.waitErr
}
