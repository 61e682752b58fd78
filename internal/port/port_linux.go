//go:build linux

package port

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kstaniek/uartctl/internal/logging"
)

// baudSpeed maps a requested rate onto its termios speed constant.
// Rates outside the supported set fall back to 115200.
func baudSpeed(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	default:
		return unix.B115200
	}
}

// rawConn is a non-blocking raw-mode tty descriptor.
type rawConn struct{ fd int }

// OpenRaw opens the serial device at path in raw mode: 8 data bits, no
// parity, 1 stop bit, no flow control, non-blocking, VMIN=0/VTIME=0.
// Pending input is flushed so a fresh exchange never sees stale bytes.
func OpenRaw(path string, baud int) (Conn, error) {
	logging.L().Debug("serial_open_raw", "device", path, "baud", baud)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s is not a tty: %w", path, err)
	}

	// cfmakeraw(3) equivalent, plus explicit 8N1 and no flow control.
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	tio.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD

	speed := baudSpeed(baud)
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= speed
	tio.Ispeed = speed
	tio.Ospeed = speed

	// One input byte is enough to return from read; inter-character timer off.
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 0

	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("apply termios on %s: %w", path, err)
	}
	return &rawConn{fd: fd}, nil
}

func (c *rawConn) Read(p []byte) (int, error)  { return unix.Read(c.fd, p) }
func (c *rawConn) Write(p []byte) (int, error) { return unix.Write(c.fd, p) }
func (c *rawConn) Close() error                { return unix.Close(c.fd) }

// WaitReadable blocks in select(2) until the descriptor has bytes to
// read or d elapses. EINTR is returned to the caller, which owns the
// retry policy (the remaining deadline must be recomputed first).
func (c *rawConn) WaitReadable(d time.Duration) (bool, error) {
	if d < 0 {
		d = 0
	}
	var fds unix.FdSet
	fds.Zero()
	fds.Set(c.fd)
	tv := unix.NsecToTimeval(d.Nanoseconds())
	n, err := unix.Select(c.fd+1, &fds, nil, nil, &tv)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Drain blocks until all queued output has left the device.
// tcdrain(3) is TCSBRK with a non-zero argument on Linux.
func (c *rawConn) Drain() error {
	return unix.IoctlSetInt(c.fd, unix.TCSBRK, 1)
}
