//go:build darwin

package corebridge

import "golang.org/x/sys/unix"

// createWakeFd creates the cross-goroutine wakeup mechanism. On Darwin this is
// a self-pipe with both ends nonblocking and close-on-exec.
func createWakeFd() (readFd, writeFd int, err error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return -1, -1, err
		}
	}
	return p[0], p[1], nil
}

// signalWakeFd writes a wakeup token. EAGAIN means the pipe buffer is full,
// so a wakeup is already pending.
func signalWakeFd(writeFd int) error {
	var buf [1]byte
	buf[0] = 1
	_, err := unix.Write(writeFd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drainWakeFd consumes pending wakeup tokens until the pipe is empty.
func drainWakeFd(readFd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(readFd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// closeWakeFd closes both ends of the self-pipe.
func closeWakeFd(readFd, writeFd int) {
	if readFd >= 0 {
		_ = unix.Close(readFd)
	}
	if writeFd >= 0 {
		_ = unix.Close(writeFd)
	}
}
