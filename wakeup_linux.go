//go:build linux

package corebridge

import "golang.org/x/sys/unix"

// createWakeFd creates the cross-goroutine wakeup mechanism. On Linux this is
// a single eventfd; the same fd serves as both the read and write end.
func createWakeFd() (readFd, writeFd int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

// signalWakeFd writes a wakeup token. EAGAIN means the counter is already
// nonzero, which is as good as a successful write.
func signalWakeFd(writeFd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(writeFd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drainWakeFd consumes pending wakeup tokens. Reading an eventfd resets its
// counter to zero in a single read.
func drainWakeFd(readFd int) {
	var buf [8]byte
	_, _ = unix.Read(readFd, buf[:])
}

// closeWakeFd closes the wakeup fds. On Linux both are the same eventfd.
func closeWakeFd(readFd, writeFd int) {
	if readFd >= 0 {
		_ = unix.Close(readFd)
	}
}
