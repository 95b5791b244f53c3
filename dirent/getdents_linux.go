//go:build linux

package dirent

import (
	"golang.org/x/sys/unix"
)

// Read fills buf with records from the open directory fd. It returns 0 at
// the end of the directory.
func Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Getdents(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}
