package cpufreq

import (
	"golang.org/x/sys/unix"
)

// sysFile is the syscall surface the attribute layer needs. Every transfer
// is positioned, so a descriptor's file offset is never relied upon.
type sysFile interface {
	Open(path string, flags int) (int, error)
	Pread(fd int, p []byte, offset int64) (int, error)
	Pwrite(fd int, p []byte, offset int64) (int, error)
	Close(fd int) error
}

type unixSysFile struct{}

func (unixSysFile) Open(path string, flags int) (int, error) {
	return unix.Open(path, flags|unix.O_CLOEXEC, 0)
}

func (unixSysFile) Pread(fd int, p []byte, offset int64) (int, error) {
	return unix.Pread(fd, p, offset)
}

func (unixSysFile) Pwrite(fd int, p []byte, offset int64) (int, error) {
	return unix.Pwrite(fd, p, offset)
}

func (unixSysFile) Close(fd int) error {
	return unix.Close(fd)
}
