package cpufreq

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/mock"
	"golang.org/x/sys/unix"
)

// sysFileMock records every syscall. Pread may be given a
// func([]byte, int64) int as its first return value to fill the buffer.
type sysFileMock struct {
	mock.Mock
}

func (m *sysFileMock) Open(path string, flags int) (int, error) {
	args := m.Called(path, flags)
	return args.Int(0), args.Error(1)
}

func (m *sysFileMock) Pread(fd int, p []byte, offset int64) (int, error) {
	args := m.Called(fd, p, offset)
	if fn, ok := args.Get(0).(func([]byte, int64) int); ok {
		return fn(p, offset), args.Error(1)
	}
	return args.Int(0), args.Error(1)
}

func (m *sysFileMock) Pwrite(fd int, p []byte, offset int64) (int, error) {
	args := m.Called(fd, p, offset)
	return args.Int(0), args.Error(1)
}

func (m *sysFileMock) Close(fd int) error {
	args := m.Called(fd)
	return args.Error(0)
}

// serve returns a Pread responder for content.
func serve(content string) func([]byte, int64) int {
	return func(p []byte, offset int64) int {
		if offset >= int64(len(content)) {
			return 0
		}
		return copy(p, content[offset:])
	}
}

func newMockClient(m *sysFileMock) *Client {
	return New(withSysFile(m), WithLogger(logr.Discard()))
}

// memSysFile is an in-memory cpufreq tree. Writes replace the stored value
// the way a sysfs store does, and reads return it newline terminated.
type memSysFile struct {
	mu       sync.Mutex
	files    map[string]*memAttr
	fds      map[int]string
	nextFD   int
	chunk    int
	closeErr error
	opens    int
	closes   int
}

type memAttr struct {
	data     []byte
	writable bool
}

func newMemSysFile() *memSysFile {
	return &memSysFile{
		files:  map[string]*memAttr{},
		fds:    map[int]string{},
		nextFD: 3,
	}
}

func (fs *memSysFile) set(core uint32, attr Attribute, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	path := fmt.Sprintf("%s/cpu%d/cpufreq/%s", DefaultRoot, core, attr)
	fs.files[path] = &memAttr{data: []byte(content), writable: attr.Writable()}
}

func (fs *memSysFile) get(core uint32, attr Attribute) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	path := fmt.Sprintf("%s/cpu%d/cpufreq/%s", DefaultRoot, core, attr)
	if f, ok := fs.files[path]; ok {
		return string(f.data)
	}
	return ""
}

func (fs *memSysFile) Open(path string, flags int) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[path]
	if !ok {
		return -1, unix.ENOENT
	}
	if flags&unix.O_ACCMODE != unix.O_RDONLY && !f.writable {
		return -1, unix.EACCES
	}
	fd := fs.nextFD
	fs.nextFD++
	fs.fds[fd] = path
	fs.opens++
	return fd, nil
}

func (fs *memSysFile) Pread(fd int, p []byte, offset int64) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	path, ok := fs.fds[fd]
	if !ok {
		return -1, unix.EBADF
	}
	data := fs.files[path].data
	if offset >= int64(len(data)) {
		return 0, nil
	}
	end := len(data)
	if fs.chunk > 0 && int(offset)+fs.chunk < end {
		end = int(offset) + fs.chunk
	}
	return copy(p, data[offset:end]), nil
}

func (fs *memSysFile) Pwrite(fd int, p []byte, offset int64) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	path, ok := fs.fds[fd]
	if !ok {
		return -1, unix.EBADF
	}
	f := fs.files[path]
	if !f.writable {
		return -1, unix.EACCES
	}
	value := bytes.TrimRight(p, "\x00\n")
	f.data = append(append([]byte{}, value...), '\n')
	return len(p), nil
}

func (fs *memSysFile) Close(fd int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.fds[fd]; !ok {
		return unix.EBADF
	}
	delete(fs.fds, fd)
	fs.closes++
	return fs.closeErr
}

func (fs *memSysFile) openCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.fds)
}

// populate fills core with the attributes of a typical acpi-cpufreq policy.
func (fs *memSysFile) populate(core uint32) {
	fs.set(core, AffectedCPUs, "0 1 2 3\n")
	fs.set(core, BiosLimit, "3600000\n")
	fs.set(core, CPUInfoCurFreq, "2400000\n")
	fs.set(core, CPUInfoMaxFreq, "3600000\n")
	fs.set(core, CPUInfoMinFreq, "800000\n")
	fs.set(core, CPUInfoTransitionLatency, "10000\n")
	fs.set(core, RelatedCPUs, "0 1 2 3\n")
	fs.set(core, ScalingAvailableFrequencies, "3600000 2400000 1600000 800000\n")
	fs.set(core, ScalingAvailableGovernors, "performance powersave userspace\n")
	fs.set(core, ScalingCurFreq, "2400000\n")
	fs.set(core, ScalingDriver, "acpi-cpufreq\n")
	fs.set(core, ScalingGovernor, "userspace\n")
	fs.set(core, ScalingMaxFreq, "3600000\n")
	fs.set(core, ScalingMinFreq, "800000\n")
	fs.set(core, ScalingSetspeed, "2400000\n")
}
