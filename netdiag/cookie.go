package netdiag

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

var cachedPrefix string

func timeToUnix(t time.Time) int64 {
	return int64(t.Sub(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)).Seconds())
}

// bootTimeWithRaceCondition has a race condition between reading
// /proc/uptime and calling time.Now(): if the two straddle a
// second-granularity boundary the result can be off by one. The caller is
// expected to call it until it returns the same answer twice in a row.
func bootTimeWithRaceCondition() (int64, error) {
	procUptime, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return -1, err
	}
	fields := strings.Split(string(procUptime), " ")
	if len(fields) != 2 {
		return -1, fmt.Errorf("netdiag: could not split /proc/uptime into two fields")
	}
	uptime, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return -1, fmt.Errorf("netdiag: could not parse /proc/uptime: %w", err)
	}
	return timeToUnix(time.Now().Add(-time.Duration(uptime * float64(time.Second)))), nil
}

func bootTime() (int64, error) {
	var prev, curr int64
	curr, err := bootTimeWithRaceCondition()
	if err != nil {
		return curr, err
	}
	for prev != curr {
		prev = curr
		curr, err = bootTimeWithRaceCondition()
		if err != nil {
			return curr, err
		}
	}
	return curr, nil
}

// prefix returns a string identifying the hostname and boot time of this
// machine, which is constant for the lifetime of a process and globally
// unique enough to disambiguate otherwise-identical socket cookies across
// hosts and reboots.
func prefix() (string, error) {
	if cachedPrefix != "" {
		return cachedPrefix, nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	boot, err := bootTime()
	if err != nil {
		return "", err
	}
	cachedPrefix = fmt.Sprintf("%s_%d", hostname, boot)
	return cachedPrefix, nil
}

// socketCookie returns the kernel's SO_COOKIE value for fd, a 64-bit id
// unique among sockets opened since the last reboot. GetsockoptInt cannot
// be used here since SO_COOKIE is a 64-bit value, so the getsockopt
// syscall is issued directly.
func socketCookie(fd int) (uint64, error) {
	var cookie uint64
	cookieLen := uint32(unsafe.Sizeof(cookie))
	_, _, errno := unix.Syscall6(
		uintptr(unix.SYS_GETSOCKOPT),
		uintptr(fd),
		uintptr(unix.SOL_SOCKET),
		uintptr(unix.SO_COOKIE),
		uintptr(unsafe.Pointer(&cookie)),
		uintptr(unsafe.Pointer(&cookieLen)),
		0)
	if errno != 0 {
		return 0, &SnapshotError{Op: "getsockopt(SO_COOKIE)", Err: errno}
	}
	return cookie, nil
}

// Cookie returns a string uniquely identifying the socket held by fd,
// stable for the lifetime of this host's current boot.
func Cookie(fd int) (string, error) {
	cookie, err := socketCookie(fd)
	if err != nil {
		return "", err
	}
	return FromCookie(cookie)
}

// FromCookie renders a raw SO_COOKIE value as a globally-namespaced string,
// for callers that already have the raw cookie (e.g. from a Cache key).
func FromCookie(cookie uint64) (string, error) {
	p, err := prefix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%X", p, cookie), nil
}
