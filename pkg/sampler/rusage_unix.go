//go:build unix

package sampler

import (
	"time"

	"golang.org/x/sys/unix"
)

func readCPUTimes() (cpuTimes, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return cpuTimes{}, false
	}
	return cpuTimes{
		user:   time.Duration(ru.Utime.Nano()),
		system: time.Duration(ru.Stime.Nano()),
	}, true
}
