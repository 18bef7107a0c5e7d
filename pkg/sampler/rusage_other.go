//go:build !unix

package sampler

// CPU times are only sampled where getrusage is available.
func readCPUTimes() (cpuTimes, bool) {
	return cpuTimes{}, false
}
