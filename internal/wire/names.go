package wire

// Lifecycle timestamps, recorded as timers holding Unix milliseconds.
const (
	ProcessStart     = "process.start"
	ProcessMainStart = "process.main_start"
	ProcessMainEnd   = "process.main_end"
	ProcessEnd       = "process.end"
)

// Sampled runtime metrics.
const (
	GCPauseTimeMs        = "runtime.go.gc.pause_time_ms"
	GCCountTotal         = "runtime.go.gc.count.total"
	GCCountForced        = "runtime.go.gc.count.forced"
	GCCountAutomatic     = "runtime.go.gc.count.automatic"
	GCHeapGoal           = "runtime.go.gc.heap_goal"
	GCMemoryLoadPercent  = "runtime.go.gc.memory_load_percent"
	HeapObjectsBytes     = "runtime.go.mem.heap.objects"
	HeapUnusedBytes      = "runtime.go.mem.heap.unused"
	HeapFreeBytes        = "runtime.go.mem.heap.free"
	HeapReleasedBytes    = "runtime.go.mem.heap.released"
	StackBytes           = "runtime.go.mem.stack"
	LockContentionTimeMs = "runtime.go.lock.contention_time_ms"
	LockContentionTicks  = "runtime.go.lock.contention_ticks"
	Goroutines           = "runtime.go.goroutines"
	// ThreadsCreated counts OS threads created since start, not live threads
	ThreadsCreated       = "runtime.process.threads_created"
	CommittedMemory      = "runtime.process.committed_memory"
	PrivateMemory        = "runtime.process.private_memory"
	CPUUserTimeMs        = "runtime.process.cpu.user_time_ms"
	CPUSystemTimeMs      = "runtime.process.cpu.system_time_ms"
	CPUTotalTimeMs       = "runtime.process.cpu.total_time_ms"
	CPUPercent           = "runtime.process.cpu.percent"
	PanicPrefix          = "runtime.go.panics."
)

// Metrics derived by the harness after correlating lifecycle timestamps
// with its own spawn timestamp.
const (
	TimeToStartMs       = "process.time_to_start_ms"
	TimeToMainStartMs   = "process.time_to_main_start_ms"
	TimeToMainEndMs     = "process.time_to_main_end_ms"
	InternalDurationMs  = "process.internal_duration_ms"
	StartupHookOverhead = "process.startuphook_overhead_ms"
	CorrectedDurationMs = "process.corrected_duration_ms"
)

// Environment variables linking the harness and the sampler.
const (
	EnvStartupHooks = "TIMEIT_STARTUP_HOOKS"
	EnvMetricsFile  = "TIMEIT_METRICS_FILE"
	EnvProcessName  = "TIMEIT_PROCESS_NAME"
)
