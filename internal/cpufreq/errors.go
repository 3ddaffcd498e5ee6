package cpufreq

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrNoClusters     = errors.ErrorCode("cpufreq_no_clusters")
	ErrReadAttribute  = errors.ErrorCode("cpufreq_read_failed")
	ErrWriteAttribute = errors.ErrorCode("cpufreq_write_failed")
	ErrInvalidCPUList = errors.ErrorCode("cpufreq_invalid_cpu_list")
)
