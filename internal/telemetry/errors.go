package telemetry

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")

	// Connection Errors
	ErrHealthCheck = errors.ErrorCode("telemetry_health_check_failed")

	// Collection Errors
	ErrWriteFailed    = errors.ErrorCode("telemetry_write_failed")
	ErrInvalidMetrics = errors.ErrorCode("telemetry_invalid_sample")

	// Operation Errors
	ErrOperationTimeout = errors.ErrorCode("telemetry_operation_timeout")
)
