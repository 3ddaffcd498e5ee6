package events

import "codeberg.org/mutker/thermalctl/internal/errors"

const (
	ErrInvalidConfig  = errors.ErrorCode("events_invalid_config")
	ErrConnectFailed  = errors.ErrorCode("events_connect_failed")
	ErrPublishFailed  = errors.ErrorCode("events_publish_failed")
	ErrPublishTimeout = errors.ErrorCode("events_publish_timeout")
	ErrFormatPayload  = errors.ErrorCode("events_format_payload_failed")
)
