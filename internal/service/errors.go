package service

import "errors"

// ErrConnection wraps transport-level failures (DNS, timeout) reaching a
// provider. Retryable on the next tick without special handling. Provider
// rejections never surface as errors at all: they travel as PublishOutcome
// and CredentialValidation data.
var ErrConnection = errors.New("provider unreachable")
