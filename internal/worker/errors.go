// ABOUTME: Sentinel error kinds, wrapped with plugin/output context at the point they're logged
package worker

import "errors"

var (
	ErrEnableFailed               = errors.New("enable failed")
	ErrFilterOpenFailed           = errors.New("filter open failed")
	ErrBackendOpenFailed          = errors.New("backend open failed")
	ErrConvertConfigFailed        = errors.New("convert filter configuration failed")
	ErrPlayFailed                 = errors.New("play failed")
	ErrPauseFailed                = errors.New("pause failed")
	ErrFilterPCMFailed            = errors.New("filter pcm failed")
	ErrCrossFadeFormatUnsupported = errors.New("cross-fade format unsupported")
)
