package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy. Each stage-specific error wraps one of the four broad
// classes so callers can branch on either level with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream service failure")
	ErrMedia        = errors.New("media processing failure")
	ErrPublish      = errors.New("publish failure")

	ErrAssetUnreadable = fmt.Errorf("%w: audio asset unreadable", ErrMedia)
	ErrNarrative       = fmt.Errorf("%w: narrative generation", ErrUpstream)
	ErrImageSynthesis  = fmt.Errorf("%w: image synthesis", ErrUpstream)
	ErrRender          = fmt.Errorf("%w: clip render", ErrMedia)
	ErrAssembly        = fmt.Errorf("%w: video assembly", ErrMedia)
)

// ErrorCode maps a pipeline error to the stable code stored on the video
// record and surfaced to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "bad_request"
	case errors.Is(err, ErrUpstream):
		return "upstream_failure"
	case errors.Is(err, ErrPublish):
		return "publish_failure"
	default:
		return "internal_error"
	}
}
