package repocontext

import "errors"

var (
	// ErrResolution is the parent of every failure to turn a slug into context.
	ErrResolution = errors.New("repository resolution failed")

	ErrInvalidSlug              = errors.New("invalid repository slug")
	ErrRepositoryNotFound error = &resolutionError{msg: "repository not found"}
	ErrUpstreamFetch      error = &resolutionError{msg: "upstream fetch failed"}
)

type resolutionError struct {
	msg string
}

func (e *resolutionError) Error() string { return e.msg }

func (e *resolutionError) Is(target error) bool {
	return target == ErrResolution
}
