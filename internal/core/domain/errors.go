package domain

import "errors"

// Error kinds. Adapters branch on these with IsKind rather than on messages.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream failure")
	ErrTemporary    = errors.New("temporary failure")
)

// StageError tags a failure with the pipeline stage that produced it
// (embed, retrieve, rerank, synthesize, ...) and one of the kinds above.
type StageError struct {
	Kind  error
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// WrapError returns nil for a nil err.
func WrapError(kind error, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// StageOf reports the outermost stage recorded on err, or "".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
