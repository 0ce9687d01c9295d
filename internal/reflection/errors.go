package reflection

import (
	"errors"
	"fmt"
)

// Operation names a collaborator call for error reporting and metrics.
type Operation string

const (
	OpRetrieve          Operation = "retrieve"
	OpScoreRelevance    Operation = "score_relevance"
	OpRewriteQuery      Operation = "rewrite_query"
	OpGenerate          Operation = "generate"
	OpScoreGroundedness Operation = "score_groundedness"
	OpRegenerate        Operation = "regenerate"
)

// RetrievalError reports a failure of the document retrieval service.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// JudgeError reports a failure of a scoring call, including replies
// that are not a valid score.
type JudgeError struct {
	Op  Operation
	Err error
}

func (e *JudgeError) Error() string { return fmt.Sprintf("judge call %s failed: %v", e.Op, e.Err) }
func (e *JudgeError) Unwrap() error { return e.Err }

// RewriteError reports a failure of the query reflector.
type RewriteError struct {
	Err error
}

func (e *RewriteError) Error() string { return fmt.Sprintf("query rewrite failed: %v", e.Err) }
func (e *RewriteError) Unwrap() error { return e.Err }

// GenerationError reports a failure of the generator or regenerator.
type GenerationError struct {
	Op  Operation
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation call %s failed: %v", e.Op, e.Err)
}
func (e *GenerationError) Unwrap() error { return e.Err }

// CollaboratorError reports a collaborator call that failed twice in a
// row. It aborts the whole run; the caller receives no partial result
// and should surface a "temporarily unavailable" signal. The wrapped
// error carries the operation category (RetrievalError, JudgeError,
// RewriteError or GenerationError).
type CollaboratorError struct {
	Op  Operation
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator call %s failed after retry: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// IsCollaboratorError reports whether err comes from a failed
// collaborator call, as opposed to context cancellation or setup
// errors.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}

// categorize wraps a raw provider error in the taxonomy type for its
// operation.
func categorize(op Operation, err error) error {
	switch op {
	case OpRetrieve:
		return &RetrievalError{Err: err}
	case OpScoreRelevance, OpScoreGroundedness:
		return &JudgeError{Op: op, Err: err}
	case OpRewriteQuery:
		return &RewriteError{Err: err}
	default:
		return &GenerationError{Op: op, Err: err}
	}
}
