package judge

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnavailable         = errors.New("code execution is not configured")
	ErrTimeout             = errors.New("code execution timed out")
	ErrJudgeFailure        = errors.New("sandbox failed to run the code")
)

// Verdict statuses, as reported by the sandbox
const (
	StatusSuccess          = "success"
	StatusWrongAnswer      = "wrong_answer"
	StatusTimeout          = "timeout"
	StatusCompilationError = "compilation_error"
	StatusRuntimeError     = "runtime_error"
	StatusError            = "error"
)

type Verdict struct {
	Correct       bool
	Status        string
	Output        string
	Error         string
	ExecutionTime float64
}

// Judge runs code and compares its output with the expected answer. A
// returned error means the code could not be judged at all; a wrong or
// crashing program is a Verdict with Correct false.
type Judge interface {
	Evaluate(ctx context.Context, code, language, expectedOutput string) (*Verdict, error)
}

// Unavailable is used when no sandbox is configured.
type Unavailable struct{}

func (Unavailable) Evaluate(context.Context, string, string, string) (*Verdict, error) {
	return nil, ErrUnavailable
}
