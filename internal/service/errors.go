package service

import "errors"

// Rejections returned to callers. None of them leave partial state behind.
var (
	ErrQuestionNotFound        = errors.New("question not found")
	ErrUnsupportedQuestionType = errors.New("only code questions can be used for duels")
	ErrAlreadyInDuel           = errors.New("you already have an active duel")
	ErrDuelNotFound            = errors.New("duel not found")
	ErrDuelNotJoinable         = errors.New("duel is not available for joining")
	ErrCannotJoinOwnDuel       = errors.New("cannot join your own duel")
	ErrDuelNotActive           = errors.New("duel is not active")
	ErrNotAParticipant         = errors.New("you are not a participant in this duel")
	ErrAccessDenied            = errors.New("access denied to this duel")
	ErrInvalidSubmission       = errors.New("invalid submission")
	ErrUserNotFound            = errors.New("user not found")

	// The judge could not evaluate the code. The duel is untouched.
	ErrExecutionFailed = errors.New("code execution failed")
)
