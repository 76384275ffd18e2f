package wizard

import (
	"errors"
	"fmt"
)

var (
	ErrWrongStage        = errors.New("correction not allowed in current stage")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrUnknownElement    = errors.New("unknown element")
	ErrUnknownCorrection = errors.New("unknown correction")
	ErrInvalidValue      = errors.New("invalid value")
	ErrLastStage         = errors.New("already at the last stage")
	ErrFirstStage        = errors.New("already at the first stage")
)

// ErrorCode is a machine-readable export-gate failure.
type ErrorCode string

const (
	CodeStageIncomplete      ErrorCode = "STAGE_INCOMPLETE"
	CodeInvalidSetup         ErrorCode = "INVALID_SETUP"
	CodeEmptyID              ErrorCode = "EMPTY_ID"
	CodeDuplicateID          ErrorCode = "DUPLICATE_ID"
	CodeDanglingReference    ErrorCode = "DANGLING_REFERENCE"
	CodeUnresolvedLabel      ErrorCode = "UNRESOLVED_LABEL"
	CodeUnconfirmedIsolation ErrorCode = "UNCONFIRMED_ISOLATION"
)

// ExportError blocks export. Ref names the offending id when there is one;
// Stage is where the user can fix it.
type ExportError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Ref     string    `json:"ref,omitempty"`
	Stage   Stage     `json:"stage"`
}

func (e *ExportError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func exportErrorf(code ErrorCode, stage Stage, ref, format string, args ...any) *ExportError {
	return &ExportError{Code: code, Message: fmt.Sprintf(format, args...), Ref: ref, Stage: stage}
}
