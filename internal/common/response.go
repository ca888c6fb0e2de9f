package common

import (
	"encoding/json"
	"io"
)

// ErrorBody represents a consistent error payload written by the tools.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v to w as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONError renders err using the canonical error shape and returns the exit
// code the process should terminate with.
func JSONError(w io.Writer, err error) int {
	appErr := Classify(err)
	if appErr == nil {
		return ExitOK
	}
	message := appErr.Message
	if appErr.Err != nil && appErr.ExitCode != ExitInternal {
		message = appErr.Err.Error()
	}
	_ = JSON(w, map[string]any{
		"error": ErrorBody{
			Code:    appErr.Code,
			Message: message,
			Details: appErr.Details,
		},
	})
	return appErr.ExitCode
}
