package core

// error_messages.go maps run errors to operator-facing messages.
//
// # Error Codes Reference
//
// Every failure surfaced by a sink carries a stable code so operators can
// quote it when reporting a problem. Codes are grouped by category.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Missing field: A required configuration field is absent or empty
//	         Action: Add the field to the configuration document
//
//	CFG002 - Malformed: The configuration document could not be parsed
//	         Action: Check the document for markup errors
//
//	CFG003 - Unreadable: The configuration document could not be opened
//	         Action: Check that the file exists next to the executable
//
// # Fetch Errors (FET001-FET099)
//
//	FET001 - Connect failed: The remote server could not be reached
//	FET002 - Auth rejected: The server rejected the username or password
//	FET003 - Not found: The remote file does not exist
//	FET004 - Local write: The downloaded file could not be written locally
//	FET005 - Transfer: The connection broke during the download
//
// # Parse Errors (PRS001-PRS099)
//
//	PRS001 - Bad number: A capacity column holds a non-numeric value
//	PRS002 - Bad timestamp: A collection time could not be parsed
//	PRS003 - Schema mismatch: The file does not have the expected columns
//	PRS004 - Unreadable: The file could not be read or decoded
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was cancelled before this entry finished
//	RUN002 - Timed out: The run deadline passed before this entry finished
//
// # Sink Errors (SNK001-SNK099)
//
//	SNK001 - Render failed: The view could not display the data
//
// Anything else maps to ERR000.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorKind maps a sentinel kind to its message. Checked in order with errors.Is.
type errorKind struct {
	kind error
	msg  UserMessage
}

var errorKinds = []errorKind{
	{ErrMissingField, UserMessage{
		Message: "A required configuration field is missing",
		Action:  "Add the field to the configuration document",
		Code:    "CFG001",
	}},
	{ErrMalformed, UserMessage{
		Message: "The configuration document could not be parsed",
		Action:  "Check the document for markup errors",
		Code:    "CFG002",
	}},
	{ErrUnreadable, UserMessage{
		Message: "The configuration document could not be opened",
		Action:  "Check that the file exists next to the executable",
		Code:    "CFG003",
	}},

	{ErrConnectFailed, UserMessage{
		Message: "Unable to connect to the remote server",
		Action:  "Check the server address and network, then rerun",
		Code:    "FET001",
	}},
	{ErrAuthFailed, UserMessage{
		Message: "The server rejected the login",
		Action:  "Check Username and Password in the configuration",
		Code:    "FET002",
	}},
	{ErrRemoteNotFound, UserMessage{
		Message: "The remote file does not exist",
		Action:  "Check the RemoteFilePath entry",
		Code:    "FET003",
	}},
	{ErrLocalWriteFailed, UserMessage{
		Message: "The downloaded file could not be saved",
		Action:  "Check permissions and free space for the LocalFilePath entry",
		Code:    "FET004",
	}},
	{ErrTransferFailed, UserMessage{
		Message: "The download was interrupted",
		Action:  "Rerun the pipeline",
		Code:    "FET005",
	}},

	{ErrBadNumeric, UserMessage{
		Message: "The report contains a non-numeric capacity value",
		Action:  "Fix the reported row in the source report",
		Code:    "PRS001",
	}},
	{ErrBadTimestamp, UserMessage{
		Message: "The report contains an unreadable collection time",
		Action:  "Use YYYY-MM-DD HH:MM:SS in the source report",
		Code:    "PRS002",
	}},
	{ErrSchemaMismatch, UserMessage{
		Message: "The report does not have the expected columns",
		Action:  "Check that the file matches its report type",
		Code:    "PRS003",
	}},
	{ErrFileUnreadable, UserMessage{
		Message: "The report could not be read",
		Action:  "Check the file encoding and CSV syntax",
		Code:    "PRS004",
	}},

	{context.Canceled, UserMessage{
		Message: "The run was cancelled",
		Action:  "Rerun the pipeline",
		Code:    "RUN001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The run timed out",
		Action:  "Raise FETCH_TIMEOUT or check the network",
		Code:    "RUN002",
	}},
}

// errorPatterns catch untyped errors from third-party code by substring
// (case-insensitive). The first match wins.
var errorPatterns = []struct {
	pattern string
	kind    error
}{
	{"connection refused", ErrConnectFailed},
	{"no such host", ErrConnectFailed},
	{"i/o timeout", ErrConnectFailed},
	{"unable to authenticate", ErrAuthFailed},
	{"no such file", ErrRemoteNotFound},
	{"permission denied", ErrLocalWriteFailed},
	{"no space left", ErrLocalWriteFailed},
}

var renderMessage = UserMessage{
	Message: "The view could not display this report",
	Action:  "Check the application logs",
	Code:    "SNK001",
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the application logs",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message.
//
// Typed kinds are matched first, then render failures, then substring
// patterns. If nothing matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ek := range errorKinds {
		if errors.Is(err, ek.kind) {
			return ek.msg
		}
	}

	var re *RenderError
	if errors.As(err, &re) {
		return renderMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return MapError(ep.kind)
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
