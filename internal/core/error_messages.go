package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Codes by category:
//
//	FILE001  file too large              "file too large"
//	FILE002  unsupported format          "unsupported file type"
//	FILE003  unreadable content          "invalid csv", "encoding error", "parse error"
//	FILE004  nothing uploaded            "no file provided"
//	FILE005  too many files on one side  "too many files"
//	FILE006  unsafe file name            "invalid file name"
//
//	CMP001   limiter full                "too many concurrent comparisons"
//	CMP002   unknown session             "comparison session not found"
//	CMP003   unknown report              "report not found"
//	CMP004   unresolved manual pair      "manual pair"
//
//	REQ001   client went away            "context canceled"
//	REQ002   request deadline            "context deadline exceeded"
//	REQ003   malformed upload form       "invalid form", "multipart"
//
//	DB001    database unreachable        "connection refused", "connection reset"
//	DB002    database slow               "timeout"
//	DB003    audit log disabled          "audit store unavailable"
//
//	RATE001  throttled                   "rate limit"
//	AUTH001  admin key missing or wrong  "unauthorized"
//
//	ERR000   fallback
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns precede general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "A file exceeds the maximum size limit",
			Action:  "Split the file or compare a smaller extract",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload CSV, TSV, Excel, JSON, YAML, TOML or plain text files",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "A file is not valid delimited text",
			Action:  "Check quoting and delimiters in the file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "A file contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "A file could not be read",
			Action:  "Check that the file content matches its extension",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No files were selected",
			Action:  "Select at least one file for source 1 or source 2",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid file name",
		msg: UserMessage{
			Message: "A file name is not allowed",
			Action:  "Rename the file without path separators",
			Code:    "FILE006",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files were uploaded for one source",
			Action:  "Split the comparison into smaller batches",
			Code:    "FILE005",
		},
	},

	// Comparison errors
	{
		pattern: "too many concurrent comparisons",
		msg: UserMessage{
			Message: "System is busy processing other comparisons",
			Action:  "Please wait a moment and try again",
			Code:    "CMP001",
		},
	},
	{
		pattern: "comparison session not found",
		msg: UserMessage{
			Message: "Comparison session not found",
			Action:  "The session may have expired. Please run the comparison again",
			Code:    "CMP002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "Check the report name or run the comparison again",
			Code:    "CMP003",
		},
	},
	{
		pattern: "manual pair",
		msg: UserMessage{
			Message: "A manual pair could not be resolved",
			Action:  "Check that both files were uploaded and used in only one pair",
			Code:    "CMP004",
		},
	},

	// Request errors
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Compare fewer or smaller files, or try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid form",
		msg: UserMessage{
			Message: "The upload form could not be read",
			Action:  "Reload the page and submit again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "multipart",
		msg: UserMessage{
			Message: "The upload form could not be read",
			Action:  "Reload the page and submit again",
			Code:    "REQ003",
		},
	},

	// Database errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},
	{
		pattern: "audit store unavailable",
		msg: UserMessage{
			Message: "Comparison history is not available",
			Action:  "Configure DATABASE_URL to enable the audit log",
			Code:    "DB003",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "Access denied",
			Action:  "Provide a valid API key",
			Code:    "AUTH001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// codeFor identifies this package's own errors by identity, so a wrapped
// cause whose text happens to contain another pattern still maps correctly.
func codeFor(err error) string {
	var (
		unsupported *UnsupportedFormatError
		parse       *ParseError
		conflict    *PairingConflictError
	)
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return "FILE001"
	case errors.As(err, &unsupported):
		return "FILE002"
	case errors.As(err, &parse):
		return "FILE003"
	case errors.Is(err, ErrNoFiles):
		return "FILE004"
	case errors.Is(err, ErrTooManyFiles):
		return "FILE005"
	case errors.Is(err, ErrInvalidFileName):
		return "FILE006"
	case errors.Is(err, ErrTooManyComparisons):
		return "CMP001"
	case errors.Is(err, ErrSessionNotFound):
		return "CMP002"
	case errors.Is(err, ErrReportNotFound):
		return "CMP003"
	case errors.As(err, &conflict):
		return "CMP004"
	case errors.Is(err, ErrAuditUnavailable):
		return "DB003"
	}
	return ""
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if code := codeFor(err); code != "" {
		for _, ep := range errorPatterns {
			if ep.msg.Code == code {
				return ep.msg
			}
		}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
