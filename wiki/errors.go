package wiki

import (
	"fmt"
	"strings"
)

// Error codes for programmatic error handling
type ErrorCode string

const (
	// Transport error codes
	TransportCodeFailed ErrorCode = "TRANSPORT_FAILED"
	TransportCodeStatus ErrorCode = "TRANSPORT_STATUS"

	// Protocol error codes
	ProtocolCodeInvalidPayload ErrorCode = "PROTOCOL_INVALID_PAYLOAD"

	// Authentication error codes
	AuthCodeEmptyResponse ErrorCode = "AUTH_EMPTY_RESPONSE"
	AuthCodeTransport     ErrorCode = "AUTH_TRANSPORT"
	AuthCodeMissingToken  ErrorCode = "AUTH_MISSING_TOKEN"
	AuthCodeRejected      ErrorCode = "AUTH_REJECTED"

	// Data shape error codes
	DataShapeCodeMissing ErrorCode = "DATA_SHAPE_MISSING"

	// Not found error codes
	NotFoundCodePage  ErrorCode = "NOT_FOUND_PAGE"
	NotFoundCodeToken ErrorCode = "NOT_FOUND_TOKEN"

	// Validation error codes
	ValidationCodeInvalid ErrorCode = "VALIDATION_INVALID"

	// Server-reported API error
	APICodeError ErrorCode = "API_ERROR"
)

// maxBodyDisplay bounds how much of a raw body an error message shows.
// The full body stays available on the error value.
const maxBodyDisplay = 500

// TransportError reports a network failure or a non-success HTTP status.
type TransportError struct {
	URL        string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var sb strings.Builder
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("[%s] request to %s returned status %d", e.ErrorCode(), e.URL, e.StatusCode))
	} else {
		sb.WriteString(fmt.Sprintf("[%s] request to %s failed", e.ErrorCode(), e.URL))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	if e.Body != "" {
		sb.WriteString(fmt.Sprintf("\nBody: %s", displayBody(e.Body)))
	}
	return sb.String()
}

// ErrorCode returns the structured error code for programmatic handling
func (e *TransportError) ErrorCode() ErrorCode {
	if e.StatusCode != 0 {
		return TransportCodeStatus
	}
	return TransportCodeFailed
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a successful response whose payload could not be parsed.
type ProtocolError struct {
	URL  string
	Body string
	Err  error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("[%s] unparsable response from %s", ProtocolCodeInvalidPayload, e.URL)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "\nBody: " + displayBody(e.Body)
}

// ErrorCode returns the structured error code for programmatic handling
func (e *ProtocolError) ErrorCode() ErrorCode { return ProtocolCodeInvalidPayload }

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthError reports a failed login handshake.
type AuthError struct {
	Code   ErrorCode
	Phase  string // "login phase 1", "login token", "login phase 2"
	Reason string
	URL    string
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	var suggestion string
	switch e.Code {
	case AuthCodeRejected:
		suggestion = `The server refused the credentials.
1. Verify the username (bot passwords use the form "User@BotName")
2. Verify the password belongs to that account or bot password
3. Check whether the account is blocked or locked`
	case AuthCodeEmptyResponse, AuthCodeMissingToken:
		suggestion = `The server did not return a usable login payload.
1. Verify the endpoint points to the wiki's api.php
2. Test it in a browser: <URL>?action=query&meta=siteinfo&format=json`
	default:
		suggestion = "Check the wiki connection and retry."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] authentication failed during %s: %s", e.Code, e.Phase, e.Reason))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf("\nCause: %v", e.Err))
	}
	if e.Body != "" {
		sb.WriteString(fmt.Sprintf("\nBody: %s", displayBody(e.Body)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(suggestion)
	return sb.String()
}

// ErrorCode returns the structured error code for programmatic handling
func (e *AuthError) ErrorCode() ErrorCode { return e.Code }

func (e *AuthError) Unwrap() error { return e.Err }

// DataShapeError reports a well-formed payload missing the expected structure.
type DataShapeError struct {
	Operation string
	Path      string // dotted location of the missing or ill-typed node
	URL       string
	Body      string
	Err       error
}

func (e *DataShapeError) Error() string {
	msg := fmt.Sprintf("[%s] %s: response has no usable %s", DataShapeCodeMissing, e.Operation, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.URL != "" {
		msg += "\nURL: " + e.URL
	}
	if e.Body != "" {
		msg += "\nBody: " + displayBody(e.Body)
	}
	return msg
}

// ErrorCode returns the structured error code for programmatic handling
func (e *DataShapeError) ErrorCode() ErrorCode { return DataShapeCodeMissing }

func (e *DataShapeError) Unwrap() error { return e.Err }

// PageNotFoundError reports a page read where no entry carried revision text.
type PageNotFoundError struct {
	Title string
	URL   string
	Err   error // server-reported error, when there was one
}

func (e *PageNotFoundError) Error() string {
	msg := fmt.Sprintf(`[%s] page not found: %s

Possible causes:
1. The page title is misspelled
2. The page was deleted or moved
3. The account cannot read the page`, NotFoundCodePage, e.Title)
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nServer said: %v", e.Err)
	}
	return msg
}

// ErrorCode returns the structured error code for programmatic handling
func (e *PageNotFoundError) ErrorCode() ErrorCode { return NotFoundCodePage }

func (e *PageNotFoundError) Unwrap() error { return e.Err }

// TokenNotFoundError reports a token fetch whose response carried no token.
// The previously cached token is left in place.
type TokenNotFoundError struct {
	Kind  string // "edit" or "csrf"
	Title string
	URL   string
	Err   error
}

func (e *TokenNotFoundError) Error() string {
	msg := fmt.Sprintf("[%s] no %s token in response", NotFoundCodeToken, e.Kind)
	if e.Title != "" {
		msg += fmt.Sprintf(" for %q", e.Title)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// ErrorCode returns the structured error code for programmatic handling
func (e *TokenNotFoundError) ErrorCode() ErrorCode { return NotFoundCodeToken }

func (e *TokenNotFoundError) Unwrap() error { return e.Err }

// ValidationError represents an input validation failure with recovery guidance
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation failed for %s: %s", e.Field, e.Message))
	if e.Value != "" {
		displayValue := e.Value
		if len(displayValue) > 100 {
			displayValue = displayValue[:100] + "..."
		}
		sb.WriteString(fmt.Sprintf("\n\nProvided value: %q", displayValue))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nTo fix this:\n%s", e.Suggestion))
	}
	return sb.String()
}

// ErrorCode returns the structured error code for programmatic handling
func (e *ValidationError) ErrorCode() ErrorCode { return ValidationCodeInvalid }

// APIError is an error object reported by the server inside a 2xx payload.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error [%s]: %s", e.Code, e.Info)
}

// ErrorCode returns the structured error code for programmatic handling
func (e *APIError) ErrorCode() ErrorCode { return APICodeError }

func displayBody(body string) string {
	if len(body) > maxBodyDisplay {
		return body[:maxBodyDisplay] + "..."
	}
	return body
}
