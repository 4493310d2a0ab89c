package diagnostics

import (
	"fmt"

	"github.com/funvibe/annoscene/internal/token"
)

type ErrorCode string

const (
	// Lexer errors
	ErrL001 ErrorCode = "L001" // malformed token

	// Parser errors
	ErrP000 ErrorCode = "P000" // internal
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // expected a number
	ErrP003 ErrorCode = "P003" // number out of range
	ErrP004 ErrorCode = "P004" // bad type path step
	ErrP005 ErrorCode = "P005" // custom syntax error
	ErrP006 ErrorCode = "P006" // unknown field kind

	// Semantic errors found while resolving a file
	ErrS001 ErrorCode = "S001" // undefined annotation
	ErrS002 ErrorCode = "S002" // ambiguous short name
	ErrS003 ErrorCode = "S003" // value does not fit its field
	ErrS004 ErrorCode = "S004" // duplicate annotation
	ErrS005 ErrorCode = "S005" // conflicting definitions
)

var errorTemplates = map[ErrorCode]string{
	ErrL001: "%s",
	ErrP000: "%s",
	ErrP001: "expected %s, found %s",
	ErrP002: "expected a number, found %s",
	ErrP003: "number %s out of range",
	ErrP004: "invalid type path step %q",
	ErrP005: "%s",
	ErrP006: "unknown field kind %q",
	ErrS001: "undefined annotation @%s",
	ErrS002: "%s",
	ErrS003: "%s",
	ErrS004: "%s",
	ErrS005: "%s",
}

// DiagnosticError is a lexer, parser or resolution error at a position in
// an index file.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	File    string
	Message string
	Err     error
}

func (e *DiagnosticError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: [%s] %s", file, e.Token.Line, e.Token.Column, e.Code, e.Message)
}

func (e *DiagnosticError) Unwrap() error { return e.Err }

// Line and Column locate the error; both are 1-based.
func (e *DiagnosticError) Line() int   { return e.Token.Line }
func (e *DiagnosticError) Column() int { return e.Token.Column }

func NewError(code ErrorCode, tok token.Token, args ...any) *DiagnosticError {
	template, ok := errorTemplates[code]
	if !ok {
		template = "unknown error"
	}
	return &DiagnosticError{
		Code:    code,
		Token:   tok,
		Message: fmt.Sprintf(template, args...),
	}
}

// Wrap turns err into a diagnostic at tok, keeping err for errors.As.
func Wrap(code ErrorCode, tok token.Token, err error) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: err.Error(), Err: err}
}

// List joins the errors of one file. It is nil when errs is empty.
type List []*DiagnosticError

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

func (l List) Unwrap() []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// Err returns l as an error, or nil when it holds no errors.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
