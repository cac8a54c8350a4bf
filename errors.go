package chq

import (
	"errors"
	"fmt"
)

/*
Category of an `Err`. Matching by code is done by `errors.Is` against the
sentinel variables such as `ErrInvalidQuery`, which is usually preferable to
inspecting the code directly.
*/
type ErrCode string

const (
	ErrCodeUnknown             ErrCode = ``
	ErrCodeInvalidInput        ErrCode = `InvalidInput`
	ErrCodeInvalidQuery        ErrCode = `InvalidQuery`
	ErrCodeInvalidType         ErrCode = `InvalidType`
	ErrCodeUnexpectedParameter ErrCode = `UnexpectedParameter`
	ErrCodeUnusedArgument      ErrCode = `UnusedArgument`
	ErrCodeTooManyArguments    ErrCode = `TooManyArguments`
	ErrCodeOrdinalOutOfBounds  ErrCode = `OrdinalOutOfBounds`
	ErrCodeInternal            ErrCode = `Internal`
)

/*
Sentinels for `errors.Is`:

	_, err := chq.Parse(src)
	if errors.Is(err, chq.ErrInvalidQuery) {
		// Handle specific error.
	}

Errors returned by this package carry details about the failed operation, so
they're never `==` to a sentinel. `errors.Is` compares the cause first and the
code second.

Rendering via `(*Prep).Apply` never produces errors. Only parsing empty query
text, parsing type text, misusing `Query.Append`, and passing invalid inputs to
`StructDict` or `SetPreparseCacheSize` do.
*/
var (
	ErrInvalidInput        = errCode(ErrCodeInvalidInput, `invalid input`)
	ErrInvalidQuery        = errCode(ErrCodeInvalidQuery, `invalid query`)
	ErrInvalidType         = errCode(ErrCodeInvalidType, `invalid type`)
	ErrUnexpectedParameter = errCode(ErrCodeUnexpectedParameter, `unexpected parameter`)
	ErrUnusedArgument      = errCode(ErrCodeUnusedArgument, `unused argument`)
	ErrTooManyArguments    = errCode(ErrCodeTooManyArguments, `too many arguments`)
	ErrOrdinalOutOfBounds  = errCode(ErrCodeOrdinalOutOfBounds, `ordinal parameter exceeds arguments`)
	ErrInternal            = errCode(ErrCodeInternal, `internal error`)
)

func errCode(code ErrCode, msg string) Err {
	return Err{Code: code, Cause: errors.New(msg)}
}

/*
Type of errors returned by this package. `While` names the operation that
failed, such as "parsing query". `Cause` is the underlying error, usually
with the offending input.
*/
type Err struct {
	Code  ErrCode
	While string
	Cause error
}

// Implement `error`.
func (self Err) Error() string { return string(self.AppendTo(nil)) }

/*
Appends the error message: "[chq]", then the code if any, then "while" and
the operation if any, then the cause. A zero error appends nothing.
*/
func (self Err) AppendTo(buf []byte) []byte {
	if self == (Err{}) {
		return buf
	}

	buf = append(buf, `[chq]`...)
	if self.Code != ErrCodeUnknown {
		buf = append(buf, ' ')
		buf = append(buf, self.Code...)
	}
	if self.While != `` {
		buf = append(buf, ` while `...)
		buf = append(buf, self.While...)
	}
	if self.Cause != nil {
		buf = append(buf, `: `...)
		buf = append(buf, self.Cause.Error()...)
	}
	return buf
}

// Implement a hidden interface in "errors".
func (self Err) Is(other error) bool {
	if self.Cause != nil && errors.Is(self.Cause, other) {
		return true
	}
	err, ok := other.(Err)
	return ok && err.Code != ErrCodeUnknown && err.Code == self.Code
}

// Implement a hidden interface in "errors".
func (self Err) Unwrap() error { return self.Cause }

func (self Err) while(val string) Err {
	self.While = val
	return self
}

func (self Err) because(val error) Err {
	self.Cause = val
	return self
}

func errf(pattern string, args ...any) error { return fmt.Errorf(pattern, args...) }
