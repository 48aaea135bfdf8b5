package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Error codes. The 4xxx range is reserved for crisis screening and alerts.
const (
	CodeInvalidArgument = 4000
	CodeNotFound        = 4004
	CodeConflict        = 4009

	CodeInvalidSeverity  = 4101
	CodeInvalidSubject   = 4102
	CodeAlreadyNotified  = 4111
	CodeNotYetNotified   = 4112
	CodeAlreadyViewed    = 4113
	CodeNotYetViewed     = 4114
	CodeAlreadyResolved  = 4115
	CodeAlertNotFound    = 4120
	CodeConcurrentUpdate = 4121
)

// Error 带业务码的错误，Context 记录 alert_id 等定位信息
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Stack   string     `json:"-"`
	Context []KeyValue `json:"context,omitempty"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("error code %d", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two coded errors by code, so a sentinel still matches after
// WithContext produced a copy of it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if e.Code != 0 && t.Code != 0 {
		return e.Code == t.Code
	}
	return e.Message == t.Message
}

// WithCode builds a coded error with the caller's stack.
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// Sentinel creates a coded error without a stack, for package-level vars.
func Sentinel(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err, keeping the first code found in its chain.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithContext returns a copy of e carrying one more key/value and a fresh
// stack. e itself is left untouched so sentinels stay shareable.
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context), len(e.Context)+1),
	}
	copy(newErr.Context, e.Context)
	if newErr.Stack == "" {
		newErr.Stack = captureStack()
	}
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return newErr
}

// ContextValue returns the value recorded for key, if any.
func (e *Error) ContextValue(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, kv := range e.Context {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// captureStack 记录调用方栈帧，跳过 runtime.Callers、captureStack 和构造函数
func captureStack() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		f, more := frames.Next()
		if strings.HasPrefix(f.Function, "runtime.") {
			break
		}
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// GetCode returns the code of the first coded error in the chain.
func GetCode(err error) int {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code != 0 {
				return e.Code
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = u.Unwrap()
	}
	return 0
}

// GetMessage returns the coded message, or err.Error() for plain errors.
func GetMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Format prints context and stack for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			for _, kv := range e.Context {
				fmt.Fprintf(s, " %s=%s", kv.Key, kv.Value)
			}
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
