package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorKind はエラーの分類です。
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindService    ErrorKind = "SERVICE_ERROR"
	KindDecode     ErrorKind = "DECODE_ERROR"
	KindIO         ErrorKind = "IO_ERROR"
)

// errors.Is で分類を判定するための番兵です。
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNetwork    = &Error{Kind: KindNetwork, Message: "service not reachable"}
	ErrService    = &Error{Kind: KindService, Message: "service rejected the request"}
	ErrDecode     = &Error{Kind: KindDecode, Message: "payload could not be decoded"}
	ErrIO         = &Error{Kind: KindIO, Message: "io failure"}
)

// Error は分類つきのエラーです。Cause には元のエラーを保持します。
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is は同じ Kind の *Error を等価とみなします。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError は分類つきのエラーを生成します。
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewValidationError(msg string) *Error {
	return NewError(KindValidation, msg, nil)
}

func NewNetworkError(msg string, cause error) *Error {
	return NewError(KindNetwork, msg, cause)
}

func NewServiceError(msg string, cause error) *Error {
	return NewError(KindService, msg, cause)
}

func NewDecodeError(msg string, cause error) *Error {
	return NewError(KindDecode, msg, cause)
}

func NewIOError(msg string, cause error) *Error {
	return NewError(KindIO, msg, cause)
}

// KindOf は err に含まれる最初の *Error の Kind を返します。分類がなければ空文字です。
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// networkErrorMarkers は接続できなかったことを示すメッセージの断片です。
var networkErrorMarkers = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"connection reset",
	"dial tcp",
}

// WrapTransportError は HTTP クライアントのエラーを分類して包みます。
// 接続できなかった場合は NetworkError、それ以外は ServiceError になるのだ。
// すでに分類済みのエラーはそのまま返します。
func WrapTransportError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	if IsNetworkFailure(err) {
		return NewNetworkError(msg, err)
	}
	return NewServiceError(msg, err)
}

// IsNetworkFailure は err が到達不能やタイムアウトによるものかどうかを判定します。
func IsNetworkFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range networkErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
