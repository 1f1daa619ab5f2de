// Package errs 定义带错误码的业务错误，以及错误码到 HTTP 状态的映射.
//
// 业务层返回 *Error 或包装了 *Error 的错误，HTTP 层统一通过 From 解析：
//
//	if err != nil {
//		e := errs.From(err)
//		c.JSON(e.HTTPStatus(), gin.H{"error": e.Message()})
//	}
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码.
type Code string

const (
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeInvalidInput            Code = "INVALID_INPUT"
	CodeQuotaOrSize             Code = "QUOTA_OR_SIZE"
	CodeNotFound                Code = "NOT_FOUND"
	CodeSlotFull                Code = "SLOT_FULL"
	CodeRemoteRequestFailed     Code = "REMOTE_REQUEST_FAILED"
	CodeRemoteProcessingFailed  Code = "REMOTE_PROCESSING_FAILED"
	CodeRemoteProcessingTimeout Code = "REMOTE_PROCESSING_TIMEOUT"
	CodePersistence             Code = "PERSISTENCE"
	CodeInternal                Code = "INTERNAL"
)

// Metadata 错误码的传输层属性.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeUnauthorized:            {HTTPStatus: http.StatusUnauthorized, PublicMessage: "Unauthorized"},
	CodeInvalidInput:            {HTTPStatus: http.StatusBadRequest, PublicMessage: "Invalid input"},
	CodeQuotaOrSize:             {HTTPStatus: http.StatusBadRequest, PublicMessage: "Storage limit exceeded"},
	CodeNotFound:                {HTTPStatus: http.StatusNotFound, PublicMessage: "Not found"},
	CodeSlotFull:                {HTTPStatus: http.StatusConflict, PublicMessage: "Slot is full"},
	CodeRemoteRequestFailed:     {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Remote request failed"},
	CodeRemoteProcessingFailed:  {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Video processing failed"},
	CodeRemoteProcessingTimeout: {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Video processing timeout"},
	CodePersistence:             {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Failed to save asset"},
	CodeInternal:                {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Internal server error"},
}

// MetadataFor 返回错误码的元数据，未知错误码按 INTERNAL 处理.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}

	return metadataByCode[CodeInternal]
}

// Error 带错误码的错误.
type Error struct {
	code    Code
	message string
	cause   error
}

// New 创建错误.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf 使用格式化消息创建错误.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap 以错误码包装底层错误，message 为空时沿用底层错误的消息.
func Wrap(code Code, err error, message string) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}

	return &Error{code: code, message: message, cause: err}
}

// Code 返回错误码.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}

	return e.code
}

// Message 返回面向客户端的消息.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	if e.message == "" {
		return MetadataFor(e.code).PublicMessage
	}

	return e.message
}

// HTTPStatus 返回对应的 HTTP 状态码.
func (e *Error) HTTPStatus() int {
	return MetadataFor(e.Code()).HTTPStatus
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil && e.cause.Error() != e.message {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.code, e.Message())
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Is 按错误码比较，使 errors.Is(err, errs.New(errs.CodeNotFound, "")) 成立.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.code == e.code
}

// As 取出错误链上的第一个 *Error.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// CodeOf 返回错误链上的错误码，无 *Error 时为 INTERNAL.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.code
	}

	return CodeInternal
}

// From 将任意错误转换为 *Error，未分类的错误归为 INTERNAL 并保留其消息.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	if e := As(err); e != nil {
		return e
	}

	return Wrap(CodeInternal, err, err.Error())
}

// 便捷构造.

func InvalidInput(message string) *Error { return New(CodeInvalidInput, message) }

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func QuotaOrSize(message string) *Error { return New(CodeQuotaOrSize, message) }

func SlotFull(message string) *Error { return New(CodeSlotFull, message) }

func Persistence(err error) *Error { return Wrap(CodePersistence, err, "") }
