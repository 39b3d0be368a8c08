// Package apperr 定义库层对外暴露的错误分类：
// 参数错误、冲突、远端失败和未找到。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindRemote     Kind = "remote"
	KindNotFound   Kind = "not_found"
)

// Error 带类别的错误
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 非法输入，操作未执行
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Conflict 与已有记录冲突
func Conflict(op, msg string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg, Err: err}
}

// Remote 存储、数据库或网络失败
func Remote(op string, err error) error {
	return &Error{Kind: KindRemote, Op: op, Msg: "remote call failed", Err: err}
}

// NotFound 查找的记录不存在
func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

// KindOf 返回错误类别，非本包错误返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsRemote(err error) bool     { return KindOf(err) == KindRemote }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }

// Message 面向用户的简短描述
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindRemote && e.Err != nil {
			return e.Err.Error()
		}
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
