package contract

import (
	"errors"
	"fmt"
)

// Kind 为最小错误分类；所有失败均为可枚举的预期结果。
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindEmpty            Kind = "empty"
	KindWrongExtension   Kind = "wrong_extension"
	KindMalformedContent Kind = "malformed_content"
	KindEmptyContent     Kind = "empty_content"
	KindInvalidThreshold Kind = "invalid_threshold"
	KindIOFailure        Kind = "io_failure"
)

// 哨兵错误：errors.Is(err, ErrEmpty) 等价于 Kind 判定。
var (
	ErrNotFound         = errors.New("file not found")
	ErrEmpty            = errors.New("file is empty")
	ErrWrongExtension   = errors.New("wrong file extension")
	ErrMalformedContent = errors.New("malformed tabular content")
	ErrEmptyContent     = errors.New("no records in content")
	ErrInvalidThreshold = errors.New("threshold must be > 0")
	ErrIOFailure        = errors.New("i/o failure")
)

var sentinels = map[Kind]error{
	KindNotFound:         ErrNotFound,
	KindEmpty:            ErrEmpty,
	KindWrongExtension:   ErrWrongExtension,
	KindMalformedContent: ErrMalformedContent,
	KindEmptyContent:     ErrEmptyContent,
	KindInvalidThreshold: ErrInvalidThreshold,
	KindIOFailure:        ErrIOFailure,
}

// Error 携带错误分类、出错路径与底层原因。
type Error struct {
	Kind Kind
	Path string
	Err  error // 可为 nil
}

// NewError 构造 *Error；err 为底层原因（可为 nil）。
func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is 使 errors.Is 能按 Kind 匹配到对应哨兵。
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

func (e *Error) Unwrap() error { return e.Err }

func (k Kind) String() string { return string(k) }

// KindOf 提取错误分类；非 *Error 返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrPathInvalid: 输出单元名映射为无效/越界路径（例如 "..")。
var ErrPathInvalid = errors.New("path invalid")
