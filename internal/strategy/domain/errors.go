// Package domain 策略执行引擎错误分类
// ParameterError：参数越界，策略不会开始调度
// VenueError：场内请求失败，监视器在窗口内重试
// 单元级失败不是错误类型，而是结果中的失败记录
package domain

import (
	"errors"
	"fmt"
)

// ParameterError 参数域错误，致命，发生在任何单元被调度之前。
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// NewParameterError 创建参数错误
func NewParameterError(field, reason string) *ParameterError {
	return &ParameterError{Field: field, Reason: reason}
}

// IsParameterError 判断错误链中是否包含参数错误
func IsParameterError(err error) bool {
	var pe *ParameterError
	return errors.As(err, &pe)
}

// VenueError 场内请求错误（传输、鉴权或业务码拒绝）。
type VenueError struct {
	HTTPStatus int
	Code       int64 // 场内业务错误码，0 表示传输层失败
	Message    string
	Err        error
}

func (e *VenueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("venue request failed: %v", e.Err)
	}
	return fmt.Sprintf("venue rejected request: status=%d code=%d msg=%s", e.HTTPStatus, e.Code, e.Message)
}

func (e *VenueError) Unwrap() error { return e.Err }

// IsVenueError 判断错误链中是否包含场内错误
func IsVenueError(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve)
}
