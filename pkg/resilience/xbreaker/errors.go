package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xipfilter/pkg/resilience/xretry"
)

var (
	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下请求过多
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// BreakerError 表示熔断器拒绝了本次请求。
type BreakerError struct {
	Name  string
	State State
	Err   error
}

func (e *BreakerError) Error() string {
	return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// wrap 只包装 gobreaker 自身的拒绝错误，fn 返回的错误原样透传。
// 状态从错误类型推导，不再查询 State()，避免 Execute 返回后状态已经变化。
func wrap(err error, name string) error {
	switch err {
	case gobreaker.ErrOpenState:
		return xretry.Unrecoverable(&BreakerError{Name: name, State: StateOpen, Err: err})
	case gobreaker.ErrTooManyRequests:
		return xretry.Unrecoverable(&BreakerError{Name: name, State: StateHalfOpen, Err: err})
	default:
		return err
	}
}

// IsOpen 报告 err 是否因熔断器打开而产生。
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsBreakerError 报告 err 是否是熔断器拒绝请求产生的错误。
func IsBreakerError(err error) bool {
	var be *BreakerError
	return errors.As(err, &be)
}
