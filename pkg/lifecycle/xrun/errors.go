package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 表示因收到系统信号而退出，用 errors.Is 判断。
	ErrSignal = errors.New("received signal")

	// ErrNilFunc 表示传入了 nil 服务函数。
	ErrNilFunc = errors.New("xrun: nil service func")

	// ErrNilServer 表示传入了 nil HTTP 服务器。
	ErrNilServer = errors.New("xrun: nil http server")
)

// SignalError 记录导致退出的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

// Unwrap 返回 ErrSignal。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
