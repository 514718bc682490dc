package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// Group 并发运行多个服务，任一服务出错或 ctx 取消时通知全部服务退出。
//
// Go、GoWithName、Cancel 可并发调用；Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 ctx 在任一服务返回错误时取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 启动服务 fn，fn 应在 ctx 取消后尽快返回。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并记录服务的启动和退出。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.Go(func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.logger.Debug(ctx, "service starting", attrs...)

		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(context.WithoutCancel(ctx), "service exited with error",
				append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(context.WithoutCancel(ctx), "service stopped", attrs...)
		}
		return err
	})
}

// Cancel 让全部服务退出。cause 非 nil 时 Wait 返回它。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待全部服务返回。
//
// Group 被取消导致的 context.Canceled 不算错误；若取消时给出了 cause（如 *SignalError），
// 返回该 cause。服务自己产生的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cancelled := g.causeCtx.Err() != nil
	cause := context.Cause(g.causeCtx)
	if cause != nil && errors.Is(cause, context.Canceled) {
		cause = nil
	}

	switch {
	case errors.Is(err, context.Canceled) && cancelled:
		return cause
	case err == nil && cancelled:
		return cause
	default:
		return err
	}
}

// Run 监听退出信号并运行 services，直到全部返回。
//
// 收到信号时返回 *SignalError，可用 errors.Is(err, ErrSignal) 判断。
func Run(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSig {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			return g.waitSignal(ctx, signals)
		})
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) waitSignal(ctx context.Context, signals []os.Signal) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	var sig os.Signal
	select {
	case sig = <-sigCh:
	case sig = <-injectedSignals(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}
	g.opts.logger.Info(ctx, "received signal",
		slog.String("group", g.opts.name),
		slog.String("signal", sig.String()),
	)
	g.cancel(&SignalError{Signal: sig})
	return nil
}

type signalChanKey struct{}

// injectedSignals 返回 ctx 中注入的信号通道，未注入时为 nil（永不就绪）。
func injectedSignals(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(signalChanKey{}).(<-chan os.Signal)
	return c
}
