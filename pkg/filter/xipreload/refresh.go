package xipreload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// DefaultRefreshTimeout 是单次定时刷新的默认超时。
const DefaultRefreshTimeout = time.Minute

type refreshOptions struct {
	parser   cron.Parser
	timeout  time.Duration
	callback ReloadCallback
	logger   xlog.Logger
}

// RefreshOption 配置定时刷新。
type RefreshOption func(*refreshOptions)

// WithSeconds 启用秒级 cron 表达式（6 段）。
func WithSeconds() RefreshOption {
	return func(o *refreshOptions) {
		o.parser = cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		)
	}
}

// WithTimeout 设置单次刷新的超时。
func WithTimeout(d time.Duration) RefreshOption {
	return func(o *refreshOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRefreshCallback 设置每次刷新后的回调。
func WithRefreshCallback(fn ReloadCallback) RefreshOption {
	return func(o *refreshOptions) {
		o.callback = fn
	}
}

// WithRefreshLogger 设置日志记录器。
func WithRefreshLogger(logger xlog.Logger) RefreshOption {
	return func(o *refreshOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Refresher 按 cron 表达式定期从数据源重建范围表并替换 Holder 中的表。
//
// 刷新失败时保留之前的表；上一次刷新未结束时跳过本次。
type Refresher struct {
	holder *Holder
	src    xipload.Source
	cron   *cron.Cron
	opts   refreshOptions
	logger xlog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher 创建定时刷新器。schedule 使用标准 5 段 cron 表达式或 "@every 5m" 之类的描述符。
func NewRefresher(h *Holder, src xipload.Source, schedule string, opts ...RefreshOption) (*Refresher, error) {
	if h == nil {
		return nil, errors.New("xipreload: nil holder")
	}
	if src == nil {
		return nil, errors.New("xipreload: nil source")
	}

	o := refreshOptions{
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timeout: DefaultRefreshTimeout,
		logger:  xlog.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		holder: h,
		src:    src,
		opts:   o,
		logger: o.logger.With(xlog.Component("xipreload"), xlog.Operation("refresh")),
		ctx:    ctx,
		cancel: cancel,
	}
	r.cron = cron.New(
		cron.WithParser(o.parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("xipreload: invalid schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start 在后台启动调度。
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop 停止调度，取消正在进行的刷新并等待其结束。
func (r *Refresher) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}

// RefreshNow 立即执行一次刷新，不受调度影响。
func (r *Refresher) RefreshNow(ctx context.Context) (*xipfilter.Table, error) {
	start := time.Now()
	t, err := r.holder.Reload(ctx, r.src)
	if err != nil {
		r.logger.Warn(ctx, "range table refresh failed", xlog.Err(err), xlog.Duration(time.Since(start)))
	} else {
		v4, v6 := t.Len()
		r.logger.Info(ctx, "range table refreshed", xlog.Count(int64(v4+v6)), xlog.Duration(time.Since(start)))
	}
	if r.opts.callback != nil {
		r.opts.callback(t, err)
	}
	return t, err
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(r.ctx, r.opts.timeout)
	defer cancel()
	_, _ = r.RefreshNow(ctx)
}
