package xipreload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
	"github.com/omeyang/xipfilter/pkg/observability/xlog"
)

// DefaultDebounce 是文件变更到重新加载之间的默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// ReloadCallback 在每次重新加载后调用，err 非 nil 时 t 为 nil 且当前表保持不变。
type ReloadCallback func(t *xipfilter.Table, err error)

type watchOptions struct {
	debounce  time.Duration
	callback  ReloadCallback
	tableOpts []xipfilter.Option
	logger    xlog.Logger
}

// WatchOption 配置文件监视器。
type WatchOption func(*watchOptions)

// WithDebounce 设置防抖时间，在指定时间内的多次变更只触发一次重新加载。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithCallback 设置重新加载回调。
func WithCallback(fn ReloadCallback) WatchOption {
	return func(o *watchOptions) {
		o.callback = fn
	}
}

// WithTableOptions 设置读取文件时使用的表选项。
func WithTableOptions(opts ...xipfilter.Option) WatchOption {
	return func(o *watchOptions) {
		o.tableOpts = append(o.tableOpts, opts...)
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger xlog.Logger) WatchOption {
	return func(o *watchOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Watcher 监视 JSON 范围表文件，变更后重新读取并替换 Holder 中的表。
type Watcher struct {
	holder  *Holder
	path    string
	watcher *fsnotify.Watcher
	opts    watchOptions
	logger  xlog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	state  int
	done   chan struct{}
}

const (
	watchIdle = iota
	watchRunning
	watchStopped
)

// WatchFile 创建文件监视器。返回的 Watcher 需要调用 Start 或 StartAsync 开始监视，Stop 停止。
//
// 监视的是文件所在目录而非文件本身：编辑器或 xipload.WriteFile 以"写临时文件再重命名"
// 的方式更新时，直接监视文件会丢失事件。
func WatchFile(h *Holder, path string, opts ...WatchOption) (*Watcher, error) {
	if h == nil {
		return nil, errors.New("xipreload: nil holder")
	}
	if path == "" {
		return nil, errors.New("xipreload: watch path is empty")
	}

	o := watchOptions{debounce: DefaultDebounce, logger: xlog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xipreload: failed to create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xipreload: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		holder:  h,
		path:    path,
		watcher: fsWatcher,
		opts:    o,
		logger:  o.logger.With(xlog.Component("xipreload"), xlog.Source(path)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start 启动监视，阻塞直到 Stop 被调用。
func (w *Watcher) Start() {
	if !w.markRunning() {
		return
	}
	w.run()
}

// StartAsync 在后台 goroutine 中启动监视，立即返回。
func (w *Watcher) StartAsync() {
	if !w.markRunning() {
		return
	}
	go w.run()
}

func (w *Watcher) markRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != watchIdle {
		return false
	}
	w.state = watchRunning
	return true
}

// Stop 停止监视并等待监视循环退出。可重复调用。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	prev := w.state
	if prev == watchStopped {
		w.mu.Unlock()
		return nil
	}
	w.state = watchStopped
	w.mu.Unlock()

	w.cancel()
	err := w.watcher.Close()
	if prev == watchRunning {
		<-w.done
	}
	return err
}

// run 运行监视循环。防抖定时器由循环自身持有，Stop 后不会再触发重新加载。
func (w *Watcher) run() {
	defer close(w.done)

	filename := filepath.Base(w.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.debounce)
			} else {
				timer.Reset(w.opts.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(nil, fmt.Errorf("xipreload: watch error: %w", err))
		}
	}
}

// relevant 只关心目标文件的写入、创建和重命名。
func relevant(event fsnotify.Event, filename string) bool {
	if filepath.Base(event.Name) != filename {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	t, err := w.holder.Reload(w.ctx, xipload.FileSource{Path: w.path, Options: w.opts.tableOpts})
	w.report(t, err)
}

func (w *Watcher) report(t *xipfilter.Table, err error) {
	if err != nil {
		w.logger.Warn(w.ctx, "range table reload failed", xlog.Err(err))
	} else {
		v4, v6 := t.Len()
		w.logger.Info(w.ctx, "range table reloaded", xlog.Count(int64(v4+v6)))
	}
	if w.opts.callback != nil {
		w.opts.callback(t, err)
	}
}
