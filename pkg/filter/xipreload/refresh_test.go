package xipreload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
)

func TestRefresher_Scheduled(t *testing.T) {
	var calls atomic.Int32
	src := xipload.SourceFunc(func(ctx context.Context) (*xipfilter.Table, error) {
		n := calls.Add(1)
		if n == 1 {
			return nil, errors.New("transient")
		}
		return tableWith(t, "3.3.3.0", "3.3.3.255", "Three"), nil
	})

	initial := tableWith(t, "1.1.1.0", "1.1.1.255", "One")
	h := NewHolder(initial)

	var rec reloadRecorder
	r, err := NewRefresher(h, src, "* * * * * *", WithSeconds(), WithRefreshCallback(rec.callback))
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		name, ok := h.Match("3.3.3.3")
		return ok && name == "Three"
	}, 5*time.Second, 20*time.Millisecond)

	oks, errs := rec.counts()
	assert.GreaterOrEqual(t, oks, 1)
	assert.Equal(t, 1, errs)
}

func TestRefresher_RefreshNow(t *testing.T) {
	h := NewHolder(nil)
	r, err := NewRefresher(h, xipload.SourceFunc(func(context.Context) (*xipfilter.Table, error) {
		return tableWith(t, "4.4.4.0", "4.4.4.255", "Four"), nil
	}), "@every 1h")
	require.NoError(t, err)
	defer r.Stop()

	tbl, err := r.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, tbl, h.Load())

	name, ok := h.Match("4.4.4.4")
	assert.True(t, ok)
	assert.Equal(t, "Four", name)
}

func TestRefresher_StopCancelsRunningRefresh(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	src := xipload.SourceFunc(func(ctx context.Context) (*xipfilter.Table, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	})

	h := NewHolder(nil)
	r, err := NewRefresher(h, src, "* * * * * *", WithSeconds(), WithTimeout(time.Hour))
	require.NoError(t, err)
	r.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not start")
	}
	r.Stop()
	assert.Nil(t, h.Load())
}

func TestNewRefresher_Errors(t *testing.T) {
	src := xipload.SourceFunc(func(context.Context) (*xipfilter.Table, error) { return nil, nil })

	_, err := NewRefresher(nil, src, "@every 1m")
	assert.Error(t, err)

	_, err = NewRefresher(NewHolder(nil), nil, "@every 1m")
	assert.Error(t, err)

	_, err = NewRefresher(NewHolder(nil), src, "not a schedule")
	assert.ErrorContains(t, err, "invalid schedule")

	// 默认解析器不接受秒级表达式
	_, err = NewRefresher(NewHolder(nil), src, "* * * * * *")
	assert.Error(t, err)
}
