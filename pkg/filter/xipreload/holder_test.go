package xipreload

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
)

func tableWith(t *testing.T, start, end, name string) *xipfilter.Table {
	t.Helper()
	tbl := xipfilter.New()
	_, err := tbl.InsertRange(start, end, name)
	require.NoError(t, err)
	return tbl
}

func TestHolder_SwapAndMatch(t *testing.T) {
	var swaps int
	h := NewHolder(nil, WithOnSwap(func(old, cur *xipfilter.Table) {
		swaps++
	}), WithOnSwap(nil))

	_, ok := h.Match("1.1.1.1")
	assert.False(t, ok, "nil table matches nothing")
	assert.Nil(t, h.Load())

	first := tableWith(t, "1.1.1.0", "1.1.1.255", "One")
	assert.Nil(t, h.Swap(first))

	name, ok := h.Match("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "One", name)

	r, ok := h.MatchRange("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "001.001.001.000", r.Start)

	r, ok = h.MatchAddr(netip.MustParseAddr("1.1.1.200"))
	assert.True(t, ok)
	assert.Equal(t, "One", r.Name)

	second := tableWith(t, "2.2.2.0", "2.2.2.255", "Two")
	assert.Same(t, first, h.Swap(second))
	_, ok = h.Match("1.1.1.1")
	assert.False(t, ok)

	// 旧表在替换后仍可使用
	name, ok = first.Match("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "One", name)

	assert.Equal(t, 2, swaps)
}

func TestHolder_Reload(t *testing.T) {
	initial := tableWith(t, "1.1.1.0", "1.1.1.255", "One")
	h := NewHolder(initial)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := h.Reload(ctx, xipload.SourceFunc(func(context.Context) (*xipfilter.Table, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Same(t, initial, h.Load())

	_, err = h.Reload(ctx, xipload.SourceFunc(func(context.Context) (*xipfilter.Table, error) {
		return nil, nil
	}))
	assert.ErrorIs(t, err, ErrNilTable)
	assert.Same(t, initial, h.Load())

	next := tableWith(t, "2.2.2.0", "2.2.2.255", "Two")
	got, err := h.Reload(ctx, xipload.SourceFunc(func(context.Context) (*xipfilter.Table, error) {
		return next, nil
	}))
	require.NoError(t, err)
	assert.Same(t, next, got)
	assert.Same(t, next, h.Load())
}

func TestHolder_ConcurrentReadersDuringSwap(t *testing.T) {
	a := tableWith(t, "10.0.0.0", "10.255.255.255", "A")
	b := tableWith(t, "10.0.0.0", "10.255.255.255", "B")
	h := NewHolder(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				name, ok := h.Match("10.1.2.3")
				if !ok || (name != "A" && name != "B") {
					t.Errorf("unexpected match %q %v", name, ok)
					return
				}
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			h.Swap(b)
		} else {
			h.Swap(a)
		}
	}
	close(stop)
	wg.Wait()
}
