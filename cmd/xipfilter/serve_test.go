package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
	"github.com/omeyang/xipfilter/pkg/filter/xiphttp"
	"github.com/omeyang/xipfilter/pkg/filter/xipload"
)

// syncBuffer 允许服务运行期间并发读取输出。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startServe 在后台运行 serve，返回监听地址和停止函数，停止函数返回退出码。
func startServe(t *testing.T, args ...string) (string, func() int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr syncBuffer
	done := make(chan int, 1)
	go func() {
		argv := append([]string{"xipfilter", "serve", "--addr", "127.0.0.1:0"}, args...)
		done <- run(ctx, argv, strings.NewReader(""), &stdout, &stderr)
	}()

	var addr string
	require.Eventually(t, func() bool {
		if len(done) > 0 {
			return true
		}
		out := stdout.String()
		if !strings.HasPrefix(out, "listening on ") {
			return false
		}
		addr = strings.TrimSpace(strings.TrimPrefix(out, "listening on "))
		return true
	}, 5*time.Second, 10*time.Millisecond)
	require.NotEmpty(t, addr, stderr.String())

	stopped := false
	stop := func() int {
		if stopped {
			return 0
		}
		stopped = true
		cancel()
		return <-done
	}
	t.Cleanup(func() { stop() })
	return addr, stop
}

func matchOne(t *testing.T, addr, ip string) xiphttp.Result {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/v1/match?ip=" + ip)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []xiphttp.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	return results[0]
}

// lookupName 不使用断言，可以在 Eventually 的条件里调用。
func lookupName(addr, ip string) string {
	resp, err := http.Get("http://" + addr + "/v1/match?ip=" + ip)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	var results []xiphttp.Result
	if json.NewDecoder(resp.Body).Decode(&results) != nil || len(results) != 1 {
		return ""
	}
	return results[0].Name
}

func TestServe_WatchedTable(t *testing.T) {
	table := buildTable(t)
	addr, stop := startServe(t, "-t", table, "--cache-size", "16")

	r := matchOne(t, addr, "1.1.1.9")
	assert.True(t, r.Found)
	assert.Equal(t, "One", r.Name)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	next := xipfilter.New()
	_, err = next.InsertRange("1.1.1.0", "1.1.1.255", "Replaced")
	require.NoError(t, err)
	require.NoError(t, xipload.WriteFile(table, next))

	assert.Eventually(t, func() bool {
		return lookupName(addr, "1.1.1.9") == "Replaced"
	}, 5*time.Second, 20*time.Millisecond)

	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, 0, stop())
}

func TestServe_FromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	table := buildTable(t)
	code, _, stderr := runCLI(t, "", "push", "-t", table, "--redis-addr", mr.Addr(), "--key", "ranges")
	require.Equal(t, 0, code, stderr)

	addr, stop := startServe(t, "--from-redis", "--redis-addr", mr.Addr(), "--key", "ranges",
		"--schedule", "@every 1h", "--cache-size", "0", "--rate-limit", "2")

	r := matchOne(t, addr, "2.2.2.2")
	assert.Equal(t, xiphttp.Result{IP: "2.2.2.2", Found: true, Name: "Two", Start: "002.002.002.000", End: "002.002.002.255"}, r)
	assert.False(t, matchOne(t, addr, "9.9.9.9").Found)

	// 两次查询已用完本秒配额，健康检查不受限
	resp, err := http.Get("http://" + addr + "/v1/match?ip=2.2.2.2")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, 0, stop())
}

func TestServe_Errors(t *testing.T) {
	table := buildTable(t)
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no source", []string{"serve"}, 2},
		{"two sources", []string{"serve", "-t", table, "--from-redis"}, 2},
		{"bad schedule", []string{"serve", "--from-redis", "--redis-addr", mr.Addr(), "--schedule", "bogus"}, 2},
		{"bad cache size", []string{"serve", "-t", table, "--cache-size=-1"}, 2},
		{"bad cache ttl", []string{"serve", "-t", table, "--cache-ttl=-1s"}, 2},
		{"missing snapshot", []string{"serve", "--from-redis", "--redis-addr", mr.Addr(), "--key", "missing"}, 1},
		{"missing table", []string{"serve", "-t", filepath.Join(t.TempDir(), "missing.json")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.code, code, stderr)
		})
	}
}
