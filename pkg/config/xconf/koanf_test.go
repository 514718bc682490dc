package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Log   testLog   `koanf:"log"`
	Cache testCache `koanf:"cache"`
}

type testLog struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type testCache struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

const testYAML = `
log:
  level: debug
cache:
  size: 1024
  ttl: 30s
`

const testJSON = `{"log":{"level":"warn","format":"json"},"cache":{"size":"64"}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		format  Format
		want    testConfig
	}{
		{
			name: "yaml", file: "c.yaml", content: testYAML, format: FormatYAML,
			want: testConfig{Log: testLog{Level: "debug", Format: "text"}, Cache: testCache{Size: 1024, TTL: 30 * time.Second}},
		},
		{
			name: "yml", file: "c.YML", content: testYAML, format: FormatYAML,
			want: testConfig{Log: testLog{Level: "debug", Format: "text"}, Cache: testCache{Size: 1024, TTL: 30 * time.Second}},
		},
		{
			name: "json weak types", file: "c.json", content: testJSON, format: FormatJSON,
			want: testConfig{Log: testLog{Level: "warn", Format: "json"}, Cache: testCache{Size: 64}},
		},
		{
			name: "empty file", file: "c.yaml", content: "", format: FormatYAML,
			want: testConfig{Log: testLog{Format: "text"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			cfg, err := New(path)
			require.NoError(t, err)
			assert.Equal(t, path, cfg.Path())
			assert.Equal(t, tt.format, cfg.Format())

			// 未出现的键保留预先填入的默认值
			got := testConfig{Log: testLog{Format: "text"}}
			require.NoError(t, cfg.Unmarshal("", &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New("config.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	_, err = New(writeFile(t, "bad.json", "{"))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAML), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path())
	assert.Equal(t, 1024, cfg.Client().Int("cache.size"))

	var c testCache
	require.NoError(t, cfg.Unmarshal("cache", &c))
	assert.Equal(t, 30*time.Second, c.TTL)

	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)

	_, err = NewFromBytes([]byte("a: 1"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty, err := NewFromBytes(nil, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())
}

func TestOptions(t *testing.T) {
	type tagged struct {
		Size int `json:"size"`
	}
	cfg, err := NewFromBytes([]byte(`{"cache":{"size":7}}`), FormatJSON, WithDelim("/"), WithTag("json"), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Client().Int("cache/size"))

	var got tagged
	require.NoError(t, cfg.Unmarshal("cache", &got))
	assert.Equal(t, 7, got.Size)
}

func TestUnmarshal_Error(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`cache: {size: [1, 2]}`), FormatYAML)
	require.NoError(t, err)
	var c testCache
	assert.ErrorIs(t, cfg.Unmarshal("cache", &c), ErrUnmarshalFailed)
}

func TestReload(t *testing.T) {
	path := writeFile(t, "c.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)
	old := cfg.Client()

	require.NoError(t, os.WriteFile(path, []byte("cache:\n  size: 2048\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 2048, cfg.Client().Int("cache.size"))
	assert.Equal(t, 1024, old.Int("cache.size"))

	// 解析失败时保留旧配置
	require.NoError(t, os.WriteFile(path, []byte("cache: [\n"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 2048, cfg.Client().Int("cache.size"))
}

func TestReload_Concurrent(t *testing.T) {
	path := writeFile(t, "c.yaml", testYAML)
	cfg, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cfg.Reload())
		}()
		go func() {
			defer wg.Done()
			var c testConfig
			assert.NoError(t, cfg.Unmarshal("", &c))
		}()
	}
	wg.Wait()
}

func TestLoad(t *testing.T) {
	var c testConfig
	require.NoError(t, Load(writeFile(t, "c.yaml", testYAML), &c))
	assert.Equal(t, "debug", c.Log.Level)

	assert.ErrorIs(t, Load("", &c), ErrEmptyPath)
}
