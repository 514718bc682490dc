package xipload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omeyang/xipfilter/pkg/filter/xipfilter"
)

// ReadFile 读取 JSON 格式的范围表文件。
func ReadFile(path string, opts ...xipfilter.Option) (*xipfilter.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xipload: read %s: %w", path, err)
	}
	t, err := xipfilter.FromJSON(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("xipload: decode %s: %w", path, err)
	}
	return t, nil
}

// WriteFile 把范围表以 JSON 格式写入 path。
//
// 先写入同目录下的临时文件再重命名，读者（包括文件监听）不会看到写了一半的内容。
func WriteFile(path string, t *xipfilter.Table) (err error) {
	if t == nil {
		return ErrNilTable
	}
	data, err := t.ToJSON()
	if err != nil {
		return fmt.Errorf("xipload: encode: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("xipload: create temp in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xipload: write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xipload: sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("xipload: close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("xipload: chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("xipload: rename to %s: %w", path, err)
	}
	return nil
}
