package xpersist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Directory 存放持久化文件的目录。
type Directory struct {
	path string
}

// OpenDirectory 打开目录，不存在时创建。
func OpenDirectory(path string) (*Directory, error) {
	if path == "" {
		return nil, ErrEmptyDirectory
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("xpersist: resolve %q: %w", path, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("xpersist: create directory %q: %w", abs, err)
	}
	return &Directory{path: abs}, nil
}

// Path 返回目录绝对路径。
func (d *Directory) Path() string {
	return d.path
}

// join 只接受目录内的普通文件名
func (d *Directory) join(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return filepath.Join(d.path, name), nil
}

// CreateFile 创建空文件，文件已存在时返回 fs.ErrExist。
func (d *Directory) CreateFile(name string) (*File, error) {
	p, err := d.join(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &File{name: name, path: p}, nil
}

// File 按名称查找文件。
func (d *Directory) File(name string) (*File, bool) {
	p, err := d.join(name)
	if err != nil {
		return nil, false
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return &File{name: name, path: p}, true
}

// Files 列出目录中的普通文件。
func (d *Directory) Files() ([]*File, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, &File{name: e.Name(), path: filepath.Join(d.path, e.Name())})
	}
	return files, nil
}

// File 目录中的一个数据文件。
type File struct {
	name string
	path string
}

// Name 文件名
func (f *File) Name() string { return f.name }

// Append 追加数据，sync 为 true 时落盘后返回。
func (f *File) Append(data []byte, sync bool) (err error) {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, fh.Close())
	}()
	if _, err = fh.Write(data); err != nil {
		return err
	}
	if sync {
		return fh.Sync()
	}
	return nil
}

// Read 读取全部内容。
func (f *File) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Size 返回文件大小。
func (f *File) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Delete 删除文件，文件已不存在视为成功。
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
