package xpersist

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// createAttempts 同一毫秒内文件名冲突时向后顺延的次数
const createAttempts = 16

// FilesOrchestrator 决定写入哪个文件、读取哪个文件以及何时清理。
//
// 文件名是创建时刻的 Unix 毫秒数，因此文件年龄只由名称决定。
// 不符合该格式的文件被忽略。
//
// 追加、读取与删除共享一把锁，写入器与读取器可以在不同 goroutine 中使用同一实例。
type FilesOrchestrator struct {
	dir    *Directory
	preset PerformancePreset
	clock  clockz.Clock
	logger xlog.Logger

	mu       sync.Mutex
	lastName string
	lastUses int
}

// NewFilesOrchestrator 创建 FilesOrchestrator。
func NewFilesOrchestrator(dir *Directory, opts ...Option) *FilesOrchestrator {
	cfg := newConfig(opts)
	return &FilesOrchestrator{
		dir:    dir,
		preset: cfg.preset,
		clock:  cfg.clock,
		logger: cfg.logger.With(xlog.Component("files_orchestrator")),
	}
}

// Directory 返回底层目录。
func (o *FilesOrchestrator) Directory() *Directory {
	return o.dir
}

// FileName 由创建时间得到文件名。
func FileName(created time.Time) string {
	return strconv.FormatInt(created.UnixMilli(), 10)
}

// CreationTime 由文件名解析创建时间。
func CreationTime(name string) (time.Time, bool) {
	ms, err := strconv.ParseInt(name, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// =============================================================================
// 写入
// =============================================================================

// Append 把 data 追加到当前可写文件，必要时新建文件。
func (o *FilesOrchestrator) Append(data []byte, sync bool) error {
	size := int64(len(data))
	if size > o.preset.MaxObjectSize {
		return fmt.Errorf("%w: %d > %d", ErrObjectTooLarge, size, o.preset.MaxObjectSize)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.writableFile(size)
	if err != nil {
		return err
	}
	return f.Append(data, sync)
}

func (o *FilesOrchestrator) writableFile(size int64) (*File, error) {
	if f := o.reusableFile(size); f != nil {
		o.lastUses++
		return f, nil
	}
	if err := o.purgeIfNeeded(); err != nil {
		return nil, err
	}
	f, err := o.createFile()
	if err != nil {
		return nil, err
	}
	o.lastName = f.Name()
	o.lastUses = 1
	return f, nil
}

// reusableFile 上一个文件足够新、容量与次数都未达上限时继续使用
func (o *FilesOrchestrator) reusableFile(size int64) *File {
	if o.lastName == "" {
		return nil
	}
	f, ok := o.dir.File(o.lastName)
	if !ok {
		return nil
	}
	created, _ := CreationTime(o.lastName)
	if o.clock.Since(created) > o.preset.MaxFileAgeForWrite {
		return nil
	}
	cur, err := f.Size()
	if err != nil || cur+size > o.preset.MaxFileSize {
		return nil
	}
	if o.lastUses+1 > o.preset.MaxObjectsInFile {
		return nil
	}
	return f
}

func (o *FilesOrchestrator) createFile() (*File, error) {
	ms := o.clock.Now().UnixMilli()
	var err error
	for i := range int64(createAttempts) {
		var f *File
		f, err = o.dir.CreateFile(strconv.FormatInt(ms+i, 10))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	return nil, fmt.Errorf("xpersist: create file: %w", err)
}

// purgeIfNeeded 目录超出上限时从最旧的文件开始删除
func (o *FilesOrchestrator) purgeIfNeeded() error {
	files, err := o.sortedFiles()
	if err != nil {
		return err
	}
	sizes := make([]int64, len(files))
	var total int64
	for i, f := range files {
		if sizes[i], err = f.file.Size(); err != nil {
			return err
		}
		total += sizes[i]
	}
	if total <= o.preset.MaxDirectorySize {
		return nil
	}
	toFree := total - o.preset.MaxDirectorySize
	var freed int64
	for i := 0; i < len(files) && freed < toFree; i++ {
		if err := o.deleteLocked(files[i].file); err != nil {
			return err
		}
		freed += sizes[i]
	}
	o.logger.Warn(context.Background(), "storage directory over limit, oldest files purged",
		slog.Int64("freed_bytes", freed))
	return nil
}

// =============================================================================
// 读取
// =============================================================================

type datedFile struct {
	file    *File
	created time.Time
}

// sortedFiles 按创建时间升序返回可识别的文件
func (o *FilesOrchestrator) sortedFiles() ([]datedFile, error) {
	files, err := o.dir.Files()
	if err != nil {
		return nil, err
	}
	out := make([]datedFile, 0, len(files))
	for _, f := range files {
		if created, ok := CreationTime(f.Name()); ok {
			out = append(out, datedFile{file: f, created: created})
		}
	}
	slices.SortFunc(out, func(a, b datedFile) int {
		return cmp.Or(a.created.Compare(b.created), cmp.Compare(a.file.Name(), b.file.Name()))
	})
	return out, nil
}

// ReadableFile 返回最旧且已达到 MinFileAgeForRead 的文件。
// 超过 MaxFileAgeForRead 的文件在此过程中被删除。
func (o *FilesOrchestrator) ReadableFile(excluded map[string]struct{}) (*File, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	files, err := o.sortedFiles()
	if err != nil {
		o.logger.Warn(context.Background(), "list storage directory failed", xlog.Err(err))
		return nil, false
	}
	for _, f := range files {
		age := o.clock.Since(f.created)
		if age > o.preset.MaxFileAgeForRead {
			if err := o.deleteLocked(f.file); err != nil {
				o.logger.Warn(context.Background(), "delete obsolete file failed", xlog.Err(err))
			}
			continue
		}
		if _, skip := excluded[f.file.Name()]; skip {
			continue
		}
		// 最旧的候选文件还不够老时，更新的文件也不会满足
		if age < o.preset.MinFileAgeForRead {
			return nil, false
		}
		return f.file, true
	}
	return nil, false
}

// AllFiles 按创建时间升序返回除 excluded 外的全部文件，不考虑年龄。
func (o *FilesOrchestrator) AllFiles(excluded map[string]struct{}) ([]*File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	files, err := o.sortedFiles()
	if err != nil {
		return nil, err
	}
	out := make([]*File, 0, len(files))
	for _, f := range files {
		if _, skip := excluded[f.file.Name()]; !skip {
			out = append(out, f.file)
		}
	}
	return out, nil
}

// Read 在锁内读取文件，避免读到正在追加的数据。
//
// 被读取的文件若是当前可写文件则随之封存，之后的追加写入新文件，
// 因此确认批次时删除整个文件不会带走读取之后写入的数据。
func (o *FilesOrchestrator) Read(f *File) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.Name() == o.lastName {
		o.sealLocked()
	}
	return f.Read()
}

func (o *FilesOrchestrator) sealLocked() {
	o.lastName = ""
	o.lastUses = 0
}

// Delete 删除文件。
func (o *FilesOrchestrator) Delete(f *File) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deleteLocked(f)
}

func (o *FilesOrchestrator) deleteLocked(f *File) error {
	if f.Name() == o.lastName {
		o.sealLocked()
	}
	return f.Delete()
}
