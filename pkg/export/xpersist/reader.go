package xpersist

import (
	"context"
	"sync"

	"github.com/omeyang/xtel/pkg/export/xworker"
	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// FileReader 以文件为批次的 xworker.BatchReader。
//
// 已确认的文件被删除；删除失败的文件记入已读集合，本进程内不再返回。
type FileReader struct {
	orch   *FilesOrchestrator
	logger xlog.Logger

	mu   sync.Mutex
	read map[string]struct{}
}

var _ xworker.BatchReader = (*FileReader)(nil)

// NewFileReader 创建 FileReader。
func NewFileReader(orch *FilesOrchestrator) *FileReader {
	return &FileReader{
		orch:   orch,
		logger: orch.logger,
		read:   make(map[string]struct{}),
	}
}

func (r *FileReader) excluded() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.read))
	for k := range r.read {
		out[k] = struct{}{}
	}
	return out
}

// ReadNextBatch 读取最旧的可读文件。
func (r *FileReader) ReadNextBatch(ctx context.Context) (*xworker.Batch, bool) {
	f, ok := r.orch.ReadableFile(r.excluded())
	if !ok {
		return nil, false
	}
	data, err := r.orch.Read(f)
	if err != nil {
		r.logger.Warn(ctx, "read batch file failed", xlog.Err(err))
		return nil, false
	}
	return &xworker.Batch{Name: f.Name(), Data: data}, true
}

// MarkBatchAsRead 删除批次对应的文件。
func (r *FileReader) MarkBatchAsRead(ctx context.Context, b *xworker.Batch) {
	r.mu.Lock()
	r.read[b.Name] = struct{}{}
	r.mu.Unlock()

	f, ok := r.orch.Directory().File(b.Name)
	if !ok {
		return
	}
	if err := r.orch.Delete(f); err != nil {
		r.logger.Warn(ctx, "delete batch file failed", xlog.Err(err))
		return
	}
	// 文件已删除，名称可能在之后被新文件复用
	r.mu.Lock()
	delete(r.read, b.Name)
	r.mu.Unlock()
}

// RemainingBatches 返回全部未读文件，不考虑文件年龄。
func (r *FileReader) RemainingBatches(ctx context.Context) []*xworker.Batch {
	files, err := r.orch.AllFiles(r.excluded())
	if err != nil {
		r.logger.Warn(ctx, "list batch files failed", xlog.Err(err))
		return nil
	}
	out := make([]*xworker.Batch, 0, len(files))
	for _, f := range files {
		data, err := r.orch.Read(f)
		if err != nil {
			r.logger.Warn(ctx, "read batch file failed", xlog.Err(err))
			continue
		}
		out = append(out, &xworker.Batch{Name: f.Name(), Data: data})
	}
	return out
}
