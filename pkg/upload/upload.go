// Package upload drives the attachment lifecycle: file select, preview
// eligibility, progressive upload, resulting descriptor.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinyland-inc/wirechat/pkg/logger"
	"github.com/tinyland-inc/wirechat/pkg/model"
)

// Status of an upload task.
type Status string

const (
	StatusSelecting Status = "selecting"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

var (
	// ErrUploadFailed aborts the pending send; the user must reselect the
	// file, there is no automatic retry.
	ErrUploadFailed = errors.New("upload: failed")
	// ErrCanceled is returned when running a task that was canceled
	// before the upload started.
	ErrCanceled = errors.New("upload: canceled")
	// ErrNotCancelable is returned by Cancel once the upload has started.
	ErrNotCancelable = errors.New("upload: already started")
)

// Sink is the REST surface the uploader needs.
type Sink interface {
	Upload(ctx context.Context, fileName, mimeType string, r io.Reader) (model.Attachment, error)
}

// Task is one selected file moving through the upload lifecycle.
type Task struct {
	ID       string
	FileName string
	MimeType string

	size       int64
	r          io.Reader
	onProgress func(percent int)

	mu      sync.Mutex
	status  Status
	percent int
	result  *model.Attachment
}

// NewTask wraps a selected file. Any file is accepted; size may be 0 when
// unknown, in which case progress jumps from 0 to 100 on completion.
func NewTask(fileName, mimeType string, r io.Reader, size int64) *Task {
	return &Task{
		ID:       uuid.New().String(),
		FileName: fileName,
		MimeType: mimeType,
		size:     size,
		r:        r,
		status:   StatusSelecting,
	}
}

// OnProgress registers a callback invoked with 0-100 as bytes stream out.
func (t *Task) OnProgress(fn func(percent int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onProgress = fn
}

// Size returns the file size given at selection, 0 when unknown.
func (t *Task) Size() int64 {
	return t.size
}

// HasPreview reports whether the file's MIME type gets a local preview.
func (t *Task) HasPreview() bool {
	return strings.HasPrefix(t.MimeType, "image/") || strings.HasPrefix(t.MimeType, "video/")
}

// Cancel aborts a task that has not started uploading.
func (t *Task) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusSelecting {
		return ErrNotCancelable
	}
	t.status = StatusFailed
	return nil
}

// Status returns the task's current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Percent returns upload progress, 0-100.
func (t *Task) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Result returns the uploaded descriptor once the task is done.
func (t *Task) Result() (model.Attachment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return model.Attachment{}, false
	}
	return *t.result, true
}

func (t *Task) setPercent(p int) {
	t.mu.Lock()
	if p > 100 {
		p = 100
	}
	t.percent = p
	fn := t.onProgress
	t.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// Uploader runs tasks against the REST upload endpoint.
type Uploader struct {
	sink Sink
}

func NewUploader(sink Sink) *Uploader {
	return &Uploader{sink: sink}
}

// Run streams the task's file and resolves to its attachment descriptor.
// Not cancelable once started.
func (u *Uploader) Run(ctx context.Context, t *Task) (model.Attachment, error) {
	t.mu.Lock()
	switch t.status {
	case StatusSelecting:
		t.status = StatusUploading
	case StatusFailed:
		t.mu.Unlock()
		return model.Attachment{}, ErrCanceled
	default:
		t.mu.Unlock()
		return model.Attachment{}, fmt.Errorf("upload: task already %s", t.status)
	}
	t.mu.Unlock()

	att, err := u.sink.Upload(ctx, t.FileName, t.MimeType, &progressReader{task: t, r: t.r})
	if err != nil {
		t.mu.Lock()
		t.status = StatusFailed
		t.mu.Unlock()
		logger.WarnCF("upload", "Upload failed", map[string]any{
			"file": t.FileName, "error": err.Error(),
		})
		return model.Attachment{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	t.setPercent(100)
	t.mu.Lock()
	t.status = StatusDone
	t.result = &att
	t.mu.Unlock()

	logger.InfoCF("upload", "Upload complete", map[string]any{
		"file": att.FileName, "type": att.MimeType,
	})
	return att, nil
}

// progressReader updates the task percentage as the multipart body is read.
type progressReader struct {
	task *Task
	r    io.Reader
	sent int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.task.size > 0 {
			p.task.setPercent(int(p.sent * 100 / p.task.size))
		}
	}
	return n, err
}
