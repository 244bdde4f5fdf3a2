package xresilient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omeyang/xtel/pkg/trace/xsdk"
)

func TestClassification(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		retryable bool
		result    xsdk.ExportResult
	}{
		{"nil", nil, false, xsdk.ExportSuccess},
		{"普通错误", boom, true, xsdk.ExportFailureRetryable},
		{"永久错误", NewPermanentError(boom), false, xsdk.ExportFailure},
		{"包装的永久错误", fmt.Errorf("send: %w", NewPermanentError(boom)), false, xsdk.ExportFailure},
		{"临时错误", NewTemporaryError(boom), true, xsdk.ExportFailureRetryable},
		{"ctx 取消", context.Canceled, false, xsdk.ExportFailure},
		{"ctx 超时", context.DeadlineExceeded, true, xsdk.ExportFailureRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.result, ResultFromError(tt.err))
		})
	}
}

func TestErrorFromResultRoundTrip(t *testing.T) {
	for _, r := range []xsdk.ExportResult{xsdk.ExportSuccess, xsdk.ExportFailureRetryable, xsdk.ExportFailure} {
		assert.Equal(t, r, ResultFromError(ErrorFromResult(r)), r.String())
	}
	assert.ErrorIs(t, ErrorFromResult(xsdk.ExportFailure), ErrTerminal)
	assert.ErrorIs(t, ErrorFromResult(xsdk.ExportFailureRetryable), ErrRetryable)
	assert.Equal(t, "permanent error", (&PermanentError{}).Error())
	assert.Equal(t, "temporary error", (&TemporaryError{}).Error())
}
