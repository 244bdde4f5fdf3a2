package xpulsarexp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xtel/pkg/exporter/xbackend"
	"github.com/omeyang/xtel/pkg/exporter/xspanjson"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/trace/xsdk"
	"github.com/omeyang/xtel/pkg/trace/xspanctx"
)

type sendAsyncFunc = func(context.Context, *pulsar.ProducerMessage, func(pulsar.MessageID, *pulsar.ProducerMessage, error))

func span(name string, tid byte) xsdk.SpanData {
	return xsdk.SpanData{
		Name: name,
		SpanContext: xspanctx.NewSpanContext(xspanctx.SpanContextConfig{
			TraceID: xspanctx.TraceID{15: tid},
			SpanID:  xspanctx.SpanID{7: tid},
		}),
		EndTime:  time.Unix(1700000000, 0),
		HasEnded: true,
	}
}

// ack 立即以 err 回调
func ack(err error) sendAsyncFunc {
	return func(_ context.Context, msg *pulsar.ProducerMessage, cb func(pulsar.MessageID, *pulsar.ProducerMessage, error)) {
		cb(nil, msg, err)
	}
}

func newTestExporter(t *testing.T, p Producer) *Exporter {
	t.Helper()
	e, err := New(p, xbackend.WithLogger(xlog.Discard()))
	require.NoError(t, err)
	return e
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilProducer)
	_, err = NewFromClient(nil, pulsar.ProducerOptions{})
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestExportSendsOneMessagePerSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProducer(ctrl)
	var got []*pulsar.ProducerMessage
	p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(ctx context.Context, msg *pulsar.ProducerMessage, cb func(pulsar.MessageID, *pulsar.ProducerMessage, error)) {
			got = append(got, msg)
			ack(nil)(ctx, msg, cb)
		})
	p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil)

	e := newTestExporter(t, p)
	require.Equal(t, xsdk.ExportSuccess, e.Export(context.Background(), []xsdk.SpanData{span("a", 1), span("b", 2)}))

	require.Len(t, got, 2)
	assert.Equal(t, "00000000000000000000000000000002", got[1].Key)
	assert.Equal(t, "application/json", got[0].Properties["content-type"])
	assert.Equal(t, time.Unix(1700000000, 0), got[0].EventTime)
	sd, err := xspanjson.UnmarshalSpan(got[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "a", sd.Name)
	assert.Equal(t, int64(2), e.Stats().Exported)
}

func TestExportAcksAfterFlush(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProducer(ctrl)
	var pending []func()
	p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *pulsar.ProducerMessage, cb func(pulsar.MessageID, *pulsar.ProducerMessage, error)) {
			pending = append(pending, func() { cb(nil, msg, nil) })
		})
	p.EXPECT().FlushWithCtx(gomock.Any()).DoAndReturn(func(context.Context) error {
		for _, f := range pending {
			f()
		}
		return nil
	})

	e := newTestExporter(t, p)
	assert.Equal(t, xsdk.ExportSuccess, e.Export(context.Background(), []xsdk.SpanData{span("a", 1)}))
}

func TestExportClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want xsdk.ExportResult
	}{
		{"发送超时可重试", pulsar.ErrSendTimeout, xsdk.ExportFailureRetryable},
		{"队列满可重试", pulsar.ErrSendQueueIsFull, xsdk.ExportFailureRetryable},
		{"消息过大不可重试", pulsar.ErrMessageTooLarge, xsdk.ExportFailure},
		{"包装后仍识别", fmt.Errorf("send: %w", pulsar.ErrProducerClosed), xsdk.ExportFailure},
		{"topic 终止不可重试", pulsar.ErrTopicTerminated, xsdk.ExportFailure},
		{"未知错误可重试", errors.New("boom"), xsdk.ExportFailureRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			p := NewMockProducer(ctrl)
			p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(ack(tt.err))
			p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil)
			e := newTestExporter(t, p)
			assert.Equal(t, tt.want, e.Export(context.Background(), []xsdk.SpanData{span("a", 1)}))
		})
	}
}

func TestExportMixedFailuresPreferRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProducer(ctrl)
	gomock.InOrder(
		p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(ack(pulsar.ErrMessageTooLarge)),
		p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(ack(pulsar.ErrSendTimeout)),
	)
	p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil)
	e := newTestExporter(t, p)
	assert.Equal(t, xsdk.ExportFailureRetryable, e.Export(context.Background(), []xsdk.SpanData{span("a", 1), span("b", 2)}))
}

func TestExportWithoutAckTimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProducer(ctrl)
	p.EXPECT().SendAsync(gomock.Any(), gomock.Any(), gomock.Any())
	p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil)

	e := newTestExporter(t, p)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, xsdk.ExportFailureRetryable, e.Export(ctx, []xsdk.SpanData{span("a", 1)}))
}

func TestFlushAndShutdown(t *testing.T) {
	t.Run("外部 producer 不关闭", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := NewMockProducer(ctrl)
		gomock.InOrder(
			p.EXPECT().FlushWithCtx(gomock.Any()).Return(errors.New("not connected")),
			p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil),
		)
		e := newTestExporter(t, p)
		assert.Equal(t, xsdk.ExportFailureRetryable, e.Flush(context.Background()))
		require.NoError(t, e.Shutdown(context.Background()))
		require.NoError(t, e.Shutdown(context.Background()))
		assert.Equal(t, xsdk.ExportSuccess, e.Flush(context.Background()))
		assert.Equal(t, xsdk.ExportFailure, e.Export(context.Background(), []xsdk.SpanData{span("a", 1)}))
	})

	t.Run("自有 producer 关闭", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := NewMockProducer(ctrl)
		p.EXPECT().FlushWithCtx(gomock.Any()).Return(nil)
		p.EXPECT().Close()
		e := newTestExporter(t, p)
		e.owned = true
		require.NoError(t, e.Shutdown(context.Background()))
	})
}

func TestPingWithoutClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProducer(ctrl)
	p.EXPECT().Topic().Return("persistent://public/default/spans")
	e := newTestExporter(t, p)
	require.NoError(t, e.Ping(context.Background()))
	assert.Equal(t, "persistent://public/default/spans", e.Topic())
	assert.Zero(t, e.Stats().Pings)
}

func TestTopicMissing(t *testing.T) {
	assert.True(t, topicMissing(errors.New("server error: TopicNotFound")))
	assert.False(t, topicMissing(errors.New("connection refused")))
}
