package xpersist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/omeyang/xtel/pkg/observability/xlog"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testPreset 小尺寸预设，便于触发各种边界
func testPreset() PerformancePreset {
	return PerformancePreset{
		MaxFileSize:           100,
		MaxDirectorySize:      250,
		MaxFileAgeForWrite:    time.Second,
		MinFileAgeForRead:     2 * time.Second,
		MaxFileAgeForRead:     time.Hour,
		MaxObjectsInFile:      3,
		MaxObjectSize:         60,
		InitialExportDelay:    time.Millisecond,
		MinExportDelay:        time.Millisecond,
		MaxExportDelay:        5 * time.Millisecond,
		ExportDelayChangeRate: 0.5,
	}
}

func newTestOrchestrator(t *testing.T, p PerformancePreset) (*FilesOrchestrator, *clockz.FakeClock) {
	t.Helper()
	dir, err := OpenDirectory(t.TempDir())
	require.NoError(t, err)
	clock := clockz.NewFakeClockAt(testEpoch)
	return NewFilesOrchestrator(dir, WithPreset(p), WithClock(clock), WithLogger(xlog.Discard())), clock
}

func fileNames(t *testing.T, d *Directory) []string {
	t.Helper()
	files, err := d.Files()
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	return names
}
