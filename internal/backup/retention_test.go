package backup

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBackups(t *testing.T, dates ...string) []*Backup {
	t.Helper()
	var out []*Backup
	for _, d := range dates {
		b, err := Parse("box-1-" + d + ".tar")
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func names(bs []*Backup) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Name)
	}
	return out
}

func TestSelectExpired_MaxCount(t *testing.T) {
	bs := mkBackups(t, "202401010000", "202401020000", "202401030000", "202401040000")
	got := selectExpired(bs, 1, 2, 0, fixedNow)
	assert.ElementsMatch(t, []string{"box-1-202401010000.tar", "box-1-202401020000.tar"}, names(got))
}

func TestSelectExpired_MaxAge(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)
	bs := mkBackups(t, "202312010000", "202401080000", "202401090000")
	got := selectExpired(bs, 0, 0, 7, now)
	assert.Equal(t, []string{"box-1-202312010000.tar"}, names(got))
}

func TestSelectExpired_MinCountWins(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	bs := mkBackups(t, "202301010000", "202302010000", "202303010000")
	got := selectExpired(bs, 2, 1, 1, now)
	// 最新的两个即使过期也保留
	assert.Equal(t, []string{"box-1-202301010000.tar"}, names(got))
}

func TestSelectExpired_NoLimits(t *testing.T) {
	bs := mkBackups(t, "202301010000", "202302010000")
	assert.Empty(t, selectExpired(bs, 0, 0, 0, fixedNow))
}

func TestApplyRetention(t *testing.T) {
	m := newTestManager(t)
	m.retention.MinCount = 1
	m.retention.MaxCount = 2
	for _, name := range []string{
		"ideascube-0.1.0-202301010000.tar",
		"ideascube-0.1.0-202302010000.tar",
		"ideascube-0.1.0-202303010000.tar",
	} {
		writeFile(t, filepath.Join(m.Dir(), name), "x")
	}

	deleted, err := m.ApplyRetention(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ideascube-0.1.0-202301010000.tar"}, deleted)

	list, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestScheduler_CreatesBackups(t *testing.T) {
	m := newTestManager(t)
	seedRoot(t, m.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.Start(ctx, 20*time.Millisecond))
	assert.ErrorIs(t, m.Start(ctx, time.Second), ErrSchedulerRunning)

	require.Eventually(t, func() bool {
		list, err := m.List(ctx)
		return err == nil && len(list) == 1
	}, 5*time.Second, 10*time.Millisecond)

	m.Stop()
	assert.NoError(t, m.Start(ctx, time.Hour), "Stop 后可重新启动")
	m.Stop()
	assert.Error(t, m.Start(ctx, 0))
}

func TestScheduler_RunsPrepareBeforeEachBackup(t *testing.T) {
	var calls atomic.Int32
	m := newTestManager(t, WithScheduledPrepare(func(context.Context) error {
		calls.Add(1)
		return errors.New("checkpoint busy")
	}))
	seedRoot(t, m.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx, 20*time.Millisecond))
	defer m.Stop()

	// 准备步骤失败不影响备份
	require.Eventually(t, func() bool {
		list, err := m.List(ctx)
		return err == nil && len(list) == 1 && calls.Load() > 0
	}, 5*time.Second, 10*time.Millisecond)
}
