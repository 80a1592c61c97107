// internal/workers/server_test.go
package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registered struct {
	spec     string
	taskType string
}

type fakeScheduler struct {
	entries []registered
	err     error
}

func (f *fakeScheduler) Register(cronspec string, task *asynq.Task, _ ...asynq.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.entries = append(f.entries, registered{spec: cronspec, taskType: task.Type()})
	return task.Type(), nil
}

func TestRegisterSchedules(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ScheduleConfig
		want    []registered
		wantErr bool
	}{
		{
			name: "archive_and_cleanup",
			cfg:  ScheduleConfig{ArchiveSchedule: "0 2 * * *", CleanupInterval: time.Hour},
			want: []registered{
				{spec: "0 2 * * *", taskType: TypeSalesExport},
				{spec: "@every 1h0m0s", taskType: TypeCleanupTempFiles},
			},
		},
		{
			name: "archive_disabled",
			cfg:  ScheduleConfig{CleanupInterval: 30 * time.Minute},
			want: []registered{{spec: "@every 30m0s", taskType: TypeCleanupTempFiles}},
		},
		{name: "nothing_scheduled", cfg: ScheduleConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeScheduler{}
			ids, err := RegisterSchedules(s, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.entries)
			assert.Len(t, ids, len(tt.want))
		})
	}

	_, err := RegisterSchedules(&fakeScheduler{err: errors.New("bad spec")}, ScheduleConfig{ArchiveSchedule: "x"})
	assert.ErrorContains(t, err, "sales archive")
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name    string
		retried int
		want    time.Duration
	}{
		{name: "first_retry", retried: 0, want: time.Second},
		{name: "third_retry", retried: 3, want: 8 * time.Second},
		{name: "capped", retried: 9, want: 8*time.Minute + 32*time.Second},
		{name: "far_beyond_cap", retried: 40, want: 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryDelay(tt.retried, nil, nil))
		})
	}
}

func TestNewServeMux(t *testing.T) {
	dir := t.TempDir()
	mux := NewServeMux(Processors{Cleanup: NewCleanupProcessor(dir, time.Hour, quietLogger())}, quietLogger())
	ctx := context.Background()

	assert.NoError(t, mux.ProcessTask(ctx, asynq.NewTask(TypeCleanupTempFiles, nil)))

	err := mux.ProcessTask(ctx, asynq.NewTask(TypeSalesExport, nil))
	assert.Error(t, err)
}
