package exportjobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	messages []queue.ExportJobMessage
	err      error
}

func (p *fakePublisher) PublishExportJob(_ context.Context, msg queue.ExportJobMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestNewJobValidates(t *testing.T) {
	from := fixedNow
	to := fixedNow.Add(-time.Hour)
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{name: "missing restaurant", req: Request{Format: "pdf"}, want: ErrInvalidJob},
		{name: "bad format", req: Request{RestaurantID: "r1", Format: "xml"}, want: export.ErrUnsupportedFormat},
		{name: "bad range", req: Request{RestaurantID: "r1", Format: "pdf", TimeRange: "1y"}, want: ErrInvalidJob},
		{name: "inverted dates", req: Request{RestaurantID: "r1", Format: "pdf", From: &from, To: &to}, want: ErrInvalidJob},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewJob(tc.req, fixedNow)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	job, err := NewJob(Request{RestaurantID: "r1", Format: "XLSX"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, export.FormatExcel, job.Format)
	assert.Equal(t, "7d", string(job.TimeRange))
	assert.Equal(t, StatusQueued, job.Status)
	assert.Len(t, job.ID, 36)
}

func TestMemoryStoreExpiresJobs(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	now := fixedNow
	st.now = func() time.Time { return now }

	job, err := NewJob(Request{RestaurantID: "r1", Format: "csv"}, now)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), job))

	got, err := st.Get(context.Background(), job.ID)
	require.NoError(t, err)
	got.Status = StatusDone
	again, _ := st.Get(context.Background(), job.ID)
	assert.Equal(t, StatusQueued, again.Status, "stored jobs are copies")

	now = now.Add(2 * time.Minute)
	_, err = st.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestServiceSubmitPublishes(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	pub := &fakePublisher{}
	svc := &Service{Store: st, Publisher: pub, Now: func() time.Time { return fixedNow }}

	job, err := svc.Submit(context.Background(), Request{RestaurantID: "r1", Format: "pdf", TimeRange: "30d"})
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, job.ID, pub.messages[0].JobID)

	saved, err := st.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, saved.Status)
}

func TestServiceSubmitMarksUnpublishedJobsFailed(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	svc := &Service{Store: st, Publisher: &fakePublisher{err: errors.New("channel closed")}}

	_, err := svc.Submit(context.Background(), Request{RestaurantID: "r1", Format: "pdf"})
	assert.Error(t, err)
}

func TestServiceGetScopesByRestaurant(t *testing.T) {
	runner, st, _ := newRunner(&fakeSnapshots{}, &fakeArchive{})
	svc := &Service{Store: st, Runner: runner, DownloadTTL: 10 * time.Minute, Now: func() time.Time { return fixedNow }}

	job := queuedJob(t, st, "csv")
	view, err := svc.Get(context.Background(), "r1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, view.Status)
	assert.Empty(t, view.DownloadURL)

	_, err = svc.Get(context.Background(), "r2", job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, runner.Process(context.Background(), job.ID))
	view, err = svc.Get(context.Background(), "r1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, view.Status)
	assert.Contains(t, view.DownloadURL, "https://signed.example.com/reports/r1/")
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, fixedNow.Add(10*time.Minute), *view.ExpiresAt)
}

func TestServiceSubmitNeedsArchive(t *testing.T) {
	runner, st, _ := newRunner(&fakeSnapshots{}, &fakeArchive{})
	runner.Archive = nil
	svc := &Service{Store: st, Runner: runner}

	_, err := svc.Submit(context.Background(), Request{RestaurantID: "r1", Format: "pdf"})
	assert.ErrorIs(t, err, ErrNoArchive)
}

func TestServiceInlineRetriesTransientFailures(t *testing.T) {
	runner, st, notifier := newRunner(&fakeSnapshots{}, &fakeArchive{failures: 1})
	svc := &Service{Store: st, Runner: runner, RetryDelay: time.Millisecond}

	job, err := svc.Submit(context.Background(), Request{RestaurantID: "r1", Format: "csv"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), job.ID)
		return err == nil && saved.Status == StatusDone
	}, 2*time.Second, 5*time.Millisecond)

	saved, _ := st.Get(context.Background(), job.ID)
	assert.Equal(t, 2, saved.Attempts)
	assert.Empty(t, saved.Error)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []Status{StatusProcessing, StatusQueued, StatusProcessing, StatusDone}, notifier.statuses)
}

func TestServiceInlineGivesUpAfterMaxAttempts(t *testing.T) {
	runner, st, _ := newRunner(&fakeSnapshots{err: errors.New("connection reset")}, &fakeArchive{})
	svc := &Service{Store: st, Runner: runner, RetryDelay: time.Millisecond}

	job, err := svc.Submit(context.Background(), Request{RestaurantID: "r1", Format: "pdf"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		saved, err := st.Get(context.Background(), job.ID)
		return err == nil && saved.Status == StatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	saved, _ := st.Get(context.Background(), job.ID)
	assert.Equal(t, runner.MaxAttempts, saved.Attempts)
	assert.Contains(t, saved.Error, "connection reset")
}
