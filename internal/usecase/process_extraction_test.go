package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"testing"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/framegrab/framegrab-extraction-service/internal/domain/port"
	"github.com/framegrab/framegrab-extraction-service/internal/infra/archive"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	jobs map[uuid.UUID]*entity.Job
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job, nil
}

type fakeStorage struct {
	downloadErr error
	uploads     map[string]int64
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("not a real stream"), 0644)
}

func (s *fakeStorage) UploadArchive(_ context.Context, objectKey string, _ io.Reader, size int64) error {
	if s.uploads == nil {
		s.uploads = make(map[string]int64)
	}
	s.uploads[objectKey] = size
	return nil
}

type fakeVideoSource struct {
	duration float64
}

func (f *fakeVideoSource) Metadata() entity.VideoMetadata {
	return entity.VideoMetadata{DurationSeconds: f.duration, FrameRate: 25, Width: 64, Height: 48}
}

func (f *fakeVideoSource) FrameAt(_ context.Context, _ float64) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

func (f *fakeVideoSource) Close() error { return nil }

type fakeOpener struct {
	src port.VideoSource
	err error
}

func (o fakeOpener) Open(string) (port.VideoSource, error) {
	return o.src, o.err
}

type fakePublisher struct{ msgs [][]byte }

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeDLQ struct {
	msgs    [][]byte
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	d.msgs = append(d.msgs, msg)
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeNotifier struct{ emails []string }

func (n *fakeNotifier) NotifyFailure(_ context.Context, userEmail, _, _, _ string) error {
	n.emails = append(n.emails, userEmail)
	return nil
}

type fixture struct {
	uc        *ProcessExtractionUseCase
	repo      *fakeRepo
	storage   *fakeStorage
	publisher *fakePublisher
	dlq       *fakeDLQ
	notifier  *fakeNotifier
}

func newFixture(t *testing.T, opener port.SourceOpener, storage *fakeStorage) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newFakeRepo(),
		storage:   storage,
		publisher: &fakePublisher{},
		dlq:       &fakeDLQ{},
		notifier:  &fakeNotifier{},
	}
	f.uc = NewProcessExtractionUseCase(
		f.repo, f.storage, opener, archive.NewZipArchiver(),
		f.publisher, f.dlq, f.notifier,
		zap.NewNop(),
		ProcessExtractionConfig{
			TempDir:         t.TempDir(),
			MaxRetries:      3,
			DefaultInterval: 1.0,
			DefaultFPS:      1,
		},
	)
	return f
}

func requestBody(t *testing.T, msg entity.ExtractionRequestMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func lastStatus(t *testing.T, p *fakePublisher) entity.ExtractionStatusMessage {
	t.Helper()
	require.NotEmpty(t, p.msgs)
	var status entity.ExtractionStatusMessage
	require.NoError(t, json.Unmarshal(p.msgs[len(p.msgs)-1], &status))
	return status
}

func TestExecuteCompletesJob(t *testing.T) {
	opener := fakeOpener{src: &fakeVideoSource{duration: 3}}
	f := newFixture(t, opener, &fakeStorage{})

	jobID := uuid.New()
	body := requestBody(t, entity.ExtractionRequestMessage{
		JobID:           jobID,
		UserID:          "user-1",
		VideoKey:        "user-1/clip.mpg",
		IntervalSeconds: 1,
		FramesPerSecond: 1,
	})

	err := f.uc.Execute(context.Background(), body)
	require.NoError(t, err)

	status := lastStatus(t, f.publisher)
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Equal(t, 3, status.FramesWritten)
	assert.NotEmpty(t, status.ZipKey)

	job := f.repo.jobs[jobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.FramesWritten)

	assert.Contains(t, f.storage.uploads, status.ZipKey)
	assert.Empty(t, f.dlq.msgs)
}

func TestExecuteAppliesDefaults(t *testing.T) {
	opener := fakeOpener{src: &fakeVideoSource{duration: 2}}
	f := newFixture(t, opener, &fakeStorage{})

	// No interval/fps in the message: config defaults apply.
	body := requestBody(t, entity.ExtractionRequestMessage{
		JobID:    uuid.New(),
		UserID:   "user-1",
		VideoKey: "user-1/clip.mpg",
	})

	require.NoError(t, f.uc.Execute(context.Background(), body))

	status := lastStatus(t, f.publisher)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Equal(t, 2, status.FramesWritten)
}

func TestExecuteMalformedMessageGoesToDLQ(t *testing.T) {
	f := newFixture(t, fakeOpener{src: &fakeVideoSource{duration: 1}}, &fakeStorage{})

	err := f.uc.Execute(context.Background(), []byte(`{invalid json`))
	require.NoError(t, err) // acked, not retried

	require.Len(t, f.dlq.msgs, 1)
	assert.Contains(t, f.dlq.reasons[0], "unmarshal_error")
}

func TestExecuteUnsupportedFormatIsPermanent(t *testing.T) {
	opener := fakeOpener{err: fmt.Errorf("%w: user-1/clip.avi", entity.ErrUnsupportedFormat)}
	f := newFixture(t, opener, &fakeStorage{})

	jobID := uuid.New()
	body := requestBody(t, entity.ExtractionRequestMessage{
		JobID:           jobID,
		UserID:          "user-1",
		VideoKey:        "user-1/clip.avi",
		UserEmail:       "user@example.com",
		IntervalSeconds: 1,
		FramesPerSecond: 1,
	})

	err := f.uc.Execute(context.Background(), body)
	require.NoError(t, err) // permanent failures are acked

	assert.Equal(t, entity.JobStatusFailed, f.repo.jobs[jobID].Status)
	require.Len(t, f.dlq.msgs, 1)
	assert.Equal(t, []string{"user@example.com"}, f.notifier.emails)
}

func TestExecuteDownloadFailureIsRetryable(t *testing.T) {
	opener := fakeOpener{src: &fakeVideoSource{duration: 1}}
	f := newFixture(t, opener, &fakeStorage{downloadErr: errors.New("connection refused")})

	jobID := uuid.New()
	body := requestBody(t, entity.ExtractionRequestMessage{
		JobID:           jobID,
		UserID:          "user-1",
		VideoKey:        "user-1/clip.mpg",
		IntervalSeconds: 1,
		FramesPerSecond: 1,
	})

	err := f.uc.Execute(context.Background(), body)
	require.Error(t, err) // nacked and requeued by the consumer

	job := f.repo.jobs[jobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.Attempt)
	assert.True(t, job.CanRetry())
	assert.Empty(t, f.dlq.msgs)
}
