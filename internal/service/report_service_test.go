package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportRepo struct {
	mu      sync.Mutex
	reports []model.Report
}

func (r *fakeReportRepo) CreateReport(_ context.Context, rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep.ID = uuid.NewString()
	r.reports = append(r.reports, *rep)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ []byte, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.topics = append(p.topics, topic)
	return "msg-1", nil
}

func TestReportCreatePublishesModerationEvent(t *testing.T) {
	lessonRepo := newFakeLessonRepo()
	lesson := &model.Lesson{UserID: "owner", Title: "Intro to Go"}
	require.NoError(t, lessonRepo.CreateLesson(context.Background(), lesson))

	pub := &fakePublisher{}
	svc := NewReportService(&fakeReportRepo{}, lessonRepo, pub, "moderation-events", zerolog.Nop())

	rep, err := svc.Create(context.Background(), &model.Report{LessonID: lesson.ID, UserID: "reader", Reason: "spam"})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, []string{"moderation-events"}, pub.topics)
}

func TestReportCreateSurvivesPublishFailure(t *testing.T) {
	lessonRepo := newFakeLessonRepo()
	lesson := &model.Lesson{UserID: "owner", Title: "Intro to Go"}
	require.NoError(t, lessonRepo.CreateLesson(context.Background(), lesson))

	repo := &fakeReportRepo{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewReportService(repo, lessonRepo, pub, "moderation-events", zerolog.Nop())

	rep, err := svc.Create(context.Background(), &model.Report{LessonID: lesson.ID, UserID: "reader", Reason: "spam"})
	require.NoError(t, err, "publish failures must not fail the report")
	assert.NotEmpty(t, rep.ID)
	assert.Len(t, repo.reports, 1)
}

func TestReportCreateRequiresLesson(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{}, newFakeLessonRepo(), nil, "moderation-events", zerolog.Nop())

	_, err := svc.Create(context.Background(), &model.Report{LessonID: uuid.NewString(), UserID: "reader", Reason: "spam"})
	assert.ErrorIs(t, err, ErrLessonNotFound)
}
