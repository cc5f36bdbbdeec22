package service

import (
	"context"
	"sync"
	"testing"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[string]*model.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment)}
}

func (r *fakeCommentRepo) ListCommentsByLessonID(_ context.Context, lessonID string, _, _ int) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Comment{}
	for _, c := range r.comments {
		if c.LessonID == lessonID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) CreateComment(_ context.Context, c *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) GetCommentByID(_ context.Context, commentID string) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[commentID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) UpdateComment(_ context.Context, c *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) DeleteComment(_ context.Context, commentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, commentID)
	return nil
}

func newCommentFixture(t *testing.T) (CommentService, *model.Lesson, *model.Comment) {
	t.Helper()
	lessonRepo := newFakeLessonRepo()
	lesson := &model.Lesson{UserID: "owner", Title: "Intro to Go"}
	require.NoError(t, lessonRepo.CreateLesson(context.Background(), lesson))

	svc := NewCommentService(newFakeCommentRepo(), lessonRepo, zerolog.Nop())
	c, err := svc.Create(context.Background(), &model.Comment{LessonID: lesson.ID, UserID: "author", Body: "Nice one"})
	require.NoError(t, err)
	return svc, lesson, c
}

func TestCommentCreateRequiresLesson(t *testing.T) {
	svc := NewCommentService(newFakeCommentRepo(), newFakeLessonRepo(), zerolog.Nop())

	_, err := svc.Create(context.Background(), &model.Comment{LessonID: uuid.NewString(), UserID: "author", Body: "hi"})
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestCommentUpdateRequiresOwnership(t *testing.T) {
	svc, _, c := newCommentFixture(t)

	_, err := svc.Update(context.Background(), "stranger", false, c.ID, "edited")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(context.Background(), "author", false, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Body)
}

func TestCommentDelete(t *testing.T) {
	svc, lesson, c := newCommentFixture(t)

	// Admins may remove any comment.
	require.NoError(t, svc.Delete(context.Background(), "moderator", true, c.ID))

	comments, err := svc.List(context.Background(), lesson.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)

	err = svc.Delete(context.Background(), "author", false, c.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
