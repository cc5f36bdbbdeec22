package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type likeKey struct{ lessonID, userID string }

type fakeLessonRepo struct {
	mu        sync.Mutex
	lessons   map[string]*model.Lesson
	likes     map[likeKey]bool
	favorites map[likeKey]time.Time
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{
		lessons:   make(map[string]*model.Lesson),
		likes:     make(map[likeKey]bool),
		favorites: make(map[likeKey]time.Time),
	}
}

func (r *fakeLessonRepo) CreateLesson(_ context.Context, l *model.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	r.lessons[l.ID] = &cp
	return nil
}

func (r *fakeLessonRepo) GetLessonByID(_ context.Context, lessonID string) (*model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[lessonID]
	if !ok {
		return nil, nil
	}
	cp := *l
	cp.LikeCount = r.likeCountLocked(lessonID)
	return &cp, nil
}

func (r *fakeLessonRepo) ListLessons(_ context.Context, _ string, _, _ int) ([]model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Lesson{}
	for _, l := range r.lessons {
		cp := *l
		cp.LikeCount = r.likeCountLocked(l.ID)
		out = append(out, cp)
	}
	return out, nil
}

func (r *fakeLessonRepo) UpdateLesson(_ context.Context, l *model.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.UpdatedAt = time.Now()
	cp := *l
	r.lessons[l.ID] = &cp
	return nil
}

func (r *fakeLessonRepo) DeleteLesson(_ context.Context, lessonID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lessons, lessonID)
	return nil
}

func (r *fakeLessonRepo) AddLike(_ context.Context, lessonID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := likeKey{lessonID, userID}
	if r.likes[k] {
		return false, nil
	}
	r.likes[k] = true
	return true, nil
}

func (r *fakeLessonRepo) RemoveLike(_ context.Context, lessonID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.likes, likeKey{lessonID, userID})
	return nil
}

func (r *fakeLessonRepo) AddFavorite(_ context.Context, lessonID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := likeKey{lessonID, userID}
	if _, ok := r.favorites[k]; ok {
		return false, nil
	}
	r.favorites[k] = time.Now()
	return true, nil
}

func (r *fakeLessonRepo) RemoveFavorite(_ context.Context, lessonID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favorites, likeKey{lessonID, userID})
	return nil
}

func (r *fakeLessonRepo) ListFavoritesByUserID(_ context.Context, userID string, _, _ int) ([]model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Lesson{}
	for k := range r.favorites {
		if k.userID != userID {
			continue
		}
		if l, ok := r.lessons[k.lessonID]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLessonRepo) likeCountLocked(lessonID string) int {
	n := 0
	for k := range r.likes {
		if k.lessonID == lessonID {
			n++
		}
	}
	return n
}

func newLessonFixture(t *testing.T) (LessonService, *fakeLessonRepo, *model.Lesson) {
	t.Helper()
	repo := newFakeLessonRepo()
	svc := NewLessonService(repo, nil, nil, "", zerolog.Nop())
	l, err := svc.Create(context.Background(), &model.Lesson{UserID: "owner", Title: "Intro to Go"})
	require.NoError(t, err)
	return svc, repo, l
}

func TestLessonUpdateRequiresOwnership(t *testing.T) {
	svc, _, l := newLessonFixture(t)

	_, err := svc.Update(context.Background(), "stranger", false, &model.Lesson{ID: l.ID, Title: "Hijacked"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(context.Background(), "owner", false, &model.Lesson{ID: l.ID, Title: "Intro to Go, revised"})
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go, revised", updated.Title)
	assert.Equal(t, "owner", updated.UserID)
}

func TestLessonAdminCanModerate(t *testing.T) {
	svc, repo, l := newLessonFixture(t)

	err := svc.Delete(context.Background(), "moderator", true, l.ID)
	require.NoError(t, err)
	assert.Empty(t, repo.lessons)
}

func TestLessonDeleteUnknown(t *testing.T) {
	svc, _, _ := newLessonFixture(t)

	err := svc.Delete(context.Background(), "owner", false, uuid.NewString())
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestLikeIsIdempotent(t *testing.T) {
	svc, _, l := newLessonFixture(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Like(context.Background(), l.ID, "reader"))
	}
	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	require.NoError(t, svc.Unlike(context.Background(), l.ID, "reader"))
	got, err = svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)
}

func TestToggleFavorite(t *testing.T) {
	svc, _, l := newLessonFixture(t)

	favorited, err := svc.ToggleFavorite(context.Background(), l.ID, "reader")
	require.NoError(t, err)
	assert.True(t, favorited)

	favs, err := svc.ListFavorites(context.Background(), "reader", 20, 0)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	favorited, err = svc.ToggleFavorite(context.Background(), l.ID, "reader")
	require.NoError(t, err)
	assert.False(t, favorited)

	favs, err = svc.ListFavorites(context.Background(), "reader", 20, 0)
	require.NoError(t, err)
	assert.Empty(t, favs)
}
