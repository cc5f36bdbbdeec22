package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/cache"
	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrForbidden means the caller is neither the resource owner nor an admin.
	ErrForbidden = errors.New("not allowed to modify this resource")
)

const (
	lessonListTTL       = 2 * time.Minute
	lessonCachePattern  = "lessons:*"
	lessonListKeyFormat = "lessons:list:%s:%d:%d"
)

type LessonService interface {
	Create(ctx context.Context, l *model.Lesson) (*model.Lesson, error)
	Get(ctx context.Context, lessonID string) (*model.Lesson, error)
	List(ctx context.Context, search string, limit, offset int) ([]model.Lesson, error)
	Update(ctx context.Context, actorID string, isAdmin bool, l *model.Lesson) (*model.Lesson, error)
	Delete(ctx context.Context, actorID string, isAdmin bool, lessonID string) error

	Like(ctx context.Context, lessonID, userID string) error
	Unlike(ctx context.Context, lessonID, userID string) error
	// ToggleFavorite flips the favorite state and reports the new state.
	ToggleFavorite(ctx context.Context, lessonID, userID string) (favorited bool, err error)
	ListFavorites(ctx context.Context, userID string, limit, offset int) ([]model.Lesson, error)

	// InitiateThumbnailUpload returns a presigned PUT URL for the lesson
	// thumbnail and records its storage path.
	InitiateThumbnailUpload(ctx context.Context, actorID string, isAdmin bool, lessonID string) (uploadURL, storagePath string, err error)
}

type lessonService struct {
	repo          repository.LessonRepository
	cache         *cache.Cache
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

func NewLessonService(repo repository.LessonRepository, c *cache.Cache, s3Client *s3.Client, bucketName string, logger zerolog.Logger) LessonService {
	var presignClient *s3.PresignClient
	if s3Client != nil {
		presignClient = s3.NewPresignClient(s3Client)
	}
	return &lessonService{
		repo:          repo,
		cache:         c,
		presignClient: presignClient,
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "LessonService").Logger(),
	}
}

func (s *lessonService) Create(ctx context.Context, l *model.Lesson) (*model.Lesson, error) {
	if err := s.repo.CreateLesson(ctx, l); err != nil {
		s.logger.Error().Err(err).Str("user_id", l.UserID).Msg("Failed to create lesson")
		return nil, err
	}
	s.invalidateLists(ctx)
	return l, nil
}

func (s *lessonService) Get(ctx context.Context, lessonID string) (*model.Lesson, error) {
	l, err := s.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLessonNotFound
	}
	return l, nil
}

func (s *lessonService) List(ctx context.Context, search string, limit, offset int) ([]model.Lesson, error) {
	key := fmt.Sprintf(lessonListKeyFormat, search, limit, offset)
	var lessons []model.Lesson
	if hit, err := s.cache.Get(ctx, key, &lessons); err != nil {
		s.logger.Warn().Err(err).Msg("Lesson list cache read failed")
	} else if hit {
		return lessons, nil
	}

	lessons, err := s.repo.ListLessons(ctx, search, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, lessons, lessonListTTL); err != nil {
		s.logger.Warn().Err(err).Msg("Lesson list cache write failed")
	}
	return lessons, nil
}

func (s *lessonService) Update(ctx context.Context, actorID string, isAdmin bool, l *model.Lesson) (*model.Lesson, error) {
	existing, err := s.Get(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != actorID && !isAdmin {
		return nil, ErrForbidden
	}

	// Ownership and counters never change on update.
	l.UserID = existing.UserID
	l.LikeCount = existing.LikeCount
	l.CreatedAt = existing.CreatedAt
	if l.ThumbnailPath == "" {
		l.ThumbnailPath = existing.ThumbnailPath
	}
	if err := s.repo.UpdateLesson(ctx, l); err != nil {
		s.logger.Error().Err(err).Str("lesson_id", l.ID).Msg("Failed to update lesson")
		return nil, err
	}
	s.invalidateLists(ctx)
	return l, nil
}

func (s *lessonService) Delete(ctx context.Context, actorID string, isAdmin bool, lessonID string) error {
	existing, err := s.Get(ctx, lessonID)
	if err != nil {
		return err
	}
	if existing.UserID != actorID && !isAdmin {
		return ErrForbidden
	}
	if err := s.repo.DeleteLesson(ctx, lessonID); err != nil {
		s.logger.Error().Err(err).Str("lesson_id", lessonID).Msg("Failed to delete lesson")
		return err
	}
	s.invalidateLists(ctx)
	return nil
}

func (s *lessonService) Like(ctx context.Context, lessonID, userID string) error {
	if _, err := s.Get(ctx, lessonID); err != nil {
		return err
	}
	// Liking twice is a no-op, not an error.
	if _, err := s.repo.AddLike(ctx, lessonID, userID); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	return nil
}

func (s *lessonService) Unlike(ctx context.Context, lessonID, userID string) error {
	if err := s.repo.RemoveLike(ctx, lessonID, userID); err != nil {
		return err
	}
	s.invalidateLists(ctx)
	return nil
}

func (s *lessonService) ToggleFavorite(ctx context.Context, lessonID, userID string) (bool, error) {
	if _, err := s.Get(ctx, lessonID); err != nil {
		return false, err
	}
	added, err := s.repo.AddFavorite(ctx, lessonID, userID)
	if err != nil {
		return false, err
	}
	if added {
		return true, nil
	}
	// Row already existed, so this toggle removes it.
	if err := s.repo.RemoveFavorite(ctx, lessonID, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *lessonService) ListFavorites(ctx context.Context, userID string, limit, offset int) ([]model.Lesson, error) {
	return s.repo.ListFavoritesByUserID(ctx, userID, limit, offset)
}

func (s *lessonService) InitiateThumbnailUpload(ctx context.Context, actorID string, isAdmin bool, lessonID string) (string, string, error) {
	existing, err := s.Get(ctx, lessonID)
	if err != nil {
		return "", "", err
	}
	if existing.UserID != actorID && !isAdmin {
		return "", "", ErrForbidden
	}

	storagePath := fmt.Sprintf("lessons/%s/thumbnail-%s", lessonID, uuid.NewString())
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("lesson_id", lessonID).Msg("Failed to generate presigned PUT URL for thumbnail")
		return "", "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	existing.ThumbnailPath = storagePath
	if err := s.repo.UpdateLesson(ctx, existing); err != nil {
		s.logger.Error().Err(err).Str("lesson_id", lessonID).Msg("Failed to store thumbnail path")
		return "", "", err
	}
	s.invalidateLists(ctx)
	return request.URL, storagePath, nil
}

func (s *lessonService) invalidateLists(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, lessonCachePattern); err != nil {
		s.logger.Warn().Err(err).Msg("Lesson cache invalidation failed")
	}
}
