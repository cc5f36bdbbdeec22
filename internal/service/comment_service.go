package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentService interface {
	List(ctx context.Context, lessonID string, limit, offset int) ([]model.Comment, error)
	Create(ctx context.Context, c *model.Comment) (*model.Comment, error)
	Update(ctx context.Context, actorID string, isAdmin bool, commentID, body string) (*model.Comment, error)
	Delete(ctx context.Context, actorID string, isAdmin bool, commentID string) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	lessonRepo  repository.LessonRepository
	logger      zerolog.Logger
}

func NewCommentService(commentRepo repository.CommentRepository, lessonRepo repository.LessonRepository, logger zerolog.Logger) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		lessonRepo:  lessonRepo,
		logger:      logger.With().Str("service", "CommentService").Logger(),
	}
}

func (s *commentService) List(ctx context.Context, lessonID string, limit, offset int) ([]model.Comment, error) {
	return s.commentRepo.ListCommentsByLessonID(ctx, lessonID, limit, offset)
}

func (s *commentService) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	lesson, err := s.lessonRepo.GetLessonByID(ctx, c.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	if err := s.commentRepo.CreateComment(ctx, c); err != nil {
		s.logger.Error().Err(err).Str("lesson_id", c.LessonID).Msg("Failed to create comment")
		return nil, err
	}
	return c, nil
}

func (s *commentService) Update(ctx context.Context, actorID string, isAdmin bool, commentID, body string) (*model.Comment, error) {
	existing, err := s.commentRepo.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCommentNotFound
	}
	if existing.UserID != actorID && !isAdmin {
		return nil, ErrForbidden
	}

	existing.Body = body
	if err := s.commentRepo.UpdateComment(ctx, existing); err != nil {
		s.logger.Error().Err(err).Str("comment_id", commentID).Msg("Failed to update comment")
		return nil, err
	}
	return existing, nil
}

func (s *commentService) Delete(ctx context.Context, actorID string, isAdmin bool, commentID string) error {
	existing, err := s.commentRepo.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCommentNotFound
	}
	if existing.UserID != actorID && !isAdmin {
		return ErrForbidden
	}
	if err := s.commentRepo.DeleteComment(ctx, commentID); err != nil {
		s.logger.Error().Err(err).Str("comment_id", commentID).Msg("Failed to delete comment")
		return err
	}
	return nil
}
