package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role")
)

type UserService interface {
	// Sync creates the profile on first login and refreshes it afterwards.
	Sync(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// InitiateAvatarUpload returns a presigned PUT URL for the avatar object
	// and records its storage path on the profile.
	InitiateAvatarUpload(ctx context.Context, userID string) (uploadURL, storagePath string, err error)

	// Admin-only operations; the handler enforces the role check.
	UpdateRole(ctx context.Context, userID, role string) error
	Delete(ctx context.Context, userID string) error
}

type userService struct {
	userRepo      repository.UserRepository
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, s3Client *s3.Client, bucketName string, logger zerolog.Logger) UserService {
	var presignClient *s3.PresignClient
	if s3Client != nil {
		presignClient = s3.NewPresignClient(s3Client)
	}
	return &userService{
		userRepo:      userRepo,
		presignClient: presignClient,
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Sync(ctx context.Context, u *model.User) (*model.User, error) {
	if err := s.userRepo.UpsertUser(ctx, u); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to sync user profile")
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) InitiateAvatarUpload(ctx context.Context, userID string) (string, string, error) {
	u, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if u == nil {
		return "", "", ErrUserNotFound
	}

	storagePath := fmt.Sprintf("avatars/%s/%s", userID, uuid.NewString())
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to generate presigned PUT URL for avatar")
		return "", "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	if err := s.userRepo.UpdateAvatarURL(ctx, userID, storagePath); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store avatar path")
		return "", "", err
	}
	return request.URL, storagePath, nil
}

func (s *userService) UpdateRole(ctx context.Context, userID, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return ErrInvalidRole
	}
	updated, err := s.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update role")
		return err
	}
	if !updated {
		return ErrUserNotFound
	}
	s.logger.Info().Str("user_id", userID).Str("role", role).Msg("User role updated")
	return nil
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	deleted, err := s.userRepo.DeleteUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	s.logger.Info().Str("user_id", userID).Msg("User profile deleted")
	return nil
}
