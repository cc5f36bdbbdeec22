package service

import (
	"context"
	"encoding/json"

	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type ReportService interface {
	Create(ctx context.Context, rep *model.Report) (*model.Report, error)
}

type reportService struct {
	reportRepo      repository.ReportRepository
	lessonRepo      repository.LessonRepository
	publisher       pubsub.Publisher
	moderationTopic string
	logger          zerolog.Logger
}

func NewReportService(reportRepo repository.ReportRepository, lessonRepo repository.LessonRepository, publisher pubsub.Publisher, moderationTopic string, logger zerolog.Logger) ReportService {
	return &reportService{
		reportRepo:      reportRepo,
		lessonRepo:      lessonRepo,
		publisher:       publisher,
		moderationTopic: moderationTopic,
		logger:          logger.With().Str("service", "ReportService").Logger(),
	}
}

func (s *reportService) Create(ctx context.Context, rep *model.Report) (*model.Report, error) {
	lesson, err := s.lessonRepo.GetLessonByID(ctx, rep.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}

	if err := s.reportRepo.CreateReport(ctx, rep); err != nil {
		s.logger.Error().Err(err).Str("lesson_id", rep.LessonID).Msg("Failed to create report")
		return nil, err
	}

	// Best effort: the report row is the source of truth, the event only
	// nudges the moderation pipeline.
	if s.publisher != nil {
		payload, err := json.Marshal(rep)
		if err == nil {
			_, err = s.publisher.Publish(ctx, s.moderationTopic, payload, map[string]string{"event": "report.created"})
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("report_id", rep.ID).Msg("Failed to publish moderation event")
		}
	}
	return rep, nil
}
