package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// SubmitVideo records the session's video (1:1) and dispatches processing:
// integrity scan followed by final feedback generation.
func (s *Interview) SubmitVideo(ctx context.Context, sessionID uint, videoRef string) (*domain.VideoRecording, error) {
	if videoRef == "" {
		return nil, fmt.Errorf("%w: video reference is required", domain.ErrValidation)
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	existing, err := s.store.VideoBySession(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: session %d already has a video recording", domain.ErrValidation, sessionID)
	}

	rec := &domain.VideoRecording{
		SessionID: sessionID,
		VideoRef:  videoRef,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateVideoRecording(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("video recording created",
		zap.Uint("session_id", sessionID), zap.Uint("recording_id", rec.ID))

	task := Task{Kind: TaskProcessVideo, SessionID: sessionID, RecordingID: rec.ID}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		s.logger.Error("video processing trigger failed",
			zap.Uint("recording_id", rec.ID), zap.Error(err))
	}
	return rec, nil
}

// ProcessVideo is the terminal unit of work: scan, then aggregate feedback.
// A scan failure is logged and swallowed so video capture never blocks the
// final report.
func (s *Interview) ProcessVideo(ctx context.Context, recordingID uint) error {
	rec, err := s.store.GetVideoRecording(ctx, recordingID)
	if err != nil {
		return err
	}

	if err := s.ScanAndRecord(ctx, rec); err != nil {
		s.logger.Error("video scan failed",
			zap.Uint("recording_id", recordingID), zap.Error(err))
	}

	_, err = s.GenerateFeedback(ctx, rec.SessionID)
	return err
}

// ScanAndRecord invokes the scan capability and appends one CheatingFlag per
// finding, stamped with the adapter's clock (never a caller-supplied time).
// Running it again on an already-processed recording re-scans and appends
// another batch; flags are deliberately not deduplicated.
func (s *Interview) ScanAndRecord(ctx context.Context, rec *domain.VideoRecording) error {
	findings, err := s.scanner.ScanVideo(ctx, rec.VideoRef)
	if err != nil {
		return fmt.Errorf("scan video %d: %w", rec.ID, err)
	}

	return s.store.InTx(ctx, func(tx repository.Store) error {
		for _, f := range findings {
			flag := &domain.CheatingFlag{
				RecordingID: rec.ID,
				FlagType:    f.FlagType,
				Description: f.Description,
				Timestamp:   s.now(),
			}
			if err := tx.CreateCheatingFlag(ctx, flag); err != nil {
				return err
			}
		}
		return tx.MarkVideoProcessed(ctx, rec.ID)
	})
}
