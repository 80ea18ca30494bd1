package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-interviewer/domain"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle as the persistence boundary.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (s *gormStore) CreateResume(ctx context.Context, r *domain.Resume) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) GetResume(ctx context.Context, id uint) (*domain.Resume, error) {
	var r domain.Resume
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) SetResumeText(ctx context.Context, id uint, text string) error {
	return s.db.WithContext(ctx).Model(&domain.Resume{}).
		Where("id = ?", id).
		Update("extracted_text", text).Error
}

func (s *gormStore) GetOrCreateQuestion(ctx context.Context, text, skillTag string, difficulty int) (*domain.Question, error) {
	q := domain.Question{
		Text:       text,
		TextHash:   domain.QuestionTextHash(text),
		SkillTag:   skillTag,
		Difficulty: difficulty,
	}
	// DoNothing on the hash index makes the lookup-or-create race-safe: the
	// loser of a concurrent insert falls through to the fetch below.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "text_hash"}},
		DoNothing: true,
	}).Create(&q).Error
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	if q.ID != 0 {
		return &q, nil
	}
	var existing domain.Question
	if err := s.db.WithContext(ctx).Where("text_hash = ?", q.TextHash).First(&existing).Error; err != nil {
		return nil, notFound(err)
	}
	return &existing, nil
}

func (s *gormStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	var qs []domain.Question
	err := s.db.WithContext(ctx).Order("id").Find(&qs).Error
	return qs, err
}

func (s *gormStore) CreateSession(ctx context.Context, sess *domain.InterviewSession) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *gormStore) GetSession(ctx context.Context, id uint) (*domain.InterviewSession, error) {
	var sess domain.InterviewSession
	if err := s.db.WithContext(ctx).First(&sess, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (s *gormStore) SessionForUpdate(ctx context.Context, id uint) (*domain.InterviewSession, error) {
	var sess domain.InterviewSession
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sess, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (s *gormStore) SaveSession(ctx context.Context, sess *domain.InterviewSession) error {
	return s.db.WithContext(ctx).Save(sess).Error
}

func (s *gormStore) CreateSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error {
	return s.db.WithContext(ctx).Create(sq).Error
}

func (s *gormStore) GetSessionQuestion(ctx context.Context, id uint) (*domain.SessionQuestion, error) {
	var sq domain.SessionQuestion
	if err := s.db.WithContext(ctx).Preload("Question").First(&sq, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sq, nil
}

func (s *gormStore) SaveSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error {
	return s.db.WithContext(ctx).Omit("Question").Save(sq).Error
}

func (s *gormStore) OpenQuestion(ctx context.Context, sessionID uint) (*domain.SessionQuestion, error) {
	var sq domain.SessionQuestion
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND answer_text IS NULL", sessionID).
		Order("asked_at").
		First(&sq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sq, nil
}

func (s *gormStore) SessionQuestionsBySession(ctx context.Context, sessionID uint) ([]domain.SessionQuestion, error) {
	var sqs []domain.SessionQuestion
	err := s.db.WithContext(ctx).
		Preload("Question").
		Where("session_id = ?", sessionID).
		Order("asked_at").
		Find(&sqs).Error
	return sqs, err
}

func (s *gormStore) CountSessionQuestions(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.SessionQuestion{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (s *gormStore) CreateVideoRecording(ctx context.Context, v *domain.VideoRecording) error {
	return s.db.WithContext(ctx).Create(v).Error
}

func (s *gormStore) GetVideoRecording(ctx context.Context, id uint) (*domain.VideoRecording, error) {
	var v domain.VideoRecording
	if err := s.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *gormStore) VideoBySession(ctx context.Context, sessionID uint) (*domain.VideoRecording, error) {
	var v domain.VideoRecording
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&v).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *gormStore) MarkVideoProcessed(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&domain.VideoRecording{}).
		Where("id = ?", id).
		Update("processed", true).Error
}

func (s *gormStore) CreateCheatingFlag(ctx context.Context, f *domain.CheatingFlag) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *gormStore) FlagsBySession(ctx context.Context, sessionID uint) ([]domain.CheatingFlag, error) {
	var flags []domain.CheatingFlag
	err := s.db.WithContext(ctx).
		Joins("JOIN video_recordings ON video_recordings.id = cheating_flags.recording_id").
		Where("video_recordings.session_id = ?", sessionID).
		Order("cheating_flags.id").
		Find(&flags).Error
	return flags, err
}

func (s *gormStore) CountFlagsBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.CheatingFlag{}).
		Joins("JOIN video_recordings ON video_recordings.id = cheating_flags.recording_id").
		Where("video_recordings.session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (s *gormStore) UpsertFeedback(ctx context.Context, f *domain.Feedback) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "breakdown"}),
	}).Create(f).Error
}

func (s *gormStore) FeedbackBySession(ctx context.Context, sessionID uint) (*domain.Feedback, error) {
	var f domain.Feedback
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&f).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}
