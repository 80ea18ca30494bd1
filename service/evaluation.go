package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// EvaluateAnswer scores a submitted answer and triggers the next question.
// Provider failures leave score and confidence NULL — the answer stays
// submitted and the candidate is not blocked — while the error is still
// returned so the triggering caller can decide whether to retry. Progression
// to the next question happens regardless of the evaluation outcome, unless
// the session has hit its question cap.
func (s *Interview) EvaluateAnswer(ctx context.Context, sessionQuestionID uint) error {
	sq, err := s.store.GetSessionQuestion(ctx, sessionQuestionID)
	if err != nil {
		return err
	}
	if sq.Score != nil {
		return domain.ErrAlreadyEvaluated
	}
	if !sq.Answered() {
		return fmt.Errorf("%w: session question %d has no answer to evaluate", domain.ErrValidation, sessionQuestionID)
	}

	questionText := ""
	if sq.Question != nil {
		questionText = sq.Question.Text
	}

	eval, evalErr := s.generator.EvaluateAnswer(ctx, questionText, *sq.AnswerText)
	if evalErr != nil {
		s.logger.Error("answer evaluation failed",
			zap.Uint("session_question_id", sessionQuestionID), zap.Error(evalErr))
	} else {
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			if _, err := tx.SessionForUpdate(ctx, sq.SessionID); err != nil {
				return err
			}
			// A concurrent retry may have scored the row while this provider
			// call was in flight; score and confidence are written once.
			fresh, err := tx.GetSessionQuestion(ctx, sessionQuestionID)
			if err != nil {
				return err
			}
			if fresh.Score != nil {
				return domain.ErrAlreadyEvaluated
			}
			fresh.Score = &eval.Score
			fresh.Confidence = &eval.Confidence
			fresh.FollowUp = eval.FollowUp
			return tx.SaveSessionQuestion(ctx, fresh)
		})
		if err != nil {
			return err
		}
		s.logger.Info("answer evaluated",
			zap.Uint("session_question_id", sessionQuestionID),
			zap.Float64("score", eval.Score),
			zap.Bool("follow_up", eval.FollowUp))
	}

	if s.shouldAskNext(ctx, sq.SessionID) {
		if _, err := s.AskNextQuestion(ctx, sq.SessionID); err != nil {
			s.logger.Error("next question generation failed",
				zap.Uint("session_id", sq.SessionID), zap.Error(err))
		}
	}
	return evalErr
}

func (s *Interview) shouldAskNext(ctx context.Context, sessionID uint) bool {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil || sess.Status == domain.SessionCompleted {
		return false
	}
	if s.maxQuestions <= 0 {
		return true
	}
	count, err := s.store.CountSessionQuestions(ctx, sessionID)
	if err != nil {
		return false
	}
	return count < int64(s.maxQuestions)
}
