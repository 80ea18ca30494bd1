package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// GenerateFeedback recomputes the full scoring breakdown and summary from the
// session's question history and upserts the result, replacing any prior
// feedback wholesale. The computation is deterministic, so rerunning it with
// unchanged data produces byte-identical output. This is the only path that
// marks a session completed.
func (s *Interview) GenerateFeedback(ctx context.Context, sessionID uint) (*domain.Feedback, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		sqs       []domain.SessionQuestion
		flagCount int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sqs, err = s.store.SessionQuestionsBySession(gctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		flagCount, err = s.store.CountFlagsBySession(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	numQ := len(sqs)
	answered := 0
	totalRaw := 0.0
	tagSums := make(map[string]float64)
	tagCounts := make(map[string]int)
	qaPairs := make([]domain.QAPair, 0, numQ)

	for i := range sqs {
		sq := &sqs[i]
		score := 0.0
		if sq.Score != nil {
			score = *sq.Score
		}
		totalRaw += score
		if sq.Answered() {
			answered++
		}

		tag := domain.SkillTagOther
		var questionText *string
		if sq.Question != nil {
			questionText = &sq.Question.Text
			if sq.Question.SkillTag != "" {
				tag = sq.Question.SkillTag
			}
		}
		tagSums[tag] += score
		tagCounts[tag]++

		qaPairs = append(qaPairs, domain.QAPair{
			Question: questionText,
			Answer:   sq.AnswerText,
			Score:    score,
		})
	}

	totalPct := 0.0
	avgScore := 0.0
	if numQ > 0 {
		totalPct = roundOne(totalRaw / (float64(numQ) * 10) * 100)
		avgScore = totalRaw / float64(numQ)
	}

	categories := make(map[string]float64, len(tagSums))
	for tag, sum := range tagSums {
		categories[tag] = roundOne(sum / float64(tagCounts[tag]))
	}

	breakdown := domain.FeedbackBreakdown{
		TotalScore: totalPct,
		Categories: categories,
		QAPairs:    qaPairs,
	}
	// encoding/json sorts map keys, which keeps the document byte-stable
	// across recomputations.
	payload, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}

	// Zero questions renders the percentage without a decimal.
	pct := fmt.Sprintf("%.1f", totalPct)
	if numQ == 0 {
		pct = "0"
	}
	summary := fmt.Sprintf(
		"Candidate answered %d out of %d questions, with an average score of %.1f/10 (%s%%).",
		answered, numQ, avgScore, pct)
	if flagCount > 0 {
		summary += fmt.Sprintf(" Detected %d cheating flag(s).", flagCount)
	}

	feedback := &domain.Feedback{
		SessionID: sessionID,
		Summary:   summary,
		Breakdown: string(payload),
		CreatedAt: s.now(),
	}

	var stored *domain.Feedback
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.UpsertFeedback(ctx, feedback); err != nil {
			return err
		}
		sess.Status = domain.SessionCompleted
		sess.TotalScore = &totalPct
		if sess.EndedAt == nil {
			ended := s.now()
			sess.EndedAt = &ended
		}
		if err := tx.SaveSession(ctx, sess); err != nil {
			return err
		}
		// A rerun keeps the first row's creation time; return the persisted
		// state, not the freshly stamped candidate.
		fresh, err := tx.FeedbackBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		stored = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func roundOne(x float64) float64 {
	return math.Round(x*10) / 10
}
