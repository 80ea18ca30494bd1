package domain

import "time"

// Feedback is 1:1 with a session and fully replaced on recompute. Breakdown
// holds the serialized FeedbackBreakdown document.
type Feedback struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"uniqueIndex;not null"`
	Summary   string `gorm:"type:text;not null"`
	Breakdown string `gorm:"type:json;not null"`
	CreatedAt time.Time
}

// FeedbackBreakdown is the structured scoring document. Serialization must be
// deterministic so recomputing unchanged data yields byte-identical output.
type FeedbackBreakdown struct {
	TotalScore float64            `json:"total_score"`
	Categories map[string]float64 `json:"categories"`
	QAPairs    []QAPair           `json:"qa_pairs"`
}

// QAPair is one question/answer/score triple in ask order. Question is nil
// when the linked Question row was deleted; Answer is nil when unanswered.
type QAPair struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
	Score    float64 `json:"score"`
}

// SkillTagOther buckets session questions whose Question row no longer exists.
const SkillTagOther = "other"
