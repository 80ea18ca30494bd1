package domain

import "time"

// Session statuses. completed is terminal and only the feedback aggregator
// moves a session there.
const (
	SessionPending    = "pending"
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

type InterviewSession struct {
	ID             uint   `gorm:"primaryKey"`
	CandidateName  string `gorm:"size:255"`
	CandidateEmail string `gorm:"size:255"`
	ResumeID       *uint  `gorm:"index"`
	Status         string `gorm:"type:enum('pending','in_progress','completed');default:'pending'"`
	StartedAt      time.Time
	EndedAt        *time.Time
	TotalScore     *float64
}

// SessionQuestion is one ask occurrence within a session. The same Question
// text can appear twice in a session as two rows. A row with NULL AnswerText
// is the session's open question; the state machine guarantees at most one.
type SessionQuestion struct {
	ID          uint  `gorm:"primaryKey"`
	SessionID   uint  `gorm:"not null;index"`
	QuestionID  *uint `gorm:"index"` // nullable: the linked Question may be deleted
	AskedAt     time.Time
	AnswerText  *string `gorm:"type:text"`
	AnsweredAt  *time.Time
	TimeSpentMS *int64 // AnsweredAt - AskedAt, stored once both are present
	Score       *float64
	Confidence  *float64
	FollowUp    bool

	Question *Question `gorm:"foreignKey:QuestionID"`
}

// Answered reports whether an answer has been recorded for this row.
func (sq *SessionQuestion) Answered() bool {
	return sq.AnswerText != nil
}
