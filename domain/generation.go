package domain

// TranscriptEntry is one prior Q&A pair fed back into the generation prompt.
type TranscriptEntry struct {
	Question string
	Answer   *string // nil renders as an explicit "no answer" marker
}

// Evaluation is the structured result of scoring one answer.
type Evaluation struct {
	Score            float64 // 0-10
	Confidence       float64 // 0.0-1.0
	FollowUp         bool
	FollowUpQuestion string
}
