package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Question is deduplicated by exact text: generating identical text reuses the
// existing row. TextHash carries the unique index, since MySQL cannot index a
// full TEXT column.
type Question struct {
	ID         uint   `gorm:"primaryKey"`
	Text       string `gorm:"type:text;not null"`
	TextHash   string `gorm:"size:64;uniqueIndex;not null"`
	SkillTag   string `gorm:"size:100;not null"`
	Difficulty int    `gorm:"not null"` // 1-5
	CreatedAt  time.Time
}

// QuestionTextHash derives the dedup key for a question text.
func QuestionTextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
