package domain

import "time"

// Resume is immutable once extraction has run. ExtractedText stays NULL when
// extraction fails; the upload itself still succeeds.
type Resume struct {
	ID             uint    `gorm:"primaryKey"`
	CandidateName  string  `gorm:"size:255"`
	CandidateEmail string  `gorm:"size:255"`
	FileRef        string  `gorm:"size:512;not null"`
	ExtractedText  *string `gorm:"type:longtext"`
	UploadedAt     time.Time `gorm:"autoCreateTime"`
}
