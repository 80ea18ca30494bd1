package domain

import "time"

// VideoRecording is 1:1 with a session. Processed flips to true once the
// integrity scan has run.
type VideoRecording struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"uniqueIndex;not null"`
	VideoRef  string `gorm:"size:512;not null"`
	Processed bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// CheatingFlag is append-only; only the scan adapter creates rows and nothing
// ever mutates them. Timestamp is stamped by the adapter, never by callers.
type CheatingFlag struct {
	ID          uint   `gorm:"primaryKey"`
	RecordingID uint   `gorm:"not null;index"`
	FlagType    string `gorm:"size:100;not null"`
	Description string `gorm:"type:text;not null"`
	Timestamp   time.Time
}

// Finding is one raw result from the external scan capability, before the
// adapter stamps it into a CheatingFlag.
type Finding struct {
	FlagType    string
	Description string
}
