package infrastructure

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ai-interviewer/domain"
)

// NewMySQLConnection opens the database and migrates the interview schema.
func NewMySQLConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is not set in environment")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	err = db.AutoMigrate(
		&domain.Resume{},
		&domain.Question{},
		&domain.InterviewSession{},
		&domain.SessionQuestion{},
		&domain.VideoRecording{},
		&domain.CheatingFlag{},
		&domain.Feedback{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
