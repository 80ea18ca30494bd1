package infrastructure

import (
	"context"

	"ai-interviewer/domain"
)

// StubScanner stands in for the external cheat-detection service and always
// reports the same two findings.
// TODO: replace with the real video analysis integration once it is deployed.
type StubScanner struct{}

func NewStubScanner() *StubScanner {
	return &StubScanner{}
}

func (s *StubScanner) ScanVideo(ctx context.Context, videoRef string) ([]domain.Finding, error) {
	return []domain.Finding{
		{
			FlagType:    "multiple_faces",
			Description: "Detected 2 faces at 00:02:34",
		},
		{
			FlagType:    "off_screen_lookup",
			Description: "Gaze away > 10s starting 00:10:12",
		},
	}, nil
}
