package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrExtractorNotConfigured = errors.New("no feature extractor configured")
	ErrPersisterNotConfigured = errors.New("no persister configured")
)
