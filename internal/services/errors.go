package services

import (
	"errors"
	"fmt"
)

var (
	// ErrLipSyncFailed matches any *GenerationFailedError.
	ErrLipSyncFailed        = errors.New("sync generation failed")
	ErrLipSyncTimeout       = errors.New("Sync generation timeout (3min)")
	ErrLipSyncMissingOutput = errors.New("Sync completed but output URL missing")
)

// ProviderError is a non-2xx answer from a third-party API. Body is kept verbatim.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// GenerationFailedError is a generation job the provider reported as failed.
type GenerationFailedError struct {
	Provider string
	Payload  string
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Payload)
}

func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrLipSyncFailed
}
