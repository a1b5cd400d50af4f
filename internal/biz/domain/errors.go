package domain

import "errors"

var (
	// ErrFileTooLarge is returned when an attachment exceeds the size cap
	ErrFileTooLarge = errors.New("file too large")

	// ErrTranscriptionUnavailable is returned when no transcription model could be loaded
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")

	// ErrEmptyTranscript is returned when transcription produced no text
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrSessionUnreachable is returned when the downstream session rejected delivery
	ErrSessionUnreachable = errors.New("session unreachable")

	// ErrNoOwner is returned when an operation needs the owner chat before one is registered
	ErrNoOwner = errors.New("no owner chat registered")
)
