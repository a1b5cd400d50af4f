package repo

import "context"

// TranscriberRepo converts a local audio file to text
type TranscriberRepo interface {
	Transcribe(ctx context.Context, path string) (string, error)
}
