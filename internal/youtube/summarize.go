package youtube

import (
	"context"
	"fmt"

	"github.com/dgallion1/aicli/internal/summarize"
)

// SummarizeURL fetches the transcript for a video URL and summarizes it.
// The length is checked before any network call.
func SummarizeURL(ctx context.Context, f Fetcher, rawURL string, length summarize.Length, languages []string) (string, error) {
	if length.Sentences() == 0 {
		return "", fmt.Errorf("%w: %q", summarize.ErrUnsupportedLength, string(length))
	}
	id, err := VideoID(rawURL)
	if err != nil {
		return "", err
	}
	transcript, err := f.FetchTranscript(ctx, id, languages)
	if err != nil {
		return "", err
	}
	return summarize.WithLength(transcript.Text(), length)
}
