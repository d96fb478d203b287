package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/aicli/internal/segment"
	"golang.org/x/net/html"
)

// ErrNoTranscript is returned when a video has no caption track in any
// requested language.
var ErrNoTranscript = errors.New("no transcript available")

const maxPageBytes = 8 << 20

// Segment is one timed caption line.
type Segment struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Text     string        `json:"text"`
}

// Transcript is the caption track of one video.
type Transcript struct {
	VideoID  string    `json:"video_id"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Text joins all segments into one whitespace-normalized string.
func (t *Transcript) Text() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return segment.Normalize(strings.Join(parts, " "))
}

// Fetcher loads transcripts. *Client implements it.
type Fetcher interface {
	FetchTranscript(ctx context.Context, videoID string, languages []string) (*Transcript, error)
}

// Client fetches caption tracks from the YouTube watch page.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:     log,
		backoff: Backoff,
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// FetchTranscript returns the first caption track matching languages, in
// preference order. Manual tracks win over auto-generated ones for the same
// language.
func (c *Client) FetchTranscript(ctx context.Context, videoID string, languages []string) (*Transcript, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	page, err := c.get(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, fmt.Errorf("%w for video %s: %v", ErrNoTranscript, videoID, err)
	}
	track, ok := pickTrack(tracks, languages)
	if !ok {
		return nil, fmt.Errorf("%w for video %s (languages %s)", ErrNoTranscript, videoID, strings.Join(languages, ","))
	}

	trackURL, err := c.resolve(track.BaseURL)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, trackURL)
	if err != nil {
		return nil, fmt.Errorf("fetch timed text: %w", err)
	}
	segments, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("fetched transcript", "video_id", videoID, "language", track.LanguageCode, "segments", len(segments))
	return &Transcript{
		VideoID:  videoID,
		Language: track.LanguageCode,
		Segments: segments,
	}, nil
}

func (c *Client) resolve(ref string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse track url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

// get performs a GET, retrying 429 and 5xx responses with backoff.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := range MaxRetries {
		body, err := c.getOnce(ctx, rawURL)
		if err == nil || !IsRetryable(err) {
			return body, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		c.log.Warn("retryable youtube error", "url", rawURL, "attempt", attempt, "error", err)
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// parseCaptionTracks decodes the captionTracks array embedded in the watch page.
func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	idx := bytes.Index(page, []byte(marker))
	if idx < 0 {
		return nil, errors.New("no caption tracks on watch page")
	}
	var tracks []captionTrack
	dec := json.NewDecoder(bytes.NewReader(page[idx+len(marker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	return tracks, nil
}

func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	for _, lang := range languages {
		var generated *captionTrack
		for i := range tracks {
			t := &tracks[i]
			if !strings.EqualFold(t.LanguageCode, lang) || t.BaseURL == "" {
				continue
			}
			if t.Kind != "asr" {
				return *t, true
			}
			if generated == nil {
				generated = t
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return captionTrack{}, false
}

func parseTimedText(body []byte) ([]Segment, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode timed text: %w", err)
	}
	segments := make([]Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		// Caption bodies are HTML-escaped a second time inside the XML.
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    seconds(t.Start),
			Duration: seconds(t.Dur),
			Text:     text,
		})
	}
	return segments, nil
}

func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
