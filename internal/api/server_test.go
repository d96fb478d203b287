package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/aicli/internal/config"
	"github.com/dgallion1/aicli/internal/parser"
	"github.com/dgallion1/aicli/internal/quiz"
	"github.com/dgallion1/aicli/internal/stats"
	"github.com/dgallion1/aicli/internal/youtube"
	"github.com/google/uuid"
)

const sampleText = "This is the first sentence of a small document. " +
	"This is the second sentence, which adds more detail. " +
	"Here is the third sentence describing additional context. " +
	"Finally, this is the fourth sentence that concludes the text."

type stubFetcher struct {
	transcript *youtube.Transcript
	err        error
}

func (s *stubFetcher) FetchTranscript(_ context.Context, id string, _ []string) (*youtube.Transcript, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.transcript, nil
}

func newTestServer(t *testing.T, apiKey string, yt youtube.Fetcher) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = apiKey
	cfg.MaxUploadBytes = 1 << 20
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(yt, stats.NewRegistry(cfg.StatsWindow), log, cfg)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "secret", nil)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret", nil)
	body := map[string]any{"text": sampleText, "length": "short"}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"not bearer", "Basic secret", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
		{"lowercase scheme", "bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := doJSON(t, srv, http.MethodPost, "/api/summarize", body, headers)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/summarize", map[string]any{"text": sampleText}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSummarize_JSON(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/summarize", map[string]any{"text": sampleText, "length": "short"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.Length != "short" {
		t.Errorf("expected length short, got %q", resp.Length)
	}
	if resp.Sentences != 3 {
		t.Errorf("expected 3 sentences, got %d", resp.Sentences)
	}
}

func TestSummarize_DefaultLength(t *testing.T) {
	srv := newTestServer(t, "", nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/summarize", map[string]any{"text": sampleText}, nil)
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.Length != "medium" {
		t.Errorf("expected default medium, got %q", resp.Length)
	}
	if resp.Summary != sampleText {
		t.Errorf("expected identity summary for short input, got %q", resp.Summary)
	}
}

func TestSummarize_BadRequests(t *testing.T) {
	srv := newTestServer(t, "", nil)
	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad length", map[string]any{"text": sampleText, "length": "huge"}, http.StatusBadRequest},
		{"missing text", map[string]any{"length": "short"}, http.StatusBadRequest},
		{"not json", "just a string", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/summarize", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["error"] == "" {
				t.Errorf("expected error message, got %v", body)
			}
		})
	}
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSummarize_Multipart(t *testing.T) {
	srv := newTestServer(t, "", nil)
	req := multipartRequest(t, "/api/summarize", "doc.md", "# Title\n\n"+sampleText+"\n", map[string]string{"length": "short"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.Sentences != 3 {
		t.Errorf("expected 3 sentences, got %d", resp.Sentences)
	}
	if strings.Contains(resp.Summary, "Title") {
		t.Errorf("headings should not leak into summary: %q", resp.Summary)
	}
}

func TestSummarize_MultipartUnsupported(t *testing.T) {
	srv := newTestServer(t, "", nil)
	req := multipartRequest(t, "/api/summarize", "sheet.xlsx", "x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSummarize_MultipartTooLarge(t *testing.T) {
	srv := newTestServer(t, "", nil)
	// Exceeds MaxUploadBytes plus the 1MB form allowance.
	big := strings.Repeat("Gophers dig tunnels. ", (3<<20)/21)
	req := multipartRequest(t, "/api/summarize", "big.txt", big, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

type pdftotextStub struct{ out string }

func (p pdftotextStub) Execute(context.Context, string, ...string) (string, error) {
	return p.out, nil
}

func (p pdftotextStub) LookPath(name string) (string, error) { return name, nil }

func TestSummarize_MultipartReportsPages(t *testing.T) {
	srv := newTestServer(t, "", nil)
	srv.loader = parser.Loader{
		PDFFallbackPdftotext: true,
		Exec:                 pdftotextStub{out: "Gophers dig tunnels.\fGophers eat roots.\f\fGophers sleep."},
	}
	req := multipartRequest(t, "/api/summarize", "scan.pdf", "not a real pdf", map[string]string{"length": "short"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.Pages != 3 {
		t.Errorf("expected 3 non-empty pages, got %d", resp.Pages)
	}
	if resp.Sentences != 3 {
		t.Errorf("expected 3 sentences, got %d", resp.Sentences)
	}
}

func TestQuiz(t *testing.T) {
	srv := newTestServer(t, "", nil)
	text := "Python is a popular programming language used in many domains. " +
		"Developers rely on Python for data science, automation, and web development. " +
		"The language emphasizes readability and rapid prototyping."
	seed := uint64(7)

	rec := doJSON(t, srv, http.MethodPost, "/api/quiz", map[string]any{"text": text, "count": 5, "seed": seed}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp quizResponse
	decodeBody(t, rec, &resp)
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Errorf("expected uuid id, got %q", resp.ID)
	}
	if resp.Count != len(resp.Questions) || resp.Count == 0 || resp.Count > 3 {
		t.Fatalf("unexpected count %d for %d questions", resp.Count, len(resp.Questions))
	}
	want := quiz.Generate(text, 5, quiz.NewSeeded(seed))
	for i, q := range resp.Questions {
		if q.Question != want[i].Question || q.AnswerIndex != want[i].AnswerIndex {
			t.Errorf("question %d: expected seeded result %+v, got %+v", i, want[i], q)
		}
	}
}

func TestQuiz_Errors(t *testing.T) {
	srv := newTestServer(t, "", nil)
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad count", map[string]any{"text": sampleText, "count": 7}, http.StatusBadRequest},
		{"no material", map[string]any{"text": "Too short. Tiny."}, http.StatusUnprocessableEntity},
		{"empty text", map[string]any{"count": 5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/quiz", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestYouTubeSummarize(t *testing.T) {
	yt := &stubFetcher{transcript: &youtube.Transcript{Segments: []youtube.Segment{
		{Text: "Gophers build tools."}, {Text: "Gophers test tools."},
	}}}
	srv := newTestServer(t, "", yt)

	rec := doJSON(t, srv, http.MethodPost, "/api/youtube/summarize", map[string]any{"url": "https://youtu.be/abc123", "length": "short"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp summaryResponse
	decodeBody(t, rec, &resp)
	if resp.VideoID != "abc123" {
		t.Errorf("expected video id abc123, got %q", resp.VideoID)
	}
	if resp.Summary != "Gophers build tools. Gophers test tools." {
		t.Errorf("unexpected summary %q", resp.Summary)
	}
}

func TestYouTubeSummarize_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		url  string
		want int
	}{
		{"bad url", nil, "https://example.com/v", http.StatusBadRequest},
		{"no transcript", fmt.Errorf("%w for video x", youtube.ErrNoTranscript), "https://youtu.be/x", http.StatusNotFound},
		{"upstream", &youtube.RetryableError{StatusCode: 503}, "https://youtu.be/x", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, "", &stubFetcher{err: tt.err})
			rec := doJSON(t, srv, http.MethodPost, "/api/youtube/summarize", map[string]any{"url": tt.url}, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, "", nil)
	doJSON(t, srv, http.MethodPost, "/api/summarize", map[string]any{"text": sampleText}, nil)
	doJSON(t, srv, http.MethodPost, "/api/summarize", map[string]any{"text": sampleText}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Window     string                    `json:"window"`
		Operations map[string]stats.Snapshot `json:"operations"`
	}
	decodeBody(t, rec, &resp)
	if resp.Operations["summarize"].Count != 2 {
		t.Errorf("expected 2 summarize samples, got %+v", resp.Operations)
	}
	if resp.Window != "1h0m0s" {
		t.Errorf("expected window 1h0m0s, got %q", resp.Window)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"../../etc/passwd", "passwd"},
		{"doc.txt", "doc.txt"},
		{"a..b.txt", "a_b.txt"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
