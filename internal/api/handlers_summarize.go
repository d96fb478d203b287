package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/aicli/internal/segment"
	"github.com/dgallion1/aicli/internal/summarize"
	"github.com/dgallion1/aicli/internal/youtube"
)

type summaryResponse struct {
	Summary   string `json:"summary"`
	Length    string `json:"length"`
	Sentences int    `json:"sentences"`
	Pages     int    `json:"pages,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeDocRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	length, err := s.parseLength(req.Length)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	var summary string
	_ = s.stats.Observe("summarize", func() error {
		summary, err = summarize.WithLength(req.Text, length)
		return err
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:   summary,
		Length:    string(length),
		Sentences: len(segment.Split(summary)),
		Pages:     req.Pages,
	})
}

type youtubeRequest struct {
	URL       string   `json:"url"`
	Length    string   `json:"length"`
	Languages []string `json:"languages"`
}

func (s *Server) handleYouTubeSummarize(w http.ResponseWriter, r *http.Request) {
	if s.youtube == nil {
		jsonError(w, "youtube summaries unavailable", http.StatusServiceUnavailable)
		return
	}

	var req youtubeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	length, err := s.parseLength(req.Length)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	videoID, err := youtube.VideoID(req.URL)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	langs := req.Languages
	if len(langs) == 0 {
		langs = s.cfg.TranscriptLanguages
	}

	var summary string
	err = s.stats.Observe("youtube", func() error {
		var err error
		summary, err = youtube.SummarizeURL(r.Context(), s.youtube, req.URL, length, langs)
		return err
	})
	switch {
	case errors.Is(err, youtube.ErrNoTranscript):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		requestLog(r.Context(), s.log).Error("youtube summarize failed", "video_id", videoID, "error", err)
		jsonError(w, "fetch transcript: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:   summary,
		Length:    string(length),
		Sentences: len(segment.Split(summary)),
		VideoID:   videoID,
	})
}

// parseLength applies the configured default when the request leaves it empty.
func (s *Server) parseLength(v string) (summarize.Length, error) {
	if strings.TrimSpace(v) == "" {
		v = s.cfg.SummaryLength
	}
	return summarize.ParseLength(v)
}
