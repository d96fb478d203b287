package api

import (
	"net/http"
	"strings"

	"github.com/dgallion1/aicli/internal/quiz"
	"github.com/google/uuid"
)

type quizResponse struct {
	ID        string     `json:"id"`
	Count     int        `json:"count"`
	Questions []quiz.MCQ `json:"questions"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeDocRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	count := req.Count
	if count == 0 {
		count = s.cfg.QuizCount
	}
	if _, err := quiz.ParseCount(count); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	var rng quiz.Random
	if req.Seed != nil {
		rng = quiz.NewSeeded(*req.Seed)
	}

	var questions []quiz.MCQ
	_ = s.stats.Observe("quiz", func() error {
		questions = quiz.Generate(req.Text, count, rng)
		return nil
	})
	if len(questions) == 0 {
		jsonError(w, "not enough material to generate questions", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, quizResponse{
		ID:        uuid.NewString(),
		Count:     len(questions),
		Questions: questions,
	})
}
