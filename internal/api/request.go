package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/aicli/internal/doctree"
	"github.com/dgallion1/aicli/internal/parser"
)

// docRequest is the common body of /api/summarize and /api/quiz. Text comes
// from the JSON "text" field or from an uploaded "file".
type docRequest struct {
	Text   string  `json:"text"`
	Length string  `json:"length"`
	Count  int     `json:"count"`
	Seed   *uint64 `json:"seed"`

	// Pages is the page count of an uploaded PDF; zero otherwise.
	Pages int `json:"-"`
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// writeRequestError maps decode failures to a JSON error response.
func writeRequestError(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		jsonError(w, re.msg, re.status)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

// tooLarge returns a 413 error if err came from an http.MaxBytesReader
// limit, and nil otherwise.
func tooLarge(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return nil
	}
	return &requestError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("body exceeds max size (%d bytes)", limit)}
}

func (s *Server) decodeDocRequest(w http.ResponseWriter, r *http.Request) (docRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.decodeMultipart(w, r)
	}

	var req docRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if tlErr := tooLarge(err, s.cfg.MaxUploadBytes); tlErr != nil {
			return req, tlErr
		}
		return req, badRequest("invalid JSON body: %v", err)
	}
	return req, nil
}

func (s *Server) decodeMultipart(w http.ResponseWriter, r *http.Request) (docRequest, error) {
	var req docRequest

	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if tlErr := tooLarge(err, s.cfg.MaxUploadBytes); tlErr != nil {
			return req, tlErr
		}
		return req, badRequest("invalid multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, badRequest("file is required: %v", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return req, badRequest("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return req, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return req, &requestError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)}
	}

	tree, err := s.loader.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return req, &requestError{status: http.StatusUnprocessableEntity, msg: "failed to parse document: " + err.Error()}
	}
	req.Text = doctree.Flatten(tree)
	req.Pages = doctree.Pages(tree)
	req.Length = r.FormValue("length")

	if v := r.FormValue("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, badRequest("invalid count %q", v)
		}
		req.Count = n
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, badRequest("invalid seed %q", v)
		}
		req.Seed = &seed
	}
	return req, nil
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
