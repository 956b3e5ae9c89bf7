package devserver

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"techwiki/internal/db"
	"techwiki/internal/intake"
)

type problemJSON struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Files       []string `json:"files"`
	YoutubeLink string   `json:"youtubeLink"`
	Author      string   `json:"author"`
	AuthorID    int64    `json:"author_id"`
	CreatedAt   string   `json:"created_at"`
}

func toProblemJSON(p *db.Problem) problemJSON {
	files := p.Files
	if files == nil {
		files = []string{}
	}
	return problemJSON{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Tags:        intake.SplitTags(p.Tags),
		Files:       files,
		YoutubeLink: p.YoutubeLink,
		Author:      p.Author,
		AuthorID:    p.AuthorID,
		CreatedAt:   time.Unix(p.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := s.DB.ListProblems(r.Context(), db.ProblemFilter{
		Tag:      strings.TrimSpace(q.Get("tag")),
		Category: q.Get("category"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	out := make([]problemJSON, 0, len(ps))
	for i := range ps {
		out = append(out, toProblemJSON(&ps[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	p, ok, err := s.DB.GetProblem(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, toProblemJSON(p))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.DB.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.DB.ListTags(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// handleCreateProblem accepts the multipart article form. Attachments with
// an accepted extension are recorded by name under a unique prefix; their
// bytes are not kept.
func (s *Server) handleCreateProblem(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.Role != "admin" && u.Role != "tecnico" {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	p := db.Problem{
		Title:       strings.TrimSpace(r.FormValue(intake.FieldTitle)),
		Description: r.FormValue(intake.FieldDescription),
		Category:    strings.TrimSpace(r.FormValue(intake.FieldCategory)),
		Tags:        r.FormValue(intake.FieldTags),
		YoutubeLink: strings.TrimSpace(r.FormValue(intake.FieldVideoLink)),
		AuthorID:    u.ID,
	}
	if p.Title == "" || strings.TrimSpace(p.Description) == "" || p.Category == "" || strings.TrimSpace(p.Tags) == "" {
		writeError(w, http.StatusBadRequest, intake.ErrRequiredFields)
		return
	}

	for _, fh := range r.MultipartForm.File[intake.FieldFiles] {
		name := filepath.Base(fh.Filename)
		if !intake.Accepted(name) {
			s.logger().Debug("attachment skipped", "name", name)
			continue
		}
		p.Files = append(p.Files, strings.ReplaceAll(uuid.NewString(), "-", "")+"_"+name)
	}

	id, err := s.DB.CreateProblem(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	s.metrics.problems.Inc()
	s.logger().Info("problem created", "id", id, "author", u.Username, "files", len(p.Files))

	created, ok, err := s.DB.GetProblem(r.Context(), id)
	if err != nil || !ok {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, toProblemJSON(created))
}
