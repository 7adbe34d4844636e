package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/KaramelBytes/csvinsight/internal/chart"
	"github.com/KaramelBytes/csvinsight/internal/explorer"
)

const uploadField = "csv_file"

var funcs = template.FuncMap{
	"isPNG":  func(a *chart.Artifact) bool { return a != nil && a.Format == chart.FormatPNG },
	"isHTML": func(a *chart.Artifact) bool { return a != nil && a.Format == chart.FormatHTML },
}

type indexPage struct {
	explorer.UploadResult
	Filename string
}

type analysisPage struct {
	Results []explorer.Result
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template error", "template", name, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleIndex starts over: any previous dataset and questions are dropped.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if err := s.explorer.Reset(store); err != nil {
		s.log.Warn("session reset failed", "err", err)
	}
	s.render(w, "index.html", indexPage{})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	file, name, err := s.uploadedFile(w, r)
	if err != nil {
		s.render(w, "index.html", indexPage{UploadResult: explorer.UploadResult{Error: fmt.Sprintf("Error processing CSV: %v", err)}})
		return
	}
	defer file.Close()
	res := s.explorer.StartUpload(r.Context(), store, name, file)
	s.render(w, "index.html", indexPage{UploadResult: res, Filename: name})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	results, err := s.explorer.RunAnalysis(r.Context(), store,
		r.PostForm["selected_questions"], r.PostFormValue("custom_questions"))
	if err != nil {
		if isRefusal(err) {
			s.log.Info("analysis refused", "reason", err)
			redirectHome(w, r)
			return
		}
		s.serverError(w, err)
		return
	}
	s.render(w, "analysis.html", analysisPage{Results: results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type apiChart struct {
	Format  chart.Format `json:"format"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
}

type apiResult struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	ChartType string    `json:"chart_type"`
	Parse     string    `json:"parse"`
	Chart     *apiChart `json:"chart"`
}

type apiAnalyzeRequest struct {
	Selected []string `json:"selected"`
	Custom   string   `json:"custom"`
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.apiError(w, http.StatusInternalServerError, err)
		return
	}
	file, name, err := s.uploadedFile(w, r)
	if err != nil {
		s.apiError(w, http.StatusBadRequest, fmt.Errorf("Error processing CSV: %v", err))
		return
	}
	defer file.Close()
	res := s.explorer.StartUpload(r.Context(), store, name, file)
	status := http.StatusOK
	if res.Error != "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.apiError(w, http.StatusInternalServerError, err)
		return
	}
	var req apiAnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.apiError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	results, err := s.explorer.RunAnalysis(r.Context(), store, req.Selected, req.Custom)
	if err != nil {
		status := http.StatusInternalServerError
		if isRefusal(err) {
			status = http.StatusBadRequest
		}
		s.apiError(w, status, err)
		return
	}
	out := make([]apiResult, 0, len(results))
	for _, res := range results {
		item := apiResult{Question: res.Question, Answer: res.Answer, ChartType: res.ChartType, Parse: res.Parse.String()}
		if res.Chart != nil {
			item.Chart = &apiChart{Format: res.Chart.Format, Title: res.Chart.Title, Content: res.Chart.String()}
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleAPIQuestions(w http.ResponseWriter, r *http.Request) {
	store, err := s.session(w, r)
	if err != nil {
		s.apiError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": s.explorer.Questions(store)})
}

// uploadedFile returns the csv_file part of a size-limited multipart body.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	tooBig := fmt.Errorf("file exceeds the %s upload limit", sizeLabel(s.opt.MaxUploadBytes))
	if r.ContentLength > s.opt.MaxUploadBytes {
		return nil, "", tooBig
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opt.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", tooBig
		}
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", errors.New("no file uploaded")
	}
	name := strings.TrimSpace(hdr.Filename)
	if name == "" {
		name = "upload.csv"
	}
	return file, name, nil
}

func sizeLabel(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d KB", (n+1023)>>10)
}

func isRefusal(err error) bool {
	return errors.Is(err, explorer.ErrNoQuestions) || errors.Is(err, explorer.ErrNoDataset)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error("request failed", "err", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (s *Server) apiError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("api request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
