package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examstat/cutline/internal/auth"
	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/rescore"
	"github.com/examstat/cutline/internal/store"
)

// POST /exams/{examID}/answer-key/corrections
// { "exam_type": "general", "subject": "헌법", "question": 3, "new_answer": 2 }
func CorrectKeyHandler(cfg store.ConfigWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamType  exam.ExamType `json:"exam_type"`
			Subject   string        `json:"subject"`
			Question  int           `json:"question"`
			NewAnswer int           `json:"new_answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !req.ExamType.Valid() {
			writeErr(w, exam.Invalidf("unknown exam type %q", req.ExamType))
			return
		}
		if req.NewAnswer < 1 || req.NewAnswer > 4 {
			writeErr(w, exam.Invalidf("new answer must be 1..4, got %d", req.NewAnswer))
			return
		}
		c := exam.KeyCorrection{
			ExamID:    chi.URLParam(r, "examID"),
			ExamType:  req.ExamType,
			Subject:   req.Subject,
			Question:  req.Question,
			NewAnswer: req.NewAnswer,
			AdminID:   auth.SubjectFromContext(r.Context()),
			EditedAt:  time.Now().Unix(),
		}
		if err := cfg.CorrectAnswerKey(r.Context(), c); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// GET /exams/{examID}/answer-key/corrections
func KeyCorrectionsHandler(cfg store.ConfigWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := cfg.KeyCorrections(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /exams/{examID}/rescore  { "exam_type": "general", "reason": "..." }
// An empty exam_type rescores every track that has submissions.
func RescoreHandler(orch *rescore.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamType exam.ExamType `json:"exam_type,omitempty"`
			Reason   string        `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		sum, err := orch.Rescore(r.Context(), chi.URLParam(r, "examID"), req.ExamType,
			auth.SubjectFromContext(r.Context()), req.Reason)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

// GET /rescores: the caller's pending score-change notifications.
func ListRescoresHandler(audit store.RescoreStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			http.Error(w, "X-User-ID required", http.StatusBadRequest)
			return
		}
		out, err := audit.ListRescoreDetails(r.Context(), uid)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /rescores/{eventID}/read
func MarkRescoreReadHandler(audit store.RescoreStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			http.Error(w, "X-User-ID required", http.StatusBadRequest)
			return
		}
		if err := audit.MarkRescoreRead(r.Context(), uid, chi.URLParam(r, "eventID")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
