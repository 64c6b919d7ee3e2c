package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/scoring"
	"github.com/examstat/cutline/internal/store"
)

// POST /exams/{examID}/submissions
func SubmitScoreHandler(engine *scoring.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			http.Error(w, "X-User-ID required", http.StatusBadRequest)
			return
		}
		var req scoring.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.UserID = uid
		req.ExamID = chi.URLParam(r, "examID")
		sub, err := engine.Score(r.Context(), req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /exams/{examID}/submissions?type=general
func GetResultHandler(subs store.SubmissionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			http.Error(w, "X-User-ID required", http.StatusBadRequest)
			return
		}
		t := exam.ExamType(r.URL.Query().Get("type"))
		if !t.Valid() {
			writeErr(w, exam.Invalidf("unknown exam type %q", t))
			return
		}
		sub, err := subs.GetSubmission(r.Context(), uid, chi.URLParam(r, "examID"), t)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}
