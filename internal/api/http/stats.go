package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/stats"
	"github.com/examstat/cutline/internal/store"
)

// GET /exams/{examID}/statistics?type=general
func StatisticsHandler(svc *stats.Service, subs store.SubmissionStore) http.HandlerFunc {
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
		res, err := svc.ForSubmission(r.Context(), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /exams/{examID}/distribution?type=general
func DistributionHandler(svc *stats.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := exam.ExamType(r.URL.Query().Get("type"))
		if !t.Valid() {
			writeErr(w, exam.Invalidf("unknown exam type %q", t))
			return
		}
		d, err := svc.Distribution(r.Context(), chi.URLParam(r, "examID"), t)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
