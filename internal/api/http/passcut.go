package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examstat/cutline/internal/auth"
	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/passcut"
	"github.com/examstat/cutline/internal/store"
)

// GET /exams/{examID}/passcut?region=서울&type=general
// Without region, every (region, track) row is returned.
func PredictionHandler(pred *passcut.Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		region := r.URL.Query().Get("region")
		if region == "" {
			rows, err := pred.Predict(r.Context(), examID)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rows)
			return
		}
		t := exam.ExamType(r.URL.Query().Get("type"))
		if !t.Valid() {
			writeErr(w, exam.Invalidf("unknown exam type %q", t))
			return
		}
		row, err := pred.PredictOne(r.Context(), examID, region, t)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

// GET /exams/{examID}/passcut/evaluation: read-only readiness view, safe to
// call from concurrent traffic.
func EvaluationHandler(eval *passcut.Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps, err := eval.Evaluate(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}

// POST /exams/{examID}/releases  { "release_number": 1, "memo": "..." }
func CreateReleaseHandler(mgr *passcut.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ReleaseNumber int    `json:"release_number"`
			Memo          string `json:"memo,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		rel, snaps, err := mgr.Publish(r.Context(), chi.URLParam(r, "examID"), req.ReleaseNumber,
			auth.SubjectFromContext(r.Context()), req.Memo)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"release": rel, "snapshots": snaps})
	}
}

// GET /exams/{examID}/releases
func ListReleasesHandler(rel store.ReleaseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := rel.ListReleases(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /releases/{releaseID}/snapshots
func SnapshotsHandler(rel store.ReleaseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := rel.Snapshots(r.Context(), chi.URLParam(r, "releaseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
