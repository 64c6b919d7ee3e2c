// Package store is the repository layer. Aggregate-style queries are exposed
// as explicit population operations (filter in, rows out) so callers never
// depend on the storage technology. Every multi-row mutation is one atomic
// unit of work inside the implementation.
package store

import (
	"context"

	"github.com/examstat/cutline/internal/exam"
)

// PopulationFilter selects a ranking/prediction population. Suspicious
// submissions are always excluded.
type PopulationFilter struct {
	ExamID        string
	ExamType      exam.ExamType
	Region        string // empty = all regions
	ExcludeFailed bool   // drop submissions with any failed subject
}

// PopulationEntry is one member of a resolved population.
type PopulationEntry struct {
	UserID        string
	TotalScore    float64
	FinalScore    float64
	FailedSubject bool
	Subjects      map[string]float64 // subject name → raw score
}

// ConfigSource is the read-only view of the externally-owned configuration:
// subjects, quotas and the answer key.
type ConfigSource interface {
	Subjects(examID string, t exam.ExamType) ([]exam.Subject, error)
	AnswerKey(examID string, t exam.ExamType) (exam.KeySet, error)
	Quota(examID, region string) (exam.RegionQuota, error)
	Quotas(examID string) ([]exam.RegionQuota, error)
}

// ConfigWriter ingests configuration handed over by administration. The core
// never calls this outside seeding and the audited key correction.
type ConfigWriter interface {
	PutSubjects(examID string, t exam.ExamType, subjects []exam.Subject) error
	PutQuota(q exam.RegionQuota) error
	PutAnswerKey(examID string, t exam.ExamType, subject string, answers map[int]int) error
	// CorrectAnswerKey updates one key row and appends its audit entry in the
	// same unit of work. Returns ErrNotFound when the row does not exist.
	CorrectAnswerKey(ctx context.Context, c exam.KeyCorrection) error
	KeyCorrections(ctx context.Context, examID string) ([]exam.KeyCorrection, error)
}

// SubmissionStore persists scored submissions and resolves populations.
type SubmissionStore interface {
	// SaveSubmission upserts the submission and delete-and-replaces its
	// children atomically.
	SaveSubmission(ctx context.Context, sub exam.Submission) error
	GetSubmission(ctx context.Context, userID, examID string, t exam.ExamType) (exam.Submission, error)
	ListSubmissions(ctx context.Context, examID string, t exam.ExamType) ([]exam.Submission, error)
	Population(ctx context.Context, f PopulationFilter) ([]PopulationEntry, error)
	// FinalScores is the population's final scores, unordered.
	FinalScores(ctx context.Context, f PopulationFilter) ([]float64, error)
}

// RescoreStore writes rescoring audit trails. The score rewrites and the
// audit rows commit together.
type RescoreStore interface {
	ApplyRescore(ctx context.Context, ev exam.RescoreEvent, details []exam.RescoreDetail, updated []exam.Submission) error
	ListRescoreDetails(ctx context.Context, userID string) ([]exam.RescoreDetail, error)
	MarkRescoreRead(ctx context.Context, userID, eventID string) error
}

// ReleaseStore persists official cutoff releases.
type ReleaseStore interface {
	ReleaseExists(ctx context.Context, examID string, number int) (bool, error)
	// CreateRelease writes the header and all snapshots atomically. A
	// duplicate (exam, releaseNumber) yields a ConflictError even when the
	// pre-check raced.
	CreateRelease(ctx context.Context, rel exam.PassCutRelease, snaps []exam.PassCutSnapshot) error
	ListReleases(ctx context.Context, examID string) ([]exam.PassCutRelease, error)
	Snapshots(ctx context.Context, releaseID string) ([]exam.PassCutSnapshot, error)
	// LatestSnapshot returns the most recent released snapshot for a
	// (region, track), for stability comparison. ErrNotFound when none.
	LatestSnapshot(ctx context.Context, examID, region string, t exam.ExamType) (exam.PassCutSnapshot, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	ConfigSource
	ConfigWriter
	SubmissionStore
	RescoreStore
	ReleaseStore
}
