package passcut

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Manager turns an evaluation into an official, numbered release. Only this
// step mutates state; the duplicate-number check plus the store's uniqueness
// constraint provide its mutual exclusion.
type Manager struct {
	eval *Evaluator
	rel  store.ReleaseStore
}

func NewManager(eval *Evaluator, rel store.ReleaseStore) *Manager {
	return &Manager{eval: eval, rel: rel}
}

// Publish evaluates the exam and persists one PassCutRelease header plus one
// snapshot per (region, track) in a single unit of work. Release numbers run
// 1..MaxReleaseNumber and must not already exist for the exam; both
// violations are rejected before any write.
func (m *Manager) Publish(ctx context.Context, examID string, number int, createdBy, memo string) (exam.PassCutRelease, []exam.PassCutSnapshot, error) {
	if number < 1 || number > exam.MaxReleaseNumber {
		return exam.PassCutRelease{}, nil, exam.Invalidf("release number must be 1..%d, got %d", exam.MaxReleaseNumber, number)
	}
	exists, err := m.rel.ReleaseExists(ctx, examID, number)
	if err != nil {
		return exam.PassCutRelease{}, nil, fmt.Errorf("check release: %w", err)
	}
	if exists {
		return exam.PassCutRelease{}, nil, exam.Conflictf("release %d already exists for exam %q", number, examID)
	}

	snaps, err := m.eval.Evaluate(ctx, examID)
	if err != nil {
		return exam.PassCutRelease{}, nil, err
	}

	rel := exam.PassCutRelease{
		ID:            uuid.NewString(),
		ExamID:        examID,
		ReleaseNumber: number,
		CreatedBy:     createdBy,
		Memo:          memo,
		CreatedAt:     time.Now().Unix(),
	}
	for i := range snaps {
		snaps[i].ReleaseID = rel.ID
		rel.ParticipantCount += snaps[i].ParticipantCount
	}

	if err := m.rel.CreateRelease(ctx, rel, snaps); err != nil {
		return exam.PassCutRelease{}, nil, err
	}
	return rel, snaps, nil
}
