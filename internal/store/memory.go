package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/examstat/cutline/internal/exam"
)

// memoryStore is the in-process Store used by tests and dev mode.
type memoryStore struct {
	mu sync.RWMutex

	subjects    map[string][]exam.Subject       // examID|type
	keys        map[string]exam.KeySet          // examID|type
	quotas      map[string]exam.RegionQuota     // examID|region
	corrections map[string][]exam.KeyCorrection // examID

	submissions map[string]exam.Submission // userID|examID|type

	events  []exam.RescoreEvent
	details []exam.RescoreDetail

	releases  []exam.PassCutRelease
	snapshots map[string][]exam.PassCutSnapshot // releaseID
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		subjects:    map[string][]exam.Subject{},
		keys:        map[string]exam.KeySet{},
		quotas:      map[string]exam.RegionQuota{},
		corrections: map[string][]exam.KeyCorrection{},
		submissions: map[string]exam.Submission{},
		snapshots:   map[string][]exam.PassCutSnapshot{},
	}
}

func ckey(examID string, t exam.ExamType) string { return examID + "|" + string(t) }

func skey(userID, examID string, t exam.ExamType) string {
	return userID + "|" + examID + "|" + string(t)
}

// --- ConfigSource / ConfigWriter ---

func (m *memoryStore) Subjects(examID string, t exam.ExamType) ([]exam.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ss, ok := m.subjects[ckey(examID, t)]
	if !ok {
		return nil, fmt.Errorf("subjects for exam %q track %q: %w", examID, t, exam.ErrNotFound)
	}
	out := make([]exam.Subject, len(ss))
	copy(out, ss)
	return out, nil
}

func (m *memoryStore) AnswerKey(examID string, t exam.ExamType) (exam.KeySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ks, ok := m.keys[ckey(examID, t)]
	if !ok {
		return nil, fmt.Errorf("answer key for exam %q track %q: %w", examID, t, exam.ErrNotFound)
	}
	out := exam.KeySet{}
	for subj, qs := range ks {
		cp := make(map[int]int, len(qs))
		for q, a := range qs {
			cp[q] = a
		}
		out[subj] = cp
	}
	return out, nil
}

func (m *memoryStore) Quota(examID, region string) (exam.RegionQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotas[examID+"|"+region]
	if !ok {
		return exam.RegionQuota{}, fmt.Errorf("quota for exam %q region %q: %w", examID, region, exam.ErrNotFound)
	}
	return q, nil
}

func (m *memoryStore) Quotas(examID string) ([]exam.RegionQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exam.RegionQuota
	for k, q := range m.quotas {
		if strings.HasPrefix(k, examID+"|") {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out, nil
}

func (m *memoryStore) PutSubjects(examID string, t exam.ExamType, subjects []exam.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]exam.Subject, len(subjects))
	copy(cp, subjects)
	m.subjects[ckey(examID, t)] = cp
	return nil
}

func (m *memoryStore) PutQuota(q exam.RegionQuota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotas[q.ExamID+"|"+q.Region] = q
	return nil
}

func (m *memoryStore) PutAnswerKey(examID string, t exam.ExamType, subject string, answers map[int]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ks, ok := m.keys[ckey(examID, t)]
	if !ok {
		ks = exam.KeySet{}
		m.keys[ckey(examID, t)] = ks
	}
	cp := make(map[int]int, len(answers))
	for q, a := range answers {
		cp[q] = a
	}
	ks[subject] = cp
	return nil
}

func (m *memoryStore) CorrectAnswerKey(_ context.Context, c exam.KeyCorrection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ks, ok := m.keys[ckey(c.ExamID, c.ExamType)]
	if !ok {
		return fmt.Errorf("answer key for exam %q: %w", c.ExamID, exam.ErrNotFound)
	}
	qs, ok := ks[c.Subject]
	if !ok {
		return fmt.Errorf("answer key subject %q: %w", c.Subject, exam.ErrNotFound)
	}
	old, ok := qs[c.Question]
	if !ok {
		return fmt.Errorf("answer key question %d: %w", c.Question, exam.ErrNotFound)
	}
	c.OldAnswer = old
	qs[c.Question] = c.NewAnswer
	m.corrections[c.ExamID] = append(m.corrections[c.ExamID], c)
	return nil
}

func (m *memoryStore) KeyCorrections(_ context.Context, examID string) ([]exam.KeyCorrection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]exam.KeyCorrection, len(m.corrections[examID]))
	copy(out, m.corrections[examID])
	return out, nil
}

// --- SubmissionStore ---

func (m *memoryStore) SaveSubmission(_ context.Context, sub exam.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[skey(sub.UserID, sub.ExamID, sub.ExamType)] = copySubmission(sub)
	return nil
}

func (m *memoryStore) GetSubmission(_ context.Context, userID, examID string, t exam.ExamType) (exam.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[skey(userID, examID, t)]
	if !ok {
		return exam.Submission{}, fmt.Errorf("submission for user %q: %w", userID, exam.ErrNotFound)
	}
	return copySubmission(sub), nil
}

func (m *memoryStore) ListSubmissions(_ context.Context, examID string, t exam.ExamType) ([]exam.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exam.Submission
	for _, sub := range m.submissions {
		if sub.ExamID == examID && sub.ExamType == t {
			out = append(out, copySubmission(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryStore) Population(_ context.Context, f PopulationFilter) ([]PopulationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PopulationEntry
	for _, sub := range m.submissions {
		if !matches(sub, f) {
			continue
		}
		e := PopulationEntry{
			UserID:        sub.UserID,
			TotalScore:    sub.TotalScore,
			FinalScore:    sub.FinalScore,
			FailedSubject: sub.HasFailedSubject(),
			Subjects:      map[string]float64{},
		}
		for _, ss := range sub.Subjects {
			e.Subjects[ss.Subject] = ss.RawScore
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryStore) FinalScores(ctx context.Context, f PopulationFilter) ([]float64, error) {
	pop, err := m.Population(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(pop))
	for _, e := range pop {
		out = append(out, e.FinalScore)
	}
	return out, nil
}

func matches(sub exam.Submission, f PopulationFilter) bool {
	if sub.Suspicious {
		return false
	}
	if sub.ExamID != f.ExamID || sub.ExamType != f.ExamType {
		return false
	}
	if f.Region != "" && sub.Region != f.Region {
		return false
	}
	if f.ExcludeFailed && sub.HasFailedSubject() {
		return false
	}
	return true
}

// --- RescoreStore ---

func (m *memoryStore) ApplyRescore(_ context.Context, ev exam.RescoreEvent, details []exam.RescoreDetail, updated []exam.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	for _, d := range details {
		d.EventID = ev.ID
		m.details = append(m.details, d)
	}
	for _, sub := range updated {
		m.submissions[skey(sub.UserID, sub.ExamID, sub.ExamType)] = copySubmission(sub)
	}
	return nil
}

func (m *memoryStore) ListRescoreDetails(_ context.Context, userID string) ([]exam.RescoreDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exam.RescoreDetail
	for _, d := range m.details {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryStore) MarkRescoreRead(_ context.Context, userID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.details {
		if m.details[i].UserID == userID && m.details[i].EventID == eventID {
			m.details[i].Read = true
		}
	}
	return nil
}

// --- ReleaseStore ---

func (m *memoryStore) ReleaseExists(_ context.Context, examID string, number int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.releases {
		if r.ExamID == examID && r.ReleaseNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CreateRelease(_ context.Context, rel exam.PassCutRelease, snaps []exam.PassCutSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.releases {
		if r.ExamID == rel.ExamID && r.ReleaseNumber == rel.ReleaseNumber {
			return exam.Conflictf("release %d already exists for exam %q", rel.ReleaseNumber, rel.ExamID)
		}
	}
	m.releases = append(m.releases, rel)
	cp := make([]exam.PassCutSnapshot, len(snaps))
	copy(cp, snaps)
	for i := range cp {
		cp[i].ReleaseID = rel.ID
	}
	m.snapshots[rel.ID] = cp
	return nil
}

func (m *memoryStore) ListReleases(_ context.Context, examID string) ([]exam.PassCutRelease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exam.PassCutRelease
	for _, r := range m.releases {
		if r.ExamID == examID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReleaseNumber < out[j].ReleaseNumber })
	return out, nil
}

func (m *memoryStore) Snapshots(_ context.Context, releaseID string) ([]exam.PassCutSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ss, ok := m.snapshots[releaseID]
	if !ok {
		return nil, fmt.Errorf("snapshots for release %q: %w", releaseID, exam.ErrNotFound)
	}
	out := make([]exam.PassCutSnapshot, len(ss))
	copy(out, ss)
	return out, nil
}

func (m *memoryStore) LatestSnapshot(_ context.Context, examID, region string, t exam.ExamType) (exam.PassCutSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found bool
		best  exam.PassCutSnapshot
		bestN int
	)
	for _, rel := range m.releases {
		if rel.ExamID != examID || rel.ReleaseNumber <= bestN {
			continue
		}
		for _, s := range m.snapshots[rel.ID] {
			if s.Region == region && s.ExamType == t {
				best, bestN, found = s, rel.ReleaseNumber, true
			}
		}
	}
	if !found {
		return exam.PassCutSnapshot{}, fmt.Errorf("snapshot for region %q: %w", region, exam.ErrNotFound)
	}
	return best, nil
}

func copySubmission(sub exam.Submission) exam.Submission {
	cp := sub
	cp.Subjects = make([]exam.SubjectScore, len(sub.Subjects))
	copy(cp.Subjects, sub.Subjects)
	cp.Answers = make([]exam.UserAnswer, len(sub.Answers))
	copy(cp.Answers, sub.Answers)
	cp.SuspicionReasons = append([]string(nil), sub.SuspicionReasons...)
	return cp
}
