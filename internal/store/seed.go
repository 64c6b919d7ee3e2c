package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/examstat/cutline/internal/exam"
)

// Seed is the configuration hand-off file: subjects, quotas and answer keys
// supplied by administration, ingested at boot.
type Seed struct {
	Exams []SeedExam `json:"exams"`
}

type SeedExam struct {
	ID     string             `json:"id"`
	Tracks []SeedTrack        `json:"tracks"`
	Quotas []exam.RegionQuota `json:"quotas"`
}

type SeedTrack struct {
	ExamType exam.ExamType  `json:"exam_type"`
	Subjects []exam.Subject `json:"subjects"`
	// Keys maps subject name → answers ordered by question number (1-based).
	Keys map[string][]int `json:"keys"`
}

// LoadSeed parses a seed file.
func LoadSeed(path string) (Seed, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var s Seed
	if err := json.Unmarshal(buf, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// Apply writes the seed into the configuration tables.
func (s Seed) Apply(w ConfigWriter) error {
	for _, e := range s.Exams {
		for _, tr := range e.Tracks {
			if !tr.ExamType.Valid() {
				return fmt.Errorf("exam %s: unknown track %q", e.ID, tr.ExamType)
			}
			if err := w.PutSubjects(e.ID, tr.ExamType, tr.Subjects); err != nil {
				return err
			}
			for subject, answers := range tr.Keys {
				key := make(map[int]int, len(answers))
				for i, a := range answers {
					key[i+1] = a
				}
				if err := w.PutAnswerKey(e.ID, tr.ExamType, subject, key); err != nil {
					return err
				}
			}
		}
		for _, q := range e.Quotas {
			q.ExamID = e.ID
			if err := w.PutQuota(q); err != nil {
				return err
			}
		}
	}
	return nil
}
