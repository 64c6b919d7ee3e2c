package exam

// ExamType distinguishes the two recruitment tracks of one exam. Every
// submission, quota and answer key belongs to exactly one track.
type ExamType string

const (
	TypeGeneral ExamType = "general" // open-competition track
	TypeCareer  ExamType = "career"  // career-competitive track
)

func (t ExamType) Valid() bool {
	return t == TypeGeneral || t == TypeCareer
}

// AllTypes lists the closed set of tracks.
var AllTypes = []ExamType{TypeGeneral, TypeCareer}

// BonusType is the closed set of statutory bonus selections. The rate is an
// additive percentage of totalScore.
type BonusType string

const (
	BonusNone      BonusType = "none"
	BonusVeteran5  BonusType = "veteran5"  // employment-support target, 5%
	BonusVeteran10 BonusType = "veteran10" // employment-support target, 10%
	BonusHero3     BonusType = "hero3"     // hero/heroine family, 3%
	BonusHero5     BonusType = "hero5"     // hero/heroine family, 5%
)

func (b BonusType) Valid() bool {
	switch b {
	case BonusNone, BonusVeteran5, BonusVeteran10, BonusHero3, BonusHero5:
		return true
	}
	return false
}

// Rate returns the additive bonus rate for the type.
func (b BonusType) Rate() float64 {
	switch b {
	case BonusVeteran5:
		return 0.05
	case BonusVeteran10:
		return 0.10
	case BonusHero3:
		return 0.03
	case BonusHero5:
		return 0.05
	default:
		return 0
	}
}

// HeroTier reports whether the type is a hero/heroine tier. Hero tiers are
// only selectable when the target region recruits at least MinRecruitForHero
// people on the chosen track.
func (b BonusType) HeroTier() bool {
	return b == BonusHero3 || b == BonusHero5
}

// MinRecruitForHero is the minimum recruit count for hero-tier eligibility.
const MinRecruitForHero = 10

// Subject is one graded subject of a track, supplied by configuration.
type Subject struct {
	Name             string  `json:"name"`
	QuestionCount    int     `json:"question_count"`
	PointPerQuestion float64 `json:"point_per_question"`
	MaxScore         float64 `json:"max_score"`
}

// CutoffRate is the per-subject minimum: a raw score below
// CutoffRate × MaxScore fails the subject.
const CutoffRate = 0.4

// KeySet is the answer key of one (exam, track): subject → question → correct
// answer in 1..4.
type KeySet map[string]map[int]int

// Correct looks up the keyed answer for (subject, question).
func (k KeySet) Correct(subject string, question int) (int, bool) {
	qs, ok := k[subject]
	if !ok {
		return 0, false
	}
	a, ok := qs[question]
	return a, ok
}

// KeyCorrection is one audited answer-key edit.
type KeyCorrection struct {
	ExamID    string   `json:"exam_id"`
	ExamType  ExamType `json:"exam_type"`
	Subject   string   `json:"subject"`
	Question  int      `json:"question"`
	OldAnswer int      `json:"old_answer"`
	NewAnswer int      `json:"new_answer"`
	AdminID   string   `json:"admin_id"`
	EditedAt  int64    `json:"edited_at"`
}

// RegionQuota is the per-region recruitment configuration, read-only to the
// core. ApplicantCount is nil until administration supplies the exact number.
type RegionQuota struct {
	ExamID             string `json:"exam_id"`
	Region             string `json:"region"`
	RecruitCount       int    `json:"recruit_count"`
	CareerRecruitCount int    `json:"career_recruit_count"`
	ApplicantCount     *int   `json:"applicant_count,omitempty"`
	ExamNumberFrom     *int   `json:"exam_number_from,omitempty"`
	ExamNumberTo       *int   `json:"exam_number_to,omitempty"`
}

// RecruitFor returns the recruit count for the given track.
func (q RegionQuota) RecruitFor(t ExamType) int {
	if t == TypeCareer {
		return q.CareerRecruitCount
	}
	return q.RecruitCount
}

// Submission is one user's scored answer sheet for one (exam, track).
// Exactly one exists per (user, exam, track); resubmission replaces it and
// its children.
type Submission struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	ExamID           string         `json:"exam_id"`
	ExamType         ExamType       `json:"exam_type"`
	Region           string         `json:"region"`
	Gender           string         `json:"gender,omitempty"`
	ExamNumber       string         `json:"exam_number,omitempty"`
	TotalScore       float64        `json:"total_score"`
	FinalScore       float64        `json:"final_score"`
	BonusType        BonusType      `json:"bonus_type"`
	BonusRate        float64        `json:"bonus_rate"`
	Suspicious       bool           `json:"is_suspicious"`
	SuspicionReasons []string       `json:"suspicion_reasons,omitempty"`
	DurationSec      int            `json:"duration_sec,omitempty"` // 0 = not measured
	CreatedAt        int64          `json:"created_at"`
	Subjects         []SubjectScore `json:"subjects"`
	Answers          []UserAnswer   `json:"answers"`
}

// HasFailedSubject reports whether any subject fell under the cutoff.
func (s Submission) HasFailedSubject() bool {
	for _, ss := range s.Subjects {
		if ss.Failed {
			return true
		}
	}
	return false
}

// SubjectScore is the per-subject outcome of a submission.
type SubjectScore struct {
	Subject  string  `json:"subject"`
	RawScore float64 `json:"raw_score"`
	Failed   bool    `json:"is_failed"` // rawScore < CutoffRate × maxScore
}

// UserAnswer is one marked answer, correctness frozen at scoring time.
type UserAnswer struct {
	Subject  string `json:"subject"`
	Question int    `json:"question"`
	Selected int    `json:"selected"`
	Correct  bool   `json:"is_correct"`
}

// RescoreEvent is the audit header of one rescoring run.
type RescoreEvent struct {
	ID        string   `json:"id"`
	ExamID    string   `json:"exam_id"`
	ExamType  ExamType `json:"exam_type,omitempty"` // empty = all tracks
	AdminID   string   `json:"admin_id"`
	Reason    string   `json:"reason"`
	CreatedAt int64    `json:"created_at"`
}

// RescoreDetail is one affected submission within a rescore event. Immutable
// once written; Read drives the user-facing notification badge.
type RescoreDetail struct {
	EventID      string  `json:"event_id"`
	SubmissionID string  `json:"submission_id"`
	UserID       string  `json:"user_id"`
	OldScore     float64 `json:"old_score"`
	NewScore     float64 `json:"new_score"`
	Read         bool    `json:"read"`
}

// SnapshotStatus is the closed readiness set of a pass-cut snapshot. Only
// StatusReady carries projected scores.
type SnapshotStatus string

const (
	StatusReady                 SnapshotStatus = "READY"
	StatusMissingApplicantCount SnapshotStatus = "COLLECTING_MISSING_APPLICANT_COUNT"
	StatusInsufficientSample    SnapshotStatus = "COLLECTING_INSUFFICIENT_SAMPLE"
	StatusLowParticipation      SnapshotStatus = "COLLECTING_LOW_PARTICIPATION"
	StatusUnstable              SnapshotStatus = "COLLECTING_UNSTABLE"
)

// PassCutRelease is one official, numbered cutoff publication for an exam.
// Release numbers run 1..MaxReleaseNumber and are unique per exam.
type PassCutRelease struct {
	ID               string `json:"id"`
	ExamID           string `json:"exam_id"`
	ReleaseNumber    int    `json:"release_number"`
	ParticipantCount int    `json:"participant_count"`
	CreatedBy        string `json:"created_by"`
	Memo             string `json:"memo,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}

// MaxReleaseNumber bounds the release numbering per exam.
const MaxReleaseNumber = 4

// PassCutSnapshot is the frozen per-(region, track) projection inside a
// release. Score pointers are nil unless Status is READY.
type PassCutSnapshot struct {
	ReleaseID           string         `json:"release_id"`
	Region              string         `json:"region"`
	ExamType            ExamType       `json:"exam_type"`
	ParticipantCount    int            `json:"participant_count"`
	RecruitCount        int            `json:"recruit_count"`
	ApplicantCount      int            `json:"applicant_count"`
	CoverageRate        float64        `json:"coverage_rate"`
	StabilityScore      float64        `json:"stability_score"`
	Status              SnapshotStatus `json:"status"`
	OneMultipleCutScore *float64       `json:"one_multiple_cut_score,omitempty"`
	SureScore           *float64       `json:"sure_score,omitempty"`
	LikelyScore         *float64       `json:"likely_score,omitempty"`
	PossibleScore       *float64       `json:"possible_score,omitempty"`
}
