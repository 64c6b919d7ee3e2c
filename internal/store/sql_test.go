package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/examstat/cutline/internal/db"
	"github.com/examstat/cutline/internal/exam"
)

// Live sqlite round-trip against the real schema. Each test opens a fresh
// database file under t.TempDir.
func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "cutline_test.db") + "?cache=shared&mode=rwc"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSQLStore(conn, "sqlite")
}

func submissionFixture(id, userID, region string, final float64, suspicious, failed bool) exam.Submission {
	return exam.Submission{
		ID:         id,
		UserID:     userID,
		ExamID:     "2026-civil",
		ExamType:   exam.TypeGeneral,
		Region:     region,
		TotalScore: final,
		FinalScore: final,
		BonusType:  exam.BonusNone,
		Suspicious: suspicious,
		CreatedAt:  1700000000,
		Subjects: []exam.SubjectScore{
			{Subject: "헌법", RawScore: final, Failed: failed},
		},
		Answers: []exam.UserAnswer{
			{Subject: "헌법", Question: 1, Selected: 1, Correct: !failed},
			{Subject: "헌법", Question: 2, Selected: 3, Correct: true},
		},
	}
}

func TestSQLiteConfigRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	want := []exam.Subject{
		{Name: "헌법", QuestionCount: 20, PointPerQuestion: 2.5, MaxScore: 50},
		{Name: "형법", QuestionCount: 20, PointPerQuestion: 5, MaxScore: 100},
	}
	if err := st.PutSubjects("2026-civil", exam.TypeGeneral, want); err != nil {
		t.Fatal(err)
	}
	got, err := st.Subjects("2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "헌법" || got[1].MaxScore != 100 {
		t.Fatalf("subjects = %+v", got)
	}
	if _, err := st.Subjects("2026-civil", exam.TypeCareer); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("missing track err = %v", err)
	}

	if err := st.PutAnswerKey("2026-civil", exam.TypeGeneral, "헌법", map[int]int{1: 1, 2: 3}); err != nil {
		t.Fatal(err)
	}
	key, err := st.AnswerKey("2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := key.Correct("헌법", 2); !ok || a != 3 {
		t.Fatalf("key(헌법,2) = %d,%v", a, ok)
	}

	applicants := 120
	quotas := []exam.RegionQuota{
		{ExamID: "2026-civil", Region: "서울", RecruitCount: 50, ApplicantCount: &applicants},
		{ExamID: "2026-civil", Region: "강원", RecruitCount: 5},
	}
	for _, q := range quotas {
		if err := st.PutQuota(q); err != nil {
			t.Fatal(err)
		}
	}
	seoul, err := st.Quota("2026-civil", "서울")
	if err != nil {
		t.Fatal(err)
	}
	if seoul.ApplicantCount == nil || *seoul.ApplicantCount != 120 {
		t.Fatalf("서울 applicants = %v", seoul.ApplicantCount)
	}
	gangwon, err := st.Quota("2026-civil", "강원")
	if err != nil {
		t.Fatal(err)
	}
	if gangwon.ApplicantCount != nil {
		t.Fatalf("강원 applicants = %v, want nil", *gangwon.ApplicantCount)
	}

	// Upsert keeps one row per (exam, region).
	if err := st.PutQuota(exam.RegionQuota{ExamID: "2026-civil", Region: "강원", RecruitCount: 7}); err != nil {
		t.Fatal(err)
	}
	all, err := st.Quotas("2026-civil")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("quotas = %d rows, want 2", len(all))
	}

	if err := st.CorrectAnswerKey(ctx, exam.KeyCorrection{
		ExamID: "2026-civil", ExamType: exam.TypeGeneral,
		Subject: "헌법", Question: 2, NewAnswer: 4, AdminID: "admin1", EditedAt: 1700000100,
	}); err != nil {
		t.Fatal(err)
	}
	key, err = st.AnswerKey("2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if a, _ := key.Correct("헌법", 2); a != 4 {
		t.Fatalf("corrected key = %d, want 4", a)
	}
	audit, err := st.KeyCorrections(ctx, "2026-civil")
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 1 || audit[0].OldAnswer != 3 || audit[0].NewAnswer != 4 || audit[0].AdminID != "admin1" {
		t.Fatalf("audit = %+v", audit)
	}

	err = st.CorrectAnswerKey(ctx, exam.KeyCorrection{
		ExamID: "2026-civil", ExamType: exam.TypeGeneral,
		Subject: "헌법", Question: 99, NewAnswer: 1,
	})
	if !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("correcting a missing key row: err = %v", err)
	}
}

func TestSQLiteSubmissionLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sub := submissionFixture("sub-1", "u1", "서울", 45, false, false)
	sub.SuspicionReasons = []string{"too_fast: 30s for 20 questions"}
	if err := st.SaveSubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetSubmission(ctx, "u1", "2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if got.FinalScore != 45 || len(got.Subjects) != 1 || len(got.Answers) != 2 {
		t.Fatalf("loaded = %+v", got)
	}
	if len(got.SuspicionReasons) != 1 || got.SuspicionReasons[0] != sub.SuspicionReasons[0] {
		t.Fatalf("reasons = %v", got.SuspicionReasons)
	}

	// Resubmission replaces the previous row and its children.
	again := submissionFixture("sub-2", "u1", "서울", 47.5, false, false)
	if err := st.SaveSubmission(ctx, again); err != nil {
		t.Fatal(err)
	}
	list, err := st.ListSubmissions(ctx, "2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "sub-2" || list[0].FinalScore != 47.5 {
		t.Fatalf("after resubmit = %+v", list)
	}

	if _, err := st.GetSubmission(ctx, "nobody", "2026-civil", exam.TypeGeneral); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("missing submission err = %v", err)
	}
}

// Child rows are deleted explicitly inside the resubmission transaction, so
// no orphans survive even on pooled connections that never ran the sqlite
// foreign_keys pragma. The test DSN deliberately omits the pragma.
func TestSQLiteResubmissionLeavesNoOrphans(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveSubmission(ctx, submissionFixture("sub-1", "u1", "서울", 45, false, false)); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSubmission(ctx, submissionFixture("sub-2", "u1", "서울", 47.5, false, false)); err != nil {
		t.Fatal(err)
	}

	for table, want := range map[string]int{"submissions": 1, "subject_scores": 1, "user_answers": 2} {
		var n int
		if err := st.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Fatalf("%s rows = %d, want %d", table, n, want)
		}
	}
}

func TestSQLitePopulationFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	fixtures := []exam.Submission{
		submissionFixture("sub-a", "uA", "서울", 90, false, false),
		submissionFixture("sub-b", "uB", "서울", 80, false, true),  // failed subject
		submissionFixture("sub-c", "uC", "서울", 99, true, false),  // suspicious
		submissionFixture("sub-d", "uD", "강원", 70, false, false), // other region
	}
	for _, sub := range fixtures {
		if err := st.SaveSubmission(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	base := PopulationFilter{ExamID: "2026-civil", ExamType: exam.TypeGeneral}

	pop, err := st.Population(ctx, base)
	if err != nil {
		t.Fatal(err)
	}
	if len(pop) != 3 {
		t.Fatalf("population = %d, want 3 (suspicious excluded)", len(pop))
	}

	strict := base
	strict.ExcludeFailed = true
	pop, err = st.Population(ctx, strict)
	if err != nil {
		t.Fatal(err)
	}
	if len(pop) != 2 {
		t.Fatalf("no-failed population = %d, want 2", len(pop))
	}
	for _, e := range pop {
		if e.FailedSubject {
			t.Fatalf("failed entry leaked: %+v", e)
		}
		if e.Subjects["헌법"] == 0 {
			t.Fatalf("subject breakdown missing: %+v", e)
		}
	}

	regional := strict
	regional.Region = "서울"
	scores, err := st.FinalScores(ctx, regional)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || scores[0] != 90 {
		t.Fatalf("서울 finals = %v, want [90]", scores)
	}
}

func TestSQLiteRescoreAudit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sub := submissionFixture("sub-1", "u1", "서울", 45, false, false)
	if err := st.SaveSubmission(ctx, sub); err != nil {
		t.Fatal(err)
	}

	updated := sub
	updated.TotalScore = 47.5
	updated.FinalScore = 47.5
	ev := exam.RescoreEvent{
		ID: "ev-1", ExamID: "2026-civil", ExamType: exam.TypeGeneral,
		AdminID: "admin1", Reason: "q2 key typo", CreatedAt: 1700000200,
	}
	details := []exam.RescoreDetail{
		{SubmissionID: "sub-1", UserID: "u1", OldScore: 45, NewScore: 47.5, EventID: "ev-1"},
	}
	if err := st.ApplyRescore(ctx, ev, details, []exam.Submission{updated}); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetSubmission(ctx, "u1", "2026-civil", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if got.FinalScore != 47.5 || len(got.Answers) != 2 {
		t.Fatalf("rescored = %+v", got)
	}

	mine, err := st.ListRescoreDetails(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].EventID != "ev-1" || mine[0].Read {
		t.Fatalf("details = %+v", mine)
	}
	if err := st.MarkRescoreRead(ctx, "u1", "ev-1"); err != nil {
		t.Fatal(err)
	}
	mine, err = st.ListRescoreDetails(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !mine[0].Read {
		t.Fatal("detail still unread after mark")
	}
}

func TestSQLiteReleases(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	one, likely := 98.0, 88.0
	snaps := []exam.PassCutSnapshot{
		{
			Region: "서울", ExamType: exam.TypeGeneral,
			ParticipantCount: 20, RecruitCount: 5, ApplicantCount: 40,
			CoverageRate: 0.5, StabilityScore: 1, Status: exam.StatusReady,
			OneMultipleCutScore: &one, SureScore: &one, LikelyScore: &likely, PossibleScore: nil,
		},
		{
			Region: "강원", ExamType: exam.TypeGeneral,
			ParticipantCount: 3, RecruitCount: 2, ApplicantCount: 10,
			CoverageRate: 0.3, StabilityScore: 1, Status: exam.StatusInsufficientSample,
		},
	}
	rel := exam.PassCutRelease{
		ID: "rel-1", ExamID: "2026-civil", ReleaseNumber: 1,
		ParticipantCount: 23, CreatedBy: "admin1", CreatedAt: 1700000300,
	}
	if err := st.CreateRelease(ctx, rel, snaps); err != nil {
		t.Fatal(err)
	}

	exists, err := st.ReleaseExists(ctx, "2026-civil", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("release 1 not found")
	}

	// Snapshot score pointers survive NULL round-trips.
	loaded, err := st.Snapshots(ctx, "rel-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(loaded))
	}
	for _, sn := range loaded {
		switch sn.Region {
		case "서울":
			if sn.OneMultipleCutScore == nil || *sn.OneMultipleCutScore != 98 || sn.PossibleScore != nil {
				t.Fatalf("서울 snapshot = %+v", sn)
			}
		case "강원":
			if sn.Status != exam.StatusInsufficientSample || sn.OneMultipleCutScore != nil {
				t.Fatalf("강원 snapshot = %+v", sn)
			}
		}
	}

	// A later release becomes the latest snapshot for its region.
	two := 97.0
	second := exam.PassCutRelease{
		ID: "rel-2", ExamID: "2026-civil", ReleaseNumber: 2,
		ParticipantCount: 25, CreatedBy: "admin1", CreatedAt: 1700000400,
	}
	if err := st.CreateRelease(ctx, second, []exam.PassCutSnapshot{{
		Region: "서울", ExamType: exam.TypeGeneral,
		ParticipantCount: 25, RecruitCount: 5, ApplicantCount: 40,
		CoverageRate: 0.63, StabilityScore: 0.99, Status: exam.StatusReady,
		OneMultipleCutScore: &two, SureScore: &two, LikelyScore: &likely,
	}}); err != nil {
		t.Fatal(err)
	}
	latest, err := st.LatestSnapshot(ctx, "2026-civil", "서울", exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ReleaseID != "rel-2" || *latest.OneMultipleCutScore != 97 {
		t.Fatalf("latest = %+v", latest)
	}
	if _, err := st.LatestSnapshot(ctx, "2026-civil", "부산", exam.TypeGeneral); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("missing region err = %v", err)
	}

	releases, err := st.ListReleases(ctx, "2026-civil")
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != 2 || releases[1].ReleaseNumber != 2 {
		t.Fatalf("releases = %+v", releases)
	}

	// The unique (exam, number) constraint surfaces as a conflict.
	dup := exam.PassCutRelease{ID: "rel-3", ExamID: "2026-civil", ReleaseNumber: 2, CreatedBy: "admin1"}
	err = st.CreateRelease(ctx, dup, nil)
	if !exam.IsConflict(err) {
		t.Fatalf("duplicate release err = %v", err)
	}
}
