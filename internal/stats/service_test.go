package stats

import (
	"context"
	"fmt"
	"testing"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

const testExam = "2026-civil"

func seedSubmission(t *testing.T, st store.Store, userID string, final float64, failed, suspicious bool) exam.Submission {
	t.Helper()
	sub := exam.Submission{
		ID:         "sub-" + userID,
		UserID:     userID,
		ExamID:     testExam,
		ExamType:   exam.TypeGeneral,
		Region:     "서울",
		TotalScore: final,
		FinalScore: final,
		BonusType:  exam.BonusNone,
		Suspicious: suspicious,
		Subjects: []exam.SubjectScore{
			{Subject: "헌법", RawScore: final / 2, Failed: failed},
			{Subject: "행정법", RawScore: final / 2},
		},
	}
	if err := st.SaveSubmission(context.Background(), sub); err != nil {
		t.Fatal(err)
	}
	return sub
}

func TestAsymmetricPopulationRule(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	passing := seedSubmission(t, st, "pass1", 90, false, false)
	seedSubmission(t, st, "pass2", 80, false, false)
	failing := seedSubmission(t, st, "fail1", 70, true, false)
	seedSubmission(t, st, "ghost", 100, false, true) // suspicious, never counted

	// A passing candidate competes only against other non-failing peers.
	res, err := svc.ForSubmission(ctx, passing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Basis != BasisNoFailed {
		t.Fatalf("basis = %q, want %q", res.Basis, BasisNoFailed)
	}
	if res.Overall.Participants != 2 {
		t.Fatalf("passing population = %d, want 2", res.Overall.Participants)
	}
	if res.Overall.Rank != 1 {
		t.Fatalf("rank = %d, want 1", res.Overall.Rank)
	}

	// A failing candidate competes against everyone non-suspicious.
	res, err = svc.ForSubmission(ctx, failing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Basis != BasisAll {
		t.Fatalf("basis = %q, want %q", res.Basis, BasisAll)
	}
	if res.Overall.Participants != 3 {
		t.Fatalf("failing population = %d, want 3", res.Overall.Participants)
	}
	if res.Overall.Rank != 3 {
		t.Fatalf("rank = %d, want 3", res.Overall.Rank)
	}
}

func TestCompetitionRankingTies(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	seedSubmission(t, st, "a", 90, false, false)
	tied := seedSubmission(t, st, "b", 85, false, false)
	seedSubmission(t, st, "c", 85, false, false)
	seedSubmission(t, st, "d", 80, false, false)

	res, err := svc.ForSubmission(ctx, tied)
	if err != nil {
		t.Fatal(err)
	}
	if res.Overall.Rank != 2 {
		t.Fatalf("tied rank = %d, want 2", res.Overall.Rank)
	}
	if res.Overall.Participants != 4 {
		t.Fatalf("participants = %d, want 4", res.Overall.Participants)
	}
	// percentile = (4 - 2 + 1) / 4 × 100
	if res.Overall.Percentile != 75 {
		t.Fatalf("percentile = %v, want 75", res.Overall.Percentile)
	}
	if res.Overall.TopPercent != 50 {
		t.Fatalf("topPercent = %v, want 50", res.Overall.TopPercent)
	}
}

func TestAveragesAndTopTiers(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	var target exam.Submission
	for i := 0; i < 10; i++ {
		sub := seedSubmission(t, st, fmt.Sprintf("u%d", i), float64(100-i*10), false, false)
		if i == 0 {
			target = sub
		}
	}
	// Scores 100, 90, ..., 10.
	res, err := svc.ForSubmission(ctx, target)
	if err != nil {
		t.Fatal(err)
	}
	if res.Overall.Average != 55 {
		t.Fatalf("average = %v, want 55", res.Overall.Average)
	}
	if res.Overall.Highest != 100 || res.Overall.Lowest != 10 {
		t.Fatalf("highest/lowest = %v/%v", res.Overall.Highest, res.Overall.Lowest)
	}
	// ceil(10%) of 10 = 1 member; ceil(30%) = 3 members.
	if res.Overall.Top10Average != 100 {
		t.Fatalf("top10 = %v, want 100", res.Overall.Top10Average)
	}
	if res.Overall.Top30Average != 90 {
		t.Fatalf("top30 = %v, want 90", res.Overall.Top30Average)
	}
	if len(res.Subjects) != 2 {
		t.Fatalf("subject blocks = %d, want 2", len(res.Subjects))
	}
	if res.Subjects[0].Participants != 10 {
		t.Fatalf("subject participants = %d, want 10", res.Subjects[0].Participants)
	}
}

func TestDistributionCollectingUnderTenSamples(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		seedSubmission(t, st, fmt.Sprintf("u%d", i), float64(50+i), false, false)
	}
	d, err := svc.Distribution(ctx, testExam, exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Collecting || d.Buckets != nil {
		t.Fatalf("want collecting with suppressed bars, got %+v", d)
	}
	if d.Total != 9 {
		t.Fatalf("total = %d, want 9", d.Total)
	}
}

func TestDistributionBuckets(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()

	scores := []float64{5, 15, 15, 95, 100, 150, 199.5, 239, 240, 245}
	for i, v := range scores {
		seedSubmission(t, st, fmt.Sprintf("u%d", i), v, false, false)
	}
	d, err := svc.Distribution(ctx, testExam, exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if d.Collecting {
		t.Fatal("10 samples should be displayable")
	}
	if len(d.Buckets) != 25 {
		t.Fatalf("buckets = %d, want 25", len(d.Buckets))
	}
	if d.Buckets[0].Count != 1 || d.Buckets[1].Count != 2 {
		t.Fatalf("low buckets = %d/%d, want 1/2", d.Buckets[0].Count, d.Buckets[1].Count)
	}
	if d.Buckets[10].Count != 1 { // 100 lands in [100,110)
		t.Fatalf("bucket 10 = %d, want 1", d.Buckets[10].Count)
	}
	// The top bin absorbs everything ≥ 240.
	if d.Buckets[24].Count != 2 {
		t.Fatalf("top bucket = %d, want 2", d.Buckets[24].Count)
	}
	total := 0
	for _, b := range d.Buckets {
		total += b.Count
	}
	if total != len(scores) {
		t.Fatalf("bucketed %d of %d", total, len(scores))
	}
}
