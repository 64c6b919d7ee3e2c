package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/examstat/cutline/internal/exam"
	"github.com/examstat/cutline/internal/store"
)

// Fixture: one-subject general track, 헌법 with 20 questions at 2.5 points
// (max 50, cutoff 20). The key is a scattered pattern so clean sheets do not
// trip the anomaly heuristics.
var testKey = []int{1, 3, 2, 4, 2, 1, 4, 3, 3, 1, 2, 4, 1, 2, 4, 3, 2, 3, 1, 4}

const (
	testExam   = "2026-civil"
	regionBig  = "서울" // recruit 50
	regionTiny = "강원" // recruit 5
)

func newFixture(t *testing.T) (store.Store, *Engine) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.PutSubjects(testExam, exam.TypeGeneral, []exam.Subject{
		{Name: "헌법", QuestionCount: 20, PointPerQuestion: 2.5, MaxScore: 50},
	}); err != nil {
		t.Fatal(err)
	}
	key := map[int]int{}
	for i, a := range testKey {
		key[i+1] = a
	}
	if err := st.PutAnswerKey(testExam, exam.TypeGeneral, "헌법", key); err != nil {
		t.Fatal(err)
	}
	for region, recruit := range map[string]int{regionBig: 50, regionTiny: 5} {
		if err := st.PutQuota(exam.RegionQuota{ExamID: testExam, Region: region, RecruitCount: recruit}); err != nil {
			t.Fatal(err)
		}
	}
	return st, NewEngine(st, st)
}

// answersWithCorrect marks the first n questions per the key and the rest
// deliberately wrong.
func answersWithCorrect(n int) []Answer {
	out := make([]Answer, 0, 20)
	for i, key := range testKey {
		sel := key
		if i >= n {
			sel = key%4 + 1
		}
		out = append(out, Answer{Subject: "헌법", Question: i + 1, Selected: sel})
	}
	return out
}

func req(region string, bonus exam.BonusType, answers []Answer) Request {
	return Request{
		UserID:   "u1",
		ExamID:   testExam,
		ExamType: exam.TypeGeneral,
		Region:   region,
		Bonus:    bonus,
		Answers:  answers,
	}
}

func TestScoreWorkedExample(t *testing.T) {
	_, engine := newFixture(t)
	// 18 of 20 correct → raw 45, above the cutoff of 20.
	sub, err := engine.Score(context.Background(), req(regionBig, exam.BonusNone, answersWithCorrect(18)))
	if err != nil {
		t.Fatal(err)
	}
	if sub.TotalScore != 45 {
		t.Fatalf("total = %v, want 45", sub.TotalScore)
	}
	if sub.FinalScore != 45 {
		t.Fatalf("final = %v, want 45", sub.FinalScore)
	}
	if len(sub.Subjects) != 1 || sub.Subjects[0].RawScore != 45 || sub.Subjects[0].Failed {
		t.Fatalf("unexpected subject scores %+v", sub.Subjects)
	}
	if sub.Suspicious {
		t.Fatalf("clean sheet flagged: %v", sub.SuspicionReasons)
	}
	correct := 0
	for _, a := range sub.Answers {
		if a.Correct {
			correct++
		}
	}
	if correct != 18 {
		t.Fatalf("correct answers = %d, want 18", correct)
	}
}

func TestScoreSubjectCutoff(t *testing.T) {
	_, engine := newFixture(t)
	// 6 of 20 correct → raw 15, under the cutoff of 20.
	sub, err := engine.Score(context.Background(), req(regionBig, exam.BonusNone, answersWithCorrect(6)))
	if err != nil {
		t.Fatal(err)
	}
	if sub.Subjects[0].RawScore != 15 || !sub.Subjects[0].Failed {
		t.Fatalf("want raw 15 failed, got %+v", sub.Subjects[0])
	}
}

func TestScoreTotalsMatchSubjectSum(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.PutSubjects(testExam, exam.TypeGeneral, []exam.Subject{
		{Name: "헌법", QuestionCount: 20, PointPerQuestion: 2.5, MaxScore: 50},
		{Name: "행정법", QuestionCount: 20, PointPerQuestion: 2.5, MaxScore: 50},
	}); err != nil {
		t.Fatal(err)
	}
	for _, subj := range []string{"헌법", "행정법"} {
		key := map[int]int{}
		for i, a := range testKey {
			key[i+1] = a
		}
		if err := st.PutAnswerKey(testExam, exam.TypeGeneral, subj, key); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.PutQuota(exam.RegionQuota{ExamID: testExam, Region: regionBig, RecruitCount: 50}); err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(st, st)

	var answers []Answer
	for _, subj := range []string{"헌법", "행정법"} {
		for i, key := range testKey {
			sel := key
			if subj == "행정법" && i%3 == 0 {
				sel = key%4 + 1
			}
			answers = append(answers, Answer{Subject: subj, Question: i + 1, Selected: sel})
		}
	}
	sub, err := engine.Score(context.Background(), req(regionBig, exam.BonusNone, answers))
	if err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for _, ss := range sub.Subjects {
		sum += ss.RawScore
	}
	if sum != sub.TotalScore {
		t.Fatalf("subject sum %v != total %v", sum, sub.TotalScore)
	}
}

func TestScoreBonusFormulaPerType(t *testing.T) {
	for _, bonus := range []exam.BonusType{
		exam.BonusNone, exam.BonusVeteran5, exam.BonusVeteran10, exam.BonusHero3, exam.BonusHero5,
	} {
		t.Run(string(bonus), func(t *testing.T) {
			_, engine := newFixture(t)
			sub, err := engine.Score(context.Background(), req(regionBig, bonus, answersWithCorrect(17)))
			if err != nil {
				t.Fatal(err)
			}
			want := exam.Round2(sub.TotalScore + sub.TotalScore*bonus.Rate())
			if math.Abs(sub.FinalScore-want) > 1e-9 {
				t.Fatalf("final = %v, want %v", sub.FinalScore, want)
			}
			if sub.BonusRate != bonus.Rate() {
				t.Fatalf("rate = %v, want %v", sub.BonusRate, bonus.Rate())
			}
		})
	}
}

func TestScoreValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown subject", func(r *Request) { r.Answers[0].Subject = "수학" }},
		{"question out of range", func(r *Request) { r.Answers[0].Question = 21 }},
		{"answer out of range", func(r *Request) { r.Answers[0].Selected = 5 }},
		{"duplicate question", func(r *Request) { r.Answers[1] = r.Answers[0] }},
		{"missing answers", func(r *Request) { r.Answers = r.Answers[:19] }},
		{"unknown bonus", func(r *Request) { r.Bonus = "pilot" }},
		{"hero tier in tiny region", func(r *Request) { r.Region = regionTiny; r.Bonus = exam.BonusHero5 }},
		{"unknown region", func(r *Request) { r.Region = "대전" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, engine := newFixture(t)
			r := req(regionBig, exam.BonusNone, answersWithCorrect(18))
			tc.mutate(&r)
			_, err := engine.Score(context.Background(), r)
			if !exam.IsValidation(err) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			// No partial write.
			if _, err := st.GetSubmission(context.Background(), "u1", testExam, exam.TypeGeneral); err == nil {
				t.Fatal("submission persisted despite validation failure")
			}
		})
	}
}

func TestScoreResubmissionReplaces(t *testing.T) {
	st, engine := newFixture(t)
	ctx := context.Background()
	if _, err := engine.Score(ctx, req(regionBig, exam.BonusNone, answersWithCorrect(10))); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Score(ctx, req(regionBig, exam.BonusNone, answersWithCorrect(18))); err != nil {
		t.Fatal(err)
	}
	sub, err := st.GetSubmission(ctx, "u1", testExam, exam.TypeGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if sub.TotalScore != 45 {
		t.Fatalf("resubmission not applied, total = %v", sub.TotalScore)
	}
	if len(sub.Answers) != 20 || len(sub.Subjects) != 1 {
		t.Fatalf("children accumulated: %d answers, %d subjects", len(sub.Answers), len(sub.Subjects))
	}
}

func TestScoreHeroTierAllowedInBigRegion(t *testing.T) {
	_, engine := newFixture(t)
	if _, err := engine.Score(context.Background(), req(regionBig, exam.BonusHero5, answersWithCorrect(18))); err != nil {
		t.Fatal(err)
	}
}

// faultyQuotaConfig forwards configuration reads but fails every quota
// lookup the way a backend outage would.
type faultyQuotaConfig struct {
	store.ConfigSource
	err error
}

func (f faultyQuotaConfig) Quota(examID, region string) (exam.RegionQuota, error) {
	return exam.RegionQuota{}, f.err
}

func TestScoreQuotaOutageIsNotValidation(t *testing.T) {
	st, _ := newFixture(t)
	backendErr := errors.New("connection reset by peer")
	engine := NewEngine(faultyQuotaConfig{ConfigSource: st, err: backendErr}, st)

	_, err := engine.Score(context.Background(), req(regionBig, exam.BonusNone, answersWithCorrect(18)))
	if exam.IsValidation(err) {
		t.Fatalf("backend outage surfaced as validation: %v", err)
	}
	if !errors.Is(err, backendErr) {
		t.Fatalf("err = %v, want wrapped backend error", err)
	}
}

func TestFlattenFollowsSubjectPosition(t *testing.T) {
	subjects := []exam.Subject{
		{Name: "헌법", QuestionCount: 2},
		{Name: "행정법", QuestionCount: 2},
	}
	// Shuffled input, and 행정법 sorts before 헌법 byte-wise: the output must
	// follow the configured subject order, not the input or lexical one.
	answers := []exam.UserAnswer{
		{Subject: "행정법", Question: 2, Selected: 4},
		{Subject: "헌법", Question: 2, Selected: 2},
		{Subject: "행정법", Question: 1, Selected: 3},
		{Subject: "헌법", Question: 1, Selected: 1},
	}
	got := Flatten(subjects, answers)
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flattened = %v, want %v", got, want)
		}
	}
}
