package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/examstat/cutline/internal/exam"
)

// SQLStore implements Store over database/sql ("sqlite" or "postgres").
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// withTx is the unit of work: begin, run, commit; rollback on any error so a
// failed multi-row mutation leaves no partial state.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isUniqueViolation matches the duplicate-key errors of both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}

// --- ConfigSource ---

func (s *SQLStore) Subjects(examID string, t exam.ExamType) ([]exam.Subject, error) {
	rows, err := s.db.Query(`SELECT name,question_count,point_per_question,max_score
		FROM subjects WHERE exam_id=$1 AND exam_type=$2 ORDER BY position,name`, examID, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.Subject
	for rows.Next() {
		var sub exam.Subject
		if err := rows.Scan(&sub.Name, &sub.QuestionCount, &sub.PointPerQuestion, &sub.MaxScore); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("subjects for exam %q track %q: %w", examID, t, exam.ErrNotFound)
	}
	return out, nil
}

func (s *SQLStore) AnswerKey(examID string, t exam.ExamType) (exam.KeySet, error) {
	rows, err := s.db.Query(`SELECT subject,question,correct_answer
		FROM answer_keys WHERE exam_id=$1 AND exam_type=$2`, examID, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ks := exam.KeySet{}
	for rows.Next() {
		var subj string
		var q, a int
		if err := rows.Scan(&subj, &q, &a); err != nil {
			return nil, err
		}
		if ks[subj] == nil {
			ks[subj] = map[int]int{}
		}
		ks[subj][q] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ks) == 0 {
		return nil, fmt.Errorf("answer key for exam %q track %q: %w", examID, t, exam.ErrNotFound)
	}
	return ks, nil
}

func (s *SQLStore) Quota(examID, region string) (exam.RegionQuota, error) {
	row := s.db.QueryRow(`SELECT exam_id,region,recruit_count,career_recruit_count,applicant_count,exam_number_from,exam_number_to
		FROM exam_region_quotas WHERE exam_id=$1 AND region=$2`, examID, region)
	q, err := scanQuota(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exam.RegionQuota{}, fmt.Errorf("quota for exam %q region %q: %w", examID, region, exam.ErrNotFound)
	}
	return q, err
}

func (s *SQLStore) Quotas(examID string) ([]exam.RegionQuota, error) {
	rows, err := s.db.Query(`SELECT exam_id,region,recruit_count,career_recruit_count,applicant_count,exam_number_from,exam_number_to
		FROM exam_region_quotas WHERE exam_id=$1 ORDER BY region`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.RegionQuota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanQuota(r rowScanner) (exam.RegionQuota, error) {
	var q exam.RegionQuota
	var applicant, from, to sql.NullInt64
	if err := r.Scan(&q.ExamID, &q.Region, &q.RecruitCount, &q.CareerRecruitCount, &applicant, &from, &to); err != nil {
		return exam.RegionQuota{}, err
	}
	if applicant.Valid {
		v := int(applicant.Int64)
		q.ApplicantCount = &v
	}
	if from.Valid {
		v := int(from.Int64)
		q.ExamNumberFrom = &v
	}
	if to.Valid {
		v := int(to.Int64)
		q.ExamNumberTo = &v
	}
	return q, nil
}

// --- ConfigWriter ---

func (s *SQLStore) PutSubjects(examID string, t exam.ExamType, subjects []exam.Subject) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM subjects WHERE exam_id=$1 AND exam_type=$2`, examID, string(t)); err != nil {
			return err
		}
		for i, sub := range subjects {
			if _, err := tx.Exec(`INSERT INTO subjects (exam_id,exam_type,name,question_count,point_per_question,max_score,position)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				examID, string(t), sub.Name, sub.QuestionCount, sub.PointPerQuestion, sub.MaxScore, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) PutQuota(q exam.RegionQuota) error {
	var applicant, from, to any
	if q.ApplicantCount != nil {
		applicant = *q.ApplicantCount
	}
	if q.ExamNumberFrom != nil {
		from = *q.ExamNumberFrom
	}
	if q.ExamNumberTo != nil {
		to = *q.ExamNumberTo
	}
	_, err := s.db.Exec(`INSERT INTO exam_region_quotas (exam_id,region,recruit_count,career_recruit_count,applicant_count,exam_number_from,exam_number_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (exam_id,region) DO UPDATE SET
			recruit_count=EXCLUDED.recruit_count,
			career_recruit_count=EXCLUDED.career_recruit_count,
			applicant_count=EXCLUDED.applicant_count,
			exam_number_from=EXCLUDED.exam_number_from,
			exam_number_to=EXCLUDED.exam_number_to`,
		q.ExamID, q.Region, q.RecruitCount, q.CareerRecruitCount, applicant, from, to)
	return err
}

func (s *SQLStore) PutAnswerKey(examID string, t exam.ExamType, subject string, answers map[int]int) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		for q, a := range answers {
			if _, err := tx.Exec(`INSERT INTO answer_keys (exam_id,exam_type,subject,question,correct_answer)
				VALUES ($1,$2,$3,$4,$5)
				ON CONFLICT (exam_id,exam_type,subject,question) DO UPDATE SET correct_answer=EXCLUDED.correct_answer`,
				examID, string(t), subject, q, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) CorrectAnswerKey(ctx context.Context, c exam.KeyCorrection) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT correct_answer FROM answer_keys
			WHERE exam_id=$1 AND exam_type=$2 AND subject=$3 AND question=$4`,
			c.ExamID, string(c.ExamType), c.Subject, c.Question)
		var old int
		if err := row.Scan(&old); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("answer key row %s/%d: %w", c.Subject, c.Question, exam.ErrNotFound)
			}
			return err
		}
		if _, err := tx.Exec(`UPDATE answer_keys SET correct_answer=$1
			WHERE exam_id=$2 AND exam_type=$3 AND subject=$4 AND question=$5`,
			c.NewAnswer, c.ExamID, string(c.ExamType), c.Subject, c.Question); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO answer_key_audit (exam_id,exam_type,subject,question,old_answer,new_answer,admin_id,edited_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ExamID, string(c.ExamType), c.Subject, c.Question, old, c.NewAnswer, c.AdminID, c.EditedAt)
		return err
	})
}

func (s *SQLStore) KeyCorrections(ctx context.Context, examID string) ([]exam.KeyCorrection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT exam_id,exam_type,subject,question,old_answer,new_answer,admin_id,edited_at
		FROM answer_key_audit WHERE exam_id=$1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.KeyCorrection
	for rows.Next() {
		var c exam.KeyCorrection
		var et string
		if err := rows.Scan(&c.ExamID, &et, &c.Subject, &c.Question, &c.OldAnswer, &c.NewAnswer, &c.AdminID, &c.EditedAt); err != nil {
			return nil, err
		}
		c.ExamType = exam.ExamType(et)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- SubmissionStore ---

func (s *SQLStore) SaveSubmission(ctx context.Context, sub exam.Submission) error {
	reasons, err := json.Marshal(sub.SuspicionReasons)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Resubmission replaces the row and its children. Children go
		// explicitly rather than by cascade: sqlite only cascades on
		// connections that ran PRAGMA foreign_keys.
		for _, table := range []string{"subject_scores", "user_answers"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE submission_id IN
				(SELECT id FROM submissions WHERE user_id=$1 AND exam_id=$2 AND exam_type=$3)`,
				sub.UserID, sub.ExamID, string(sub.ExamType)); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`DELETE FROM submissions WHERE user_id=$1 AND exam_id=$2 AND exam_type=$3`,
			sub.UserID, sub.ExamID, string(sub.ExamType)); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO submissions
			(id,user_id,exam_id,exam_type,region,gender,exam_number,total_score,final_score,bonus_type,bonus_rate,is_suspicious,suspicion_reasons,duration_sec,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			sub.ID, sub.UserID, sub.ExamID, string(sub.ExamType), sub.Region, sub.Gender, sub.ExamNumber,
			sub.TotalScore, sub.FinalScore, string(sub.BonusType), sub.BonusRate,
			sub.Suspicious, string(reasons), sub.DurationSec, sub.CreatedAt); err != nil {
			return err
		}
		return insertChildren(tx, sub)
	})
}

func insertChildren(tx *sql.Tx, sub exam.Submission) error {
	for _, ss := range sub.Subjects {
		if _, err := tx.Exec(`INSERT INTO subject_scores (submission_id,subject,raw_score,is_failed)
			VALUES ($1,$2,$3,$4)`, sub.ID, ss.Subject, ss.RawScore, ss.Failed); err != nil {
			return err
		}
	}
	for _, a := range sub.Answers {
		if _, err := tx.Exec(`INSERT INTO user_answers (submission_id,subject,question,selected,is_correct)
			VALUES ($1,$2,$3,$4,$5)`, sub.ID, a.Subject, a.Question, a.Selected, a.Correct); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, userID, examID string, t exam.ExamType) (exam.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,exam_id,exam_type,region,gender,exam_number,total_score,final_score,bonus_type,bonus_rate,is_suspicious,suspicion_reasons,duration_sec,created_at
		FROM submissions WHERE user_id=$1 AND exam_id=$2 AND exam_type=$3`, userID, examID, string(t))
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exam.Submission{}, fmt.Errorf("submission for user %q: %w", userID, exam.ErrNotFound)
		}
		return exam.Submission{}, err
	}
	if err := s.loadChildren(ctx, &sub); err != nil {
		return exam.Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, examID string, t exam.ExamType) ([]exam.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,user_id,exam_id,exam_type,region,gender,exam_number,total_score,final_score,bonus_type,bonus_rate,is_suspicious,suspicion_reasons,duration_sec,created_at
		FROM submissions WHERE exam_id=$1 AND exam_type=$2 ORDER BY user_id`, examID, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanSubmission(r rowScanner) (exam.Submission, error) {
	var sub exam.Submission
	var et, bt, reasons string
	if err := r.Scan(&sub.ID, &sub.UserID, &sub.ExamID, &et, &sub.Region, &sub.Gender, &sub.ExamNumber,
		&sub.TotalScore, &sub.FinalScore, &bt, &sub.BonusRate, &sub.Suspicious, &reasons,
		&sub.DurationSec, &sub.CreatedAt); err != nil {
		return exam.Submission{}, err
	}
	sub.ExamType = exam.ExamType(et)
	sub.BonusType = exam.BonusType(bt)
	if err := json.Unmarshal([]byte(reasons), &sub.SuspicionReasons); err != nil {
		sub.SuspicionReasons = nil
	}
	return sub, nil
}

func (s *SQLStore) loadChildren(ctx context.Context, sub *exam.Submission) error {
	rows, err := s.db.QueryContext(ctx, `SELECT subject,raw_score,is_failed
		FROM subject_scores WHERE submission_id=$1 ORDER BY subject`, sub.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var ss exam.SubjectScore
		if err := rows.Scan(&ss.Subject, &ss.RawScore, &ss.Failed); err != nil {
			rows.Close()
			return err
		}
		sub.Subjects = append(sub.Subjects, ss)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT subject,question,selected,is_correct
		FROM user_answers WHERE submission_id=$1 ORDER BY subject,question`, sub.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a exam.UserAnswer
		if err := rows.Scan(&a.Subject, &a.Question, &a.Selected, &a.Correct); err != nil {
			return err
		}
		sub.Answers = append(sub.Answers, a)
	}
	return rows.Err()
}

func (s *SQLStore) Population(ctx context.Context, f PopulationFilter) ([]PopulationEntry, error) {
	q := `SELECT s.id,s.user_id,s.total_score,s.final_score,
			EXISTS (SELECT 1 FROM subject_scores fs WHERE fs.submission_id=s.id AND fs.is_failed) AS failed
		FROM submissions s
		WHERE s.exam_id=$1 AND s.exam_type=$2 AND NOT s.is_suspicious`
	args := []any{f.ExamID, string(f.ExamType)}
	if f.Region != "" {
		q += ` AND s.region=$3`
		args = append(args, f.Region)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PopulationEntry
	ids := []string{}
	for rows.Next() {
		var id string
		var e PopulationEntry
		if err := rows.Scan(&id, &e.UserID, &e.TotalScore, &e.FinalScore, &e.FailedSubject); err != nil {
			return nil, err
		}
		if f.ExcludeFailed && e.FailedSubject {
			continue
		}
		e.Subjects = map[string]float64{}
		out = append(out, e)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		srows, err := s.db.QueryContext(ctx, `SELECT subject,raw_score FROM subject_scores WHERE submission_id=$1`, id)
		if err != nil {
			return nil, err
		}
		for srows.Next() {
			var subj string
			var raw float64
			if err := srows.Scan(&subj, &raw); err != nil {
				srows.Close()
				return nil, err
			}
			out[i].Subjects[subj] = raw
		}
		if err := srows.Err(); err != nil {
			srows.Close()
			return nil, err
		}
		srows.Close()
	}
	return out, nil
}

func (s *SQLStore) FinalScores(ctx context.Context, f PopulationFilter) ([]float64, error) {
	q := `SELECT s.final_score FROM submissions s
		WHERE s.exam_id=$1 AND s.exam_type=$2 AND NOT s.is_suspicious`
	args := []any{f.ExamID, string(f.ExamType)}
	n := 3
	if f.Region != "" {
		q += fmt.Sprintf(` AND s.region=$%d`, n)
		args = append(args, f.Region)
		n++
	}
	if f.ExcludeFailed {
		q += ` AND NOT EXISTS (SELECT 1 FROM subject_scores fs WHERE fs.submission_id=s.id AND fs.is_failed)`
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- RescoreStore ---

func (s *SQLStore) ApplyRescore(ctx context.Context, ev exam.RescoreEvent, details []exam.RescoreDetail, updated []exam.Submission) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO rescore_events (id,exam_id,exam_type,admin_id,reason,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			ev.ID, ev.ExamID, string(ev.ExamType), ev.AdminID, ev.Reason, ev.CreatedAt); err != nil {
			return err
		}
		for _, d := range details {
			if _, err := tx.Exec(`INSERT INTO rescore_details (event_id,submission_id,user_id,old_score,new_score,is_read)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				ev.ID, d.SubmissionID, d.UserID, d.OldScore, d.NewScore, false); err != nil {
				return err
			}
		}
		for _, sub := range updated {
			reasons, err := json.Marshal(sub.SuspicionReasons)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`UPDATE submissions SET total_score=$1,final_score=$2,is_suspicious=$3,suspicion_reasons=$4 WHERE id=$5`,
				sub.TotalScore, sub.FinalScore, sub.Suspicious, string(reasons), sub.ID); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM subject_scores WHERE submission_id=$1`, sub.ID); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM user_answers WHERE submission_id=$1`, sub.ID); err != nil {
				return err
			}
			if err := insertChildren(tx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) ListRescoreDetails(ctx context.Context, userID string) ([]exam.RescoreDetail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_id,submission_id,user_id,old_score,new_score,is_read
		FROM rescore_details WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.RescoreDetail
	for rows.Next() {
		var d exam.RescoreDetail
		if err := rows.Scan(&d.EventID, &d.SubmissionID, &d.UserID, &d.OldScore, &d.NewScore, &d.Read); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkRescoreRead(ctx context.Context, userID, eventID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rescore_details SET is_read=$1 WHERE user_id=$2 AND event_id=$3`,
		true, userID, eventID)
	return err
}

// --- ReleaseStore ---

func (s *SQLStore) ReleaseExists(ctx context.Context, examID string, number int) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM pass_cut_releases WHERE exam_id=$1 AND release_number=$2`,
		examID, number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) CreateRelease(ctx context.Context, rel exam.PassCutRelease, snaps []exam.PassCutSnapshot) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO pass_cut_releases (id,exam_id,release_number,participant_count,created_by,memo,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			rel.ID, rel.ExamID, rel.ReleaseNumber, rel.ParticipantCount, rel.CreatedBy, rel.Memo, rel.CreatedAt); err != nil {
			return err
		}
		for _, sn := range snaps {
			if _, err := tx.Exec(`INSERT INTO pass_cut_snapshots
				(release_id,region,exam_type,participant_count,recruit_count,applicant_count,coverage_rate,stability_score,status,one_multiple_cut_score,sure_score,likely_score,possible_score)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
				rel.ID, sn.Region, string(sn.ExamType), sn.ParticipantCount, sn.RecruitCount, sn.ApplicantCount,
				sn.CoverageRate, sn.StabilityScore, string(sn.Status),
				sn.OneMultipleCutScore, sn.SureScore, sn.LikelyScore, sn.PossibleScore); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return exam.Conflictf("release %d already exists for exam %q", rel.ReleaseNumber, rel.ExamID)
	}
	return err
}

func (s *SQLStore) ListReleases(ctx context.Context, examID string) ([]exam.PassCutRelease, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,release_number,participant_count,created_by,memo,created_at
		FROM pass_cut_releases WHERE exam_id=$1 ORDER BY release_number`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.PassCutRelease
	for rows.Next() {
		var r exam.PassCutRelease
		if err := rows.Scan(&r.ID, &r.ExamID, &r.ReleaseNumber, &r.ParticipantCount, &r.CreatedBy, &r.Memo, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Snapshots(ctx context.Context, releaseID string) ([]exam.PassCutSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT release_id,region,exam_type,participant_count,recruit_count,applicant_count,coverage_rate,stability_score,status,one_multiple_cut_score,sure_score,likely_score,possible_score
		FROM pass_cut_snapshots WHERE release_id=$1 ORDER BY region,exam_type`, releaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []exam.PassCutSnapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *SQLStore) LatestSnapshot(ctx context.Context, examID, region string, t exam.ExamType) (exam.PassCutSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT sn.release_id,sn.region,sn.exam_type,sn.participant_count,sn.recruit_count,sn.applicant_count,sn.coverage_rate,sn.stability_score,sn.status,sn.one_multiple_cut_score,sn.sure_score,sn.likely_score,sn.possible_score
		FROM pass_cut_snapshots sn
		JOIN pass_cut_releases r ON r.id=sn.release_id
		WHERE r.exam_id=$1 AND sn.region=$2 AND sn.exam_type=$3
		ORDER BY r.release_number DESC LIMIT 1`, examID, region, string(t))
	sn, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return exam.PassCutSnapshot{}, fmt.Errorf("snapshot for region %q: %w", region, exam.ErrNotFound)
	}
	return sn, err
}

func scanSnapshot(r rowScanner) (exam.PassCutSnapshot, error) {
	var sn exam.PassCutSnapshot
	var et, status string
	var one, sure, likely, possible sql.NullFloat64
	if err := r.Scan(&sn.ReleaseID, &sn.Region, &et, &sn.ParticipantCount, &sn.RecruitCount, &sn.ApplicantCount,
		&sn.CoverageRate, &sn.StabilityScore, &status, &one, &sure, &likely, &possible); err != nil {
		return exam.PassCutSnapshot{}, err
	}
	sn.ExamType = exam.ExamType(et)
	sn.Status = exam.SnapshotStatus(status)
	sn.OneMultipleCutScore = nullable(one)
	sn.SureScore = nullable(sure)
	sn.LikelyScore = nullable(likely)
	sn.PossibleScore = nullable(possible)
	return sn, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
