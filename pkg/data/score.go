package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mchmarny/devscore/pkg/score"
)

const (
	scoreColumns = `id, github, leetcode, hackerrank, score, label, metrics, breakdown, ai_review, extra, created_at`

	insertScoreSQL = `INSERT INTO scores (` + scoreColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectLatestScoreSQL = `SELECT ` + scoreColumns + ` FROM scores
		WHERE github = ? AND leetcode = ? AND hackerrank = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1`

	selectScoresByGitHubSQL = `SELECT ` + scoreColumns + ` FROM scores
		WHERE github = ?
		ORDER BY created_at DESC
		LIMIT ?`

	selectScoresSQL = `SELECT ` + scoreColumns + ` FROM scores
		ORDER BY created_at DESC
		LIMIT ?`

	countScoresSQL = `SELECT COUNT(*) FROM scores`

	DefaultListLimit = 20
)

// ScoreRecord is one stored scoring of a username triple.
type ScoreRecord struct {
	ID         string               `json:"id" yaml:"id"`
	GitHub     string               `json:"github" yaml:"github"`
	LeetCode   string               `json:"leetcode" yaml:"leetcode"`
	HackerRank string               `json:"hackerrank" yaml:"hackerrank"`
	Score      float64              `json:"score" yaml:"score"`
	Label      score.Label          `json:"label" yaml:"label"`
	Metrics    score.ProfileMetrics `json:"details" yaml:"details"`
	Breakdown  score.Breakdown      `json:"breakdown" yaml:"breakdown"`
	AIReview   string               `json:"ai_review,omitempty" yaml:"aiReview,omitempty"`
	Extra      map[string]any       `json:"extra,omitempty" yaml:"extra,omitempty"`
	CreatedAt  time.Time            `json:"created_at" yaml:"createdAt"`
}

// scoreRow is the column layout of the scores table.
type scoreRow struct {
	ID         string         `db:"id"`
	GitHub     string         `db:"github"`
	LeetCode   string         `db:"leetcode"`
	HackerRank string         `db:"hackerrank"`
	Score      float64        `db:"score"`
	Label      string         `db:"label"`
	Metrics    string         `db:"metrics"`
	Breakdown  string         `db:"breakdown"`
	AIReview   sql.NullString `db:"ai_review"`
	Extra      sql.NullString `db:"extra"`
	CreatedAt  string         `db:"created_at"`
}

func (r *scoreRow) toRecord() (*ScoreRecord, error) {
	rec := &ScoreRecord{
		ID:         r.ID,
		GitHub:     r.GitHub,
		LeetCode:   r.LeetCode,
		HackerRank: r.HackerRank,
		Score:      r.Score,
		AIReview:   r.AIReview.String,
	}

	l, err := score.ParseLabel(r.Label)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}
	rec.Label = l

	if err := json.Unmarshal([]byte(r.Metrics), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("decoding metrics of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Breakdown), &rec.Breakdown); err != nil {
		return nil, fmt.Errorf("decoding breakdown of %s: %w", r.ID, err)
	}
	if r.Extra.Valid && r.Extra.String != "" {
		if err := json.Unmarshal([]byte(r.Extra.String), &rec.Extra); err != nil {
			return nil, fmt.Errorf("decoding extra of %s: %w", r.ID, err)
		}
	}

	t, err := time.Parse(timeFormat, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", r.ID, err)
	}
	rec.CreatedAt = t

	return rec, nil
}

// SaveScore stores the record. A missing ID or creation time is filled in.
func (s *Store) SaveScore(ctx context.Context, rec *ScoreRecord) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}
	if rec == nil {
		return errors.New("score record required")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("encoding breakdown: %w", err)
	}

	var extra sql.NullString
	if len(rec.Extra) > 0 {
		b, err := json.Marshal(rec.Extra)
		if err != nil {
			return fmt.Errorf("encoding extra: %w", err)
		}
		extra = sql.NullString{String: string(b), Valid: true}
	}

	review := sql.NullString{String: rec.AIReview, Valid: rec.AIReview != ""}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(insertScoreSQL),
		rec.ID, rec.GitHub, rec.LeetCode, rec.HackerRank, rec.Score, string(rec.Label),
		string(metrics), string(breakdown), review, extra, rec.CreatedAt.Format(timeFormat),
	); err != nil {
		return fmt.Errorf("inserting score %s: %w", rec.ID, err)
	}

	return nil
}

// GetLatestScore returns the newest record for the username triple created
// at or after since, or ErrNotFound.
func (s *Store) GetLatestScore(ctx context.Context, github, leetcode, hackerrank string, since time.Time) (*ScoreRecord, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	var row scoreRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectLatestScoreSQL),
		github, leetcode, hackerrank, since.UTC().Format(timeFormat))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying latest score: %w", err)
	}

	return row.toRecord()
}

// ListScores returns the newest records, for one GitHub user when github is
// not empty. A non-positive limit uses DefaultListLimit.
func (s *Store) ListScores(ctx context.Context, github string, limit int) ([]*ScoreRecord, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows []scoreRow
		err  error
	)
	if github == "" {
		err = s.db.SelectContext(ctx, &rows, s.db.Rebind(selectScoresSQL), limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, s.db.Rebind(selectScoresByGitHubSQL), github, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}

	list := make([]*ScoreRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, nil
}

// CountScores returns the number of stored records.
func (s *Store) CountScores(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errDBNotInitialized
	}
	var n int
	if err := s.db.GetContext(ctx, &n, countScoresSQL); err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return n, nil
}
