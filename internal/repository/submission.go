package repository

import (
	"context"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/database"
	"github.com/deppfellow/portfolio-backend/internal/model"
)

const (
	insertSubmissionSQL = `INSERT INTO contact_logs (name, email, mobile, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp`

	listSubmissionsSQL = `SELECT id, name, email, mobile, message, timestamp
		FROM contact_logs
		ORDER BY timestamp DESC, id DESC`
)

// SubmissionRepository stores contact submissions in contact_logs.
type SubmissionRepository struct {
	db *database.Database
}

func NewSubmissionRepository(db *database.Database) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Insert writes one row and returns it with the id and timestamp assigned
// by the database. A blank mobile is stored as NULL.
//
// Failures wrap ErrConnection or ErrInsert.
func (r *SubmissionRepository) Insert(ctx context.Context, in model.NewSubmission) (*model.Submission, error) {
	out := &model.Submission{
		Name:    in.Name,
		Email:   in.Email,
		Mobile:  normalizeMobile(in.Mobile),
		Message: in.Message,
	}

	err := r.db.WithConn(ctx, func(q database.Querier) error {
		return q.QueryRow(ctx, insertSubmissionSQL,
			out.Name, out.Email, out.Mobile, out.Message,
		).Scan(&out.ID, &out.Timestamp)
	})
	if err != nil {
		return nil, classify(err, ErrInsert)
	}
	return out, nil
}

// List returns every submission, newest first. It never returns a nil
// slice on success.
//
// Failures wrap ErrConnection or ErrQuery.
func (r *SubmissionRepository) List(ctx context.Context) ([]model.Submission, error) {
	submissions := make([]model.Submission, 0)

	err := r.db.WithConn(ctx, func(q database.Querier) error {
		rows, err := q.Query(ctx, listSubmissionsSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s model.Submission
			if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Mobile, &s.Message, &s.Timestamp); err != nil {
				return err
			}
			submissions = append(submissions, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, ErrQuery)
	}
	return submissions, nil
}

func normalizeMobile(mobile *string) *string {
	if mobile == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*mobile)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
