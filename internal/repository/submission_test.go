package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/database"
	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scanFn(dest...) }

type fakeRows struct {
	data []model.Submission
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	s := r.data[r.pos-1]
	*dest[0].(*int64) = s.ID
	*dest[1].(*string) = s.Name
	*dest[2].(*string) = s.Email
	*dest[3].(**string) = s.Mobile
	*dest[4].(*string) = s.Message
	*dest[5].(*time.Time) = s.Timestamp
	return nil
}

type fakeQuerier struct {
	queryRowFn func(sql string, args ...any) pgx.Row
	queryFn    func(sql string, args ...any) (pgx.Rows, error)
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	return f.queryFn(sql, args...)
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFn(sql, args...)
}

func newRepo(q database.Querier, reject bool) (*SubmissionRepository, *database.Database) {
	db := database.NewWithQuerier(q, database.Options{MaxConns: 1, RejectWhenBusy: reject}, nil)
	return NewSubmissionRepository(db), db
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Insert
// ---------------------------------------------------------------------------

func TestInsert_ReturnsAssignedFields(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var gotArgs []any
	q := &fakeQuerier{queryRowFn: func(sql string, args ...any) pgx.Row {
		assert.Contains(t, sql, "INSERT INTO contact_logs")
		gotArgs = args
		return fakeRow{scanFn: func(dest ...any) error {
			*dest[0].(*int64) = 42
			*dest[1].(*time.Time) = created
			return nil
		}}
	}}
	repo, _ := newRepo(q, false)

	got, err := repo.Insert(context.Background(), model.NewSubmission{
		Name: "Ada", Email: "ada@example.com", Mobile: strPtr(" 555-0100 "), Message: "Hello",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, created, got.Timestamp)
	require.NotNil(t, got.Mobile)
	assert.Equal(t, "555-0100", *got.Mobile)
	require.Len(t, gotArgs, 4)
	assert.Equal(t, "Ada", gotArgs[0])
}

func TestInsert_BlankMobileIsNull(t *testing.T) {
	var mobileArg any = "unset"
	q := &fakeQuerier{queryRowFn: func(_ string, args ...any) pgx.Row {
		mobileArg = args[2]
		return fakeRow{scanFn: func(...any) error { return nil }}
	}}
	repo, _ := newRepo(q, false)

	_, err := repo.Insert(context.Background(), model.NewSubmission{
		Name: "Ada", Email: "ada@example.com", Mobile: strPtr("   "), Message: "Hello",
	})

	require.NoError(t, err)
	assert.Nil(t, mobileArg)
}

func TestInsert_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantIs error
	}{
		{"server went away", &pgconn.PgError{Code: "57P01"}, ErrConnection},
		{"cancelled", context.Canceled, ErrConnection},
		{"constraint", &pgconn.PgError{Code: "23502"}, ErrInsert},
		{"anything else", errors.New("syntax error"), ErrInsert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{queryRowFn: func(string, ...any) pgx.Row {
				return fakeRow{scanFn: func(...any) error { return tt.err }}
			}}
			repo, _ := newRepo(q, false)

			_, err := repo.Insert(context.Background(), model.NewSubmission{Name: "a", Email: "b", Message: "c"})

			assert.ErrorIs(t, err, tt.wantIs)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestInsert_GateRejectionIsConnectionError(t *testing.T) {
	q := &fakeQuerier{queryRowFn: func(string, ...any) pgx.Row {
		t.Fatal("statement must not run when the gate rejects")
		return nil
	}}
	repo, db := newRepo(q, true)

	err := db.WithConn(context.Background(), func(database.Querier) error {
		_, err := repo.Insert(context.Background(), model.NewSubmission{Name: "a", Email: "b", Message: "c"})
		return err
	})

	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, database.ErrPoolBusy)
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestList_ReturnsRowsInQueryOrder(t *testing.T) {
	newer := model.Submission{ID: 2, Name: "B", Email: "b@x", Message: "m2", Timestamp: time.Unix(200, 0)}
	older := model.Submission{ID: 1, Name: "A", Email: "a@x", Mobile: strPtr("1"), Message: "m1", Timestamp: time.Unix(100, 0)}
	q := &fakeQuerier{queryFn: func(sql string, _ ...any) (pgx.Rows, error) {
		assert.Contains(t, sql, "ORDER BY timestamp DESC")
		return &fakeRows{data: []model.Submission{newer, older}}, nil
	}}
	repo, _ := newRepo(q, false)

	got, err := repo.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Submission{newer, older}, got)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	q := &fakeQuerier{queryFn: func(string, ...any) (pgx.Rows, error) {
		return &fakeRows{}, nil
	}}
	repo, _ := newRepo(q, false)

	got, err := repo.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_RowsErrIsQueryError(t *testing.T) {
	q := &fakeQuerier{queryFn: func(string, ...any) (pgx.Rows, error) {
		return &fakeRows{err: errors.New("decode failed")}, nil
	}}
	repo, _ := newRepo(q, false)

	_, err := repo.List(context.Background())

	assert.ErrorIs(t, err, ErrQuery)
}
