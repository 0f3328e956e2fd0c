package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/startupscout/scout/internal/core/domain"
)

// passthroughConverter lets slice arguments (ILIKE ANY patterns) reach
// the mock the way the pgx driver would accept them.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		return valuer.Value()
	}
	return v, nil
}

func newMockRepo(t *testing.T) (*DecisionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDecisionRepository(db, Options{StatementTimeout: 2 * time.Second}), mock
}

func decisionColumns(withLexical bool) []string {
	cols := []string{
		"id", "title", "decision", "summary", "content", "comments",
		"tags", "stage", "source", "url", "similarity", "fetched_at",
	}
	if withLexical {
		cols = append(cols, "lexical_score")
	}
	return cols
}

func TestRetrieveScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	fetched := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(decisionColumns(false)).
		AddRow("d1", "Pivot to usage pricing", "Moved off seats.", "Revenue grew.", "Long form.",
			[]byte(`["great call","worked for us"]`), "pricing,saas", "seed", "blog",
			"https://example.com/d1", 0.87, fetched).
		AddRow("d2", "Hired a fractional CFO", nil, nil, nil,
			[]byte(`[]`), nil, nil, nil, nil, 0.61, nil)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, title").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 10).
		WillReturnRows(rows)
	mock.ExpectCommit()

	out, err := repo.Retrieve(context.Background(), []float32{0.1, 0.2}, 10)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}

	first := out[0]
	if first.ID != "d1" || first.Similarity != 0.87 {
		t.Fatalf("unexpected first row %+v", first)
	}
	if len(first.Comments) != 2 || first.Comments[0] != "great call" {
		t.Fatalf("comments not decoded: %v", first.Comments)
	}
	if !first.FetchedAt.Equal(fetched) {
		t.Fatalf("fetched_at = %v", first.FetchedAt)
	}

	second := out[1]
	if second.Decision.Decision != "" || second.Tags != "" || !second.FetchedAt.IsZero() {
		t.Fatalf("null columns should stay zero-valued: %+v", second)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRetrieveQueryFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, title").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Retrieve(context.Background(), []float32{0.1}, 5)
	if err == nil {
		t.Fatal("expected error from failing query")
	}
}

func TestSearchLexicalUsesTsRankWithoutBM25(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	rows := sqlmock.NewRows(decisionColumns(true)).
		AddRow("d1", "Churn playbook", "Annual plans.", nil, nil,
			[]byte(`[]`), nil, nil, nil, nil, 0.0, nil, 0.42)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("ts_rank").
		WithArgs("reduce churn", 8).
		WillReturnRows(rows)
	mock.ExpectCommit()

	out, err := repo.SearchLexical(context.Background(), "reduce churn", 8)
	if err != nil {
		t.Fatalf("lexical search: %v", err)
	}
	if len(out) != 1 || out[0].LexicalScore != 0.42 {
		t.Fatalf("unexpected result %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchLexicalPrefersBM25WhenInstalled(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("bm25").
		WithArgs("growth", 5).
		WillReturnRows(sqlmock.NewRows(decisionColumns(true)))
	mock.ExpectCommit()

	if _, err := repo.SearchLexical(context.Background(), "growth", 5); err != nil {
		t.Fatalf("lexical search: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchLexicalRetriesBM25ProbeAfterFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	// failed probe answers ts_rank for this call only
	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("canceled"))
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("ts_rank").
		WithArgs("growth", 5).
		WillReturnRows(sqlmock.NewRows(decisionColumns(true)))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("bm25").
		WithArgs("growth", 5).
		WillReturnRows(sqlmock.NewRows(decisionColumns(true)))
	mock.ExpectCommit()

	if _, err := repo.SearchLexical(context.Background(), "growth", 5); err != nil {
		t.Fatalf("first lexical search: %v", err)
	}
	if _, err := repo.SearchLexical(context.Background(), "growth", 5); err != nil {
		t.Fatalf("second lexical search: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchSubstringNoPatternsSkipsQuery(t *testing.T) {
	repo, mock := newMockRepo(t)

	out, err := repo.SearchSubstring(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("substring search: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result for no patterns, got %v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db activity: %v", err)
	}
}

func TestSearchSubstringQueriesWithPatterns(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(decisionColumns(false)).
		AddRow("d9", "Freemium experiment", "Capped free tier.", nil, nil,
			[]byte(`[]`), nil, nil, nil, nil, 0.0, nil)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("ILIKE ANY").
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(rows)
	mock.ExpectCommit()

	out, err := repo.SearchSubstring(context.Background(), []string{"%freemium%"}, 5)
	if err != nil {
		t.Fatalf("substring search: %v", err)
	}
	if len(out) != 1 || out[0].ID != "d9" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestPingWrapsStoreUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewDecisionRepository(db, Options{})
	mock.ExpectPing().WillReturnError(errors.New("refused"))

	pingErr := repo.Ping(context.Background())
	if !domain.IsKind(pingErr, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", pingErr)
	}
}

func TestScanSurvivesMalformedComments(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(decisionColumns(false)).
		AddRow("d1", "Title", nil, nil, nil,
			[]byte(`{not json`), nil, nil, nil, nil, 0.5, nil)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, title").WillReturnRows(rows)
	mock.ExpectCommit()

	out, err := repo.Retrieve(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(out) != 1 || out[0].Comments != nil {
		t.Fatalf("malformed comments should scan as empty, got %+v", out)
	}
}
