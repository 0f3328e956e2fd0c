package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/startupscout/scout/internal/core/domain"
)

// DecisionRepository reads the decisions corpus through the three
// retrieval paths. Every query runs inside a transaction with a local
// statement timeout so a stalled source aborts on its own without
// failing the whole request.
type DecisionRepository struct {
	db               *sql.DB
	statementTimeout time.Duration
	tsLang           string

	bm25Mu        sync.Mutex
	bm25Checked   bool
	bm25Available bool
}

type Options struct {
	StatementTimeout time.Duration
	TextSearchLang   string
}

func NewDecisionRepository(db *sql.DB, options Options) *DecisionRepository {
	if options.StatementTimeout <= 0 {
		options.StatementTimeout = 3 * time.Second
	}
	if options.TextSearchLang == "" {
		options.TextSearchLang = "english"
	}
	return &DecisionRepository{
		db:               db,
		statementTimeout: options.StatementTimeout,
		tsLang:           options.TextSearchLang,
	}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DecisionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	decision TEXT,
	summary TEXT,
	content TEXT,
	comments JSONB NOT NULL DEFAULT '[]'::jsonb,
	tags TEXT,
	stage TEXT,
	source TEXT,
	url TEXT,
	embedding vector(1536),
	fetched_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_decisions_fetched_at ON decisions(fetched_at DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_decisions_embedding ON decisions USING hnsw (embedding vector_cosine_ops);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DecisionRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "ping", err)
	}
	return nil
}

// Retrieve orders decisions by vector distance against the query
// embedding, reporting similarity as 1 - cosine distance. Rows without
// an embedding never participate.
func (r *DecisionRepository) Retrieve(ctx context.Context, embedding []float32, fetchK int) ([]domain.RetrievedDecision, error) {
	vec := pgvector.NewVector(embedding)
	const query = `
SELECT id, title, decision, summary, content, comments, tags, stage, source, url,
	1 - (embedding <=> $1) AS similarity, fetched_at
FROM decisions
WHERE embedding IS NOT NULL
ORDER BY embedding <-> $2
LIMIT $3
`
	return r.queryDecisions(ctx, "vector search", query, false, vec, vec, fetchK)
}

// SearchLexical ranks decisions by full-text relevance over the
// title/decision/content fields, preferring the bm25 ranking function
// when the pg_bm25 extension is installed.
func (r *DecisionRepository) SearchLexical(ctx context.Context, question string, fetchK int) ([]domain.RetrievedDecision, error) {
	rankFn := "ts_rank"
	if r.hasBM25(ctx) {
		rankFn = "bm25"
	}

	tsv := fmt.Sprintf(
		"to_tsvector('%s', coalesce(title,'') || ' ' || coalesce(decision,'') || ' ' || coalesce(content,''))",
		r.tsLang,
	)
	tsq := fmt.Sprintf("websearch_to_tsquery('%s', $1)", r.tsLang)

	query := fmt.Sprintf(`
SELECT id, title, decision, summary, content, comments, tags, stage, source, url,
	0.0 AS similarity, fetched_at,
	%s(%s, %s) AS lexical_score
FROM decisions
WHERE %s @@ %s
ORDER BY lexical_score DESC
LIMIT $2
`, rankFn, tsv, tsq, tsv, tsq)

	return r.queryDecisions(ctx, "lexical search", query, true, question, fetchK)
}

// SearchSubstring returns decisions whose title, decision, or content
// contain any pattern, most recently fetched first.
func (r *DecisionRepository) SearchSubstring(ctx context.Context, patterns []string, fetchK int) ([]domain.RetrievedDecision, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	const query = `
SELECT id, title, decision, summary, content, comments, tags, stage, source, url,
	0.0 AS similarity, fetched_at
FROM decisions
WHERE title ILIKE ANY($1) OR decision ILIKE ANY($1) OR content ILIKE ANY($1)
ORDER BY fetched_at DESC NULLS LAST
LIMIT $2
`
	return r.queryDecisions(ctx, "substring search", query, false, patterns, fetchK)
}

func (r *DecisionRepository) queryDecisions(
	ctx context.Context,
	operation, query string,
	withLexicalScore bool,
	args ...any,
) ([]domain.RetrievedDecision, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", operation, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	timeout := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", r.statementTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, timeout); err != nil {
		return nil, fmt.Errorf("%s: set statement timeout: %w", operation, err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	out := make([]domain.RetrievedDecision, 0, 16)
	for rows.Next() {
		d, scanErr := scanDecision(rows, withLexicalScore)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan: %w", operation, scanErr)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", operation, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", operation, err)
	}
	return out, nil
}

func scanDecision(rows *sql.Rows, withLexicalScore bool) (domain.RetrievedDecision, error) {
	var (
		d           domain.RetrievedDecision
		decision    sql.NullString
		summary     sql.NullString
		content     sql.NullString
		commentsRaw []byte
		tags        sql.NullString
		stage       sql.NullString
		source      sql.NullString
		url         sql.NullString
		fetchedAt   sql.NullTime
	)

	dest := []any{
		&d.ID, &d.Title, &decision, &summary, &content, &commentsRaw,
		&tags, &stage, &source, &url, &d.Similarity, &fetchedAt,
	}
	if withLexicalScore {
		dest = append(dest, &d.LexicalScore)
	}
	if err := rows.Scan(dest...); err != nil {
		return domain.RetrievedDecision{}, err
	}

	d.Decision.Decision = decision.String
	d.Summary = summary.String
	d.Content = content.String
	d.Tags = tags.String
	d.Stage = stage.String
	d.Source = source.String
	d.URL = url.String
	if fetchedAt.Valid {
		d.FetchedAt = fetchedAt.Time
	}
	if len(commentsRaw) > 0 {
		// Malformed comment payloads are a data-quality issue, not a
		// retrieval failure; the row stays usable without them.
		_ = json.Unmarshal(commentsRaw, &d.Comments)
	}
	return d, nil
}

// hasBM25 probes for the pg_bm25 extension once, but only a successful
// probe is remembered. A failed probe (cancelled context, transient
// connection loss) answers false for this call and retries next time.
func (r *DecisionRepository) hasBM25(ctx context.Context) bool {
	r.bm25Mu.Lock()
	defer r.bm25Mu.Unlock()

	if r.bm25Checked {
		return r.bm25Available
	}

	var available bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_bm25')`,
	).Scan(&available)
	if err != nil {
		return false
	}
	r.bm25Checked = true
	r.bm25Available = available
	return available
}
