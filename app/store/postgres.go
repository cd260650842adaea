package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// OpenPostgres connects to the database by the given DSN and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

const storiesTable = "distinguished_alumni"

var storyColumns = []string{
	"slug", "name", "role", "headline", "summary", "image",
	"tags", "stats", "achievements", "story", "quote", "quote_by",
}

// Postgres is a source that selects stories from the distinguished_alumni table.
type Postgres struct {
	db   *sqlx.DB
	norm Normalizer
}

// NewPostgres makes a new Postgres source over the given connection.
func NewPostgres(db *sqlx.DB, norm Normalizer) *Postgres {
	return &Postgres{db: db, norm: norm}
}

// Get returns the story by its slug.
func (p *Postgres) Get(ctx context.Context, key string) (Record, error) {
	key = Slugify(key)
	if key == "" {
		return Record{}, ErrNotFound
	}

	query, args := newSelect(storiesTable, storyColumns...).
		Where("slug = ?", key).
		Limit(1).
		Build()

	var row storyRow
	if err := p.db.GetContext(ctx, &row, p.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookup(ctx, p.List, key)
		}
		return Record{}, &FetchError{Source: "postgres", Err: fmt.Errorf("select story: %w", err)}
	}

	rec := p.norm.Normalize(row.raw())
	if rec.Key == "" {
		rec.Key = key
	}

	return rec, nil
}

// List returns stories ordered by name. The cap is applied after
// normalization, as rows without a key and duplicates are dropped there.
func (p *Postgres) List(ctx context.Context, req ListRequest) ([]Record, error) {
	q := newSelect(storiesTable, storyColumns...).OrderBy("name")
	if exclude := Slugify(req.ExcludeKey); exclude != "" {
		q = q.Where("slug IS DISTINCT FROM ?", exclude)
	}
	query, args := q.Build()

	var rows []storyRow
	if err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...); err != nil {
		return nil, &FetchError{Source: "postgres", Err: fmt.Errorf("select stories: %w", err)}
	}

	raws := make([]RawRecord, 0, len(rows))
	for _, row := range rows {
		raws = append(raws, row.raw())
	}

	return req.apply(p.norm.normalizeAll(raws)), nil
}

// storyRow is a row of the distinguished_alumni table, JSONB columns are
// scanned as is and decoded by the normalizer.
type storyRow struct {
	Slug         sql.NullString `db:"slug"`
	Name         sql.NullString `db:"name"`
	Role         sql.NullString `db:"role"`
	Headline     sql.NullString `db:"headline"`
	Summary      sql.NullString `db:"summary"`
	Image        sql.NullString `db:"image"`
	Tags         []byte         `db:"tags"`
	Stats        []byte         `db:"stats"`
	Achievements []byte         `db:"achievements"`
	Story        []byte         `db:"story"`
	Quote        sql.NullString `db:"quote"`
	QuoteBy      sql.NullString `db:"quote_by"`
}

func (r storyRow) raw() RawRecord {
	return RawRecord{
		Key:        Text(r.Slug.String),
		Title:      Text(r.Name.String),
		Role:       Text(r.Role.String),
		Headline:   Text(r.Headline.String),
		Summary:    Text(r.Summary.String),
		Media:      Text(r.Image.String),
		Tags:       json.RawMessage(r.Tags),
		Metrics:    json.RawMessage(r.Stats),
		Highlights: json.RawMessage(r.Achievements),
		Paragraphs: json.RawMessage(r.Story),
		Quote:      Text(r.Quote.String),
		QuoteBy:    Text(r.QuoteBy.String),
	}
}

// selectQuery builds a filtered select with "?" placeholders.
type selectQuery struct {
	table   string
	columns []string
	where   []string
	args    []any
	orderBy string
	limit   int
}

func newSelect(table string, columns ...string) *selectQuery {
	return &selectQuery{table: table, columns: columns}
}

// Where adds a condition, joined with the previous ones by AND.
func (q *selectQuery) Where(cond string, args ...any) *selectQuery {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
	return q
}

// OrderBy sets the ordering expression.
func (q *selectQuery) OrderBy(expr string) *selectQuery {
	q.orderBy = expr
	return q
}

// Limit caps the amount of selected rows.
func (q *selectQuery) Limit(n int) *selectQuery {
	q.limit = n
	return q
}

// Build returns the query and its arguments.
func (q *selectQuery) Build() (query string, args []any) {
	sb := &strings.Builder{}
	_, _ = fmt.Fprintf(sb, "SELECT %s FROM %s", strings.Join(q.columns, ", "), q.table)

	args = append(args, q.args...)

	if len(q.where) > 0 {
		_, _ = sb.WriteString(" WHERE " + strings.Join(q.where, " AND "))
	}

	if q.orderBy != "" {
		_, _ = sb.WriteString(" ORDER BY " + q.orderBy)
	}

	if q.limit > 0 {
		_, _ = sb.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}

	return sb.String(), args
}
