// Package newsletter lists alumni newsletter issues from the database.
package newsletter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Defaults for the fields that may be empty in the table.
const (
	DefaultTitle = "Alumni Newsletter"
	DefaultCover = "/assets/img/banner/newsletter.jpg"
	DefaultPDF   = "#"
	Summary      = "Stay connected with the latest updates, stories, and news from the UOL alumni community."
)

// Categories are the same for every issue.
var Categories = []string{"Alumni", "News"}

// Newsletter is a single issue, as the website expects it.
type Newsletter struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Issue       string   `json:"issue"`
	ReleaseDate string   `json:"releaseDate"`
	Summary     string   `json:"summary"`
	Cover       string   `json:"cover"`
	PDF         string   `json:"pdf"`
	Year        int      `json:"year"`
	Categories  []string `json:"categories"`
}

// Repository selects newsletters from public.newsletters.
type Repository struct {
	db *sqlx.DB
}

// NewRepository makes a new Repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const listQuery = `SELECT id, title, date, image, link, created_at
	FROM public.newsletters
	ORDER BY date DESC NULLS LAST, created_at DESC`

// List returns all issues, newest first.
func (r *Repository) List(ctx context.Context) ([]Newsletter, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, listQuery); err != nil {
		return nil, fmt.Errorf("select newsletters: %w", err)
	}

	res := make([]Newsletter, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.newsletter())
	}

	return res, nil
}

type row struct {
	ID        string         `db:"id"`
	Title     sql.NullString `db:"title"`
	Date      sql.NullTime   `db:"date"`
	Image     sql.NullString `db:"image"`
	Link      sql.NullString `db:"link"`
	CreatedAt time.Time      `db:"created_at"`
}

// newsletter transforms the row, issue dates are taken in UTC.
func (r row) newsletter() Newsletter {
	date := r.CreatedAt
	if r.Date.Valid {
		date = r.Date.Time
	}
	date = date.UTC()

	n := Newsletter{
		ID:          r.ID,
		Title:       DefaultTitle,
		Issue:       fmt.Sprintf("%s %d", date.Month(), date.Year()),
		ReleaseDate: date.Format(time.DateOnly),
		Summary:     Summary,
		Cover:       DefaultCover,
		PDF:         DefaultPDF,
		Year:        date.Year(),
		Categories:  append([]string(nil), Categories...),
	}

	if r.Title.String != "" {
		n.Title = r.Title.String
	}
	if r.Image.String != "" {
		n.Cover = r.Image.String
	}
	if r.Link.String != "" {
		n.PDF = r.Link.String
	}

	return n
}
