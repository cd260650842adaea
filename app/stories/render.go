package stories

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/Semior001/alumni/app/store"
	"github.com/samber/lo"
)

//go:embed templates/*.html
var templates embed.FS

const (
	// MoreLimit is the amount of teasers shown aside of a story.
	MoreLimit = 2
	// DefaultPageTitle is the title of pages without a story.
	DefaultPageTitle = "Distinguished Alumni Stories"
)

// Renderer makes markup for the views. All record fields are escaped,
// the only exception is line breaks in role, headline and summary, which
// are replaced with spaces.
type Renderer struct {
	tmpl    *template.Template
	loading template.HTML

	// DetailURL is the page that shows a single story, the key goes to the "slug" parameter.
	DetailURL string
	// IndexURL is the page with all stories.
	IndexURL string
}

// NewRenderer parses the templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{DetailURL: "/stories/detail.html", IndexURL: "/stories/"}

	tmpl, err := template.New("stories").Funcs(template.FuncMap{
		"plain":     plain,
		"firstName": firstName,
		"storyURL":  r.storyURL,
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.tmpl = tmpl

	if r.loading, err = r.render("loading", nil); err != nil {
		return nil, fmt.Errorf("render loader: %w", err)
	}

	return r, nil
}

// Listing renders the intro and cards of all stories.
func (r *Renderer) Listing(recs []store.Record) (template.HTML, error) {
	return r.render("listing", recs)
}

// Detail renders the story with up to MoreLimit teasers of the others.
func (r *Renderer) Detail(rec store.Record, others []store.Record) (template.HTML, error) {
	more := lo.Filter(others, func(o store.Record, _ int) bool { return o.Key != "" && o.Key != rec.Key })
	if len(more) > MoreLimit {
		more = more[:MoreLimit]
	}

	return r.render("detail", struct {
		Story store.Record
		More  []store.Record
	}{Story: rec, More: more})
}

// NotFound renders the not-found message and cards of the other stories.
func (r *Renderer) NotFound(others []store.Record) (template.HTML, error) {
	return r.render("notfound", struct {
		Back   string
		Others []store.Record
	}{Back: r.IndexURL, Others: others})
}

// Loading returns the loader markup.
func (r *Renderer) Loading() template.HTML { return r.loading }

// Error renders the error with the given user-facing message.
func (r *Renderer) Error(message string) template.HTML {
	html, err := r.render("error", message)
	if err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(message) + "</p>") //nolint:gosec // escaped
	}
	return html
}

// Page renders the whole document around the region's content.
func (r *Renderer) Page(state State, content template.HTML, meta Meta) (template.HTML, error) {
	if meta.Title == "" {
		meta.Title = DefaultPageTitle
		meta.OGTitle = DefaultPageTitle
		meta.Breadcrumb = DefaultPageTitle
	}

	return r.render("page", struct {
		State   string
		Content template.HTML
		Meta    Meta
	}{State: state.String(), Content: content, Meta: meta})
}

func (r *Renderer) render(name string, data any) (template.HTML, error) {
	buf := &bytes.Buffer{}
	if err := r.tmpl.ExecuteTemplate(buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

func (r *Renderer) storyURL(key string) string {
	return r.DetailURL + "?slug=" + url.QueryEscape(key)
}

var lineBreaks = regexp.MustCompile(`(?i)<br\s*/?>`)

// plain replaces line break tags, the legacy content uses them in short texts.
func plain(s string) string {
	return lineBreaks.ReplaceAllString(s, " ")
}

func firstName(title string) string {
	if fields := strings.Fields(title); len(fields) > 0 {
		return fields[0]
	}
	return title
}
