// Package confluence reads and updates wiki pages through the Confluence
// REST API.
package confluence

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nhle/jissue/internal/source"
	"github.com/nhle/jissue/internal/source/atlassian"
)

const contentRoot = "/rest/api/content"

// ReleaseNotesLabel marks the pages that collect release notes.
const ReleaseNotesLabel = "release-notes"

const pageExpand = "body.storage,body.view,version,ancestors"

// Service is the wiki side of the release notes commands.
type Service struct {
	client *atlassian.Client
	logger *slog.Logger
	pages  map[string]*Page
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for page updates.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service on top of an authenticated client.
func NewService(client *atlassian.Client, opts ...Option) *Service {
	s := &Service{
		client: client,
		logger: slog.New(slog.DiscardHandler),
		pages:  make(map[string]*Page),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Page fetches a page with its body, version and ancestors.
func (s *Service) Page(ctx context.Context, id string) (*Page, error) {
	if p, ok := s.pages[id]; ok {
		return p, nil
	}
	var p Page
	path := fmt.Sprintf("%s/%s?expand=%s", contentRoot, url.PathEscape(id), pageExpand)
	if err := s.client.Get(ctx, path, &p); err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", id, err)
	}
	s.pages[id] = &p
	return &p, nil
}

// Text returns the rendered body of a page as plain text.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	p, err := s.Page(ctx, id)
	if err != nil {
		return "", err
	}
	view := p.Body.View.Value
	if view == "" {
		view = p.Body.Storage.Value
	}
	return StripHTML(view), nil
}

// Replace sets the storage body of a page, bumping its version and
// keeping it under its direct parent.
func (s *Service) Replace(ctx context.Context, id, storage string) error {
	p, err := s.Page(ctx, id)
	if err != nil {
		return err
	}

	update := pageUpdate{
		ID:      p.ID,
		Type:    "page",
		Title:   p.Title,
		Version: PageNumber{Number: p.Version.Number + 1},
	}
	if n := len(p.Ancestors); n > 0 {
		update.Ancestors = []Ancestor{{ID: p.Ancestors[n-1].ID}}
	}
	update.Body.Storage = Representation{Value: storage, Representation: "storage"}

	path := fmt.Sprintf("%s/%s", contentRoot, url.PathEscape(id))
	if err := s.client.Put(ctx, path, update, nil); err != nil {
		return fmt.Errorf("updating page %s: %w", id, err)
	}
	delete(s.pages, id)
	s.logger.Debug("page updated",
		slog.String("id", id),
		slog.Int("version", update.Version.Number),
	)
	return nil
}

// Prepend puts storage above the current body of a page.
func (s *Service) Prepend(ctx context.Context, id, storage string) error {
	p, err := s.Page(ctx, id)
	if err != nil {
		return err
	}
	return s.Replace(ctx, id, storage+p.Body.Storage.Value)
}

// LabelCQL builds a query for pages carrying every one of labels.
func LabelCQL(labels ...string) string {
	clauses := []string{"type = page"}
	for _, l := range labels {
		l = strings.ReplaceAll(strings.ToLower(l), `"`, `\"`)
		clauses = append(clauses, fmt.Sprintf(`label = "%s"`, l))
	}
	return strings.Join(clauses, " AND ")
}

// SearchByLabels returns the pages carrying every one of labels.
func (s *Service) SearchByLabels(ctx context.Context, labels ...string) ([]Page, error) {
	query := url.Values{}
	query.Set("cql", LabelCQL(labels...))
	query.Set("limit", "50")

	var resp SearchResponse
	if err := s.client.Get(ctx, contentRoot+"/search?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching pages labelled %s: %w", strings.Join(labels, ", "), err)
	}
	return resp.Results, nil
}

// ReleaseNotesPage finds the single release notes page of a project.
func (s *Service) ReleaseNotesPage(ctx context.Context, project string) (*Page, error) {
	pages, err := s.SearchByLabels(ctx, ReleaseNotesLabel, project)
	if err != nil {
		return nil, err
	}
	if len(pages) != 1 {
		return nil, &source.AmbiguousMatchError{
			Kind:    "release notes page for project",
			Name:    strings.ToUpper(project),
			Matches: len(pages),
		}
	}
	return &pages[0], nil
}

// Attachments lists the files attached to a page.
func (s *Service) Attachments(ctx context.Context, id string) ([]Attachment, error) {
	path := fmt.Sprintf("%s/%s/child/attachment", contentRoot, url.PathEscape(id))
	var resp AttachmentsResponse
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("listing attachments of page %s: %w", id, err)
	}
	return resp.Results, nil
}
