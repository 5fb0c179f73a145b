package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// VisibleVersions returns the project's versions that are not archived,
// latest first, the order release listings use.
func VisibleVersions(p *Project) []Version {
	out := make([]Version, 0, len(p.Versions))
	for i := len(p.Versions) - 1; i >= 0; i-- {
		if !p.Versions[i].Archived {
			out = append(out, p.Versions[i])
		}
	}
	return out
}

// Version returns the version of a project named name.
func (s *Service) Version(ctx context.Context, projectKey, name string) (Version, error) {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return Version{}, err
	}
	return FindVersion(p.Versions, name)
}

// NextRelease returns the earliest unreleased version of a project.
func (s *Service) NextRelease(ctx context.Context, projectKey string) (Version, bool, error) {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return Version{}, false, err
	}
	v, ok := EarliestUnreleased(p.Versions)
	return v, ok, nil
}

// CreateVersion adds an unreleased version due on date (YYYY-MM-DD).
func (s *Service) CreateVersion(ctx context.Context, projectKey, name, date string) (*Version, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"name":        name,
		"project":     strings.ToUpper(projectKey),
		"releaseDate": date,
		"released":    false,
		"archived":    false,
	}
	var created Version
	if err := s.client.Post(ctx, apiRoot+"/version", payload, &created); err != nil {
		return nil, fmt.Errorf("creating version %s in %s: %w", name, projectKey, err)
	}
	s.cache.forgetProject(projectKey)
	return &created, nil
}

func (s *Service) updateVersion(
	ctx context.Context,
	projectKey string,
	v Version,
	fields map[string]interface{},
) error {
	path := fmt.Sprintf("%s/version/%s", apiRoot, url.PathEscape(v.ID))
	if err := s.client.Put(ctx, path, fields, nil); err != nil {
		return fmt.Errorf("updating version %s: %w", v.Name, err)
	}
	s.cache.forgetProject(projectKey)
	s.logger.Debug("version updated",
		slog.String("project", projectKey),
		slog.String("version", v.Name),
		slog.Any("fields", fields),
	)
	return nil
}

// RescheduleVersion moves the release date of a version to date.
func (s *Service) RescheduleVersion(ctx context.Context, projectKey, name, date string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	v, err := s.Version(ctx, projectKey, name)
	if err != nil {
		return err
	}
	return s.updateVersion(ctx, projectKey, v, map[string]interface{}{"releaseDate": date})
}

// DelayVersion pushes the release date of a version later by delta (see
// ParseDelta) and returns the new date.
func (s *Service) DelayVersion(ctx context.Context, projectKey, name, delta string) (string, error) {
	d, err := ParseDelta(delta)
	if err != nil {
		return "", err
	}
	v, err := s.Version(ctx, projectKey, name)
	if err != nil {
		return "", err
	}
	if v.ReleaseDate == "" {
		return "", fmt.Errorf("version %s has no release date to delay", v.Name)
	}
	date, err := ShiftDate(v.ReleaseDate, d)
	if err != nil {
		return "", err
	}
	if err := s.updateVersion(ctx, projectKey, v, map[string]interface{}{"releaseDate": date}); err != nil {
		return "", err
	}
	return date, nil
}

// ReleaseOptions says where the open issues of a released version go.
type ReleaseOptions struct {
	MoveToNext bool
	MoveTo     string
}

// ReleaseResult reports what ReleaseVersion did.
type ReleaseResult struct {
	Version Version
	Target  string
	Moved   []string
}

// ReleaseVersion marks a version released. Open issues slated for it are
// moved to the next unreleased version or to opts.MoveTo; without either
// option any open issue stops the release.
func (s *Service) ReleaseVersion(
	ctx context.Context,
	projectKey, name string,
	opts ReleaseOptions,
) (*ReleaseResult, error) {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	v, err := FindVersion(p.Versions, name)
	if err != nil {
		return nil, err
	}
	if v.Released {
		return nil, fmt.Errorf("version %s is already released", v.Name)
	}

	result := &ReleaseResult{Version: v}
	switch {
	case opts.MoveTo != "":
		target, err := FindVersion(p.Versions, opts.MoveTo)
		if err != nil {
			return nil, err
		}
		result.Target = target.Name
	case opts.MoveToNext:
		next, ok := NextUnreleased(p.Versions, v.Name)
		if !ok {
			return nil, fmt.Errorf("project %s has no unreleased version after %s", p.Key, v.Name)
		}
		result.Target = next.Name
	}

	open, err := s.Search(ctx, UnresolvedInVersionJQL(p.Key, v.Name))
	if err != nil {
		return nil, err
	}
	if len(open) > 0 && result.Target == "" {
		return nil, fmt.Errorf(
			"%d unresolved issues are slated for %s, move them with --move-to-next or --move-to",
			len(open), v.Name,
		)
	}
	for _, issue := range open {
		if err := s.moveFixVersion(ctx, issue.Key, v.Name, result.Target); err != nil {
			return nil, err
		}
		result.Moved = append(result.Moved, issue.Key)
	}

	fields := map[string]interface{}{"released": true}
	if v.ReleaseDate == "" {
		fields["releaseDate"] = FormatDate(s.now())
	}
	if err := s.updateVersion(ctx, p.Key, v, fields); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) moveFixVersion(ctx context.Context, key, from, to string) error {
	path := fmt.Sprintf("%s/issue/%s", apiRoot, url.PathEscape(key))
	payload := map[string]interface{}{
		"update": map[string]interface{}{
			"fixVersions": []map[string]interface{}{
				{"remove": map[string]string{"name": from}},
				{"add": map[string]string{"name": to}},
			},
		},
	}
	if err := s.client.Put(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("moving %s from %s to %s: %w", key, from, to, err)
	}
	s.cache.forgetIssue(key)
	return nil
}

// MergeVersion deletes a version after moving its fix and affects issues
// to target.
func (s *Service) MergeVersion(ctx context.Context, projectKey, name, target string) error {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return err
	}
	v, err := FindVersion(p.Versions, name)
	if err != nil {
		return err
	}
	t, err := FindVersion(p.Versions, target)
	if err != nil {
		return err
	}
	if v.ID == t.ID {
		return fmt.Errorf("cannot merge version %s into itself", v.Name)
	}

	query := url.Values{}
	query.Set("moveFixIssuesTo", t.ID)
	query.Set("moveAffectedIssuesTo", t.ID)
	path := fmt.Sprintf("%s/version/%s?%s", apiRoot, url.PathEscape(v.ID), query.Encode())
	if err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("merging %s into %s: %w", v.Name, t.Name, err)
	}
	s.cache.forgetProject(projectKey)
	return nil
}

// MoveVersion shifts a version within the project's ordering. A positive
// shift moves it earlier (up), a negative one later (down). The position
// is clamped to the ends of the list.
func (s *Service) MoveVersion(ctx context.Context, projectKey, name string, shift int) error {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return err
	}
	v, err := FindVersion(p.Versions, name)
	if err != nil {
		return err
	}

	payload, ok := movePayload(p.Versions, v.ID, shift)
	if !ok {
		return nil
	}
	path := fmt.Sprintf("%s/version/%s/move", apiRoot, url.PathEscape(v.ID))
	if err := s.client.Post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("moving version %s: %w", v.Name, err)
	}
	s.cache.forgetProject(projectKey)
	return nil
}

// movePayload computes the body of the move call. The second result is
// false when the version would stay where it is.
func movePayload(versions []Version, id string, shift int) (map[string]string, bool) {
	idx := -1
	rest := make([]Version, 0, len(versions))
	for i, v := range versions {
		if v.ID == id {
			idx = i
			continue
		}
		rest = append(rest, v)
	}
	if idx < 0 {
		return nil, false
	}

	target := idx - shift
	if target < 0 {
		target = 0
	}
	if target > len(rest) {
		target = len(rest)
	}
	if target == idx {
		return nil, false
	}
	if target == 0 {
		return map[string]string{"position": "First"}, true
	}
	after := rest[target-1]
	if after.Self == "" {
		return map[string]string{"after": after.ID}, true
	}
	return map[string]string{"after": after.Self}, true
}

// SetArchived archives or unarchives every version whose name matches
// pattern and returns the versions it changed.
func (s *Service) SetArchived(
	ctx context.Context,
	projectKey, pattern string,
	archived bool,
) ([]Version, error) {
	p, err := s.Project(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	matched, err := MatchVersions(p.Versions, pattern)
	if err != nil {
		return nil, err
	}

	var changed []Version
	for _, v := range matched {
		if v.Archived == archived {
			continue
		}
		if err := s.updateVersion(ctx, p.Key, v, map[string]interface{}{"archived": archived}); err != nil {
			return changed, err
		}
		v.Archived = archived
		changed = append(changed, v)
	}
	return changed, nil
}
