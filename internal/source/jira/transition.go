package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nhle/jissue/internal/source"
)

// Workflow transition names used by the lifecycle shortcuts.
const (
	TransitionStart   = "Start Progress"
	TransitionStop    = "Stop Progress"
	TransitionReopen  = "Reopen Issue"
	TransitionResolve = "Resolve Issue"
)

// FindTransition returns the single transition whose name equals name
// ignoring case. Zero or several matches is an AmbiguousMatchError.
func FindTransition(transitions []Transition, name string) (Transition, error) {
	names := make([]string, len(transitions))
	for i, t := range transitions {
		names[i] = t.Name
	}
	i, err := source.MatchOne("transition", name, names)
	if err != nil {
		return Transition{}, err
	}
	return transitions[i], nil
}

// Transitions returns the transitions currently available on an issue.
func (s *Service) Transitions(ctx context.Context, key string) ([]Transition, error) {
	path := fmt.Sprintf("%s/issue/%s/transitions", apiRoot, url.PathEscape(strings.ToUpper(key)))

	var resp TransitionsResponse
	if err := s.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching transitions for %s: %w", key, err)
	}
	return resp.Transitions, nil
}

// Transition moves an issue through the transition named name, submitting
// fields (already shaped for the server) alongside it.
func (s *Service) Transition(
	ctx context.Context,
	key, name string,
	fields map[string]interface{},
) error {
	transitions, err := s.Transitions(ctx, key)
	if err != nil {
		return err
	}
	t, err := FindTransition(transitions, name)
	if err != nil {
		return fmt.Errorf("transitioning %s: %w", key, err)
	}

	payload := map[string]interface{}{
		"transition": map[string]string{"id": t.ID},
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}

	path := fmt.Sprintf("%s/issue/%s/transitions", apiRoot, url.PathEscape(strings.ToUpper(key)))
	// The endpoint answers 204 No Content.
	if err := s.client.Post(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("transitioning %s through %q: %w", key, t.Name, err)
	}
	s.cache.forgetIssue(key)
	s.logger.Debug("issue transitioned",
		slog.String("key", key),
		slog.String("transition", t.Name),
		slog.String("id", t.ID),
	)
	return nil
}

// TransitionWithValues is Transition with field values given as text and
// shaped according to each field's schema.
func (s *Service) TransitionWithValues(
	ctx context.Context,
	key, name string,
	values []FieldValue,
) error {
	var fields map[string]interface{}
	if len(values) > 0 {
		issue, err := s.Issue(ctx, key)
		if err != nil {
			return err
		}
		if issue.Fields.Project == nil || issue.Fields.IssueType == nil {
			return fmt.Errorf("issue %s has no project or issue type", key)
		}
		fields, err = s.ShapeFields(ctx, issue.Fields.Project.Key, issue.Fields.IssueType.ID, values)
		if err != nil {
			return err
		}
	}
	return s.Transition(ctx, key, name, fields)
}

// Start marks work started on an issue.
func (s *Service) Start(ctx context.Context, key string) error {
	return s.Transition(ctx, key, TransitionStart, nil)
}

// Stop marks work stopped on an issue.
func (s *Service) Stop(ctx context.Context, key string) error {
	return s.Transition(ctx, key, TransitionStop, nil)
}

// Reopen re-opens a resolved issue.
func (s *Service) Reopen(ctx context.Context, key string) error {
	return s.Transition(ctx, key, TransitionReopen, nil)
}

// Resolve resolves an issue as resolution in fixVersions. Without fix
// versions the earliest unreleased version of the issue's project is used.
// It returns the names of the fix versions that were set.
func (s *Service) Resolve(
	ctx context.Context,
	key, resolution string,
	fixVersions []string,
) ([]string, error) {
	resolutions, err := s.Resolutions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(resolutions))
	for i, r := range resolutions {
		names[i] = r.Name
	}
	ri, err := source.MatchOne("resolution", resolution, names)
	if err != nil {
		return nil, err
	}

	issue, err := s.Issue(ctx, key)
	if err != nil {
		return nil, err
	}
	if issue.Fields.Project == nil {
		return nil, fmt.Errorf("issue %s has no project", key)
	}
	project, err := s.Project(ctx, issue.Fields.Project.Key)
	if err != nil {
		return nil, err
	}

	if len(fixVersions) == 0 {
		if next, ok := EarliestUnreleased(project.Versions); ok {
			fixVersions = []string{next.Name}
		}
	}

	refs := make([]map[string]string, 0, len(fixVersions))
	set := make([]string, 0, len(fixVersions))
	for _, name := range fixVersions {
		v, err := FindVersion(project.Versions, name)
		if err != nil {
			return nil, err
		}
		refs = append(refs, map[string]string{"id": v.ID})
		set = append(set, v.Name)
	}

	fields := map[string]interface{}{
		"resolution":  map[string]string{"id": resolutions[ri].ID},
		"fixVersions": refs,
	}
	if err := s.Transition(ctx, key, TransitionResolve, fields); err != nil {
		return nil, err
	}
	return set, nil
}
