package jira

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Endpoints of the custom field editor plugin.
const editorRoot = "/rest/jiracustomfieldeditorplugin/1.1/user"

// FieldOptions lists the options of a custom select field.
func (s *Service) FieldOptions(ctx context.Context, fieldID string) ([]FieldOption, error) {
	path := fmt.Sprintf("%s/customfieldoptions/%s", editorRoot, url.PathEscape(fieldID))
	var opts []FieldOption
	if err := s.client.Get(ctx, path, &opts); err != nil {
		return nil, fmt.Errorf("fetching options of %s: %w", fieldID, err)
	}
	return opts, nil
}

func (s *Service) addFieldOption(ctx context.Context, fieldID, value string) (FieldOption, error) {
	path := fmt.Sprintf("%s/customfieldoption/%s", editorRoot, url.PathEscape(fieldID))
	form := map[string]string{"disabled": "false", "optionvalue": value}
	var created FieldOption
	if err := s.client.PostForm(ctx, path, form, &created); err != nil {
		return FieldOption{}, fmt.Errorf("adding option %q to %s: %w", value, fieldID, err)
	}
	if created.OptionValue == "" {
		created.OptionValue = value
	}
	return created, nil
}

func (s *Service) moveFieldOptionFirst(ctx context.Context, fieldID string, optionID int) error {
	path := fmt.Sprintf("%s/customfieldoption/%s/%s/move",
		editorRoot, url.PathEscape(fieldID), strconv.Itoa(optionID))
	form := map[string]string{"position": "First"}
	if err := s.client.PostForm(ctx, path, form, nil); err != nil {
		return fmt.Errorf("moving option %d of %s: %w", optionID, fieldID, err)
	}
	return nil
}

// DropdownUpdate reports what UpdateDropdown did.
type DropdownUpdate struct {
	FieldID string
	Added   []string
	Sorted  bool
}

// UpdateDropdown adds every value missing from a custom select field.
// Existing options are never removed since issues may still use them.
// With sortOptions the options are then ordered alphabetically.
func (s *Service) UpdateDropdown(
	ctx context.Context,
	fieldName string,
	values []string,
	sortOptions bool,
) (*DropdownUpdate, error) {
	field, err := s.FieldByName(ctx, fieldName)
	if err != nil {
		return nil, err
	}
	existing, err := s.FieldOptions(ctx, field.ID)
	if err != nil {
		return nil, err
	}

	byValue := make(map[string]FieldOption, len(existing))
	for _, o := range existing {
		byValue[o.OptionValue] = o
	}

	update := &DropdownUpdate{FieldID: field.ID}
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := byValue[v]; ok {
			continue
		}
		created, err := s.addFieldOption(ctx, field.ID, v)
		if err != nil {
			return update, err
		}
		byValue[v] = created
		update.Added = append(update.Added, v)
	}

	if !sortOptions {
		return update, nil
	}
	// Moving each option to the top in reverse order leaves them ascending.
	ordered := make([]FieldOption, 0, len(byValue))
	for _, o := range byValue {
		ordered = append(ordered, o)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OptionValue > ordered[j].OptionValue
	})
	for _, o := range ordered {
		if err := s.moveFieldOptionFirst(ctx, field.ID, o.ID); err != nil {
			return update, err
		}
	}
	update.Sorted = true
	return update, nil
}
