package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/model"
)

func newAdminCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer custom fields",
	}
	cmd.AddCommand(newUpdateDropdownCommand(env))
	return cmd
}

func newUpdateDropdownCommand(env *Env) *cobra.Command {
	var sortOptions bool
	cmd := &cobra.Command{
		Use:   "update-dropdown <field-name> <values-file>",
		Short: "Add the values listed in a file to a select custom field",
		Long: `Add every value of values-file, one per line, that the select field
does not offer yet. Existing options are kept. Use - to read stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(env.Stdin, args[1])
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			update, err := svc.UpdateDropdown(cmd.Context(), args[0], values, sortOptions)
			if err != nil {
				return err
			}
			for _, v := range update.Added {
				env.printf("added %s\n", v)
			}
			if len(update.Added) > 0 || update.Sorted {
				detail := fmt.Sprintf("%d added", len(update.Added))
				if update.Sorted {
					detail += ", sorted"
				}
				env.record(cmd.Context(), model.ActionDropdown, update.FieldID, detail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sortOptions, "sort", false, "sort the options alphabetically afterwards")
	return cmd
}

// readValues returns the trimmed non-empty lines of path, or of stdin
// when path is "-".
func readValues(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening values file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var values []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if v := strings.TrimSpace(sc.Text()); v != "" {
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading values file: %w", err)
	}
	return values, nil
}
