package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/ui/prompt"
)

func newConfigCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the host names and credentials",
	}
	cmd.AddCommand(
		newConfigShowCommand(env),
		newConfigSetCommand(env),
		newConfigCheckCommand(env),
	)
	return cmd
}

func newConfigShowCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with the password hidden",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(env.ConfigPath())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
			if err != nil {
				return err
			}
			env.println(env.ConfigPath())
			env.println(string(out))
			return nil
		},
	}
}

func newConfigSetCommand(env *Env) *cobra.Command {
	var confluence string
	var useKeyring bool
	cmd := &cobra.Command{
		Use:   "set [jira-fqdn] [username] [password]",
		Short: "Write the configuration file",
		Long: `Write the configuration file. Settings not given keep their current
value; on a terminal the missing ones are asked for.

With --keyring the password goes to the OS keyring instead of the file.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			path := env.ConfigPath()
			cfg, err := model.LoadConfig(path)
			if err != nil {
				cfg = &model.Config{}
			}
			if len(args) > 0 {
				cfg.JiraFQDN = args[0]
			}
			if len(args) > 1 {
				cfg.Username = args[1]
			}
			if len(args) > 2 {
				cfg.Password = args[2]
			}
			if confluence != "" {
				cfg.ConfluenceFQDN = confluence
			}
			if cfg.Keyring && cfg.Password == "" && len(args) < 3 && !useKeyring {
				useKeyring = true
			}

			if env.Interactive {
				if err := prompt.Credentials(cfg, false); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if useKeyring {
				if cfg.Password == "" {
					return errors.New("no password to store in the keyring")
				}
				ring, err := env.OpenKeyring()
				if err != nil {
					return err
				}
				if err := ring.SetPassword(cfg.JiraFQDN, cfg.Username, cfg.Password); err != nil {
					return err
				}
				cfg.Password = ""
				cfg.Keyring = true
			} else if cfg.Password == "" {
				return errors.New("password is not set, give it or use --keyring")
			} else if cfg.Keyring {
				ring, err := env.OpenKeyring()
				if err != nil {
					return err
				}
				if err := ring.DeletePassword(cfg.JiraFQDN, cfg.Username); err != nil {
					return err
				}
				cfg.Keyring = false
			}

			if err := model.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(env.Stderr, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&confluence, "confluence", "", "Confluence host name")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "keep the password in the OS keyring")
	return cmd
}

func newConfigCheckCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Log in and print who the credentials belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			me, err := svc.Myself(cmd.Context())
			if err != nil {
				return err
			}
			env.printf("%s (%s) on %s\n", me.DisplayName, me.Name, env.cfg.JiraFQDN)
			return nil
		},
	}
}
