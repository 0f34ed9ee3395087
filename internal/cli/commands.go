package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/losca-meetings/internal/config"
	"github.com/pfrederiksen/losca-meetings/internal/spider"
)

const redacted = "********"

func newSpidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "spiders",
		Short: "List the registered spiders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := spider.Default(spider.Settings{
				PublicWorksBasicAuth: a.cfg.Spiders.PublicWorks.BasicAuth,
				HealthCommitteeID:    a.cfg.Spiders.HealthCommission.CommitteeID,
				HealthYear:           a.cfg.Spiders.HealthCommission.Year,
			})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAGENCY\tTIME ZONE")
			for _, s := range registry.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name(), s.Agency(), s.Location())
			}
			return tw.Flush()
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, the config file, LOSCA_*
environment variables and flags are applied. Credentials are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cfg.Spiders.PublicWorks.BasicAuth != "" {
				cfg.Spiders.PublicWorks.BasicAuth = redacted
			}
			return writeYAML(cmd, &cfg)
		},
	}

	var (
		path  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			return initConfig(cmd, path, force)
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "Where to write the file (default ~/"+config.DirName+"/config.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}

func writeYAML(cmd *cobra.Command, cfg *config.Config) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func initConfig(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// The file may hold API credentials once edited.
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "losca-meetings %s\n", Version)
			return nil
		},
	}
}
