package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newswire/internal/seed"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func seedFile() string {
	if v := os.Getenv("SEED_FILE"); v != "" {
		return v
	}
	return "seeds.yml"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seedctl",
		Short:         "Manage the crawler's seed sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAddCmd(), newRmCmd(), newLsCmd())
	return root
}

func newAddCmd() *cobra.Command {
	var (
		rss      string
		sitemap  string
		sections []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new seed source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			seeds, err := seed.Load(seedFile())
			if err != nil {
				return err
			}
			if _, exists := seeds[name]; exists {
				return fmt.Errorf("seed %q already exists", name)
			}

			entry := seed.Entry{RSS: rss, Sitemap: sitemap, Sections: sections}
			if entry.Empty() {
				return fmt.Errorf("supply at least one of --rss, --sitemap or --section")
			}

			seeds[name] = entry
			if err := seed.Save(seedFile(), seeds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added seed %q\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&rss, "rss", "", "RSS feed URL")
	cmd.Flags().StringVar(&sitemap, "sitemap", "", "sitemap URL")
	cmd.Flags().StringArrayVar(&sections, "section", nil, "section URL (repeatable)")
	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a seed source by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			seeds, err := seed.Load(seedFile())
			if err != nil {
				return err
			}
			if _, exists := seeds[name]; !exists {
				return fmt.Errorf("seed %q not found", name)
			}

			delete(seeds, name)
			if err := seed.Save(seedFile(), seeds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed seed %q\n", name)
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all seed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := seed.Load(seedFile())
			if err != nil {
				return err
			}
			if len(seeds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no seeds defined")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, name := range seeds.Names() {
				entry := seeds[name]
				fmt.Fprintf(out, "- %s:\n", name)
				if entry.RSS != "" {
					fmt.Fprintf(out, "    rss: %s\n", entry.RSS)
				}
				if entry.Sitemap != "" {
					fmt.Fprintf(out, "    sitemap: %s\n", entry.Sitemap)
				}
				for _, section := range entry.Sections {
					fmt.Fprintf(out, "    section: %s\n", section)
				}
			}
			return nil
		},
	}
}
