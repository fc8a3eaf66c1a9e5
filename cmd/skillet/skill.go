package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect the skill catalog",
	Long:  `List the skills found in the skills directory and show their details.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	Long:  `List every skill in the catalog with its name, description and directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("output")

		catalog, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		if err := renderCatalog(os.Stdout, catalog, format); err != nil {
			return err
		}
		if catalog.Skipped != nil {
			for _, skipErr := range catalog.Skipped.Errors {
				presenter.Warning("skipped: " + skipErr.Error())
			}
		}
		return nil
	},
}

var skillShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill's details",
	Long:  `Show a skill's metadata, the documents attached to its instructions and its resource files.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		md, ok := catalog.Find(args[0])
		if !ok {
			return errors.Errorf("skill %q not found in %s", args[0], catalog.Root)
		}
		return showSkill(cmd.Context(), os.Stdout, skills.NewLoader(), md)
	},
}

func init() {
	skillListCmd.Flags().StringP("output", "o", "table", "Output format (table, json or yaml)")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillShowCmd)
}

func loadCatalog(cmd *cobra.Command) (skills.Catalog, error) {
	config, err := agent.GetConfigFromViper()
	if err != nil {
		return skills.Catalog{}, err
	}
	catalog := skills.LoadAll(cmd.Context(), config.SkillsDir)
	return skills.FilterByAllowlist(catalog, config.Skills.Allowed), nil
}

func renderCatalog(w io.Writer, catalog skills.Catalog, format string) error {
	entries := catalog.Skills
	if entries == nil {
		entries = []skills.Metadata{}
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(entries), "failed to encode skills as JSON")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return errors.Wrap(err, "failed to encode skills as YAML")
		}
		return enc.Close()
	case "table", "":
		if len(entries) == 0 {
			fmt.Fprintf(w, "No skills found in %s\n", catalog.Root)
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDESCRIPTION\tDIRECTORY")
		fmt.Fprintln(tw, "----\t-----------\t---------")
		for _, s := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, truncate(s.Description, 60), s.Path)
		}
		return tw.Flush()
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}

func showSkill(ctx context.Context, w io.Writer, loader *skills.Loader, md skills.Metadata) error {
	fmt.Fprintf(w, "Name:        %s\n", md.Name)
	fmt.Fprintf(w, "Description: %s\n", md.Description)
	fmt.Fprintf(w, "Directory:   %s\n", md.Path)

	docs, err := loader.Attachments(ctx, md.Path)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nAttached documents:")
	if len(docs) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, doc := range docs {
		fmt.Fprintf(w, "  - %s\n", doc.Name)
	}

	resources, err := loader.ListResources(md.Path)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nResources:")
	if len(resources) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, r := range resources {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
