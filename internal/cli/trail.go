package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/tasktree"
	"github.com/AnatoleLucet/tasktree/report"
)

func newTrailCommand(a *app) *cobra.Command {
	var (
		only    []string
		strict  bool
		entries bool
	)

	cmd := &cobra.Command{
		Use:   "trail <projects-file>",
		Short: "Merge a list of projects into a trail",
		Long: `Reads a list of projects from a YAML or JSON file and prints the resulting trail as an
outline record. Intervals are written as [lower, upper] with a null upper for open-ended work.

Example (YAML):

  - project_name: fill
    actual: [2024-05-01T10:00:00Z, 2024-05-01T10:05:00Z]
  - project_name: drain
    planned: [2024-05-01T10:05:00Z, 2024-05-01T10:10:00Z]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := readProjects(args[0])
			if err != nil {
				return err
			}

			cfg := a.cfg.Trail
			if cmd.Flags().Changed("only") {
				cfg.OnlyInclude = only
			}
			if cmd.Flags().Changed("strict") {
				cfg.Strict = strict
			}

			db := tasktree.NewProjectDatabase()
			for _, p := range projects {
				db.Add(p)
			}

			trail, err := tasktree.ProjectsToTrail(db, cfg)
			if err != nil {
				return err
			}
			a.logger.Debug("synthesized trail", "projects", db.Len(), "sections", len(trail.Sections))

			if entries {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, entry := range report.TrailEntries(trail, time.Time{}) {
					if err := enc.Encode(entry); err != nil {
						return err
					}
				}
				return nil
			}
			return report.NewWriter(cmd.OutOrStdout()).Outline(tasktree.Outline{Trail: &trail})
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "only include projects with these names")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject overlapping projects that are not nested")
	cmd.Flags().BoolVar(&entries, "entries", false, "print stream entries (with a trailing <Idle>) instead of an outline record")
	return cmd
}

func readProjects(path string) ([]tasktree.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}

	var projects []tasktree.Project
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &projects)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &projects)
	default:
		return nil, fmt.Errorf("unsupported projects file %q: want .json, .yaml or .yml", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse projects %s: %w", path, err)
	}
	return projects, nil
}
