// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc-studio/internal/editor"
	"github.com/pdiddy/doc-studio/internal/outline"
	"github.com/pdiddy/doc-studio/internal/tui"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// --- new ---

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a project from flags, an outline file or the interactive wizard",
	Long: `New creates a document or slide-deck project. The project is described by
--title, --topic, --type and one --section per section, by an outline file
(--outline), or interactively (--interactive). Flags override values read
from the outline file and prefill the interactive wizard.

Outline file:

  title: Q3 Review
  type: pptx
  topic: quarterly sales
  sections:
    - Intro
    - Numbers`,
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	draft, err := draftFromFlags(cmd)
	if err != nil {
		return err
	}
	sess, err := requireSession()
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := newClient()
	out := cmd.OutOrStdout()

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		p, err := tui.Run(ctx, sess, client, draft, cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
		printCreated(out, p)
		return nil
	}

	ed := editor.New(client)
	defer ed.Close()
	p, err := ed.CreateProject(ctx, sess, draft)
	if err != nil {
		return err
	}
	printCreated(out, p)
	return nil
}

// draftFromFlags builds a draft from --outline and the individual flags.
func draftFromFlags(cmd *cobra.Command) (types.ProjectDraft, error) {
	var draft types.ProjectDraft
	if path, _ := cmd.Flags().GetString("outline"); path != "" {
		d, err := outline.LoadOutline(path)
		if err != nil {
			return draft, err
		}
		draft = d
	}

	if title, _ := cmd.Flags().GetString("title"); title != "" {
		draft.Title = title
	}
	if topic, _ := cmd.Flags().GetString("topic"); topic != "" {
		draft.Topic = topic
	}
	if cmd.Flags().Changed("type") || draft.Type == "" {
		t, _ := cmd.Flags().GetString("type")
		draft.Type = types.ProjectType(strings.ToLower(t))
	}
	if sections, _ := cmd.Flags().GetStringArray("section"); len(sections) > 0 {
		draft.Sections = outline.FromTitles(sections)
	}
	return draft, nil
}

func printCreated(w io.Writer, p *types.Project) {
	fmt.Fprintf(w, "Created project %d: %s (%s, %d %ss)\n",
		p.ID, p.Title, p.Type, len(p.Sections), strings.ToLower(p.Type.UnitLabel()))
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	sess, err := requireSession()
	if err != nil {
		return err
	}
	projects, err := newClient().ListProjects(context.Background(), sess)
	if err != nil {
		return err
	}
	formatProjectList(cmd.OutOrStdout(), projects)
	return nil
}

func formatProjectList(w io.Writer, projects []types.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects yet. Create one with \"doc-studio new\".")
		return
	}

	fmt.Fprintf(w, "%-6s  %-5s  %-40s  %-9s  %s\n", "ID", "Type", "Title", "Generated", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 82))
	for _, p := range projects {
		title := p.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		done := 0
		for _, s := range p.Sections {
			if s.HasContent() {
				done++
			}
		}
		fmt.Fprintf(w, "%-6d  %-5s  %-40s  %-9s  %s\n",
			p.ID, p.Type, title, fmt.Sprintf("%d/%d", done, len(p.Sections)), p.CreatedAt.Local().Format("2006-01-02"))
	}
	fmt.Fprintf(w, "\n%d projects\n", len(projects))
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project with its sections and content",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	sess, err := requireSession()
	if err != nil {
		return err
	}

	ed := editor.New(newClient())
	defer ed.Close()
	p, err := ed.OpenProject(context.Background(), sess, id)
	if err != nil {
		return err
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(p)
	}
	formatProject(cmd.OutOrStdout(), p)
	return nil
}

func formatProject(w io.Writer, p *types.Project) {
	fmt.Fprintf(w, "%s  [%s, project %d]\n", p.Title, p.Type, p.ID)
	fmt.Fprintf(w, "Topic: %s\n", p.Topic)
	for _, s := range p.Sections {
		fmt.Fprintf(w, "\n%s %d (id %d): %s\n", p.Type.UnitLabel(), s.Order, s.ID, s.Title)
		if !s.HasContent() {
			fmt.Fprintln(w, "  (not generated)")
			continue
		}
		for _, line := range strings.Split(strings.TrimSpace(s.Content), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		if n := len(s.RefinementHistory); n > 0 {
			fmt.Fprintf(w, "  (refined %d times)\n", n)
		}
	}
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

func init() {
	newCmd.Flags().String("title", "", "project title")
	newCmd.Flags().String("topic", "", "what the project is about")
	newCmd.Flags().String("type", string(types.TypeDocx), "project type: docx or pptx")
	newCmd.Flags().StringArray("section", nil, "section or slide title (repeat for each, in order)")
	newCmd.Flags().String("outline", "", "path to a YAML outline file")
	newCmd.Flags().BoolP("interactive", "i", false, "run the interactive wizard")

	showCmd.Flags().Bool("yaml", false, "print the project as YAML")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
