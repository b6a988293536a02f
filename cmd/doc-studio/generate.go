// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doc-studio/internal/editor"
	"github.com/pdiddy/doc-studio/internal/export"
	"github.com/pdiddy/doc-studio/internal/session"
)

// openEditor restores the session and opens project id.
func openEditor(ctx context.Context, arg string) (*editor.Editor, *session.Session, error) {
	id, err := parseProjectID(arg)
	if err != nil {
		return nil, nil, err
	}
	sess, err := requireSession()
	if err != nil {
		return nil, nil, err
	}
	ed := editor.New(newClient())
	if _, err := ed.OpenProject(ctx, sess, id); err != nil {
		return nil, nil, err
	}
	return ed, sess, nil
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <project-id>",
	Short: "Generate the content of every section of a project",
	Long: `Generate asks the generation service to write every section of the
project, then reloads the project and prints a summary. Existing content is
replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ed, sess, err := openEditor(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()

	out := cmd.OutOrStdout()
	p := ed.Snapshot()
	fmt.Fprintf(out, "Generating %d %ss for %q...\n", len(p.Sections), strings.ToLower(p.Type.UnitLabel()), p.Title)

	start := time.Now()
	if err := ed.GenerateAll(ctx, sess); err != nil {
		return err
	}

	p = ed.Snapshot()
	for _, s := range p.Sections {
		fmt.Fprintf(out, "  %s %d: %s (%d chars)\n", p.Type.UnitLabel(), s.Order, s.Title, len(s.Content))
	}
	fmt.Fprintf(out, "Done in %s\n", time.Since(start).Round(time.Second))
	return nil
}

// --- refine ---

var refineCmd = &cobra.Command{
	Use:   "refine <project-id>",
	Short: "Rewrite one section following an instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefine,
}

func runRefine(cmd *cobra.Command, args []string) error {
	sectionID, _ := cmd.Flags().GetInt64("section")
	instruction, _ := cmd.Flags().GetString("instruction")
	if sectionID <= 0 {
		return fmt.Errorf("--section is required")
	}

	ctx := context.Background()
	ed, sess, err := openEditor(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()

	refined, err := ed.RefineSection(ctx, sess, sectionID, instruction)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), refined)
	return nil
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Download the project as a .docx or .pptx file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")

	ctx := context.Background()
	ed, sess, err := openEditor(ctx, args[0])
	if err != nil {
		return err
	}
	defer ed.Close()

	art, err := ed.ExportProject(ctx, sess)
	if err != nil {
		return err
	}
	path, err := export.Save(outputDir, art)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(art.Data))
	return nil
}

func init() {
	refineCmd.Flags().Int64("section", 0, "id of the section to refine (see \"doc-studio show\")")
	refineCmd.Flags().String("instruction", "", "how to rewrite the section, e.g. \"make it shorter\"")

	exportCmd.Flags().String("output-dir", ".", "directory to save the exported file in")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(exportCmd)
}
