package commands

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"erpharvest/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var dryRun bool
var force bool

func init() {
	cleanupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without deleting anything")
	cleanupCmd.Flags().BoolVar(&force, "force", false, "delete without asking for confirmation")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the output of previous harvest runs. Log files are never touched.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		targets := cleanupTargets(config)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Directory", "Files", "Bytes"})
		totalFiles := 0
		for _, dir := range targets {
			files, bytes := dirStats(dir)
			totalFiles += files
			t.AppendRow(table.Row{dir, files, bytes})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if dryRun {
			fmt.Println("dry run, nothing deleted")
			return
		}
		if totalFiles == 0 {
			fmt.Println("nothing to delete")
			return
		}
		if !force && !confirm() {
			fmt.Println("aborted")
			return
		}

		for _, dir := range targets {
			if err := os.RemoveAll(dir); err != nil {
				serviceutil.Fatal("failed to delete "+dir, err)
			}
		}
		fmt.Printf("deleted %d files\n", totalFiles)
	},
}

// cleanupTargets lists every directory a harvest run may have written.
// The log directory is deliberately absent.
func cleanupTargets(config Config) []string {
	targets := []string{
		config.Output.ResumeDir,
		config.Output.MetadataDir,
		config.Output.ResultsDir,
		"case",
		"client",
		"JD",
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(targets))
	for _, dir := range targets {
		dir = filepath.Clean(dir)
		if dir == "." || dir == "/" || seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return out
}

func dirStats(dir string) (files int, bytes int64) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		files++
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
		}
		return nil
	})
	return files, bytes
}

func confirm() bool {
	fmt.Print("delete everything listed above? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
