package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jscodegen/go-codegen/internal/config"
	"github.com/jscodegen/go-codegen/transform"
)

var sitesPath string

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "list codegen sites",
	Long:  "list the codegen sites under a path without running them",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		if sitesPath == "" {
			log.Fatal("--path is required")
		}
		cfg, err := config.Discover(sitesPath)
		if err != nil {
			cobra.CheckErr(err)
		}
		if cmd.Flags().Changed("keyword") {
			cfg.Keyword = keyword
		}
		if err := ListSites(cmd.OutOrStdout(), cfg, sitesPath); err != nil {
			log.Fatal(err)
		}
	},
}

// ListSites prints one "file line:col kind" line per site found under path. File
// names are relative to path.
func ListSites(w io.Writer, cfg config.Config, path string) error {
	dispatcher, err := newDispatcher(cfg, nil)
	if err != nil {
		return err
	}
	manager := transform.NewManager(dispatcher, cfg, path, "")
	files, err := manager.LoadFiles()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if len(files) == 1 && files[0] == root {
		root = filepath.Dir(root)
	}

	ctx := newContext(false)
	for _, file := range files {
		source, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		found, err := dispatcher.Sites(ctx, file, source)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return err
		}
		for _, s := range found {
			fmt.Fprintf(w, "%s %d:%d %s\n", filepath.ToSlash(rel), s.Location.Line, s.Location.Column, s.Kind)
		}
	}
	return nil
}

func init() {
	sitesCmd.Flags().StringVar(&sitesPath, "path", defaultAppPath, "file or directory to scan")
	sitesCmd.Flags().StringVar(&keyword, "keyword", defaultKeyword, "codegen marker keyword")

	rootCmd.AddCommand(sitesCmd)
}
