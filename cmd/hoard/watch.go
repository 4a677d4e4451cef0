package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report filesystem changes under a cache root",
	Long: `Watch a cache root and print every create, write, remove, and rename
as it happens. The root is observed without taking its lock, so watch can
run alongside the process that owns the cache.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	root, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(root); err != nil {
		printError("%v", err)
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// Watch the root and every entry directory. New entry directories are
	// picked up from create events as they appear.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("watching %s (Ctrl-C to stop)\n", root)

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, event.Name)
			if relErr != nil {
				rel = event.Name
			}
			fmt.Printf("%-8s %s\n", event.Op, rel)

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Lstat(event.Name); statErr == nil && info.IsDir() {
					_ = fsw.Add(event.Name)
				}
			}

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			printError("%v", watchErr)
		}
	}
}
