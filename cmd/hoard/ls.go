package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cache entries in eviction order",
	Long:  `List every entry with its cumulative size, oldest first. The first entry listed is the next eviction candidate.`,
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	c, err := openCache(cmd.Context())
	if err != nil {
		printError("%v", err)
		return err
	}
	defer c.Close()

	entries := c.Entries()
	if len(entries) == 0 {
		fmt.Println("cache is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tFILES\tSIZE")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", entry.Key, countFiles(c.Root(), entry.Key), humanize.IBytes(entry.Size))
	}
	return w.Flush()
}

// countFiles counts the regular files inside one entry directory.
func countFiles(root, key string) int {
	dirents, err := os.ReadDir(filepath.Join(root, key))
	if err != nil {
		return 0
	}
	n := 0
	for _, d := range dirents {
		if d.Type().IsRegular() {
			n++
		}
	}
	return n
}
