package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/hoard/pkg/hoard/cache"
)

var getCmd = &cobra.Command{
	Use:   "get <key> [name]",
	Short: "Read an entry's files",
	Long: `Without a name, list the entry's files and sizes. With a name, copy
that file's contents to stdout. Looking an entry up refreshes its
recency, exactly as an embedding application's read would.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := openCache(cmd.Context())
	if err != nil {
		printError("%v", err)
		return err
	}
	defer c.Close()

	entry, err := c.Entry(args[0])
	if err != nil {
		printError("%v", err)
		return err
	}

	occupied, ok := entry.(*cache.Occupied)
	if !ok {
		printError("entry %q not found", args[0])
		return fmt.Errorf("entry %q not found", args[0])
	}

	files := occupied.Files()
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	if len(args) == 2 {
		return catFile(files, args[1])
	}

	for _, f := range files {
		info, statErr := f.Stat()
		if statErr != nil {
			return statErr
		}
		fmt.Printf("%s\t%s\n", f.Name(), humanize.IBytes(uint64(info.Size())))
	}
	return nil
}

// catFile streams the named file to stdout.
func catFile(files []cache.NamedFile, name string) error {
	for _, f := range files {
		if f.Name() == name {
			_, err := io.Copy(os.Stdout, f)
			return err
		}
	}
	printError("file %q not found in entry", name)
	return fmt.Errorf("file %q not found in entry", name)
}
