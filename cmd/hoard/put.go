package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/hoard/pkg/hoard/cache"
)

var putFrom string

var putCmd = &cobra.Command{
	Use:   "put <key> <name>",
	Short: "Insert a file into a vacant entry",
	Long: `Create the named file inside a new entry from stdin (or --from).
Inserting may evict older entries to stay within capacity. The entry must
not already exist; entries are populated as a group at creation time.`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putFrom, "from", "", "read content from file instead of stdin")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
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

	vacant, ok := entry.(*cache.Vacant)
	if !ok {
		printError("entry %q already exists", args[0])
		return fmt.Errorf("entry %q already exists", args[0])
	}

	var src io.Reader = os.Stdin
	if putFrom != "" {
		f, openErr := os.Open(putFrom)
		if openErr != nil {
			printError("%v", openErr)
			return openErr
		}
		defer f.Close()
		src = f
	}

	ro, err := vacant.InsertWith(args[1], func(f *os.File) error {
		_, copyErr := io.Copy(f, src)
		return copyErr
	})
	if err != nil {
		printError("%v", err)
		return err
	}
	defer ro.Close()

	info, err := ro.Stat()
	if err != nil {
		return err
	}
	fmt.Printf("stored %s/%s (%d bytes)\n", args[0], args[1], info.Size())
	return nil
}
