package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache occupancy",
	Long:  `Open the cache root, rebuild its state from disk, and print entry count, occupied size, and capacity.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	c, err := openCache(cmd.Context())
	if err != nil {
		printError("%v", err)
		return err
	}
	defer c.Close()

	size := c.Size()
	capacity := c.Capacity()

	fmt.Printf("Root:     %s\n", c.Root())
	fmt.Printf("Entries:  %d\n", c.Len())
	fmt.Printf("Size:     %s\n", humanize.IBytes(size))
	if capacity > 0 {
		fmt.Printf("Capacity: %s (%.1f%% used)\n", humanize.IBytes(capacity),
			float64(size)/float64(capacity)*100)
	} else {
		fmt.Printf("Capacity: %s\n", humanize.IBytes(capacity))
	}

	return nil
}
