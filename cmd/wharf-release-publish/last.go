package main

import (
	"fmt"

	"github.com/iver-wharf/wharf-release-publish/internal/lastpublish"
	"github.com/spf13/cobra"
)

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Prints what the most recent successful publish uploaded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, ok, err := lastpublish.Load()
		if err != nil {
			return fmt.Errorf("read last publish record: %w", err)
		}
		if !ok {
			log.Info().Message("No publish has been recorded on this machine yet.")
			return nil
		}
		fmt.Printf("run #%d -> %s\n", rec.RunID, rec.Tag)
		for _, asset := range rec.Assets {
			fmt.Println("  " + asset)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lastCmd)
}
