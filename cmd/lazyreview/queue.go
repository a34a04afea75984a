package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and replay the offline action queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued review actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		actions, err := a.store.List(nil)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		for _, action := range actions {
			fmt.Printf("%4d  %-15s  %-30s  %s  %s\n",
				action.ID, action.Kind, action.Target.String(),
				action.EnqueuedAt.Format("2006-01-02 15:04"), action.Status)
			if action.LastError != "" {
				fmt.Printf("      last error: %s\n", action.LastError)
			}
		}
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Drop a queued action without replaying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid action id %q", args[0])
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Remove(id); err != nil {
			return err
		}
		fmt.Printf("Removed action %d.\n", id)
		return nil
	},
}

var queueFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Replay queued actions against the code hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.engine.Run(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Replayed %d, failed %d, skipped %d.\n", summary.Succeeded, summary.Failed, summary.Skipped)
		for _, e := range summary.Errors {
			fmt.Printf("  %s\n", e.Error())
		}
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd, queueRemoveCmd, queueFlushCmd)
}
