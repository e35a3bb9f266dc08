package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brainforge/app/core/interaction/cli"
)

var (
	serverURL    string
	pollInterval time.Duration
	pollTimeout  time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "brainstorm",
		Short:         "Run brainstorm pipelines against a brainforge server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9999", "orchestrator base URL")

	runCmd := &cobra.Command{
		Use:   "run \"topic\"",
		Short: "Submit a topic and wait for the prioritized ideas",
		Args:  cobra.ExactArgs(1),
		RunE:  runBrainstorm,
	}
	runCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "poll interval")
	runCmd.Flags().DurationVar(&pollTimeout, "timeout", 5*time.Minute, "give up after this long")

	statusCmd := &cobra.Command{
		Use:   "status task-id",
		Short: "Show the current state of a submitted task",
		Args:  cobra.ExactArgs(1),
		RunE:  showStatus,
	}

	root.AddCommand(runCmd, statusCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBrainstorm(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(args[0])
	if topic == "" {
		return errors.New("topic must not be blank")
	}

	client := cli.NewClient(serverURL)
	taskID, err := client.Submit(cmd.Context(), topic)
	if err != nil {
		return fmt.Errorf("submit brainstorm: %w", err)
	}
	fmt.Printf("Submitted task %s, polling every %s...\n", taskID, pollInterval)

	view, err := client.Wait(cmd.Context(), taskID, pollInterval, pollTimeout)
	if err != nil {
		if errors.Is(err, cli.ErrPollTimeout) {
			return fmt.Errorf("task %s still running after %s; check later with: brainstorm status %s", taskID, pollTimeout, taskID)
		}
		return err
	}

	cli.Render(os.Stdout, view)
	if view.Status == "failed" {
		os.Exit(1)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	client := cli.NewClient(serverURL)
	view, err := client.Fetch(cmd.Context(), strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	if view.Terminal() {
		cli.Render(os.Stdout, view)
		return nil
	}
	fmt.Printf("Task %s is %s\n", view.TaskID, view.Status)
	return nil
}
