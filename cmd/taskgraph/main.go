package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowforge/taskgraph/pkg/log"
	"github.com/flowforge/taskgraph/pkg/metrics"
	"github.com/flowforge/taskgraph/pkg/task"
	"github.com/flowforge/taskgraph/pkg/workflow"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "taskgraph",
	Short:   "taskgraph - content-addressed DAG task execution",
	Version: Version,
	Long: `taskgraph runs a declared set of tasks to completion: it hashes each
task's parameters into a stable identity, walks the dependency frontier
those identities imply, and skips anything whose declared outputs
already exist.`,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"taskgraph version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(jobCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

var runCmd = &cobra.Command{
	Use:   "run WORKFLOW.yaml",
	Short: "Run every task declared in a workflow file to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		wf, jobs, budget, err := loadWorkflow(args[0])
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			go func() {
				if err := http.ListenAndServe(metricsAddr, metrics.Handler()); err != nil {
					metricsLogger := log.WithComponent("metrics")
					metricsLogger.Error().Err(err).Msg("metrics server error")
				}
			}()
			fmt.Printf("metrics endpoint: http://%s/metrics\n", metricsAddr)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nshutting down...")
			cancel()
		}()

		if err := workflow.RunWorkflow(ctx, wf, jobs, budget); err != nil {
			return fmt.Errorf("taskgraph: run failed: %w", err)
		}

		fmt.Println("✓ run complete")
		return nil
	},
}

func init() {
	runCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables)")
}

var jobCmd = &cobra.Command{
	Use:   "job WORKFLOW.yaml TASK_ID",
	Short: "Run a single task declared in a workflow file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, store, jobs, budget, err := loadJob(args[0], args[1])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\nshutting down...")
			cancel()
		}()

		if err := workflow.RunJob(ctx, []task.Task{t}, store, jobs, budget); err != nil {
			return fmt.Errorf("taskgraph: job failed: %w", err)
		}

		fmt.Println("✓ job complete")
		return nil
	},
}
