/*
Package log provides structured logging for taskgraph using zerolog.

A single global Logger is configured once via Init, then every
long-running component (the engine, the reference manager) derives its
own child logger via WithComponent so log lines carry a stable
"component" field. WithRunID, WithTaskID, and WithOutputKey layer
further correlation fields onto an existing child where a caller has a
specific run, task, or output in scope.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	engineLog := log.WithRunID(log.WithComponent("engine"), runID)
	log.WithTaskID(engineLog, id).Debug().Msg("task completed")

# Integration Points

  - pkg/engine: run/task correlation on scheduling decisions and worker lifecycle
  - pkg/refmanager: output correlation on ephemeral-output purges
  - cmd/taskgraph: initializes the logger from CLI flags

# See Also

Zerolog documentation: https://github.com/rs/zerolog
*/
package log
