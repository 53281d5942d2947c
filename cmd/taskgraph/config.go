package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowforge/taskgraph/pkg/resource"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
	"github.com/flowforge/taskgraph/pkg/workflow"
)

// fileConfig is the on-disk shape of a workflow definition: a flat list
// of tasks (each registered under a type name via task.Register),
// referencing each other by id, plus the storage root and engine
// settings to run them with.
type fileConfig struct {
	Name    string `yaml:"name"`
	Storage struct {
		Root string `yaml:"root"`
	} `yaml:"storage"`
	Jobs      int            `yaml:"jobs"`
	Resources map[string]int `yaml:"resources"`
	Tasks     []taskEntry    `yaml:"tasks"`
	Roots     []string       `yaml:"roots"`
}

type taskEntry struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Fields map[string]any `yaml:"fields"`
}

// loadConfig reads path and builds every declared task through the
// task.Register/Deserialize registry, resolving {ref: id} field values
// into the actual task.Task they point to.
func loadConfig(path string) (*fileConfig, map[string]task.Task, storage.Storage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("taskgraph: read config %q: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("taskgraph: parse config %q: %w", path, err)
	}

	store, err := storage.NewLocal(cfg.Storage.Root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("taskgraph: open storage root %q: %w", cfg.Storage.Root, err)
	}

	built := make(map[string]task.Task, len(cfg.Tasks))
	for _, entry := range cfg.Tasks {
		resolved := make(map[string]any, len(entry.Fields))
		for k, v := range entry.Fields {
			resolved[k] = resolveField(v, built)
		}
		t, err := task.Deserialize(mergeType(entry.Type, resolved))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("taskgraph: build task %q: %w", entry.ID, err)
		}
		built[entry.ID] = t
	}
	return &cfg, built, store, nil
}

func (cfg *fileConfig) budget() resource.Budget {
	if len(cfg.Resources) == 0 {
		return nil
	}
	return resource.Budget(cfg.Resources)
}

func (cfg *fileConfig) jobCount() int {
	if cfg.Jobs < 1 {
		return 1
	}
	return cfg.Jobs
}

// loadWorkflow assembles the full Workflow a config declares, plus the
// job count and resource budget to run it with.
func loadWorkflow(path string) (workflow.Workflow, int, resource.Budget, error) {
	cfg, built, store, err := loadConfig(path)
	if err != nil {
		return workflow.Workflow{}, 0, nil, err
	}

	roots := make([]task.Task, 0, len(cfg.Roots))
	for _, id := range cfg.Roots {
		t, ok := built[id]
		if !ok {
			return workflow.Workflow{}, 0, nil, fmt.Errorf("taskgraph: root %q not declared in tasks", id)
		}
		roots = append(roots, t)
	}

	return workflow.New(cfg.Name, roots, store), cfg.jobCount(), cfg.budget(), nil
}

// loadJob picks a single declared task out of a config, for `taskgraph
// job`.
func loadJob(path, id string) (task.Task, storage.Storage, int, resource.Budget, error) {
	cfg, built, store, err := loadConfig(path)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	t, ok := built[id]
	if !ok {
		return nil, nil, 0, nil, fmt.Errorf("taskgraph: task %q not declared in %q", id, path)
	}
	return t, store, cfg.jobCount(), cfg.budget(), nil
}

func resolveField(v any, built map[string]task.Task) any {
	switch x := v.(type) {
	case map[string]any:
		if refID, ok := x["ref"].(string); ok {
			if t, found := built[refID]; found {
				return t
			}
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = resolveField(item, built)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = resolveField(item, built)
		}
		return out
	default:
		return v
	}
}

func mergeType(typeName string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	out["type"] = typeName
	for k, v := range fields {
		out[k] = v
	}
	return out
}
