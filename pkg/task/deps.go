package task

// Dependencies returns the producer tasks t directly references in its
// declared fields, in field order, deduplicated by task_id. A task's
// Input() only carries Outputs identified by producing task_id, to avoid
// ownership cycles, so finding the actual producer Task object for an
// unmaterialized input requires a separate walk over Fields(): the
// identity hash's nesting rule already requires a consumer's Task-valued
// fields to hold the real producer object (it is only substituted by its
// task_id at hash time), so that same field set is what Dependencies
// walks.
func Dependencies(t Task) []Task {
	var deps []Task
	seen := make(map[string]bool)
	for _, f := range t.Fields() {
		collectTasks(f.Value, &deps, seen)
	}
	return deps
}

func collectTasks(v any, out *[]Task, seen map[string]bool) {
	switch x := v.(type) {
	case Task:
		id := Identity(x)
		if !seen[id] {
			seen[id] = true
			*out = append(*out, x)
		}
	case []Task:
		for _, item := range x {
			collectTasks(item, out, seen)
		}
	case []any:
		for _, item := range x {
			collectTasks(item, out, seen)
		}
	case map[string]any:
		for _, item := range x {
			collectTasks(item, out, seen)
		}
	}
}
