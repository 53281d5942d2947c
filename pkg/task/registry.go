package task

import (
	"fmt"
	"sync"
)

// Factory reconstructs a Task from its serialized field mapping.
type Factory func(fields map[string]any) (Task, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register associates a fully qualified type name with a Factory, so that
// Deserialize can reconstruct tasks of that type. Concrete task types
// register themselves from an init function, mirroring how the rest of
// the module favors explicit registration over reflection-based
// construction.
func Register(typeName string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = factory
}

// Serialize renders t as a mapping containing its fields plus a "type" tag
// holding t.TypeName() (the dotted name Register keys factories by; it is
// not rewritten into a "<module>:<type>" form).
// Round-tripping through Serialize then Deserialize must yield a task
// with the same task_id.
func Serialize(t Task) map[string]any {
	out := make(map[string]any, len(t.Fields())+1)
	out["type"] = t.TypeName()
	for _, f := range t.Fields() {
		out[f.Name] = canonicalValue(f.Value)
	}
	return out
}

// Deserialize reconstructs a Task from data produced by Serialize, using
// the Factory registered for data's type tag.
func Deserialize(data map[string]any) (Task, error) {
	typeName, _ := data["type"].(string)
	if typeName == "" {
		return nil, fmt.Errorf("task: deserialize: missing type tag")
	}
	registryMu.RLock()
	factory, ok := registry[typeName]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("task: deserialize: no factory registered for type %q", typeName)
	}
	fields := make(map[string]any, len(data)-1)
	for k, v := range data {
		if k == "type" {
			continue
		}
		fields[k] = v
	}
	return factory(fields)
}
