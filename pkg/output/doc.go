// Package output supplies the codec layer: concrete ways to store and
// load a value through a task.Output bound to storage. See blob.go,
// json.go, table.go, and object.go for the four variants.
package output
