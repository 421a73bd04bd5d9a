package logger

// Field names shared across components so log queries stay consistent.
const (
	FieldComponent = "component"
	FieldSource    = "source"
	FieldQuery     = "query"
	FieldJobID     = "job_id"
	FieldURL       = "url"
	FieldRunID     = "run_id"
	FieldCount     = "count"
	FieldStatus    = "status"
	FieldTitle     = "title"
)

// Component is shorthand for the component field.
func Component(name string) Field { return String(FieldComponent, name) }

// Source is shorthand for the source field.
func Source(name string) Field { return String(FieldSource, name) }
