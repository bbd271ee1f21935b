package cache

import "time"

// Function lifecycle event types published on the functions channel.
const (
	EventFunctionCreated = "function_created"
	EventFunctionUpdated = "function_updated"
	EventFunctionDeleted = "function_deleted"
)

// FunctionsChannel is the pub/sub channel carrying catalog changes.
const FunctionsChannel = "rb_functions"

// FunctionEvent notifies external watchers of a catalog change.
type FunctionEvent struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// PublishFunctionEvent is what persisters call after a successful mutation.
type PublishFunctionEvent func(evt FunctionEvent)

type Volatilizer interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	GetTyped(key string, v any) error
	SetTyped(key string, v any) error
	Inc(key string, by int64) (int64, error)
	PublishFunction(evt FunctionEvent) error
}
