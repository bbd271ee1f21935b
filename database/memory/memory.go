package memory

import (
	"bytes"
	"encoding/gob"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/model"
)

func init() {
	gob.Register(time.Time{})
}

// Memory keeps the catalog gob-encoded in a map. It backs tests and the
// "memory" data store.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	order []string

	limit           int
	PublishFunction cache.PublishFunctionEvent
}

func New(limit int, pubfn cache.PublishFunctionEvent) database.Persister {
	return &Memory{
		data:            make(map[string][]byte),
		limit:           limit,
		PublishFunction: pubfn,
	}
}

func (m *Memory) NewID() string {
	return uuid.NewString()
}

func (m *Memory) Ping() error {
	return nil
}

func mustEnc(fn model.Function) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fn); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func dec(b []byte) (fn model.Function, err error) {
	err = gob.NewDecoder(bytes.NewReader(b)).Decode(&fn)
	return
}

func (m *Memory) publish(typ, name string) {
	if m.PublishFunction == nil {
		return
	}

	m.PublishFunction(cache.FunctionEvent{
		ID:   m.NewID(),
		Type: typ,
		Name: name,
		At:   time.Now(),
	})
}
