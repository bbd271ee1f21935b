package cache

import (
	"encoding/json"
	"errors"
	"sync"
)

// CacheDev keeps everything in memory. Used in dev and in tests where no
// Redis is reachable.
type CacheDev struct {
	mu   sync.Mutex
	data map[string]string
}

func NewDevCache() *CacheDev {
	return &CacheDev{data: make(map[string]string)}
}

func (d *CacheDev) Get(key string) (val string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	val, ok := d.data[key]
	if !ok {
		err = errors.New("key not found in cache")
	}
	return
}

func (d *CacheDev) Set(key string, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.data[key] = value
	return nil
}

func (d *CacheDev) GetTyped(key string, v any) error {
	val, err := d.Get(key)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), v)
}

func (d *CacheDev) SetTyped(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return d.Set(key, string(b))
}

func (d *CacheDev) Inc(key string, by int64) (n int64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.data[key]; ok {
		if err = json.Unmarshal([]byte(cur), &n); err != nil {
			return
		}
	}

	n += by

	b, err := json.Marshal(n)
	if err != nil {
		return
	}

	d.data[key] = string(b)
	return
}

func (d *CacheDev) PublishFunction(evt FunctionEvent) error {
	// no subscribers in dev, dropped on purpose
	return nil
}
