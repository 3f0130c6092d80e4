package objectstore

import (
	"context"
	"strings"
	"sync"

	"github.com/graphmemory/graphmemory/internal/apperr"
)

// Fake is an in-memory ObjectStore used by tests across packages that
// depend on the object store adapter, matching the teacher's MockClient
// pattern in web/handlers/websocket.go.
type Fake struct {
	mu   sync.RWMutex
	objs map[string][]byte
	ct   map[string]string
}

// NewFake returns an empty in-memory object store.
func NewFake() *Fake {
	return &Fake{objs: make(map[string][]byte), ct: make(map[string]string)}
}

func (f *Fake) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objs[key] = cp
	f.ct[key] = contentType
	return nil
}

func (f *Fake) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.objs[key]
	if !ok {
		return nil, apperr.NotFound("object %q not found", key)
	}
	return data, nil
}

func (f *Fake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objs, key)
	delete(f.ct, key)
	return nil
}

func (f *Fake) ListPrefix(_ context.Context, prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var keys []string
	for k := range f.objs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *Fake) Exists(_ context.Context, key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.objs[key]
	return ok, nil
}

func (f *Fake) Head(_ context.Context, key string) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.objs[key]
	if !ok {
		return 0, apperr.NotFound("object %q not found", key)
	}
	return int64(len(data)), nil
}

var _ ObjectStore = (*Fake)(nil)
