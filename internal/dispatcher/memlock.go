package dispatcher

import "sync"

// memoryLocks serializes concurrent calls scoped to the same memory_id,
// per §5's requirement that backup_create and memory_ingest never run
// concurrently against one memory (a backup must see a consistent
// snapshot, not one mid-ingest). Grounded on the teacher's
// MemoryEngine.mu idiom, generalized from one global mutex to one
// mutex per memory id so unrelated memories never block each other.
type memoryLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for memoryID, creating it on first use, and
// returns an unlock function.
func (m *memoryLocks) lock(memoryID string) func() {
	m.mu.Lock()
	l, ok := m.locks[memoryID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[memoryID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// serializedTools names the tools that must run one-at-a-time per
// memory_id rather than concurrently.
var serializedTools = map[string]bool{
	"memory_ingest": true,
	"backup_create": true,
}
