package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/objectstore"
)

// CheckStorage implements storage_check (§4.10): object-store keys under
// memories/{memory_id}/ (or, when memoryID is empty, all memories) that
// have no matching object_uri anywhere in the graph are orphans. Keys
// under _backups/ are never orphan candidates. The set of known URIs is
// always the union across all memories, even when the scan is scoped to
// one, so a document legitimately owned by a different memory is never
// reported as an orphan of the scoped one.
func CheckStorage(ctx context.Context, objects objectstore.ObjectStore, graph graphstore.GraphStore, memoryID string) ([]string, error) {
	known, err := graph.AllObjectURIs(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("storage_check: list known object uris: %w", err)
	}
	knownURIs := make(map[string]bool, len(known))
	for _, uri := range known {
		knownURIs[uri] = true
	}

	prefix := "memories/"
	if memoryID != "" {
		prefix = fmt.Sprintf("memories/%s/", memoryID)
	}
	keys, err := objects.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("storage_check: list object store keys: %w", err)
	}

	var orphans []string
	for _, key := range keys {
		if strings.HasPrefix(key, backupsPrefix) {
			continue
		}
		if !knownURIs[key] {
			orphans = append(orphans, key)
		}
	}
	return orphans, nil
}

// CleanupStorage implements storage_cleanup (§4.10): deletes detected
// orphans unless dryRun, idempotently (a key already gone by the time
// Delete runs is not an error worth surfacing to the caller).
func CleanupStorage(ctx context.Context, objects objectstore.ObjectStore, graph graphstore.GraphStore, memoryID string, dryRun bool) ([]string, error) {
	orphans, err := CheckStorage(ctx, objects, graph, memoryID)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return orphans, nil
	}
	for _, key := range orphans {
		if err := objects.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("storage_cleanup: delete %q: %w", key, err)
		}
	}
	return orphans, nil
}
