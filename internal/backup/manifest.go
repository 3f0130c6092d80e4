// Package backup implements object-store-backed backup/restore (§4.9)
// and storage-consistency checking (§4.10). Grounded on
// _examples/scrypster-memento/internal/backup/backup_service.go and
// retention.go for the create/list/retention shape, reworked from
// SQLite-file-copy to an object-store snapshot of the graph and vector
// collections — there is no single database file to copy once storage
// is split across a graph store and a vector store (see DESIGN.md on
// colocation).
package backup

import (
	"crypto/sha256"
	"encoding/hex"
)

// buildChecksum matches §4.9 step 4: a SHA-256 over the concatenation of
// (graph, vectors, keys) bytes in fixed order.
func buildChecksum(graph, vectors, keys []byte) string {
	h := sha256.New()
	h.Write(graph)
	h.Write(vectors)
	h.Write(keys)
	return hex.EncodeToString(h.Sum(nil))
}
