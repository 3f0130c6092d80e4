package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

const schemaVersion = 1

// backupsPrefix is the object-store root every backup lives under.
// storage_check (§4.10) treats everything under this prefix as never an
// orphan candidate.
const backupsPrefix = "_backups/"

// Service implements backup_create/list/restore/download/restore_archive/
// delete (§4.9). A backup's identity is its object-store prefix,
// `_backups/{memory_id}/{timestamp}/` — backup_id is that compound
// "{memory_id}/{timestamp}" string, so Restore/Download/Delete can locate
// a backup's files without a separate index (an Open Question resolution
// recorded in DESIGN.md).
type Service struct {
	objects  objectstore.ObjectStore
	graph    graphstore.GraphStore
	vectors  vectorstore.VectorStore
	tunables config.Tunables
}

func New(objects objectstore.ObjectStore, graph graphstore.GraphStore, vectors vectorstore.VectorStore, tunables config.Tunables) *Service {
	return &Service{objects: objects, graph: graph, vectors: vectors, tunables: tunables}
}

func backupPrefix(memoryID, timestampKey string) string {
	return fmt.Sprintf("%s%s/%s/", backupsPrefix, memoryID, timestampKey)
}

func timestampKey(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}

// snapshotFiles renders the graph, vectors, and document-keys payloads
// for a memory, in the fixed order the manifest checksum covers.
func (s *Service) snapshotFiles(ctx context.Context, memoryID string) (graphJSON, vectorsNDJSON, keysJSON []byte, counts types.BackupCounts, err error) {
	snap, err := s.graph.Snapshot(ctx, memoryID)
	if err != nil {
		return nil, nil, nil, types.BackupCounts{}, fmt.Errorf("backup: snapshot graph: %w", err)
	}
	graphJSON, err = json.Marshal(snap)
	if err != nil {
		return nil, nil, nil, types.BackupCounts{}, fmt.Errorf("backup: marshal graph snapshot: %w", err)
	}

	chunks, err := s.vectors.AllChunks(ctx, memoryID)
	if err != nil {
		return nil, nil, nil, types.BackupCounts{}, fmt.Errorf("backup: export vectors: %w", err)
	}
	var vbuf bytes.Buffer
	for _, c := range chunks {
		rec := types.VectorRecord{
			ID: c.ID,
			Payload: map[string]interface{}{
				"memory_id":    c.MemoryID,
				"document_id":  c.DocumentID,
				"sequence":     c.Sequence,
				"section_path": c.SectionPath,
				"token_count":  c.TokenCount,
				"text":         c.Text,
			},
			Vector: c.Vector,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, nil, nil, types.BackupCounts{}, fmt.Errorf("backup: marshal vector record: %w", err)
		}
		vbuf.Write(line)
		vbuf.WriteByte('\n')
	}
	vectorsNDJSON = vbuf.Bytes()

	keys := make(map[string]string, len(snap.Documents))
	for _, d := range snap.Documents {
		keys[d.ID] = d.ObjectURI
	}
	keysJSON, err = json.Marshal(keys)
	if err != nil {
		return nil, nil, nil, types.BackupCounts{}, fmt.Errorf("backup: marshal document keys: %w", err)
	}

	counts = types.BackupCounts{
		Entities:  len(snap.Entities),
		Relations: len(snap.Relations),
		Documents: len(snap.Documents),
		Chunks:    len(chunks),
	}
	return graphJSON, vectorsNDJSON, keysJSON, counts, nil
}

// Create runs §4.9's backup_create: snapshot, export, manifest, write,
// then enforce retention.
func (s *Service) Create(ctx context.Context, memoryID, description string) (*types.BackupManifest, error) {
	if _, err := s.graph.GetMemory(ctx, memoryID); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	graphJSON, vectorsNDJSON, keysJSON, counts, err := s.snapshotFiles(ctx, memoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	manifest := types.BackupManifest{
		SchemaVersion:  schemaVersion,
		BackupID:       memoryID + "/" + timestampKey(now),
		MemoryID:       memoryID,
		CreatedAt:      now,
		Description:    description,
		Counts:         counts,
		ChecksumSHA256: buildChecksum(graphJSON, vectorsNDJSON, keysJSON),
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("backup: marshal manifest: %w", err)
	}

	parts := strings.SplitN(manifest.BackupID, "/", 2)
	prefix := backupPrefix(parts[0], parts[1])

	if err := s.objects.Put(ctx, prefix+"manifest.json", manifestJSON, "application/json"); err != nil {
		return nil, fmt.Errorf("backup: write manifest: %w", err)
	}
	if err := s.objects.Put(ctx, prefix+"graph_data.json", graphJSON, "application/json"); err != nil {
		return nil, fmt.Errorf("backup: write graph data: %w", err)
	}
	if err := s.objects.Put(ctx, prefix+"vectors.jsonl", vectorsNDJSON, "application/x-ndjson"); err != nil {
		return nil, fmt.Errorf("backup: write vectors: %w", err)
	}
	if err := s.objects.Put(ctx, prefix+"document_keys.json", keysJSON, "application/json"); err != nil {
		return nil, fmt.Errorf("backup: write document keys: %w", err)
	}

	if err := s.enforceRetention(ctx, memoryID); err != nil {
		return &manifest, fmt.Errorf("backup: retention: %w", err)
	}

	return &manifest, nil
}

// List scans `_backups/{memory_id?}/` and reads every manifest found.
func (s *Service) List(ctx context.Context, memoryID string) ([]types.BackupInfo, error) {
	prefix := backupsPrefix
	if memoryID != "" {
		prefix = backupsPrefix + memoryID + "/"
	}
	manifests, err := s.readManifests(ctx, prefix)
	if err != nil {
		return nil, err
	}

	infos := make([]types.BackupInfo, 0, len(manifests))
	for _, m := range manifests {
		infos = append(infos, types.BackupInfo{
			BackupID:    m.BackupID,
			MemoryID:    m.MemoryID,
			CreatedAt:   m.CreatedAt,
			Description: m.Description,
			Counts:      m.Counts,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// readManifests reads every manifest.json under prefix.
func (s *Service) readManifests(ctx context.Context, prefix string) ([]types.BackupManifest, error) {
	keys, err := s.objects.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("backup: list backups: %w", err)
	}
	var manifests []types.BackupManifest
	for _, key := range keys {
		if !strings.HasSuffix(key, "manifest.json") {
			continue
		}
		raw, err := s.objects.Get(ctx, key)
		if err != nil {
			continue
		}
		var m types.BackupManifest
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// enforceRetention deletes the oldest backups of memoryID beyond
// retention_count (default 5).
func (s *Service) enforceRetention(ctx context.Context, memoryID string) error {
	retention := s.tunables.BackupRetentionCount
	if retention <= 0 {
		retention = 5
	}
	infos, err := s.List(ctx, memoryID)
	if err != nil {
		return err
	}
	if len(infos) <= retention {
		return nil
	}
	for _, stale := range infos[retention:] {
		if err := s.deleteBackupFiles(ctx, stale.BackupID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deleteBackupFiles(ctx context.Context, backupID string) error {
	parts := strings.SplitN(backupID, "/", 2)
	if len(parts) != 2 {
		return apperr.InvalidArgument("malformed backup_id %q", backupID)
	}
	prefix := backupPrefix(parts[0], parts[1])
	keys, err := s.objects.ListPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("backup: list backup files for delete: %w", err)
	}
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("backup: delete %q: %w", key, err)
		}
	}
	return nil
}

// Delete removes the backup prefix from the object store.
func (s *Service) Delete(ctx context.Context, backupID string) error {
	return s.deleteBackupFiles(ctx, backupID)
}

// manifestFor reads and parses a single backup's manifest.
func (s *Service) manifestFor(ctx context.Context, backupID string) (types.BackupManifest, string, error) {
	parts := strings.SplitN(backupID, "/", 2)
	if len(parts) != 2 {
		return types.BackupManifest{}, "", apperr.InvalidArgument("malformed backup_id %q", backupID)
	}
	prefix := backupPrefix(parts[0], parts[1])
	raw, err := s.objects.Get(ctx, prefix+"manifest.json")
	if err != nil {
		return types.BackupManifest{}, "", apperr.NotFound("backup %q not found", backupID)
	}
	var m types.BackupManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return types.BackupManifest{}, "", fmt.Errorf("backup: parse manifest: %w", err)
	}
	return m, prefix, nil
}

// Restore replays a backup's graph and vectors into a newly created
// memory, without re-ingesting or re-embedding (§4.9 Restore). The
// target memory must not already exist. The graph replay is a single
// transaction, so a graph replay failure leaves no memory behind and its
// error is returned as is; on vector replay failure after a successful
// graph replay, the operation is reported failed and the memory is
// deleted (§4.9 "strict coupling").
func (s *Service) Restore(ctx context.Context, backupID string) (*types.BackupManifest, error) {
	manifest, prefix, err := s.manifestFor(ctx, backupID)
	if err != nil {
		return nil, err
	}

	if _, err := s.graph.GetMemory(ctx, manifest.MemoryID); err == nil {
		return nil, apperr.AlreadyExists("memory %q already exists", manifest.MemoryID)
	}

	graphJSON, err := s.objects.Get(ctx, prefix+"graph_data.json")
	if err != nil {
		return nil, fmt.Errorf("backup: read graph data: %w", err)
	}
	vectorsNDJSON, err := s.objects.Get(ctx, prefix+"vectors.jsonl")
	if err != nil {
		return nil, fmt.Errorf("backup: read vectors: %w", err)
	}

	var snap types.GraphSnapshot
	if err := json.Unmarshal(graphJSON, &snap); err != nil {
		return nil, fmt.Errorf("backup: parse graph data: %w", err)
	}

	if err := s.graph.ReplaceGraphSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("backup: replay graph: %w", err)
	}

	if err := s.replayVectors(ctx, manifest.MemoryID, vectorsNDJSON); err != nil {
		if _, delErr := s.graph.DeleteMemory(ctx, manifest.MemoryID); delErr != nil {
			return nil, fmt.Errorf("backup: replay vectors failed (%v) and rollback failed: %w", err, delErr)
		}
		return nil, fmt.Errorf("backup: replay vectors: %w", err)
	}

	return &manifest, nil
}

func (s *Service) replayVectors(ctx context.Context, memoryID string, ndjson []byte) error {
	for _, line := range bytes.Split(ndjson, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec types.VectorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("parse vector record: %w", err)
		}
		chunk := vectorRecordToChunk(memoryID, rec)
		if err := s.vectors.Upsert(ctx, &chunk); err != nil {
			return fmt.Errorf("upsert chunk %q: %w", rec.ID, err)
		}
	}
	return nil
}

func vectorRecordToChunk(memoryID string, rec types.VectorRecord) types.Chunk {
	c := types.Chunk{ID: rec.ID, MemoryID: memoryID, Vector: rec.Vector}
	if v, ok := rec.Payload["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := rec.Payload["sequence"].(float64); ok {
		c.Sequence = int(v)
	}
	if v, ok := rec.Payload["token_count"].(float64); ok {
		c.TokenCount = int(v)
	}
	if v, ok := rec.Payload["text"].(string); ok {
		c.Text = v
	}
	if v, ok := rec.Payload["section_path"].([]interface{}); ok {
		for _, p := range v {
			if s, ok := p.(string); ok {
				c.SectionPath = append(c.SectionPath, s)
			}
		}
	}
	return c
}
