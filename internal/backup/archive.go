package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// archiveDigest hashes the archive's substantive members — graph data,
// vectors, document keys, and any included document bytes, each in a
// fixed order — so the digest can be computed before the manifest
// (which carries the digest) is marshalled, and recomputed identically
// after extraction for §4.9's "validate checksum" step.
func archiveDigest(graphJSON, vectorsNDJSON, keysJSON []byte, documents map[string][]byte) string {
	h := sha256.New()
	h.Write(graphJSON)
	h.Write(vectorsNDJSON)
	h.Write(keysJSON)
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write(documents[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Download produces a .tar.gz archive of a backup: manifest.json,
// graph_data.json, vectors.jsonl, document_keys.json, and — if
// includeDocuments — a documents/ directory with raw bytes pulled from
// the object store (§4.9 Download).
func (s *Service) Download(ctx context.Context, backupID string, includeDocuments bool) ([]byte, error) {
	manifest, prefix, err := s.manifestFor(ctx, backupID)
	if err != nil {
		return nil, err
	}

	graphJSON, err := s.objects.Get(ctx, prefix+"graph_data.json")
	if err != nil {
		return nil, fmt.Errorf("backup: read graph data: %w", err)
	}
	vectorsNDJSON, err := s.objects.Get(ctx, prefix+"vectors.jsonl")
	if err != nil {
		return nil, fmt.Errorf("backup: read vectors: %w", err)
	}
	keysJSON, err := s.objects.Get(ctx, prefix+"document_keys.json")
	if err != nil {
		return nil, fmt.Errorf("backup: read document keys: %w", err)
	}

	documents := make(map[string][]byte)
	if includeDocuments {
		var keys map[string]string
		if err := json.Unmarshal(keysJSON, &keys); err != nil {
			return nil, fmt.Errorf("backup: parse document keys: %w", err)
		}
		for docID, uri := range keys {
			data, err := s.objects.Get(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("backup: fetch document %q: %w", docID, err)
			}
			documents["documents/"+docID] = data
		}
	}

	manifest.ArchiveSHA256 = archiveDigest(graphJSON, vectorsNDJSON, keysJSON, documents)
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("backup: marshal manifest: %w", err)
	}

	return writeTarGz(manifestJSON, graphJSON, vectorsNDJSON, keysJSON, documents)
}

func writeTarGz(manifestJSON, graphJSON, vectorsNDJSON, keysJSON []byte, documents map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	files := []struct {
		name string
		data []byte
	}{
		{"manifest.json", manifestJSON},
		{"graph_data.json", graphJSON},
		{"vectors.jsonl", vectorsNDJSON},
		{"document_keys.json", keysJSON},
	}
	for _, f := range files {
		if err := writeTarEntry(tw, f.name, f.data); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeTarEntry(tw, name, documents[name]); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("backup: close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("backup: close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("backup: write tar header %q: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("backup: write tar entry %q: %w", name, err)
	}
	return nil
}

// RestoreArchive validates the archive's checksum, creates the target
// memory, re-uploads any included document bytes, then replays graph and
// vectors (§4.9 Restore from archive). If document_keys.json enumerates
// documents but no documents/ entries were extracted, it fails rather
// than silently restoring a graph with dangling object references.
func (s *Service) RestoreArchive(ctx context.Context, archiveBytes []byte) (*types.BackupManifest, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archiveBytes))
	if err != nil {
		return nil, apperr.InvalidArgument("not a gzip archive: %v", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var manifestJSON, graphJSON, vectorsNDJSON, keysJSON []byte
	documents := make(map[string][]byte)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.InvalidArgument("malformed tar archive: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, apperr.InvalidArgument("malformed tar entry %q: %v", hdr.Name, err)
		}
		switch {
		case hdr.Name == "manifest.json":
			manifestJSON = data
		case hdr.Name == "graph_data.json":
			graphJSON = data
		case hdr.Name == "vectors.jsonl":
			vectorsNDJSON = data
		case hdr.Name == "document_keys.json":
			keysJSON = data
		case strings.HasPrefix(hdr.Name, "documents/"):
			documents[hdr.Name] = data
		}
	}

	if manifestJSON == nil || graphJSON == nil || vectorsNDJSON == nil || keysJSON == nil {
		return nil, apperr.InvalidArgument("archive is missing required members")
	}

	var manifest types.BackupManifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, apperr.InvalidArgument("malformed manifest.json: %v", err)
	}

	var declaredKeys map[string]string
	if err := json.Unmarshal(keysJSON, &declaredKeys); err != nil {
		return nil, apperr.InvalidArgument("malformed document_keys.json: %v", err)
	}
	if len(declaredKeys) > 0 && len(documents) == 0 {
		return nil, apperr.InvalidArgument("manifest claims %d documents but archive has no documents/ entries", len(declaredKeys))
	}

	got := archiveDigest(graphJSON, vectorsNDJSON, keysJSON, documents)
	if got != manifest.ArchiveSHA256 {
		return nil, apperr.InvalidArgument("archive checksum mismatch: manifest has %s, computed %s", manifest.ArchiveSHA256, got)
	}

	if _, err := s.graph.GetMemory(ctx, manifest.MemoryID); err == nil {
		return nil, apperr.AlreadyExists("memory %q already exists", manifest.MemoryID)
	}

	for name, data := range documents {
		docID := strings.TrimPrefix(name, "documents/")
		uri, ok := declaredKeys[docID]
		if !ok {
			continue
		}
		if err := s.objects.Put(ctx, uri, data, "application/octet-stream"); err != nil {
			return nil, fmt.Errorf("backup: re-upload document %q: %w", docID, err)
		}
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
