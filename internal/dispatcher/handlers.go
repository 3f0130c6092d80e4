package dispatcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/backup"
	"github.com/graphmemory/graphmemory/internal/ingest"
	"github.com/graphmemory/graphmemory/internal/query"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func decodeArgs(argsJSON json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(argsJSON, v); err != nil {
		return apperr.InvalidArgument("malformed arguments: %v", err)
	}
	return nil
}

// --- memory_* ---

func handleMemoryCreate(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID    string `json:"memory_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Ontology    string `json:"ontology"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	if args.MemoryID == "" || args.Ontology == "" {
		return nil, apperr.InvalidArgument("memory_id and ontology are required")
	}
	if _, ok := d.ontologies.Get(args.Ontology); !ok {
		return nil, apperr.InvalidArgument("unknown ontology %q", args.Ontology)
	}

	err := d.graph.CreateMemory(ctx, &types.Memory{
		ID:           args.MemoryID,
		Name:         args.Name,
		Description:  args.Description,
		OntologyName: args.Ontology,
		CreatedAt:    time.Now(),
	})
	if apperr.Is(err, apperr.KindAlreadyExists) {
		return map[string]bool{"created": false}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]bool{"created": true}, nil
}

func handleMemoryDelete(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, ok := memoryIDScope(argsJSON)
	if !ok {
		return nil, apperr.InvalidArgument("memory_id is required")
	}
	return d.graph.DeleteMemory(ctx, memoryID)
}

func handleMemoryList(ctx context.Context, d *Dispatcher, _ *types.Principal, _ json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	return d.graph.ListMemories(ctx)
}

func handleMemoryStats(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, ok := memoryIDScope(argsJSON)
	if !ok {
		return nil, apperr.InvalidArgument("memory_id is required")
	}
	return d.graph.Stats(ctx, memoryID)
}

// memoryGraphResult is memory_graph's result shape: nodes, edges,
// documents (§6's "nodes+edges+documents").
type memoryGraphResult struct {
	Memory    types.Memory     `json:"memory"`
	Entities  []types.Entity   `json:"nodes"`
	Relations []types.Relation `json:"edges"`
	Documents []types.Document `json:"documents"`
}

func handleMemoryGraph(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, ok := memoryIDScope(argsJSON)
	if !ok {
		return nil, apperr.InvalidArgument("memory_id is required")
	}
	snap, err := d.graph.Snapshot(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	return memoryGraphResult{
		Memory:    snap.Memory,
		Entities:  snap.Entities,
		Relations: snap.Relations,
		Documents: snap.Documents,
	}, nil
}

func handleMemoryIngest(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, sink ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID         string `json:"memory_id"`
		Filename         string `json:"filename"`
		ContentBase64    string `json:"content_base64"`
		Force            bool   `json:"force"`
		SourcePath       string `json:"source_path"`
		SourceModifiedAt string `json:"source_modified_at"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(args.ContentBase64)
	if err != nil {
		return nil, apperr.InvalidArgument("content_base64 is not valid base64: %v", err)
	}

	var sourceModifiedAt time.Time
	if args.SourceModifiedAt != "" {
		sourceModifiedAt, err = time.Parse(time.RFC3339, args.SourceModifiedAt)
		if err != nil {
			return nil, apperr.InvalidArgument("source_modified_at is not RFC-3339: %v", err)
		}
	}

	return d.pipeline.Ingest(ctx, ingest.Request{
		MemoryID:         args.MemoryID,
		Filename:         args.Filename,
		Data:             data,
		Force:            args.Force,
		SourcePath:       args.SourcePath,
		SourceModifiedAt: sourceModifiedAt,
	}, sink)
}

// --- search / retrieval ---

func handleMemorySearch(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID string `json:"memory_id"`
		Query    string `json:"query"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	matches, _, err := query.SearchEntities(ctx, d.graph, args.MemoryID, args.Query, limit)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func handleMemoryGetContext(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID   string `json:"memory_id"`
		EntityName string `json:"entity_name"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	// entity_name carries no type, so an exact (memory, name, type) lookup
	// isn't possible directly; search by name and take the exact-name
	// match, preferring it over any other token-overlap result.
	matches, _, err := query.SearchEntities(ctx, d.graph, args.MemoryID, args.EntityName, 10)
	if err != nil {
		return nil, err
	}
	var entity *types.Entity
	for i := range matches {
		if matches[i].Entity.Name == args.EntityName {
			entity = &matches[i].Entity
			break
		}
	}
	if entity == nil {
		return nil, apperr.NotFound("entity %q not found", args.EntityName)
	}
	neighbours, relations, err := d.graph.Neighbours(ctx, entity.ID, 1)
	if err != nil {
		return nil, err
	}
	return struct {
		Entity     types.Entity     `json:"entity"`
		Neighbours []types.Entity   `json:"neighbours"`
		Relations  []types.Relation `json:"relations"`
	}{Entity: *entity, Neighbours: neighbours, Relations: relations}, nil
}

func handleQuestionAnswer(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID string `json:"memory_id"`
		Question string `json:"question"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	result, _, err := d.queries.Ask(ctx, args.MemoryID, args.Question)
	return result, err
}

func handleMemoryQuery(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID string `json:"memory_id"`
		Query    string `json:"query"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	result, _, err := d.queries.MemoryQuery(ctx, args.MemoryID, args.Query)
	return result, err
}

// --- document_* ---

func handleDocumentList(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, ok := memoryIDScope(argsJSON)
	if !ok {
		return nil, apperr.InvalidArgument("memory_id is required")
	}
	return d.graph.ListDocuments(ctx, memoryID)
}

func handleDocumentGet(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID   string `json:"memory_id"`
		DocumentID string `json:"document_id"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	doc, err := d.graph.GetDocument(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.MemoryID != args.MemoryID {
		return nil, apperr.NotFound("document %q not found in memory %q", args.DocumentID, args.MemoryID)
	}
	return doc, nil
}

func handleDocumentDelete(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID   string `json:"memory_id"`
		DocumentID string `json:"document_id"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	doc, err := d.graph.GetDocument(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.MemoryID != args.MemoryID {
		return nil, apperr.NotFound("document %q not found in memory %q", args.DocumentID, args.MemoryID)
	}
	counts, err := d.graph.DeleteDocument(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := d.vectors.DeleteByDocument(ctx, args.DocumentID); err != nil {
		return nil, err
	}
	return counts, nil
}

// --- ontology / storage / backup / admin ---

func handleOntologyList(_ context.Context, d *Dispatcher, _ *types.Principal, _ json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	return d.ontologies.List(), nil
}

func handleStorageCheck(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, _ := memoryIDScope(argsJSON)
	orphans, err := backup.CheckStorage(ctx, d.objects, d.graph, memoryID)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"orphans": orphans}, nil
}

func handleStorageCleanup(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID string `json:"memory_id"`
		DryRun   bool   `json:"dry_run"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	orphans, err := backup.CleanupStorage(ctx, d.objects, d.graph, args.MemoryID, args.DryRun)
	if err != nil {
		return nil, err
	}
	return map[string][]string{"deleted": orphans}, nil
}

func handleBackupCreate(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		MemoryID    string `json:"memory_id"`
		Description string `json:"description"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	return d.backups.Create(ctx, args.MemoryID, args.Description)
}

func handleBackupList(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	memoryID, _ := memoryIDScope(argsJSON)
	return d.backups.List(ctx, memoryID)
}

func handleBackupRestore(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		BackupID string `json:"backup_id"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	return d.backups.Restore(ctx, args.BackupID)
}

func handleBackupDownload(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		BackupID         string `json:"backup_id"`
		IncludeDocuments bool   `json:"include_documents"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	archive, err := d.backups.Download(ctx, args.BackupID, args.IncludeDocuments)
	if err != nil {
		return nil, err
	}
	return map[string]string{"archive_base64": base64.StdEncoding.EncodeToString(archive)}, nil
}

func handleBackupDelete(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		BackupID string `json:"backup_id"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	return nil, d.backups.Delete(ctx, args.BackupID)
}

func handleBackupRestoreArchive(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		ArchiveBase64 string `json:"archive_base64"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	archive, err := base64.StdEncoding.DecodeString(args.ArchiveBase64)
	if err != nil {
		return nil, apperr.InvalidArgument("archive_base64 is not valid base64: %v", err)
	}
	return d.backups.RestoreArchive(ctx, archive)
}

func handleAdminCreateToken(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		ClientName  string             `json:"client_name"`
		Email       string             `json:"email"`
		Permissions []types.Permission `json:"permissions"`
		MemoryIDs   []string           `json:"memory_ids"`
		ExpiresAt   *time.Time         `json:"expires_at"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	raw, token, err := d.tokens.CreateToken(ctx, args.ClientName, args.Email, args.Permissions, args.MemoryIDs, args.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return struct {
		Token string      `json:"token"`
		Info  types.Token `json:"info"`
	}{Token: raw, Info: *token}, nil
}

func handleAdminListTokens(ctx context.Context, d *Dispatcher, _ *types.Principal, _ json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	return d.tokens.ListTokens(ctx)
}

func handleAdminRevokeToken(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		TokenHash string `json:"token_hash"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	return nil, d.tokens.RevokeTokenByHash(ctx, args.TokenHash)
}

func handleAdminUpdateToken(ctx context.Context, d *Dispatcher, _ *types.Principal, argsJSON json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	var args struct {
		TokenHash string              `json:"token_hash"`
		Action    auth.MemoryIDAction `json:"action"`
		MemoryIDs []string            `json:"memory_ids"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return nil, err
	}
	return nil, d.tokens.UpdateMemoryIDs(ctx, args.TokenHash, args.Action, args.MemoryIDs)
}

// systemHealthResult reports per-dependency status (§6's "per-dependency
// status"). Each dependency is probed with the cheapest real call its
// store exposes rather than a dedicated ping method, since none of the
// store interfaces declare one.
type systemHealthResult struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

func handleSystemHealth(ctx context.Context, d *Dispatcher, _ *types.Principal, _ json.RawMessage, _ ingest.ProgressSink) (interface{}, error) {
	deps := make(map[string]string, 3)

	if _, err := d.graph.ListMemories(ctx); err != nil {
		deps["graph_store"] = "error: " + err.Error()
	} else {
		deps["graph_store"] = "ok"
	}

	if _, err := d.objects.ListPrefix(ctx, ""); err != nil {
		deps["object_store"] = "error: " + err.Error()
	} else {
		deps["object_store"] = "ok"
	}

	if _, err := d.vectors.CountByMemory(ctx, ""); err != nil {
		deps["vector_store"] = "error: " + err.Error()
	} else {
		deps["vector_store"] = "ok"
	}

	return systemHealthResult{Version: "1.0.0", Dependencies: deps}, nil
}
