// cmd/graphmemory-admin is a small offline CLI for operations an operator
// needs without going through the dispatcher's HTTP surface: minting the
// first non-bootstrap token, and restoring a backup archive on a host
// that has no running server yet.
//
// Usage:
//
//	graphmemory-admin create-token --client <name> --email <email> --perm read,write [--memory-ids id1,id2]
//	graphmemory-admin restore-archive <path-to-archive.tar.gz>
//
// Grounded on cmd/memento-setup/main.go's standalone-admin-tool shape
// (flag parsing, stdout-only user-facing output, direct store access
// rather than going through a running server).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/backup"
	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

const embeddingDim = 1536

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "create-token":
		runCreateToken(cfg, os.Args[2:])
	case "restore-archive":
		runRestoreArchive(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: graphmemory-admin create-token|restore-archive [flags]")
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runCreateToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("create-token", flag.ExitOnError)
	client := fs.String("client", "", "client name")
	email := fs.String("email", "", "contact email")
	perms := fs.String("perm", "read", "comma-separated permissions: read,write,admin")
	memoryIDs := fs.String("memory-ids", "", "comma-separated memory_id scope, empty means unrestricted")
	if err := fs.Parse(args); err != nil {
		fatalf("%v", err)
	}
	if *client == "" {
		fatalf("--client is required")
	}

	graph, err := graphstore.Open(cfg.GraphStore.DSN)
	if err != nil {
		fatalf("failed to open graph store: %v", err)
	}
	defer graph.Close()

	manager := auth.New(graph, cfg.Security.BootstrapAdminKey)
	raw, token, err := manager.CreateToken(context.Background(), *client, *email, splitPermissions(*perms), splitNonEmpty(*memoryIDs), nil)
	if err != nil {
		fatalf("failed to create token: %v", err)
	}

	fmt.Printf("token:      %s\n", raw)
	fmt.Printf("client:     %s\n", token.ClientName)
	fmt.Printf("permissions: %v\n", token.Permissions)
	fmt.Println("store this token now — it is never shown again")
}

func runRestoreArchive(cfg *config.Config, args []string) {
	if len(args) != 1 {
		fatalf("usage: graphmemory-admin restore-archive <path>")
	}
	archiveBytes, err := os.ReadFile(args[0])
	if err != nil {
		fatalf("failed to read archive: %v", err)
	}

	ctx := context.Background()

	objects, err := objectstore.New(ctx, cfg.ObjectStore, nil)
	if err != nil {
		fatalf("failed to open object store: %v", err)
	}
	graph, err := graphstore.Open(cfg.GraphStore.DSN)
	if err != nil {
		fatalf("failed to open graph store: %v", err)
	}
	defer graph.Close()
	vectors, err := vectorstore.Open(graph.DB(), embeddingDim)
	if err != nil {
		fatalf("failed to open vector store: %v", err)
	}

	svc := backup.New(objects, graph, vectors, cfg.Tunables)
	manifest, err := svc.RestoreArchive(ctx, archiveBytes)
	if err != nil {
		fatalf("restore failed: %v", err)
	}
	fmt.Printf("restored memory %q from backup %q\n", manifest.MemoryID, manifest.BackupID)
}

func splitPermissions(s string) []types.Permission {
	parts := splitNonEmpty(s)
	perms := make([]types.Permission, 0, len(parts))
	for _, p := range parts {
		perms = append(perms, types.Permission(p))
	}
	return perms
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
