// Package auth implements §4.11's token manager and bearer authentication
// policy: tokens live as nodes in the graph store keyed by the SHA-256 hash
// of the raw token string, and a bootstrap key from configuration grants
// full admin access before any token has been created.
//
// Grounded on web/handlers/middleware.go's RequireAuth (constant-time
// bearer comparison) and RateLimiter (golang.org/x/time/rate), generalized
// from a single static API token into per-token Principal derivation
// against internal/graphstore's token sub-store.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// randomToken generates a 32-byte random credential, base64url-encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryIDAction is one of the three ways admin_update_token may mutate a
// token's memory_ids scope.
type MemoryIDAction string

const (
	ActionAdd    MemoryIDAction = "add"
	ActionRemove MemoryIDAction = "remove"
	ActionSet    MemoryIDAction = "set"
)

// Manager issues, authenticates, and administers tokens.
type Manager struct {
	graph        graphstore.GraphStore
	bootstrapKey string
	now          func() time.Time
}

// New constructs a Manager. bootstrapKey may be empty, in which case no
// bootstrap admin credential is accepted and at least one token must
// already exist in the graph store.
func New(graph graphstore.GraphStore, bootstrapKey string) *Manager {
	return &Manager{graph: graph, bootstrapKey: bootstrapKey, now: time.Now}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Authenticate hashes rawToken and derives the acting Principal. The
// bootstrap key, if configured, is checked first via constant-time
// comparison and always resolves to an unrestricted admin principal; it
// never touches the graph store and is never itself hashed or persisted.
func (m *Manager) Authenticate(ctx context.Context, rawToken string) (*types.Principal, error) {
	if rawToken == "" {
		return nil, apperr.Unauthorized("missing bearer token")
	}
	if m.bootstrapKey != "" && subtle.ConstantTimeCompare([]byte(rawToken), []byte(m.bootstrapKey)) == 1 {
		return &types.Principal{
			ClientName:  "bootstrap",
			Permissions: []types.Permission{types.PermissionAdmin, types.PermissionWrite, types.PermissionRead},
		}, nil
	}

	token, err := m.graph.GetToken(ctx, hashToken(rawToken))
	if err != nil {
		return nil, apperr.Unauthorized("invalid bearer token")
	}
	if !token.Active(m.now()) {
		return nil, apperr.Unauthorized("token is revoked or expired")
	}
	return &types.Principal{
		ClientName:  token.ClientName,
		Permissions: token.Permissions,
		MemoryIDs:   token.MemoryIDs,
	}, nil
}

// CreateToken mints a new token, returning the raw (unhashed) value to the
// caller exactly once. Only the hash is persisted.
func (m *Manager) CreateToken(ctx context.Context, clientName, email string, perms []types.Permission, memoryIDs []string, expiresAt *time.Time) (rawToken string, token *types.Token, err error) {
	raw, err := randomToken()
	if err != nil {
		return "", nil, fmt.Errorf("auth: generate token: %w", err)
	}
	t := &types.Token{
		TokenHash:   hashToken(raw),
		ClientName:  clientName,
		Email:       email,
		Permissions: perms,
		MemoryIDs:   memoryIDs,
		CreatedAt:   m.now(),
		ExpiresAt:   expiresAt,
	}
	if err := m.graph.CreateToken(ctx, t); err != nil {
		return "", nil, err
	}
	return raw, t, nil
}

// ListTokens returns every token's metadata (never the raw value, which is
// not retained anywhere after CreateToken returns).
func (m *Manager) ListTokens(ctx context.Context) ([]types.Token, error) {
	return m.graph.ListTokens(ctx)
}

// RevokeTokenByHash revokes a token identified by its already-hashed id, as
// exposed to admin tooling (the raw value is never available again).
func (m *Manager) RevokeTokenByHash(ctx context.Context, tokenHash string) error {
	return m.graph.RevokeToken(ctx, tokenHash)
}

// UpdateMemoryIDs applies action to a token's memory_ids scope: add appends
// ids not already present, remove drops the named ids, set replaces the
// scope outright.
func (m *Manager) UpdateMemoryIDs(ctx context.Context, tokenHash string, action MemoryIDAction, ids []string) error {
	token, err := m.graph.GetToken(ctx, tokenHash)
	if err != nil {
		return err
	}

	var next []string
	switch action {
	case ActionSet:
		next = ids
	case ActionAdd:
		next = append(append([]string{}, token.MemoryIDs...), ids...)
		next = dedupeStrings(next)
	case ActionRemove:
		remove := make(map[string]bool, len(ids))
		for _, id := range ids {
			remove[id] = true
		}
		for _, id := range token.MemoryIDs {
			if !remove[id] {
				next = append(next, id)
			}
		}
	default:
		return apperr.InvalidArgument("unknown memory_ids action %q", action)
	}
	return m.graph.UpdateTokenMemoryIDs(ctx, tokenHash, next)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
