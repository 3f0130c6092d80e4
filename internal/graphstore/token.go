package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// Token sub-store: tokens are stored as rows in the same Postgres
// database as domain entities, per §4.11 and the teacher's
// single-database precedent (see DESIGN.md).

func (s *Store) CreateToken(ctx context.Context, t *types.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (token_hash, client_name, email, permissions, memory_ids, created_at, expires_at, revoked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.TokenHash, t.ClientName, t.Email, encodePermissions(t.Permissions), strings.Join(t.MemoryIDs, ","),
		t.CreatedAt, nullableTimePtr(t.ExpiresAt), nullableTimePtr(t.RevokedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.AlreadyExists("token already exists")
		}
		return apperr.DependencyFailure("graphstore", fmt.Errorf("create token: %w", err))
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenHash string) (*types.Token, error) {
	return s.scanToken(s.db.QueryRowContext(ctx, tokenSelect+` WHERE token_hash=$1`, tokenHash))
}

const tokenSelect = `SELECT token_hash, client_name, email, permissions, memory_ids, created_at, expires_at, revoked_at FROM tokens`

func (s *Store) scanToken(row *sql.Row) (*types.Token, error) {
	var t types.Token
	var perms, memIDs string
	var expires, revoked sql.NullTime
	err := row.Scan(&t.TokenHash, &t.ClientName, &t.Email, &perms, &memIDs, &t.CreatedAt, &expires, &revoked)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("token not found")
	}
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("scan token: %w", err))
	}
	t.Permissions = decodePermissions(perms)
	if memIDs != "" {
		t.MemoryIDs = strings.Split(memIDs, ",")
	}
	if expires.Valid {
		t.ExpiresAt = &expires.Time
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	return &t, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]types.Token, error) {
	rows, err := s.db.QueryContext(ctx, tokenSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, apperr.DependencyFailure("graphstore", fmt.Errorf("list tokens: %w", err))
	}
	defer rows.Close()

	var out []types.Token
	for rows.Next() {
		var t types.Token
		var perms, memIDs string
		var expires, revoked sql.NullTime
		if err := rows.Scan(&t.TokenHash, &t.ClientName, &t.Email, &perms, &memIDs, &t.CreatedAt, &expires, &revoked); err != nil {
			return nil, apperr.DependencyFailure("graphstore", err)
		}
		t.Permissions = decodePermissions(perms)
		if memIDs != "" {
			t.MemoryIDs = strings.Split(memIDs, ",")
		}
		if expires.Valid {
			t.ExpiresAt = &expires.Time
		}
		if revoked.Valid {
			t.RevokedAt = &revoked.Time
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) RevokeToken(ctx context.Context, tokenHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET revoked_at=$1 WHERE token_hash=$2 AND revoked_at IS NULL`, time.Now(), tokenHash)
	if err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("revoke token: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("token not found or already revoked")
	}
	return nil
}

func (s *Store) UpdateTokenMemoryIDs(ctx context.Context, tokenHash string, memoryIDs []string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET memory_ids=$1 WHERE token_hash=$2`, strings.Join(memoryIDs, ","), tokenHash)
	if err != nil {
		return apperr.DependencyFailure("graphstore", fmt.Errorf("update token: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("token not found")
	}
	return nil
}

func encodePermissions(perms []types.Permission) string {
	ss := make([]string, len(perms))
	for i, p := range perms {
		ss[i] = string(p)
	}
	return strings.Join(ss, ",")
}

func decodePermissions(s string) []types.Permission {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]types.Permission, len(parts))
	for i, p := range parts {
		out[i] = types.Permission(p)
	}
	return out
}

func nullableTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
