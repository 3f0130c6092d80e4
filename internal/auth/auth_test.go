package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

func TestAuthenticateWithBootstrapKeyYieldsUnrestrictedAdmin(t *testing.T) {
	m := New(graphstore.NewFake(), "bootstrap-secret")
	principal, err := m.Authenticate(context.Background(), "bootstrap-secret")
	require.NoError(t, err)
	assert.True(t, principal.HasPermission(types.PermissionAdmin))
	assert.Empty(t, principal.MemoryIDs)
}

func TestAuthenticateRejectsWrongBootstrapKey(t *testing.T) {
	m := New(graphstore.NewFake(), "bootstrap-secret")
	_, err := m.Authenticate(context.Background(), "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestCreateTokenThenAuthenticateSucceeds(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	raw, token, err := m.CreateToken(context.Background(), "acme-ci", "", []types.Permission{types.PermissionRead}, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEmpty(t, token.TokenHash)

	principal, err := m.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "acme-ci", principal.ClientName)
	assert.True(t, principal.HasPermission(types.PermissionRead))
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	raw, token, err := m.CreateToken(context.Background(), "acme-ci", "", []types.Permission{types.PermissionRead}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.RevokeTokenByHash(context.Background(), token.TokenHash))

	_, err = m.Authenticate(context.Background(), raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	past := time.Now().Add(-time.Hour)
	raw, _, err := m.CreateToken(context.Background(), "acme-ci", "", []types.Permission{types.PermissionRead}, nil, &past)
	require.NoError(t, err)

	_, err = m.Authenticate(context.Background(), raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	_, err := m.Authenticate(context.Background(), "never-issued")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestUpdateMemoryIDsAddAppendsWithoutDuplicating(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	_, token, err := m.CreateToken(context.Background(), "c", "", nil, []string{"mem1"}, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateMemoryIDs(context.Background(), token.TokenHash, ActionAdd, []string{"mem1", "mem2"}))

	tokens, err := m.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.ElementsMatch(t, []string{"mem1", "mem2"}, tokens[0].MemoryIDs)
}

func TestUpdateMemoryIDsRemoveDropsNamedIDs(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	_, token, err := m.CreateToken(context.Background(), "c", "", nil, []string{"mem1", "mem2"}, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateMemoryIDs(context.Background(), token.TokenHash, ActionRemove, []string{"mem1"}))

	tokens, err := m.ListTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mem2"}, tokens[0].MemoryIDs)
}

func TestUpdateMemoryIDsSetReplacesScope(t *testing.T) {
	m := New(graphstore.NewFake(), "")
	_, token, err := m.CreateToken(context.Background(), "c", "", nil, []string{"mem1"}, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateMemoryIDs(context.Background(), token.TokenHash, ActionSet, []string{"mem3"}))

	tokens, err := m.ListTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mem3"}, tokens[0].MemoryIDs)
}

func TestPrincipalAllowsMemoryUnrestrictedWhenEmpty(t *testing.T) {
	p := &types.Principal{}
	assert.True(t, p.AllowsMemory("anything"))
}
