package ontology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const legalOntology = `
name: legal
entity_types:
  - name: Organization
    description: A company or legal entity
  - name: Date
    description: A calendar date
relation_types:
  - name: SIGNED_BY
    description: Contract signature relation
instructions: Prefer precise legal entity names.
max_entities: 200
max_relations: 200
`

func writeOntology(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderLoadsValidOntology(t *testing.T) {
	dir := t.TempDir()
	writeOntology(t, dir, "legal.yaml", legalOntology)

	l, err := NewLoader(dir)
	require.NoError(t, err)

	o, ok := l.Get("legal")
	require.True(t, ok)
	require.True(t, o.HasEntityType("Organization"))
	require.Equal(t, "Other", o.NormalizeEntityType("Spaceship"))
	require.Equal(t, "Organization", o.NormalizeEntityType("Organization"))
}

func TestLoaderRejectsMalformedOntology(t *testing.T) {
	dir := t.TempDir()
	writeOntology(t, dir, "broken.yaml", "name: broken\nentity_types: []\n")

	_, err := NewLoader(dir)
	require.Error(t, err)
}

func TestLoaderMissingDir(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/for/test")
	require.Error(t, err)
}
