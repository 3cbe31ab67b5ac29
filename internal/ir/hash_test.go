package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestDeterminism(t *testing.T) {
	trace := []any{
		map[string]any{"seq": int64(1), "command": "CreateRecord"},
		map[string]any{"seq": int64(2), "command": "AssertRecord"},
	}

	d1, err := Digest(DomainTrace, trace)
	require.NoError(t, err)
	d2, err := Digest(DomainTrace, trace)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
	_, err = hex.DecodeString(d1)
	assert.NoError(t, err)
}

func TestDigestKeyOrderIrrelevant(t *testing.T) {
	a := map[string]any{"alpha": 1, "beta": 2}
	b := map[string]any{"beta": 2, "alpha": 1}

	assert.Equal(t, mustDigest(t, DomainTrace, a), mustDigest(t, DomainTrace, b))
}

func TestDigestChangesWithContent(t *testing.T) {
	a := map[string]any{"command": "CreateRecord"}
	b := map[string]any{"command": "UpdateRecord"}

	assert.NotEqual(t, mustDigest(t, DomainTrace, a), mustDigest(t, DomainTrace, b))
}

func TestDigestDomainSeparation(t *testing.T) {
	v := map[string]any{"name": "same"}

	assert.NotEqual(t, mustDigest(t, DomainTrace, v), mustDigest(t, "crmbdd/trace/v2", v))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" differs from "a" + 0x00 + "bc".
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestDigestError(t *testing.T) {
	_, err := Digest(DomainTrace, map[string]any{"ratio": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainTrace)
}

func mustDigest(t *testing.T, domain string, v any) string {
	t.Helper()
	d, err := Digest(domain, v)
	require.NoError(t, err)
	return d
}
