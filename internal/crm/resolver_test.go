package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryServer(t *testing.T, records []map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalSize": len(records),
			"records":   records,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestLookupReferral_NoMatch(t *testing.T) {
	c := connectedClient(t, queryServer(t, nil))

	exists, id, err := c.LookupReferral(context.Background(), "REF-202501-0007")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, id)
}

func TestLookupReferral_SingleMatch(t *testing.T) {
	c := connectedClient(t, queryServer(t, []map[string]string{{"Id": "a0B000000001"}}))

	exists, id, err := c.LookupReferral(context.Background(), "REF-202501-0007")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "a0B000000001", id)
}

func TestLookupReferral_MultipleMatchesTakesFirst(t *testing.T) {
	c := connectedClient(t, queryServer(t, []map[string]string{
		{"Id": "a0B000000001"},
		{"Id": "a0B000000002"},
	}))

	exists, id, err := c.LookupReferral(context.Background(), "REF-202501-0007")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "a0B000000001", id, "ambiguity resolves to the first record")
}

func TestLookupReferral_QueryFailurePropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := connectedClient(t, ts)

	_, _, err := c.LookupReferral(context.Background(), "REF-202501-0007")
	require.Error(t, err)

	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestEscapeSOQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"REF-1", "REF-1"},
		{"O'Brien", `O\'Brien`},
		{`a\b`, `a\\b`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeSOQL(tt.in))
	}
}
