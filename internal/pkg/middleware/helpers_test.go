package middleware

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, r io.Reader, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}
