package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindArguments(t *testing.T) {
	t.Parallel()

	t.Run("proper types", func(t *testing.T) {
		var req ExplainRequest
		err := bindArguments(map[string]interface{}{
			"file":          "src/index.ts",
			"class":         "Room",
			"include_graph": true,
		}, &req)
		require.NoError(t, err)

		assert.Equal(t, "src/index.ts", req.File)
		assert.Equal(t, "Room", req.Class)
		assert.Empty(t, req.Marker)
		assert.True(t, req.IncludeGraph)
	})

	t.Run("stringly typed booleans", func(t *testing.T) {
		var req ExplainRequest
		err := bindArguments(map[string]interface{}{
			"file":          "src/index.ts",
			"include_graph": "true",
		}, &req)
		require.NoError(t, err)
		assert.True(t, req.IncludeGraph)
	})

	t.Run("missing fields stay zero", func(t *testing.T) {
		var req InferRequest
		require.NoError(t, bindArguments(map[string]interface{}{}, &req))
		assert.Equal(t, InferRequest{}, req)
	})

	t.Run("unconvertible value", func(t *testing.T) {
		var req ExplainRequest
		err := bindArguments(map[string]interface{}{
			"include_graph": []interface{}{"x", "y"},
		}, &req)
		assert.Error(t, err)
	})
}
