package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Info("order stored", slog.String("order_number", "SP-1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order stored", entry["msg"])
	assert.Equal(t, "SP-1", entry["order_number"])
}

func TestNew_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("cart loaded")

	assert.True(t, strings.Contains(buf.String(), "cart loaded"))
	assert.True(t, strings.Contains(buf.String(), "level=DEBUG"))
}
