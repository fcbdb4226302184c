package pages

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPage_EscapesMessage(t *testing.T) {
	var buf bytes.Buffer
	err := ErrorPage(http.StatusNotFound, `<script>alert("x")</script>`).Render(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>404 Not Found</title>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}
