package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderedHTMLRequiresURL(t *testing.T) {
	_, err := RenderedHTML(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL is required")
}
