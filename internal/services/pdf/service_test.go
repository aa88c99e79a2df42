package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/daybook/internal/common"
)

func TestConvertMarkdownToPDF(t *testing.T) {
	svc := NewService(common.GetLogger())

	markdown := `# NVDA Daily Report

**Close:** 105.00 (+5.0%)

## Price Summary

| Metric | Value |
|--------|-------|
| Close  | 105.00 |
| Volume | 6000 |

## Headlines

- Earnings beat expectations
- New datacenter contract announced
`

	data, err := svc.ConvertMarkdownToPDF(markdown, "NVDA 2026-01-03")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestConvertEmptyMarkdown(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.ConvertMarkdownToPDF("", "empty")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
