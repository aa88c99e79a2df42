package artifacts

import (
	"fmt"

	"github.com/ternarybob/daybook/internal/common"
)

// PDFContentType is the content type for PDF artifacts.
const PDFContentType = "application/pdf"

// PDFKey returns the storage key for a report's PDF artifact.
// Keys are stable per (symbol, business_date), so a re-run overwrites the
// previous artifact rather than orphaning it.
func PDFKey(symbol string, date common.BusinessDate) string {
	return fmt.Sprintf("reports/%s/%s.pdf", symbol, date.String())
}
