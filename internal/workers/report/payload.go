package report

import (
	"fmt"
	"strings"

	"github.com/ternarybob/daybook/internal/common"
	"github.com/ternarybob/daybook/internal/marketdata"
	"github.com/ternarybob/daybook/internal/models"
)

// maxHeadlines caps how many news items a report carries.
const maxHeadlines = 5

// BuildPayload derives the report payload from fetched price bars and news.
// Bars must be ordered oldest first and non-empty; the last bar is the
// session being reported.
func BuildPayload(identity models.TickerIdentity, date common.BusinessDate, bars []marketdata.EODBar, news []marketdata.NewsItem) (models.ReportPayload, error) {
	if len(bars) == 0 {
		return models.ReportPayload{}, fmt.Errorf("no price bars for %s", identity.Canonical())
	}

	latest := bars[len(bars)-1]

	payload := models.ReportPayload{
		CompanyName: identity.CompanyName,
		Exchange:    identity.Exchange,
		Close:       latest.Close,
		Volume:      latest.Volume,
		High:        latest.High,
		Low:         latest.Low,
	}

	if len(bars) > 1 {
		payload.PreviousClose = bars[len(bars)-2].Close
	}
	if payload.PreviousClose != 0 {
		payload.ChangePercent = (latest.Close - payload.PreviousClose) / payload.PreviousClose * 100
	}

	for _, bar := range bars {
		if bar.High > payload.High {
			payload.High = bar.High
		}
		if bar.Low < payload.Low {
			payload.Low = bar.Low
		}
	}

	for i, item := range news {
		if i >= maxHeadlines {
			break
		}
		payload.Headlines = append(payload.Headlines, models.Headline{
			Title:       item.Title,
			Source:      item.Source,
			URL:         item.URL,
			PublishedAt: item.PublishedAt,
		})
	}

	payload.Summary = renderSummary(identity, date, payload, len(bars))
	return payload, nil
}

// renderSummary produces the markdown source for the report's PDF artifact.
func renderSummary(identity models.TickerIdentity, date common.BusinessDate, p models.ReportPayload, barCount int) string {
	var b strings.Builder

	name := identity.CompanyName
	if name == "" {
		name = identity.Canonical()
	}

	fmt.Fprintf(&b, "# %s (%s)\n\n", name, identity.Canonical())
	fmt.Fprintf(&b, "Daily report for %s", date.String())
	if identity.Exchange != "" {
		fmt.Fprintf(&b, " on %s", identity.Exchange)
	}
	b.WriteString("\n\n## Price Summary\n\n")

	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Close | %.2f |\n", p.Close)
	if p.PreviousClose != 0 {
		fmt.Fprintf(&b, "| Previous Close | %.2f |\n", p.PreviousClose)
		fmt.Fprintf(&b, "| Change | %+.2f%% |\n", p.ChangePercent)
	}
	fmt.Fprintf(&b, "| Volume | %d |\n", p.Volume)
	fmt.Fprintf(&b, "| High (%d sessions) | %.2f |\n", barCount, p.High)
	fmt.Fprintf(&b, "| Low (%d sessions) | %.2f |\n", barCount, p.Low)

	if len(p.Headlines) > 0 {
		b.WriteString("\n## Headlines\n\n")
		for _, h := range p.Headlines {
			if h.Source != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", h.Title, h.Source)
			} else {
				fmt.Fprintf(&b, "- %s\n", h.Title)
			}
		}
	}

	return b.String()
}
