package marketdata

import (
	"fmt"
	"time"
)

// eodBarWire is the provider's EOD row shape. Dates arrive as YYYY-MM-DD
// strings and are parsed into time.Time on conversion.
type eodBarWire struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjusted_close"`
	Volume   int64   `json:"volume"`
}

func (w eodBarWire) toBar() (EODBar, error) {
	date, err := time.Parse("2006-01-02", w.Date)
	if err != nil {
		return EODBar{}, fmt.Errorf("invalid bar date %q: %w", w.Date, err)
	}
	return EODBar{
		Date:   date,
		Open:   w.Open,
		High:   w.High,
		Low:    w.Low,
		Close:  w.Close,
		Volume: w.Volume,
	}, nil
}

// newsItemWire is the provider's news row shape.
type newsItemWire struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

func (w newsItemWire) toItem() NewsItem {
	published, err := time.Parse(time.RFC3339, w.Date)
	if err != nil {
		// Some feeds omit the time component
		published, _ = time.Parse("2006-01-02", w.Date)
	}
	return NewsItem{
		Title:       w.Title,
		Source:      w.Source,
		URL:         w.Link,
		PublishedAt: published,
	}
}
