package helpers

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPriceFixed2 renders a USD amount with thousands separators and
// exactly two decimals, e.g. 65432.1 -> "65,432.10".
func FormatPriceFixed2(price float64) string {
	return humanize.FormatFloat("#,###.##", price)
}

// FormatChangePct renders a signed percentage to two decimals,
// e.g. -2.345 -> "-2.35%".
func FormatChangePct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

func FormatCountUS(n int64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", n)
}

// FormatInterval renders a period in seconds as human-readable text.
func FormatInterval(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("every %d sec", seconds)
	case seconds < 3600:
		return fmt.Sprintf("every %d min", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("every %d h", seconds/3600)
	default:
		return fmt.Sprintf("every %d d", seconds/86400)
	}
}
