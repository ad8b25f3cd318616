package broadcast

import (
	"fmt"
	"strings"

	"crypto-digest-bot/internal/market"
	"crypto-digest-bot/lib/helpers"
	"crypto-digest-bot/lib/translation"
)

// Compose renders one digest message from a snapshot and the generated
// commentary. Pure formatting, no network or persistence, so the cycle
// logic stays testable without external services.
func Compose(snap *market.Snapshot, analysisText string) string {
	var sb strings.Builder

	sb.WriteString(translation.Translate("📊 Crypto market analysis"))
	sb.WriteString("\n\n")

	for _, q := range snap.Quotes {
		fmt.Fprintf(&sb, "💰 %s: $%s (%s)\n",
			strings.ToUpper(q.ID),
			helpers.FormatPriceFixed2(q.PriceUSD),
			helpers.FormatChangePct(q.Change24Pct),
		)
	}

	sb.WriteString("\n")
	sb.WriteString(translation.Translate("🤖 AI analysis:"))
	sb.WriteString("\n")
	sb.WriteString(analysisText)

	return sb.String()
}
