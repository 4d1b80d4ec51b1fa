package cart

import (
	"fmt"
	"net/url"
	"strings"
)

// Summary renders the itemised order text sent to the shop.
func Summary(lines []Line) string {
	var b strings.Builder
	b.WriteString("Hello! I would like to order the following items:\n\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%s\n", l.Name)
		fmt.Fprintf(&b, "   Quantity: %d\n", l.Quantity)
		fmt.Fprintf(&b, "   Price: $%s each\n", l.Price.StringFixed(2))
		fmt.Fprintf(&b, "   Subtotal: $%s\n\n", l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: $%s\n\n", Total(lines).StringFixed(2))
	b.WriteString("Please confirm availability and delivery details. Thank you!")
	return b.String()
}

// MessageLink is a WhatsApp deep link to phone pre-filled with the summary.
func MessageLink(phone string, lines []Line) string {
	text := strings.ReplaceAll(url.QueryEscape(Summary(lines)), "+", "%20")
	return "https://wa.me/" + url.PathEscape(strings.TrimPrefix(phone, "+")) + "?text=" + text
}
