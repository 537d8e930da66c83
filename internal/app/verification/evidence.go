package verification

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Evidence is what the extractor learned from a proof. Nil fields were not
// extracted for this submission type.
type Evidence struct {
	ExtractedText       string
	DetectedAmount      *decimal.Decimal
	ItemCount           *int
	HasTransportKeyword *bool
	TransportType       string
	DetectedLocation    string
	LocationMatches     *bool

	ExtractionFailed bool
	FailureReason    string
}

// Failed builds the evidence for an extraction that could not complete.
func Failed(reason string) Evidence {
	return Evidence{ExtractionFailed: true, FailureReason: reason}
}

var receiptTotalRe = regexp.MustCompile(`(?i)(?:total|amount|sum)[^\d]*(\d+(?:\.\d{2})?)`)

// TransportKeywords is the fixed vocabulary used when a quest names no transport types.
var TransportKeywords = []string{"bus", "train", "metro", "taxi", "flight", "ticket", "transport"}

// ParseReceiptAmount returns the first total/amount/sum figure, or zero.
func ParseReceiptAmount(text string) decimal.Decimal {
	m := receiptTotalRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// CountItems approximates line items as the number of line breaks.
func CountItems(text string) int {
	return strings.Count(text, "\n")
}

// FindKeyword returns the first candidate contained in text, ignoring case.
func FindKeyword(text string, candidates []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && strings.Contains(lower, c) {
			return c, true
		}
	}
	return "", false
}
