package verification

import (
	"testing"
	"trippey_quests/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func maxAmount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func TestReceiptMaxAmountBoundary(t *testing.T) {
	reqs := model.QuestRequirements{MaxAmount: maxAmount("500")}

	atLimit := Evaluate(model.SubmissionReceipt, textEvidence(model.SubmissionReceipt, "Total: 500.00"), reqs)
	assert.Equal(t, model.StatusVerified, atLimit.Status)
	assert.Equal(t, 0.9, atLimit.Confidence)

	over := Evaluate(model.SubmissionReceipt, textEvidence(model.SubmissionReceipt, "Total: 500.01"), reqs)
	assert.Equal(t, model.StatusRejected, over.Status)
	assert.Equal(t, 0.1, over.Confidence)
	met := over.Details["requirementsMet"].(map[string]interface{})
	assert.Equal(t, false, met["maxAmount"])
	assert.Equal(t, true, met["minItems"])
}

func TestReceiptMinItems(t *testing.T) {
	reqs := model.QuestRequirements{MinItems: intPtr(3)}
	text := "Cafe Roma\nespresso 2.00\ncroissant 3.00\nTotal 5.00"

	res := Evaluate(model.SubmissionReceipt, textEvidence(model.SubmissionReceipt, text), reqs)
	assert.Equal(t, model.StatusVerified, res.Status)
	assert.Equal(t, 3, res.Details["itemCount"])
	assert.Equal(t, 5.0, res.Details["detectedAmount"])

	res = Evaluate(model.SubmissionReceipt, textEvidence(model.SubmissionReceipt, "Total 5.00"), reqs)
	assert.Equal(t, model.StatusRejected, res.Status)
}

func TestReceiptWithoutRequirementsIsVerified(t *testing.T) {
	res := Evaluate(model.SubmissionReceipt, textEvidence(model.SubmissionReceipt, "no figures here"), model.QuestRequirements{})
	assert.Equal(t, model.StatusVerified, res.Status)
	assert.Equal(t, 0.0, res.Details["detectedAmount"])
}

func TestPhotoIsNeverRejected(t *testing.T) {
	cases := []struct {
		name string
		ev   Evidence
		reqs model.QuestRequirements
		want model.SubmissionStatus
	}{
		{"no expectation, location found", Evidence{DetectedLocation: "Old Town Square, Prague"}, model.QuestRequirements{}, model.StatusVerified},
		{"no expectation, nothing found", Evidence{}, model.QuestRequirements{}, model.StatusUnderReview},
		{"expected and matched", Evidence{DetectedLocation: "Louvre", LocationMatches: boolPtr(true)}, model.QuestRequirements{ExpectedLocation: "Louvre"}, model.StatusVerified},
		{"expected and missed", Evidence{DetectedLocation: "a beach", LocationMatches: boolPtr(false)}, model.QuestRequirements{ExpectedLocation: "Louvre"}, model.StatusUnderReview},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(model.SubmissionPhoto, tc.ev, tc.reqs)
			assert.Equal(t, tc.want, res.Status)
			assert.NotEqual(t, model.StatusRejected, res.Status)
			if tc.want == model.StatusVerified {
				assert.Equal(t, 0.8, res.Confidence)
			} else {
				assert.Equal(t, 0.5, res.Confidence)
			}
		})
	}
}

func TestTicketTransportTypes(t *testing.T) {
	reqs := model.QuestRequirements{TransportTypes: []string{"bus", "train"}}

	bus := Evaluate(model.SubmissionTicket, Evidence{ExtractedText: "City BUS Ticket #123"}, reqs)
	assert.Equal(t, model.StatusVerified, bus.Status)
	assert.Equal(t, 0.85, bus.Confidence)
	assert.Equal(t, "bus", bus.Details["transportType"])

	flight := Evaluate(model.SubmissionTicket, Evidence{ExtractedText: "Flight boarding pass"}, reqs)
	assert.Equal(t, model.StatusRejected, flight.Status)
	assert.Equal(t, 0.2, flight.Confidence)
	assert.Equal(t, "unknown", flight.Details["transportType"])
	assert.Equal(t, true, flight.Details["hasTransportKeyword"])
}

func TestTicketFixedVocabulary(t *testing.T) {
	res := Evaluate(model.SubmissionTicket, Evidence{ExtractedText: "METRO single ride"}, model.QuestRequirements{})
	assert.Equal(t, model.StatusVerified, res.Status)

	res = Evaluate(model.SubmissionTicket, Evidence{ExtractedText: "museum entry"}, model.QuestRequirements{})
	assert.Equal(t, model.StatusRejected, res.Status)
}

func TestTicketDetailsTruncateText(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "bus ticket "
	}
	res := Evaluate(model.SubmissionTicket, Evidence{ExtractedText: long}, model.QuestRequirements{})
	assert.Len(t, []rune(res.Details["extractedText"].(string)), 200)
	assert.Equal(t, long, res.ExtractedText)
}

func TestVideoGoesToReview(t *testing.T) {
	res := Evaluate(model.SubmissionVideo, Evidence{}, model.QuestRequirements{})
	assert.Equal(t, model.StatusUnderReview, res.Status)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, true, res.Details["requiresManualReview"])
	assert.Equal(t, VideoReviewText, res.ExtractedText)
}

func TestUnsupportedType(t *testing.T) {
	res := Evaluate(model.SubmissionType("audio"), Evidence{}, model.QuestRequirements{})
	assert.Equal(t, model.StatusRejected, res.Status)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, "Unsupported submission type", res.Details["error"])
}

func TestExtractionFailureIsNeverVerified(t *testing.T) {
	for _, typ := range []model.SubmissionType{model.SubmissionReceipt, model.SubmissionPhoto, model.SubmissionTicket} {
		res := Evaluate(typ, Failed("extraction timed out"), model.QuestRequirements{})
		assert.Equal(t, model.StatusUnderReview, res.Status, typ)
		assert.Equal(t, 0.5, res.Confidence, typ)
		assert.Equal(t, true, res.Details["extractionFailed"], typ)
	}
}
