package verification

import (
	"trippey_quests/internal/domain/model"
)

const (
	confReceiptOK      = 0.9
	confReceiptBad     = 0.1
	confPhotoOK        = 0.8
	confInconclusive   = 0.5
	confTicketOK       = 0.85
	confTicketBad      = 0.2
	ticketTextMaxRunes = 200

	VideoReviewText = "Video submission requires manual review"
)

// Evaluate judges evidence against a quest's requirements. It does no I/O.
func Evaluate(subType model.SubmissionType, ev Evidence, reqs model.QuestRequirements) model.VerificationResult {
	if !subType.Valid() {
		return model.VerificationResult{
			Status:     model.StatusRejected,
			Confidence: 0,
			Details:    map[string]interface{}{"error": "Unsupported submission type"},
		}
	}
	if subType == model.SubmissionVideo {
		return model.VerificationResult{
			Status:        model.StatusUnderReview,
			Confidence:    confInconclusive,
			Details:       map[string]interface{}{"requiresManualReview": true},
			ExtractedText: VideoReviewText,
		}
	}
	if ev.ExtractionFailed {
		return model.VerificationResult{
			Status:     model.StatusUnderReview,
			Confidence: confInconclusive,
			Details: map[string]interface{}{
				"extractionFailed": true,
				"reason":           ev.FailureReason,
			},
		}
	}

	switch subType {
	case model.SubmissionReceipt:
		return evaluateReceipt(ev, reqs)
	case model.SubmissionPhoto:
		return evaluatePhoto(ev, reqs)
	default:
		return evaluateTicket(ev, reqs)
	}
}

func evaluateReceipt(ev Evidence, reqs model.QuestRequirements) model.VerificationResult {
	amount := ParseReceiptAmount(ev.ExtractedText)
	if ev.DetectedAmount != nil {
		amount = *ev.DetectedAmount
	}
	items := CountItems(ev.ExtractedText)
	if ev.ItemCount != nil {
		items = *ev.ItemCount
	}

	maxOK := reqs.MaxAmount == nil || amount.LessThanOrEqual(*reqs.MaxAmount)
	minOK := reqs.MinItems == nil || items >= *reqs.MinItems

	res := model.VerificationResult{
		Status:     model.StatusVerified,
		Confidence: confReceiptOK,
		Details: map[string]interface{}{
			"detectedAmount": amount.InexactFloat64(),
			"itemCount":      items,
			"requirementsMet": map[string]interface{}{
				"maxAmount": maxOK,
				"minItems":  minOK,
			},
		},
		ExtractedText: ev.ExtractedText,
	}
	if !maxOK || !minOK {
		res.Status = model.StatusRejected
		res.Confidence = confReceiptBad
	}
	return res
}

// Photos are never rejected: a miss goes to a human.
func evaluatePhoto(ev Evidence, reqs model.QuestRequirements) model.VerificationResult {
	var valid bool
	if reqs.ExpectedLocation != "" {
		valid = ev.LocationMatches != nil && *ev.LocationMatches
	} else {
		valid = ev.DetectedLocation != ""
	}

	res := model.VerificationResult{
		Status:     model.StatusVerified,
		Confidence: confPhotoOK,
		Details: map[string]interface{}{
			"location":        ev.DetectedLocation,
			"isLocationValid": valid,
		},
		ExtractedText: ev.ExtractedText,
	}
	if !valid {
		res.Status = model.StatusUnderReview
		res.Confidence = confInconclusive
	}
	return res
}

func evaluateTicket(ev Evidence, reqs model.QuestRequirements) model.VerificationResult {
	_, hasKeyword := FindKeyword(ev.ExtractedText, TransportKeywords)
	details := map[string]interface{}{
		"hasTransportKeyword": hasKeyword,
		"transportType":       "unknown",
		"extractedText":       truncateRunes(ev.ExtractedText, ticketTextMaxRunes),
	}

	valid := hasKeyword
	if len(reqs.TransportTypes) > 0 {
		matched, ok := FindKeyword(ev.ExtractedText, reqs.TransportTypes)
		valid = ok
		if ok {
			details["transportType"] = matched
		}
	}

	res := model.VerificationResult{
		Status:        model.StatusVerified,
		Confidence:    confTicketOK,
		Details:       details,
		ExtractedText: ev.ExtractedText,
	}
	if !valid {
		res.Status = model.StatusRejected
		res.Confidence = confTicketBad
	}
	return res
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
