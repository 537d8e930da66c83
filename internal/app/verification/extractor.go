package verification

import (
	"context"
	"errors"
	"strings"
	"time"
	"trippey_quests/internal/domain/model"
	"trippey_quests/internal/platform/logging"
	"trippey_quests/internal/platform/metrics"
	"unicode"

	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Extractor turns a proof reference into Evidence. It never returns an error:
// failures come back as Evidence with ExtractionFailed set.
type Extractor struct {
	vision  Vision
	timeout time.Duration
}

func NewExtractor(vision Vision, timeout time.Duration) *Extractor {
	return &Extractor{vision: vision, timeout: timeout}
}

func (e *Extractor) Extract(ctx context.Context, subType model.SubmissionType, fileURL string, reqs model.QuestRequirements) Evidence {
	switch subType {
	case model.SubmissionVideo:
		return Evidence{ExtractedText: VideoReviewText}
	case model.SubmissionReceipt, model.SubmissionTicket, model.SubmissionPhoto:
	default:
		return Evidence{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	ev, err := e.extract(ctx, subType, fileURL, reqs)
	metrics.RecordExtraction(time.Since(start), err != nil)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "extraction timed out"
		}
		logging.WithFields(logrus.Fields{"file_url": fileURL, "type": subType}).
			WithError(err).Warn("evidence extraction failed")
		return Failed(reason)
	}
	return ev
}

func (e *Extractor) extract(ctx context.Context, subType model.SubmissionType, fileURL string, reqs model.QuestRequirements) (Evidence, error) {
	if subType != model.SubmissionPhoto {
		text, err := e.vision.ExtractText(ctx, fileURL)
		if err != nil {
			return Evidence{}, err
		}
		return textEvidence(subType, text), nil
	}

	var text string
	var judgment LocationJudgment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := e.vision.ExtractText(gctx, fileURL)
		text = t
		return err
	})
	g.Go(func() error {
		j, err := e.vision.JudgeLocation(gctx, fileURL, reqs.ExpectedLocation)
		judgment = j
		return err
	})
	if err := g.Wait(); err != nil {
		return Evidence{}, err
	}

	ev := Evidence{ExtractedText: text, DetectedLocation: judgment.Location}
	if reqs.ExpectedLocation != "" {
		matches := locationMatches(reqs.ExpectedLocation, judgment)
		ev.LocationMatches = &matches
	}
	return ev, nil
}

func textEvidence(subType model.SubmissionType, text string) Evidence {
	ev := Evidence{ExtractedText: text}
	switch subType {
	case model.SubmissionReceipt:
		amount := ParseReceiptAmount(text)
		items := CountItems(text)
		ev.DetectedAmount = &amount
		ev.ItemCount = &items
	case model.SubmissionTicket:
		kw, ok := FindKeyword(text, TransportKeywords)
		ev.HasTransportKeyword = &ok
		ev.TransportType = kw
	}
	return ev
}

// locationMatches trusts an explicit verdict from the model and otherwise
// requires every significant word of the expected place to show up, allowing
// a letter or two of slack, in the model's description.
func locationMatches(expected string, j LocationJudgment) bool {
	if j.IsValid != nil {
		return *j.IsValid
	}
	detected := words(j.Location)
	if len(detected) == 0 {
		return false
	}
	checked := 0
	for _, w := range words(expected) {
		if len(w) < 3 {
			continue
		}
		checked++
		if !wordPresent(w, detected) {
			return false
		}
	}
	if checked == 0 {
		return strings.Contains(strings.ToLower(j.Location), strings.ToLower(strings.TrimSpace(expected)))
	}
	return true
}

func wordPresent(w string, candidates []string) bool {
	for _, m := range fuzzy.Find(w, candidates) {
		if len(candidates[m.Index])-len(w) <= 2 {
			return true
		}
	}
	for _, c := range candidates {
		if len(c) >= 3 && len(w)-len(c) <= 2 && len(w) >= len(c) && len(fuzzy.Find(c, []string{w})) > 0 {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
