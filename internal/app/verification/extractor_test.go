package verification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	"trippey_quests/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVision struct {
	text      string
	textErr   error
	judgment  LocationJudgment
	judgeErr  error
	delay     time.Duration
	textCalls int32
	judgeCall int32
}

func (f *fakeVision) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeVision) ExtractText(ctx context.Context, _ string) (string, error) {
	atomic.AddInt32(&f.textCalls, 1)
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.text, f.textErr
}

func (f *fakeVision) JudgeLocation(ctx context.Context, _, _ string) (LocationJudgment, error) {
	atomic.AddInt32(&f.judgeCall, 1)
	if err := f.wait(ctx); err != nil {
		return LocationJudgment{}, err
	}
	return f.judgment, f.judgeErr
}

func TestExtractReceipt(t *testing.T) {
	e := NewExtractor(&fakeVision{text: "Bistro\nsoup\nTotal 18.40"}, time.Second)
	ev := e.Extract(context.Background(), model.SubmissionReceipt, "u", model.QuestRequirements{})

	require.False(t, ev.ExtractionFailed)
	require.NotNil(t, ev.DetectedAmount)
	assert.True(t, ev.DetectedAmount.Equal(decimal.RequireFromString("18.40")))
	assert.Equal(t, 2, *ev.ItemCount)
}

func TestExtractTicketKeyword(t *testing.T) {
	e := NewExtractor(&fakeVision{text: "TAXI receipt"}, time.Second)
	ev := e.Extract(context.Background(), model.SubmissionTicket, "u", model.QuestRequirements{})
	assert.True(t, *ev.HasTransportKeyword)
	assert.Equal(t, "taxi", ev.TransportType)
}

func TestExtractPhotoCallsBothInParallel(t *testing.T) {
	fv := &fakeVision{
		text:     "Welcome",
		judgment: LocationJudgment{IsValid: boolPtr(true), Location: "Sagrada Familia"},
		delay:    50 * time.Millisecond,
	}
	e := NewExtractor(fv, time.Second)
	start := time.Now()
	ev := e.Extract(context.Background(), model.SubmissionPhoto, "u", model.QuestRequirements{ExpectedLocation: "Sagrada Familia"})

	assert.Less(t, time.Since(start), 95*time.Millisecond)
	assert.Equal(t, int32(1), fv.textCalls)
	assert.Equal(t, int32(1), fv.judgeCall)
	require.NotNil(t, ev.LocationMatches)
	assert.True(t, *ev.LocationMatches)
	assert.Equal(t, "Sagrada Familia", ev.DetectedLocation)
}

func TestExtractTimeoutIsFailure(t *testing.T) {
	e := NewExtractor(&fakeVision{text: "Total 1.00", delay: 200 * time.Millisecond}, 20*time.Millisecond)
	ev := e.Extract(context.Background(), model.SubmissionReceipt, "u", model.QuestRequirements{})

	assert.True(t, ev.ExtractionFailed)
	assert.Equal(t, "extraction timed out", ev.FailureReason)
	assert.Empty(t, ev.ExtractedText)
	assert.Nil(t, ev.DetectedAmount)

	res := Evaluate(model.SubmissionReceipt, ev, model.QuestRequirements{})
	assert.Equal(t, model.StatusUnderReview, res.Status)
}

func TestExtractVisionErrorIsFailure(t *testing.T) {
	e := NewExtractor(&fakeVision{textErr: errors.New("vision returned status 500")}, time.Second)
	ev := e.Extract(context.Background(), model.SubmissionTicket, "u", model.QuestRequirements{})
	assert.True(t, ev.ExtractionFailed)
	assert.Contains(t, ev.FailureReason, "status 500")
}

func TestExtractVideoSkipsVision(t *testing.T) {
	fv := &fakeVision{}
	e := NewExtractor(fv, time.Second)
	ev := e.Extract(context.Background(), model.SubmissionVideo, "u", model.QuestRequirements{})
	assert.Equal(t, VideoReviewText, ev.ExtractedText)
	assert.Zero(t, fv.textCalls)
}

func TestLocationMatchesFallback(t *testing.T) {
	cases := []struct {
		expected string
		detected string
		want     bool
	}{
		{"Eiffel Tower", "The Eiffel Tower in Paris, France", true},
		{"Eiffel Tower", "Eifel tower at night", true},
		{"Eiffel Tower", "Brandenburg Gate", false},
		{"Paris", "a parking lot in Spain", false},
		{"Colosseum", "", false},
	}
	for _, tc := range cases {
		got := locationMatches(tc.expected, LocationJudgment{Location: tc.detected})
		assert.Equal(t, tc.want, got, "%s vs %s", tc.expected, tc.detected)
	}

	assert.False(t, locationMatches("Eiffel Tower", LocationJudgment{IsValid: boolPtr(false), Location: "Eiffel Tower"}))
}
