package consolidate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/scrypster/cortex/pkg/types"
)

// ApplyReview updates a thought's spaced-repetition fields in place for a
// review of the given quality (0-5), using the SM-2 algorithm:
//
//   - quality < 3: the interval resets to 1 day and the ease factor drops
//     by 0.2, floored at 1.3.
//   - quality >= 3: ease factor += 0.1 - (5-q)*(0.08 + (5-q)*0.02),
//     floored at 1.3; the interval is 1 day after the first review, 6
//     after the second, then round(previous * ease factor).
//
// The review count increments on every review, failed or not.
func ApplyReview(t *types.Thought, quality int, now time.Time) error {
	if quality < 0 || quality > 5 {
		return fmt.Errorf("review quality must be 0-5, got %d", quality)
	}
	types.NewThoughtDefaults(t)

	if quality < 3 {
		t.IntervalDays = 1
		t.EaseFactor -= 0.2
	} else {
		q := float64(quality)
		t.EaseFactor += 0.1 - (5-q)*(0.08+(5-q)*0.02)
		switch t.ReviewCount {
		case 0:
			t.IntervalDays = 1
		case 1:
			t.IntervalDays = 6
		default:
			t.IntervalDays = int(math.Round(float64(t.IntervalDays) * t.EaseFactor))
		}
	}
	if t.EaseFactor < types.MinEaseFactor {
		t.EaseFactor = types.MinEaseFactor
	}

	t.ReviewCount++
	t.LastReview = &now
	next := now.AddDate(0, 0, t.IntervalDays)
	t.NextReview = &next
	return nil
}

// UpdateReview loads a thought, applies a review of the given quality,
// and persists the result.
func (e *Engine) UpdateReview(ctx context.Context, thoughtID string, quality int) (*types.Thought, error) {
	t, err := e.store.GetThought(ctx, thoughtID)
	if err != nil {
		return nil, fmt.Errorf("consolidate: load thought for review: %w", err)
	}
	if err := ApplyReview(t, quality, e.now()); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	if err := e.store.UpdateReview(ctx, t); err != nil {
		return nil, fmt.Errorf("consolidate: persist review: %w", err)
	}
	return t, nil
}
