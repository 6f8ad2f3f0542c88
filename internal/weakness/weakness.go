// Package weakness maintains the per-topic weakness score of each learner.
// A score near 1 means the learner struggles with the topic; records are
// never deleted, they only fall out of the active weak-topic list.
package weakness

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/abhisek/adaptiq/internal/store"
)

// Trend describes the direction of the last score change.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

const (
	// DefaultScore is assumed for topics without a record.
	DefaultScore = 0.5

	// Threshold is the score above which a topic counts as weak.
	Threshold = 0.3

	// MaxWeakTopics caps how many weak topics a session remediates.
	MaxWeakTopics = 3

	repeatWeight = 0.4
)

// Next applies one answer to the current score. Repeated questions move
// the score less. The result stays in [0, 1].
func Next(current float64, correct, repeated bool) (float64, Trend) {
	weight := 1.0
	if repeated {
		weight = repeatWeight
	}

	var next float64
	if correct {
		rate := 0.03
		if current > 0.7 {
			rate = 0.05
		}
		next = math.Max(0, current-rate*weight)
	} else {
		rate := 0.05
		if current < 0.3 {
			rate = 0.08
		}
		next = math.Min(1, current+rate*weight)
	}

	switch {
	case next < current:
		return next, TrendImproving
	case next > current:
		return next, TrendDeclining
	default:
		return next, TrendStable
	}
}

// IsWeak reports whether score marks a weak topic.
func IsWeak(score float64) bool {
	return score > Threshold
}

// Topic identifies one (year, subject, topic) triple.
type Topic struct {
	Year    string
	Subject string
	Topic   string
}

// Key returns the "{year}-{subject}-{topic}" key.
func (t Topic) Key() string {
	return store.TopicKey(t.Year, t.Subject, t.Topic)
}

// Tracker reads and writes weakness records.
type Tracker struct {
	repo store.WeaknessRepo
	now  func() time.Time
}

// NewTracker creates a tracker over repo.
func NewTracker(repo store.WeaknessRepo) *Tracker {
	return &Tracker{repo: repo, now: time.Now}
}

// Update records one answer for userID on topic and returns the new score.
func (t *Tracker) Update(ctx context.Context, userID string, topic Topic, correct, repeated bool) (float64, error) {
	rec, err := t.repo.Get(ctx, userID, topic.Year, topic.Subject, topic.Topic)
	if err != nil {
		return 0, fmt.Errorf("load weakness %s: %w", topic.Key(), err)
	}

	current := DefaultScore
	if rec != nil {
		current = rec.Score
	}
	next, trend := Next(current, correct, repeated)

	err = t.repo.Upsert(ctx, &store.WeaknessRecord{
		UserID:    userID,
		Year:      topic.Year,
		Subject:   topic.Subject,
		Topic:     topic.Topic,
		Score:     next,
		Trend:     string(trend),
		UpdatedAt: t.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("save weakness %s: %w", topic.Key(), err)
	}
	return next, nil
}

// WeakTopics returns up to MaxWeakTopics of the user's weak topics, worst
// first. Topics whose key is in exclude are skipped before capping.
func (t *Tracker) WeakTopics(ctx context.Context, userID string, exclude ...string) ([]Topic, error) {
	recs, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list weakness records: %w", err)
	}
	return Rank(recs, exclude...), nil
}

// Rank filters recs to weak topics not in exclude and keeps the
// MaxWeakTopics worst.
func Rank(recs []store.WeaknessRecord, exclude ...string) []Topic {
	weak := make([]store.WeaknessRecord, 0, len(recs))
	for _, r := range recs {
		if IsWeak(r.Score) && !slices.Contains(exclude, r.Key()) {
			weak = append(weak, r)
		}
	}
	// Stable so equal scores keep the repo's order.
	slices.SortStableFunc(weak, func(a, b store.WeaknessRecord) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(weak) > MaxWeakTopics {
		weak = weak[:MaxWeakTopics]
	}
	out := make([]Topic, len(weak))
	for i, r := range weak {
		out[i] = Topic{Year: r.Year, Subject: r.Subject, Topic: r.Topic}
	}
	return out
}
