package agent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/nurturing/ports"
)

type fakeReader struct {
	emails   repository.EmailStats
	calls    repository.CallStats
	sms      repository.SMSStats
	meetings repository.MeetingStats
}

func (f fakeReader) EmailStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.EmailStats, error) {
	return f.emails, nil
}

func (f fakeReader) CallStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.CallStats, error) {
	return f.calls, nil
}

func (f fakeReader) SMSStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.SMSStats, error) {
	return f.sms, nil
}

func (f fakeReader) MeetingStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.MeetingStats, error) {
	return f.meetings, nil
}

func (f fakeReader) ListNotesSince(ctx context.Context, leadID uuid.UUID, since time.Time) ([]repository.Note, error) {
	return nil, nil
}

func TestOfflineScorer(t *testing.T) {
	cases := []struct {
		name   string
		base   int
		reader fakeReader
		want   int
	}{
		{
			name:   "no engagement decays score",
			base:   25,
			reader: fakeReader{},
			want:   20,
		},
		{
			name: "replies outweigh opens",
			base: 25,
			reader: fakeReader{
				emails: repository.EmailStats{Sent: 4, Opened: 3, Replied: 2},
			},
			want: 41,
		},
		{
			name: "opens count when nothing was replied",
			base: 25,
			reader: fakeReader{
				emails: repository.EmailStats{Sent: 4, Opened: 3},
			},
			want: 31,
		},
		{
			name: "calls and meetings stack",
			base: 25,
			reader: fakeReader{
				emails:   repository.EmailStats{Sent: 2},
				calls:    repository.CallStats{Total: 2, Completed: 1},
				meetings: repository.MeetingStats{Scheduled: 1, Attended: 1},
			},
			want: 50,
		},
		{
			name: "score is clamped at 100",
			base: 95,
			reader: fakeReader{
				emails: repository.EmailStats{Sent: 10, Replied: 10},
			},
			want: 100,
		},
		{
			name:   "score never drops below zero",
			base:   2,
			reader: fakeReader{},
			want:   0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := NewOfflineScorer(tc.reader)
			result, err := scorer.ScoreLead(context.Background(), ports.LeadProfile{
				ID:           uuid.New(),
				CurrentScore: tc.base,
			}, 14)
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if result.Score != tc.want {
				t.Fatalf("expected score %d, got %d", tc.want, result.Score)
			}
			if result.ConversionProbability != result.Score {
				t.Fatalf("probability must track score, got %d/%d",
					result.ConversionProbability, result.Score)
			}
		})
	}
}

type windowReader struct {
	fakeReader
	since *time.Time
}

func (w *windowReader) EmailStatsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (repository.EmailStats, error) {
	*w.since = since
	return w.emails, nil
}

func TestOfflineScorerHonorsTimeframe(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	var gotSince time.Time
	scorer := NewOfflineScorer(&windowReader{since: &gotSince})
	scorer.now = func() time.Time { return now }

	if _, err := scorer.ScoreLead(context.Background(), ports.LeadProfile{ID: uuid.New()}, 14); err != nil {
		t.Fatalf("score: %v", err)
	}
	if want := now.AddDate(0, 0, -14); !gotSince.Equal(want) {
		t.Fatalf("expected 14-day lookback since %v, got %v", want, gotSince)
	}

	if _, err := scorer.ScoreLead(context.Background(), ports.LeadProfile{ID: uuid.New()}, 0); err != nil {
		t.Fatalf("score: %v", err)
	}
	if want := now.AddDate(0, 0, -defaultLookbackDays); !gotSince.Equal(want) {
		t.Fatalf("zero timeframe must fall back to the default window, got since %v", gotSince)
	}
}

func TestOfflineComposerReportsUnavailable(t *testing.T) {
	_, err := OfflineComposer{}.ComposeEmail(context.Background(), ports.LeadProfile{}, "educational", 0)
	if err != ports.ErrContentUnavailable {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
}
