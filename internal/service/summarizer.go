package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/michikitagawa/ojohoe/internal/metrics"
)

type summaryJob struct {
	userID string
	convID string
}

// Summarizer compacts conversations in the background. Enqueue never blocks; a full
// queue drops the job, and the next message of that conversation enqueues it again.
type Summarizer struct {
	conv *ConversationService
	ai   *AIService
	jobs chan summaryJob

	mu      sync.Mutex
	pending map[summaryJob]struct{}
}

func NewSummarizer(conv *ConversationService, ai *AIService, queueSize int) *Summarizer {
	return &Summarizer{
		conv:    conv,
		ai:      ai,
		jobs:    make(chan summaryJob, queueSize),
		pending: make(map[summaryJob]struct{}),
	}
}

func (s *Summarizer) Enqueue(userID, convID string) {
	j := summaryJob{userID: userID, convID: convID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[j]; ok {
		return
	}

	select {
	case s.jobs <- j:
		s.pending[j] = struct{}{}
	default:
		metrics.SummarizerDropped.Inc()
		slog.Warn("summarizer queue full, job dropped", "user_id", userID, "conversation_id", convID)
	}
}

// Run processes jobs until ctx is cancelled.
func (s *Summarizer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			s.mu.Lock()
			delete(s.pending, j)
			s.mu.Unlock()

			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			created, err := s.Process(jobCtx, j.userID, j.convID)
			cancel()
			if err != nil {
				slog.Error("summarize conversation", "error", err, "user_id", j.userID, "conversation_id", j.convID)
				continue
			}
			if created {
				slog.Info("conversation summarized", "user_id", j.userID, "conversation_id", j.convID)
			}
		}
	}
}

// Process stores a new summary when the summary window is full. The new summary is
// merged with the previous one so the latest summary always covers the whole history,
// and it is stamped with the last summarized message so later messages stay in the
// next window.
func (s *Summarizer) Process(ctx context.Context, userID, convID string) (bool, error) {
	ok, err := s.conv.ShouldSummarize(ctx, userID, convID)
	if err != nil || !ok {
		return false, err
	}

	latest, err := s.conv.LatestSummary(ctx, userID, convID)
	if err != nil {
		return false, err
	}
	var since time.Time
	if latest != nil {
		since = latest.CreatedAt
	}

	msgs, err := s.conv.GetMessagesSince(ctx, userID, convID, since)
	if err != nil {
		return false, err
	}
	if len(msgs) == 0 {
		return false, nil
	}

	content, err := s.ai.Summarize(ctx, msgs)
	if err != nil {
		return false, err
	}
	if latest != nil {
		content, err = s.ai.CombineSummaries(ctx, []string{latest.Content, content})
		if err != nil {
			return false, err
		}
	}

	if _, err := s.conv.AddSummary(ctx, userID, convID, content, msgs[len(msgs)-1].Timestamp); err != nil {
		return false, fmt.Errorf("store summary: %w", err)
	}
	metrics.SummariesCreated.Inc()
	return true, nil
}
