package service

import (
	"context"
	"log/slog"

	"github.com/michikitagawa/ojohoe/internal/domain"
)

// Inbound is a decoded text message from the messaging platform.
type Inbound struct {
	UserID         string
	ConversationID string
	Text           string
}

type Outcome struct {
	Reply    string
	Decision domain.Decision
}

// SummaryQueue accepts conversations that may need compaction.
type SummaryQueue interface {
	Enqueue(userID, convID string)
}

// ConsultService runs one consultation: gate, history, completion, persistence.
type ConsultService struct {
	gate      *Gate
	users     UserRepository
	conv      *ConversationService
	ai        *AIService
	queue     SummaryQueue
	character string
}

func NewConsultService(gate *Gate, users UserRepository, conv *ConversationService, ai *AIService, queue SummaryQueue, character string) *ConsultService {
	return &ConsultService{
		gate:      gate,
		users:     users,
		conv:      conv,
		ai:        ai,
		queue:     queue,
		character: character,
	}
}

// HandleMessage returns the text to send back. Store failures are returned as errors;
// completion failures become the apology reply.
func (s *ConsultService) HandleMessage(ctx context.Context, in Inbound) (Outcome, error) {
	convID := in.ConversationID
	if convID == "" {
		convID = domain.DefaultConversationID
	}

	d, err := s.gate.Admit(ctx, in.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !d.Allow {
		return Outcome{Reply: d.Message, Decision: d}, nil
	}

	user, err := s.users.Get(ctx, in.UserID)
	if err != nil {
		return Outcome{}, persistErr("load user", err)
	}

	if name, ok := ExtractName(in.Text); ok && name != user.DisplayName {
		if err := s.users.SetDisplayName(ctx, user.ID, name); err != nil {
			return Outcome{}, persistErr("save display name", err)
		}
		user.DisplayName = name
		slog.Debug("display name remembered", "user_id", user.ID)
	}

	// history is read before the new message is stored so it is not sent twice
	prompt, err := s.ai.ComposeContext(ctx, s.character, user, convID, in.Text)
	if err != nil {
		return Outcome{}, err
	}

	if _, err := s.conv.AddMessage(ctx, user.ID, convID, domain.RoleUser, in.Text, "USER"); err != nil {
		return Outcome{}, err
	}

	reply, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		slog.Error("generate reply", "error", err, "user_id", user.ID)
		return Outcome{Reply: TextAIError, Decision: d}, nil
	}

	if _, err := s.conv.AddMessage(ctx, user.ID, convID, domain.RoleAssistant, reply, ""); err != nil {
		return Outcome{}, err
	}

	if s.queue != nil {
		s.queue.Enqueue(user.ID, convID)
	}
	return Outcome{Reply: reply, Decision: d}, nil
}
