package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
)

const (
	kindReply   = "reply"
	kindSummary = "summary"
	kindCombine = "combine"
)

// AIService assembles bounded prompts and talks to the completion API.
type AIService struct {
	completer Completer
	prompts   *PromptBook
	conv      *ConversationService
}

func NewAIService(completer Completer, prompts *PromptBook, conv *ConversationService) *AIService {
	return &AIService{completer: completer, prompts: prompts, conv: conv}
}

// ComposeContext builds the prompt for a new user message: persona system prompt,
// instruction, example exchanges, the latest summary, up to RecentMessagesLimit prior
// messages oldest first, the display-name note and finally the new message. Call it
// before the new message is stored.
func (s *AIService) ComposeContext(ctx context.Context, character string, user *domain.User, convID, newMessage string) ([]ChatMessage, error) {
	ch := s.prompts.Character(character)

	history, err := s.conv.GetRecentMessages(ctx, user.ID, convID, config.RecentMessagesLimit)
	if err != nil {
		return nil, err
	}
	latest, err := s.conv.LatestSummary(ctx, user.ID, convID)
	if err != nil {
		return nil, err
	}

	msgs := make([]ChatMessage, 0, len(ch.Examples)+len(history)+5)
	msgs = append(msgs,
		ChatMessage{Role: string(domain.RoleSystem), Content: ch.System},
		ChatMessage{Role: string(domain.RoleUser), Content: ch.Instruction},
	)
	msgs = append(msgs, ch.Examples...)

	if latest != nil {
		msgs = append(msgs, ChatMessage{
			Role:    string(domain.RoleSystem),
			Content: fmt.Sprintf(SummaryNoteFormat, latest.Content),
		})
	}

	for _, m := range history {
		msgs = append(msgs, ChatMessage{Role: string(m.Role), Content: m.Body()})
	}

	if user.DisplayName != "" {
		msgs = append(msgs, ChatMessage{
			Role:    string(domain.RoleSystem),
			Content: fmt.Sprintf(NameNoteFormat, user.DisplayName),
		})
	}

	msgs = append(msgs, ChatMessage{Role: string(domain.RoleUser), Content: newMessage})
	return msgs, nil
}

// Generate sends a composed prompt with the reply settings.
func (s *AIService) Generate(ctx context.Context, prompt []ChatMessage) (string, error) {
	return s.completer.Complete(ctx, kindReply, prompt, config.ReplyTemperature, config.ReplyMaxTokens)
}

// Respond is Generate with failures logged and replaced by the apology text.
func (s *AIService) Respond(ctx context.Context, userID string, prompt []ChatMessage) string {
	out, err := s.Generate(ctx, prompt)
	if err != nil {
		slog.Error("generate reply", "error", err, "user_id", userID)
		return TextAIError
	}
	return out
}

// Reply composes the context for text and returns the assistant's answer, or the
// apology text on any failure.
func (s *AIService) Reply(ctx context.Context, character string, user *domain.User, convID, text string) string {
	prompt, err := s.ComposeContext(ctx, character, user, convID, text)
	if err != nil {
		slog.Error("compose context", "error", err, "user_id", user.ID)
		return TextAIError
	}
	return s.Respond(ctx, user.ID, prompt)
}

func (s *AIService) Summarize(ctx context.Context, messages []domain.Message) (string, error) {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Body()))
	}
	prompt := fmt.Sprintf(summarizePrompt, strings.Join(lines, "\n"))
	out, err := s.completer.Complete(ctx, kindSummary,
		[]ChatMessage{{Role: string(domain.RoleUser), Content: prompt}},
		config.SummaryTemperature, config.SummaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	return out, nil
}

func (s *AIService) CombineSummaries(ctx context.Context, summaries []string) (string, error) {
	parts := make([]string, 0, len(summaries))
	for i, sum := range summaries {
		parts = append(parts, fmt.Sprintf("要約%d:\n%s", i+1, sum))
	}
	prompt := fmt.Sprintf(combinePrompt, strings.Join(parts, "\n\n"))
	out, err := s.completer.Complete(ctx, kindCombine,
		[]ChatMessage{{Role: string(domain.RoleUser), Content: prompt}},
		config.SummaryTemperature, config.SummaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("combine summaries: %w", err)
	}
	return out, nil
}
