package service

import (
	"bitwise74/career-api/internal/metrics"
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	historyWindow  = 6
	titleRuneLimit = 30
)

const systemPrompt = `You are "Career Guide", an assistant that helps teenagers and students find a fitting profession, understand their interests and pick an education path.

Your goals:
- Help the user decide on a future profession.
- Advise on study directions, universities, programs and courses.
- Give inspiring but realistic advice in a friendly, neutral tone.

You must not:
- Solve homework or write essays.
- Answer questions unrelated to careers, education or personal development.
- Share personal data or links to unsafe sites.

If a question is off topic, politely explain what you can help with and suggest a related question.

Answer briefly and in a structured way. Start with the short answer.
Format answers with HTML tags only:
<br> for line breaks, <strong>bold</strong>, <em>italic</em>, <ul><li>list item</li></ul>, <hr> as a divider.
Never use Markdown.`

// Generator produces a reply for a fully built prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client, %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	if result == nil {
		return "", errors.New("no response generated")
	}

	return result.Text()
}

// ChatBot answers user messages inside their active thread. Generator may
// be nil, then only canned replies are used.
type ChatBot struct {
	Chats     *repository.ChatRepository
	Generator Generator
	Timeout   time.Duration
}

// Respond always returns a reply. Model failures fall back to a canned
// answer and storage failures are only logged.
func (b *ChatBot) Respond(ctx context.Context, userID uint, message string) string {
	message = strings.TrimSpace(message)
	log := zap.L().With(zap.Uint("user_id", userID))

	chat, err := b.Chats.GetActive(ctx, userID)
	if err != nil {
		log.Error("Failed to load active chat", zap.Error(err))
	}

	if chat == nil && err == nil {
		chat, err = b.Chats.Create(ctx, userID, chatTitle(message))
		if err != nil {
			log.Error("Failed to create chat", zap.Error(err))
		}
	}

	var history []model.ChatMessage
	if chat != nil {
		if _, err := b.Chats.AddMessage(ctx, chat.ID, model.RoleUser, message); err != nil {
			log.Error("Failed to store user message", zap.Uint("chat_id", chat.ID), zap.Error(err))
		}

		history, err = b.Chats.RecentMessages(ctx, chat.ID, historyWindow)
		if err != nil {
			log.Error("Failed to load chat history", zap.Uint("chat_id", chat.ID), zap.Error(err))
		}
	}

	reply, source := b.generate(ctx, history, message)
	metrics.ChatReplies.WithLabelValues(source).Inc()

	if chat != nil {
		if _, err := b.Chats.AddMessage(ctx, chat.ID, model.RoleAssistant, reply); err != nil {
			log.Error("Failed to store assistant message", zap.Uint("chat_id", chat.ID), zap.Error(err))
		}
	}

	return reply
}

func (b *ChatBot) generate(ctx context.Context, history []model.ChatMessage, message string) (string, string) {
	if b.Generator == nil {
		return FallbackReply(message), "fallback"
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := b.Generator.Generate(ctx, buildPrompt(history, message))
	if err != nil {
		lvl := zap.ErrorLevel
		if errors.Is(err, context.DeadlineExceeded) {
			lvl = zap.WarnLevel
		}

		zap.L().Log(lvl, "Generator failed, using canned reply", zap.Error(err))
		return FallbackReply(message), "fallback"
	}

	text = SanitizeReply(strings.TrimSpace(text))
	if text == "" {
		return FallbackReply(message), "fallback"
	}

	return text, "model"
}

// buildPrompt is the system instruction, the last messages of the thread
// and the current question
func buildPrompt(history []model.ChatMessage, message string) string {
	var sb strings.Builder

	sb.WriteString(systemPrompt)

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	if len(history) > 0 {
		sb.WriteString("\n\nConversation so far:")
		for _, m := range history {
			if m.Role == model.RoleUser {
				sb.WriteString("\nUser: ")
			} else {
				sb.WriteString("\nAdvisor: ")
			}
			sb.WriteString(m.Content)
		}
	}

	sb.WriteString("\n\nCurrent question: ")
	sb.WriteString(message)
	sb.WriteString("\n\nAdvisor:")

	return sb.String()
}

func chatTitle(message string) string {
	r := []rune(message)
	if len(r) > titleRuneLimit {
		return string(r[:titleRuneLimit]) + "..."
	}

	if len(r) == 0 {
		return repository.DefaultChatTitle
	}

	return message
}
