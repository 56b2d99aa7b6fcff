package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewGeminiClient(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-1.5-pro")
	model.SetTemperature(0.7)

	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// GenerateMatchExplanation writes one or two sentences on why the two users fit. When the
// API is unavailable it falls back to a canned explanation.
func (c *GeminiClient) GenerateMatchExplanation(ctx context.Context, a, b *domain.Profile) (string, error) {
	prompt := fmt.Sprintf(`
		Analyze the compatibility of two users based on their profiles.
		User 1: %s
		User 2: %s

		Task: Write a short, engaging explanation (1-2 sentences) of why they are a good match.
		Focus on shared interests or complementary traits.
		Output: Just the explanation text.
	`, describe(a), describe(b))

	text, err := c.generate(ctx, prompt)
	if err != nil || text == "" {
		c.logger.Warn("gemini unavailable, using fallback explanation", slog.Any("error", err))
		return FallbackExplanation(a, b), nil
	}
	return text, nil
}

// GenerateIcebreakers returns opening lines user a could send to user b.
func (c *GeminiClient) GenerateIcebreakers(ctx context.Context, a, b *domain.Profile) ([]string, error) {
	prompt := fmt.Sprintf(`
		Generate 3 creative icebreaker messages for a dating app match.
		User 1 Interests: %v
		User 2 Interests: %v

		Task: Create 3 distinct opening lines that User 1 could send to User 2.
		Focus on shared interests or interesting contrasts.
		Output: JSON array of strings. Example: ["Hi...", "Hello..."]
	`, a.Interests, b.Interests)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no content generated")
	}
	return ParseIcebreakers(text)
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// ParseIcebreakers accepts a JSON array of strings, optionally fenced as a markdown code
// block, and falls back to one icebreaker per non-empty line.
func ParseIcebreakers(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var icebreakers []string
	err := json.Unmarshal([]byte(text), &icebreakers)
	if err == nil {
		return icebreakers, nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "[") && !strings.HasSuffix(line, "]") {
			icebreakers = append(icebreakers, line)
		}
	}
	if len(icebreakers) == 0 {
		return nil, fmt.Errorf("failed to parse icebreakers: %w", err)
	}
	return icebreakers, nil
}

// FallbackExplanation is used when the model cannot be reached.
func FallbackExplanation(a, b *domain.Profile) string {
	shared := SharedInterests(a.Interests, b.Interests)
	if len(shared) > 0 {
		return fmt.Sprintf("%s and %s both enjoy %s. That is a great place to start.",
			a.DisplayName, b.DisplayName, strings.Join(shared, ", "))
	}
	return fmt.Sprintf("%s and %s liked each other. Say hello and find out what you have in common!",
		a.DisplayName, b.DisplayName)
}

// SharedInterests returns the interests present in both lists, case-insensitively, in the
// order they appear in a.
func SharedInterests(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	var shared []string
	for _, s := range a {
		key := strings.ToLower(strings.TrimSpace(s))
		if _, ok := seen[key]; ok {
			shared = append(shared, s)
			delete(seen, key)
		}
	}
	return shared
}

func describe(p *domain.Profile) string {
	parts := []string{"name: " + p.DisplayName}
	if p.City != nil && *p.City != "" {
		parts = append(parts, "city: "+*p.City)
	}
	if p.Bio != nil && *p.Bio != "" {
		parts = append(parts, "bio: "+*p.Bio)
	}
	if len(p.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(p.Interests, ", "))
	}
	return strings.Join(parts, "; ")
}
