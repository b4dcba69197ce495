// Package ai talks to an OpenAI-compatible chat-completions endpoint to
// generate verification questions and score claim answers.
//
// Every failure is reported as ErrUpstream. Callers own the fallback policy
// and the deadline (pass a context with a timeout).
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ghuser/lostfound/pkg/config"
)

// ErrUpstream wraps any provider failure: transport, status, or unusable output.
var ErrUpstream = errors.New("ai provider failure")

const (
	questionCount       = 3
	questionTemperature = 0.7
	scoreTemperature    = 0.3
)

var (
	numbering = regexp.MustCompile(`^\d+\.?\s*`)
	firstInt  = regexp.MustCompile(`-?\d+`)
)

// Client calls the chat-completions API.
type Client struct {
	http   *resty.Client
	model  string
	apiKey string
}

// New builds a Client from the AI_* settings. The per-request timeout is a
// ceiling; the caller's context deadline normally fires first.
func New(cfg *config.Config) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.AIBaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.AITimeout + 2*time.Second)
	if cfg.AIAPIKey != "" {
		c.SetAuthToken(cfg.AIAPIKey)
	}
	return &Client{http: c, model: cfg.AIModel, apiKey: cfg.AIAPIKey}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: api key not configured", ErrUpstream)
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			Temperature: temperature,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateQuestions asks for three ownership questions about an item. It
// returns at most three lines of the completion with list numbering removed;
// callers validate the count and length.
func (c *Client) GenerateQuestions(ctx context.Context, title, description, category string) ([]string, error) {
	text, err := c.complete(ctx, questionPrompt(title, description, category), questionTemperature)
	if err != nil {
		return nil, err
	}
	return parseQuestions(text), nil
}

// ScoreClaim asks the provider how likely the answers come from the owner.
// The raw number is returned unclamped.
func (c *Client) ScoreClaim(ctx context.Context, title, description string, questions, answers []string) (int, error) {
	text, err := c.complete(ctx, scorePrompt(title, description, questions, answers), scoreTemperature)
	if err != nil {
		return 0, err
	}
	return parseScore(text)
}

func parseQuestions(text string) []string {
	out := make([]string, 0, questionCount)
	for _, line := range strings.Split(text, "\n") {
		if len(strings.TrimSpace(line)) <= 5 {
			continue
		}
		out = append(out, strings.TrimSpace(numbering.ReplaceAllString(strings.TrimSpace(line), "")))
		if len(out) == questionCount {
			break
		}
	}
	return out
}

func parseScore(text string) (int, error) {
	m := firstInt.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, fmt.Errorf("%w: no score in %q", ErrUpstream, text)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return n, nil
}

func questionPrompt(title, description, category string) string {
	return fmt.Sprintf(`You are helping verify ownership of a lost or found item.

Item details:
Title: %s
Description: %s
Type: %s

Generate exactly 3 short, specific verification questions
that only the real owner would know.
Do NOT repeat obvious info from the description.
Return only questions.`, title, description, category)
}

func scorePrompt(title, description string, questions, answers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating if a person is the real owner of an item.\n\nItem:\nTitle: %s\nDescription: %s\n\nVerification Questions:\n", title, description)
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\nUser Answers:\n")
	for i, a := range answers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\nScore ownership confidence from 0 to 100.\nReturn ONLY a number.")
	return b.String()
}
