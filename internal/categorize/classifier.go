package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/creatorlens/backend/internal/metrics"
)

// Metadata is what the classifier gets to see about a subreddit.
type Metadata struct {
	Name         string
	Title        string
	Subscribers  int64
	Over18       bool
	RecentTitles []string
}

// Classification is the classifier's raw answer. Tags are validated
// against the registry by the caller; the primary category is derived
// from the validated set, never trusted from the model.
type Classification struct {
	Tags       []string
	Confidence float64
}

// Classifier assigns registry tags to a subreddit.
type Classifier interface {
	Classify(ctx context.Context, meta Metadata) (Classification, error)
}

const (
	defaultModel = openai.GPT4oMini

	// promptTitleMax bounds how many recent post titles go into the
	// prompt. More adds tokens without changing the label.
	promptTitleMax = 12
)

var systemPrompt = "You label subreddits for a creator-scouting index. " +
	"Pick the single registry tag that best describes the community, or two " +
	"when one cannot cover it. Respond with JSON of the form " +
	`{"tags": ["category:value"], "confidence": 0.0}` + ". " +
	"Use only tags from the registry, spelled exactly as listed.\n\n" +
	"Registry:\n" + strings.Join(AllTags(), "\n")

// OpenAIClassifier asks a chat model for tags and parses the JSON
// answer. It is deliberately thin: retries, validation, and writes
// all live with the caller.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds a classifier over the given API key. An
// empty model selects the default.
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClassifier{client: openai.NewClient(apiKey), model: model}
}

type modelAnswer struct {
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

func (c *OpenAIClassifier) Classify(ctx context.Context, meta Metadata) (Classification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(meta)},
		},
	})
	if err != nil {
		metrics.OpenAIRequests.WithLabelValues("failed").Inc()
		return Classification{}, fmt.Errorf("chat completion: %w", err)
	}
	metrics.OpenAIRequests.WithLabelValues("success").Inc()

	if len(resp.Choices) == 0 {
		return Classification{}, errors.New("chat completion returned no choices")
	}
	var ans modelAnswer
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &ans); err != nil {
		return Classification{}, fmt.Errorf("decode completion: %w", err)
	}
	return Classification{Tags: ans.Tags, Confidence: ans.Confidence}, nil
}

// userPrompt renders the subreddit into the shape the system prompt
// promises the model.
func userPrompt(meta Metadata) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subreddit: r/%s\n", meta.Name)
	if meta.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", meta.Title)
	}
	fmt.Fprintf(&sb, "Subscribers: %d\n", meta.Subscribers)
	fmt.Fprintf(&sb, "NSFW: %t\n", meta.Over18)
	if len(meta.RecentTitles) > 0 {
		titles := meta.RecentTitles
		if len(titles) > promptTitleMax {
			titles = titles[:promptTitleMax]
		}
		sb.WriteString("Recent posts:\n")
		for _, t := range titles {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}
	return sb.String()
}
