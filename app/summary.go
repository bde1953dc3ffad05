package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ExplainThisPR/explain-this-pr/app/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// minBatchChars: a serialized batch below this carries nothing worth a paid
// model call.
const minBatchChars = 30

// summarySystemPrompt is the contract string sent as the system instruction.
const summarySystemPrompt = `You are an assistant designed to help developer teams review the PRs. Every time a PR is opened, I will send you a code file with the before and the after.
I want you to compare the two and give me an overview of the things that were changed in the code in a bullet list format.
I want your comments to be focused on architectural changes that affect the app.
The format of your response should be in Markdown. Here is an example of a response.
Limit how many import statements you have per file to 3 max.
Please do not repeat yourself. If you already mention a technology like ` + "`useFonts`" + ` do not mention it again for that file.
Please use the full filename. For example, ` + "`src/components/Button.tsx`" + ` is better than ` + "`Button.tsx`" + `.
Please be concise and do not talk repeatedly about the same change. If you have already mentioned how PDF data generation works for example, do not discuss again it.
Only focus on the most impactful functional changes. The maximum is 4 bullet points. For each additional bullet point, divide the total ` + "`patch`" + ` length by 1500 to determine how many more bullet points you can add for this file.
Here is an example of a response:
## src/App.tsx
  - Moved the routing logic to a standalone ` + "`Router`" + ` component
  - Setup a listener for the AuthState of the user and update the Redux store with the current user
`

var commentBanner = []string{
	"## :robot: Explain this PR :robot:",
	"Here is a summary of what I noticed. I am a Bot in Beta, so I might be wrong. :smiling_face_with_tear:",
	"Please [share your feedback](https://tally.so/r/3jZG9E) with me. :heart:",
	"---",
}

var fallbackResponses = []string{
	"No changes to analyze. Something likely went wrong. :thinking_face: We will look into it!",
	"Sometimes re-running the analysis helps with timeout issues. :shrug:",
}

// SummaryConfig carries the model invocation parameters. It is passed in at
// construction rather than read from a package-level default.
type SummaryConfig struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	SystemPrompt    string
}

// DefaultSummaryConfig returns the fixed, deterministic-leaning parameters
// used in production.
func DefaultSummaryConfig(model string) SummaryConfig {
	return SummaryConfig{
		Model:           model,
		Temperature:     0.3,
		MaxOutputTokens: 400,
		SystemPrompt:    summarySystemPrompt,
	}
}

// completer is the minimal text-completion surface the engine needs.
type completer interface {
	Complete(ctx context.Context, content string) (string, error)
}

type geminiCompleter struct {
	model *genai.GenerativeModel
}

func newGeminiCompleter(ctx context.Context, apiKey string, cfg SummaryConfig) (*geminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(cfg.SystemPrompt)},
	}
	return &geminiCompleter{model: model}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, content string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(content))
	if err != nil {
		return "", err
	}
	return formatResponse(resp), nil
}

func formatResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var formatted strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				formatted.WriteString(string(text))
			}
		}
	}
	return formatted.String()
}

// SummaryEngine fans batches out to the model and assembles the final comment.
type SummaryEngine struct {
	completer completer
}

// NewSummaryEngine builds an engine backed by the Gemini API.
func NewSummaryEngine(ctx context.Context, apiKey string, cfg SummaryConfig) (*SummaryEngine, error) {
	c, err := newGeminiCompleter(ctx, apiKey, cfg)
	if err != nil {
		return nil, err
	}
	return &SummaryEngine{completer: c}, nil
}

// Summarize sends every batch to the model concurrently and reassembles the
// responses in input order. One failed batch is logged and contributes an
// empty section; it never cancels or fails its siblings.
func (s *SummaryEngine) Summarize(ctx context.Context, batches []models.FileBatch) string {
	responses := make([]string, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		serialized, err := json.Marshal(batch)
		if err != nil {
			log.Printf("failed to serialize batch %d: %v", i, err)
			continue
		}
		if len(serialized) < minBatchChars {
			continue
		}

		wg.Add(1)
		go func(slot int, content string) {
			defer wg.Done()
			explained, err := s.completer.Complete(ctx, content)
			if err != nil {
				log.Printf("model request failed for batch %d: %v", slot, err)
				return
			}
			responses[slot] = explained
		}(i, string(serialized))
	}
	wg.Wait()

	return AssembleComment(responses)
}

// AssembleComment prepends the banner to the non-empty batch responses,
// substituting a canned message when every batch came back empty.
func AssembleComment(responses []string) string {
	kept := make([]string, 0, len(responses))
	for _, r := range responses {
		if strings.TrimSpace(r) != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		log.Printf("no responses from the model")
		kept = fallbackResponses
	}

	return strings.Join(commentBanner, "\n") + "\n" + strings.Join(kept, "\n\n")
}
