package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crypto-digest-bot/internal/market"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Generator asks a chat-completion endpoint for a short market commentary.
type Generator struct {
	apiURL    string
	apiKey    string
	model     string
	langName  string
	maxTokens int
	client    *http.Client
}

func NewGenerator(apiURL, apiKey, model, lang string) *Generator {
	return &Generator{
		apiURL:    apiURL,
		apiKey:    apiKey,
		model:     model,
		langName:  languageName(lang),
		maxTokens: 200,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate requests a 2-3 sentence commentary for the given snapshot.
// Every failure comes back as an error value; the broadcast still goes out
// with a fallback text, so nothing here may panic or block past the client
// timeout.
func (g *Generator) Generate(ctx context.Context, snap *market.Snapshot) (string, error) {
	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: g.prompt(snap)},
		},
		MaxTokens: g.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "could not encode completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "could not build completion request")
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", errors.Wrap(err, "could not decode completion response")
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}

	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("completion response contained empty content")
	}

	log.Debugf("generated %d characters of commentary", len(text))
	return text, nil
}

func (g *Generator) prompt(snap *market.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following cryptocurrency market data:\n\n")
	for _, q := range snap.Quotes {
		fmt.Fprintf(&sb, "%s: $%.2f (%+.2f%% over 24h)\n", q.ID, q.PriceUSD, q.Change24Pct)
	}
	fmt.Fprintf(&sb, "\nGive a brief assessment (2-3 sentences, in %s) of the current state of the market.", g.langName)
	return sb.String()
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	return display.English.Tags().Name(tag)
}
