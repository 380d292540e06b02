package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

// Config controls how the pricing analyst behaves.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Endpoint   string
	MaxRetries int
	HTTPClient *http.Client
}

// Analyst turns a tool and its price history into a short written analysis.
type Analyst interface {
	AnalyzePricing(ctx context.Context, tool catalog.Tool, history []catalog.PricePoint) (string, error)
}

const (
	defaultProvider   = "openai"
	defaultModel      = "gpt-4.1-mini"
	defaultEndpoint   = "https://api.openai.com/v1/chat/completions"
	defaultMaxRetries = 3
)

// NewAnalyst builds a concrete Analyst implementation based on the provided config.
func NewAnalyst(cfg Config) (Analyst, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}

	switch cfg.Provider {
	case "openai":
		return newOpenAIAnalyst(cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type openAIAnalyst struct {
	apiKey   string
	model    string
	endpoint string
	client   httpClient
}

func newOpenAIAnalyst(cfg Config) (*openAIAnalyst, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("pricing analysis requires an API key (set ai.api_key in config or OPENAI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		maxRetries := cfg.MaxRetries
		if maxRetries <= 0 {
			maxRetries = defaultMaxRetries
		}
		retryClient := retryablehttp.NewClient()
		retryClient.Logger = leveledLogger{utils.Log}
		retryClient.RetryMax = maxRetries
		retryClient.HTTPClient.Timeout = 45 * time.Second
		client = retryClient.StandardClient()
	}

	return &openAIAnalyst{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   client,
	}, nil
}

// AnalyzePricing asks the model for a pricing analysis of one tool.
func (a *openAIAnalyst) AnalyzePricing(ctx context.Context, tool catalog.Tool, history []catalog.PricePoint) (string, error) {
	utils.Log.Debugf("[ai] analyzing pricing for %s (%d history points)", tool.ID, len(history))

	payloadJSON, err := json.Marshal(buildInput(tool, history))
	if err != nil {
		return "", err
	}

	reqBody := openAIChatRequest{
		Model: a.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payloadJSON)},
		},
		Temperature: 0.2,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErrResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErrResp)
		if apiErrResp.Error.Message != "" {
			return "", fmt.Errorf("pricing analysis: %s", apiErrResp.Error.Message)
		}
		return "", fmt.Errorf("pricing analysis failed with HTTP %d", resp.StatusCode)
	}

	var apiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", err
	}

	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return "", errors.New("pricing analysis returned an empty response")
	}

	analysis := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	utils.Log.Debugf("[ai] analysis for %s is %d characters", tool.ID, len(analysis))
	return analysis, nil
}

const systemPrompt = `You are a SaaS pricing analyst.

You receive one tool with its current pricing tiers and the history of tier price changes.
- Summarize how the tool is priced today, tier by tier.
- Point out price increases or decreases in the history and when they happened.
- Tiers whose price is a string such as "Custom" are negotiated; never invent a number for them.
- Say which tier gives the best value for a small team and why.
- Keep the answer under 200 words, plain text, no markdown tables.`

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type llmInput struct {
	Tool     string          `json:"tool"`
	Category string          `json:"category"`
	Website  string          `json:"website,omitempty"`
	Tiers    []llmTier       `json:"tiers"`
	History  []llmPricePoint `json:"history"`
}

type llmTier struct {
	Name        string        `json:"name"`
	Price       pricing.Price `json:"price"`
	Features    []string      `json:"features,omitempty"`
	Limitations []string      `json:"limitations,omitempty"`
}

type llmPricePoint struct {
	Tier   string `json:"tier"`
	Change string `json:"change"`
	Price  string `json:"price,omitempty"`
	Date   string `json:"date"`
}

func buildInput(tool catalog.Tool, history []catalog.PricePoint) llmInput {
	in := llmInput{
		Tool:     tool.Name,
		Category: tool.Category,
		Website:  tool.Website,
		Tiers:    []llmTier{},
		History:  []llmPricePoint{},
	}
	for _, nt := range tool.Pricing.Ordered() {
		in.Tiers = append(in.Tiers, llmTier{
			Name:        string(nt.Name),
			Price:       nt.Tier.Price,
			Features:    nt.Tier.Features,
			Limitations: nt.Tier.Limitations,
		})
	}
	for _, p := range history {
		point := llmPricePoint{
			Tier:   string(p.Tier),
			Change: p.ChangeType,
			Date:   p.RecordedAt.Format("2006-01-02"),
		}
		if p.Price != nil {
			point.Price = p.Price.String()
		}
		in.History = append(in.History, point)
	}
	return in
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *logrus.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.WithFields(fields(kv)).Error(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.WithFields(fields(kv)).Debug(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.WithFields(fields(kv)).Debug(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
