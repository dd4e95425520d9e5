package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/jsonutil"
	"github.com/siloforge/siloforge-engine/pkg/retry"
)

const defaultTimeout = 20 * time.Second

// Config holds connection settings for an OpenAI-compatible endpoint.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string // optional for local endpoints
	Timeout  time.Duration
}

// Client calls an OpenAI-compatible chat endpoint and validates the response
// shape strictly before handing it back.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a reranking client. Endpoint and model are required.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger.Named("oracle"),
	}, nil
}

const systemPrompt = `Você é um revisor de links internos para blogs em português.
Receberá uma lista de sugestões de âncoras já pontuadas. Reordene apenas as
melhores, sem inventar âncoras ou alvos novos. Responda somente com JSON:
{"rankings":[{"candidate_id":"...","rationale":"..."}],"confidence":0.0}`

// Rerank asks the oracle to reorder the offered shortlist. The call has a
// hard deadline; any transport, shape, or validation failure is an error and
// the caller falls back to the heuristic order.
func (c *Client) Rerank(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates to rerank")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	// One cheap retry for transient transport failures; the overall timeout
	// still bounds the call.
	start := time.Now()
	resp, err := retry.DoWithResult(ctx, &retry.Config{
		MaxRetries:   1,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}, func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.1,
		})
	})
	if err != nil {
		c.logger.Warn("rerank request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	result, err := parseResult(resp.Choices[0].Message.Content, req)
	if err != nil {
		c.logger.Warn("rerank response rejected", zap.Error(err))
		return nil, err
	}

	c.logger.Debug("rerank completed",
		zap.Int("offered", len(req.Candidates)),
		zap.Int("ranked", len(result.Rankings)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func buildPrompt(req *Request) (string, error) {
	payload, err := json.Marshal(req.Candidates)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Artigo: %s\n", req.ArticleTitle)
	if req.ArticleKeyword != "" {
		fmt.Fprintf(&b, "Palavra-chave: %s\n", req.ArticleKeyword)
	}
	if req.Summary != "" {
		fmt.Fprintf(&b, "Resumo: %s\n", req.Summary)
	}
	fmt.Fprintf(&b, "Máximo de sugestões: %d\n", req.MaxResults)
	fmt.Fprintf(&b, "Candidatas:\n%s\n", payload)
	return b.String(), nil
}

// wire types for the strict response contract.
type wireResult struct {
	Rankings   []wireRanking   `json:"rankings"`
	Confidence json.RawMessage `json:"confidence"`
}

type wireRanking struct {
	CandidateID json.RawMessage `json:"candidate_id"`
	Rationale   json.RawMessage `json:"rationale"`
}

// parseResult extracts and validates the oracle JSON. Rankings referencing
// candidate ids that were never offered are discarded; duplicates keep their
// first position. An empty surviving set is an error, not an empty result.
func parseResult(content string, req *Request) (*Result, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal rankings: %w", err)
	}
	if len(wire.Rankings) == 0 {
		return nil, fmt.Errorf("response has no rankings")
	}

	offered := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		offered[c.ID] = true
	}

	result := &Result{}
	seen := make(map[string]bool, len(wire.Rankings))
	for _, r := range wire.Rankings {
		id := strings.TrimSpace(jsonutil.FlexibleStringValue(r.CandidateID))
		if id == "" || !offered[id] || seen[id] {
			continue
		}
		seen[id] = true
		result.Rankings = append(result.Rankings, Ranking{
			CandidateID: id,
			Rationale:   strings.TrimSpace(jsonutil.FlexibleStringValue(r.Rationale)),
		})
	}
	if len(result.Rankings) == 0 {
		return nil, fmt.Errorf("no ranking references an offered candidate")
	}

	if conf, ok := jsonutil.FlexibleFloat(wire.Confidence); ok {
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		result.Confidence = conf
	}
	return result, nil
}

var _ Reranker = (*Client)(nil)
