package advisor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/microcaplab/tradegate/internal/config"
	"github.com/microcaplab/tradegate/internal/portfolio"
	"github.com/microcaplab/tradegate/internal/verify"
)

const systemPrompt = "You are a professional portfolio analyst. Always respond with valid JSON in the exact format requested."

const (
	defaultOpenAIModel   = "gpt-4"
	defaultDeepSeekModel = "deepseek-chat"

	generationTemperature float32 = 0.7
	generationMaxTokens           = 2500
)

// LLMAdvisor is the chat-model backed RecommendationSource.
type LLMAdvisor struct {
	chatModel   model.BaseChatModel
	modelName   string
	cfg         *config.Config
	responseLog *ResponseLog
	log         zerolog.Logger
}

// NewLLMAdvisor builds the advisor for the provider selected in the
// config. The model name defaults per provider when the config leaves
// it empty.
func NewLLMAdvisor(ctx context.Context, cfg *config.Config) (*LLMAdvisor, error) {
	chatModel, modelName, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var responseLog *ResponseLog
	if cfg.ResponseLog != "" {
		responseLog = NewResponseLog(cfg.ResponseLog)
	}

	return &LLMAdvisor{
		chatModel:   chatModel,
		modelName:   modelName,
		cfg:         cfg,
		responseLog: responseLog,
		log:         log.With().Str("component", "advisor").Logger(),
	}, nil
}

func newChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, string, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = defaultOpenAIModel
		}
		maxTokens := generationMaxTokens
		temperature := generationTemperature
		chatModel, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init openai model: %w", err)
		}
		return chatModel, modelName, nil

	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, "", fmt.Errorf("DEEPSEEK_API_KEY is required for the deepseek provider")
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = defaultDeepSeekModel
		}
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      cfg.DeepSeekAPIKey,
			Model:       modelName,
			MaxTokens:   generationMaxTokens,
			Temperature: generationTemperature,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init deepseek model: %w", err)
		}
		return chatModel, modelName, nil

	default:
		return nil, "", fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

// ModelName returns the effective model identifier.
func (a *LLMAdvisor) ModelName() string { return a.modelName }

// Propose sends the deep-research prompt and parses the response into
// a Recommendation. The raw response is appended to the response log
// whether or not parsing succeeds; log failures are warnings only.
func (a *LLMAdvisor) Propose(ctx context.Context, state *portfolio.State, dataset verify.VerifiedDataset) (*Recommendation, error) {
	prompt := BuildPrompt(state, dataset, a.cfg)
	a.log.Debug().
		Str("model", a.modelName).
		Int("prompt_chars", len(prompt)).
		Int("verified_symbols", len(dataset.Quotes)).
		Msg("requesting recommendation")

	resp, err := a.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	rec, parseErr := ParseRecommendation(resp.Content, a.log)

	if a.responseLog != nil {
		if logErr := a.responseLog.Append(a.modelName, rec, resp.Content); logErr != nil {
			a.log.Warn().Err(logErr).Msg("response log append failed")
		}
	}

	if parseErr != nil {
		return nil, parseErr
	}
	a.log.Info().
		Float64("confidence", rec.Confidence).
		Int("trades", len(rec.Trades)).
		Msg("recommendation received")
	return rec, nil
}
