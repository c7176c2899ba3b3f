package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/ingest"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
	"github.com/joseph-ayodele/roster-scan/internal/llm/gemini"
	"github.com/joseph-ayodele/roster-scan/internal/llm/openai"
)

// NewGenerator returns the vision backend named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case common.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, logger)
	case common.ProviderOpenAI:
		return openai.NewClient(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, logger), nil
	default:
		return nil, common.NewAppError(constants.ErrConfig, fmt.Sprintf("unsupported LLM provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}

// Build wires a Processor from config: backend, invoker with fallbacks, and the HEIC hook.
func Build(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (*Processor, error) {
	logger = common.LoggerOr(logger)
	gen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	inv := llm.NewInvoker(gen, cfg.Models, cfg.Timeout, cfg.Temperature, logger)
	p := NewProcessorFromInvoker(inv, logger)

	conv, err := ingest.NewHEICConverter(cfg.HEICConverter, cfg.HEICCacheDir, nil, logger)
	if err != nil {
		return nil, err
	}
	heic := "none"
	if conv != nil {
		p.WithImagePreparer(conv)
		heic = conv.Tool()
	}
	logger.Info("pipeline.build",
		"provider", cfg.Provider,
		"models", cfg.Models,
		"heic_converter", heic,
	)
	return p, nil
}
