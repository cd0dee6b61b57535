package studyguide

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/gistflow/internal/infra/llm/openrouter"
	apperrors "github.com/yanqian/gistflow/pkg/errors"
	"github.com/yanqian/gistflow/pkg/metrics"
	"github.com/yanqian/gistflow/pkg/util"
)

// Service exposes study guide generation.
type Service interface {
	Summarize(ctx context.Context, req Request) (Response, error)
	StreamSummary(ctx context.Context, req Request) (<-chan StreamChunk, error)
	Styles() []StyleInfo
	Export(ctx context.Context, req ExportRequest) (Artifact, error)
}

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openrouter.ChatCompletionRequest) (openrouter.Stream, error)
}

// TokenCounter estimates token usage when the provider omits it.
type TokenCounter interface {
	Count(text string) int
}

type service struct {
	cfg      Config
	client   ChatClient
	tokens   TokenCounter
	renderer HTMLRenderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService is a wire provider for the study guide domain.
func NewService(cfg Config, client ChatClient, tokens TokenCounter, renderer HTMLRenderer, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		client:   client,
		tokens:   tokens,
		renderer: renderer,
		logger:   logger.With("component", "studyguide.service"),
		now:      util.NowUTC,
	}
}

func (s *service) Summarize(ctx context.Context, req Request) (Response, error) {
	start := s.now()
	prompt, err := BuildPrompt(req.Notes, s.styleFor(req))
	if err != nil {
		return Response{}, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, s.completionRequest(prompt))
	if err != nil {
		return Response{}, classifyLLMError(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		return Response{}, apperrors.Wrap(CodeLLMError, "No content in API response", nil)
	}
	s.logger.Debug("completion received", "style", prompt.Style.ID, "content", content)

	result := Segment(content)
	finished := s.now()
	usage := s.usage(resp.Usage, prompt, content)
	s.logger.Info("study summary generated",
		"style", prompt.Style.ID,
		"topic", prompt.Topic,
		"duration_ms", finished.Sub(start).Milliseconds(),
		"total_tokens", usage.TotalTokens,
	)

	return Response{
		Style:       prompt.Style.ID,
		Topic:       prompt.Topic,
		Result:      result,
		GeneratedAt: finished,
		DurationMs:  finished.Sub(start).Milliseconds(),
		TokenUsage:  &usage,
	}, nil
}

func (s *service) StreamSummary(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	prompt, err := BuildPrompt(req.Notes, s.styleFor(req))
	if err != nil {
		return nil, err
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, s.completionRequest(prompt))
	if err != nil {
		return nil, classifyLLMError(err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var (
			builder     strings.Builder
			lastSummary string
		)

		for {
			chunk, recvErr := stream.Recv()
			if recvErr != nil {
				if errors.Is(recvErr, io.EOF) {
					break
				}
				s.logger.Error("completion stream recv failed", "error", recvErr)
				appErr := classifyLLMError(recvErr)
				send(StreamChunk{Error: &StreamError{Code: apperrors.CodeOf(appErr), Message: apperrors.MessageOf(appErr)}})
				return
			}
			for _, choice := range chunk.Choices {
				builder.WriteString(choice.Delta.Content)
			}

			partial := partialSummary(builder.String())
			if partial == "" || partial == lastSummary {
				continue
			}
			lastSummary = partial
			if !send(StreamChunk{PartialSummary: partial}) {
				return
			}
		}

		content := builder.String()
		if strings.TrimSpace(content) == "" {
			send(StreamChunk{Error: &StreamError{Code: CodeLLMError, Message: "No content in API response"}})
			return
		}
		s.logger.Debug("completion stream collected", "style", prompt.Style.ID, "content", content)

		result := Segment(content)
		send(StreamChunk{
			PartialSummary: result.Summary,
			Completed:      true,
			Result:         &result,
		})
	}()

	return out, nil
}

func (s *service) Styles() []StyleInfo {
	profiles := Styles()
	out := make([]StyleInfo, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, profile.Info())
	}
	return out
}

func (s *service) Export(_ context.Context, req ExportRequest) (Artifact, error) {
	return BuildArtifact(req, s.renderer)
}

func (s *service) styleFor(req Request) StyleID {
	if strings.TrimSpace(string(req.Style)) != "" {
		return req.Style
	}
	return s.cfg.DefaultStyle
}

func (s *service) completionRequest(prompt Prompt) openrouter.ChatCompletionRequest {
	return openrouter.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openrouter.Message{
			{Role: "system", Content: prompt.SystemMessage},
			{Role: "user", Content: prompt.UserPrompt},
		},
		Temperature: prompt.Style.Temperature,
		MaxTokens:   prompt.Style.MaxTokens,
		TopP:        prompt.Style.TopP,
	}
}

func (s *service) usage(reported *openrouter.Usage, prompt Prompt, content string) metrics.TokenUsage {
	if reported != nil && reported.TotalTokens > 0 {
		return metrics.TokenUsage{
			PromptTokens:     reported.PromptTokens,
			CompletionTokens: reported.CompletionTokens,
			TotalTokens:      reported.TotalTokens,
		}
	}
	if s.tokens == nil {
		return metrics.TokenUsage{}
	}
	promptTokens := s.tokens.Count(prompt.SystemMessage) + s.tokens.Count(prompt.UserPrompt)
	completionTokens := s.tokens.Count(content)
	return metrics.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}
}

// partialSummary extracts the summary from an incomplete completion. Headings
// that have arrived without a body yet produce nothing.
func partialSummary(content string) string {
	summary := Segment(content).Summary
	if summary == content && strings.Contains(content, "##") {
		return ""
	}
	return strings.TrimSpace(summary)
}
