package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/gistflow/internal/domain/studyguide"
	"github.com/yanqian/gistflow/internal/infra/config"
	"github.com/yanqian/gistflow/internal/infra/llm/openrouter"
	"github.com/yanqian/gistflow/internal/infra/ratelimit"
	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

func TestRouter_SummarizeSuccess(t *testing.T) {
	resp := studyguide.Response{
		Style:  studyguide.StyleConcise,
		Topic:  "Cells",
		Result: studyguide.SummaryResult{Summary: "short summary", KeyTerms: "- cell: unit"}.Normalize(),
	}
	svc := &stubStudyGuide{
		summarizeFn: func(ctx context.Context, req studyguide.Request) (studyguide.Response, error) {
			require.Equal(t, "hello world", req.Notes)
			require.Equal(t, studyguide.StyleDetailed, req.Style)
			return resp, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/api/v1/summaries", `{"notes":"hello world","style":"detailed"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get(requestIDHeader))

	var got studyguide.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp.Result, got.Result)
	require.Equal(t, resp.Topic, got.Topic)
}

func TestRouter_SummarizeInvalidJSON(t *testing.T) {
	recorder := performRequest(newRouterUnderTest(t, &stubStudyGuide{}, nil), "/api/v1/summaries", `{"notes":123}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_SummarizeDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid input", err: apperrors.Wrap(studyguide.CodeInvalidInput, "study notes cannot be empty", nil), wantStatus: http.StatusBadRequest, wantCode: studyguide.CodeInvalidInput},
		{name: "missing credentials", err: apperrors.Wrap(studyguide.CodeMissingCredentials, "LLM API key is not configured", nil), wantStatus: http.StatusServiceUnavailable, wantCode: studyguide.CodeMissingCredentials},
		{name: "auth", err: apperrors.Wrap(studyguide.CodeLLMAuth, "Authentication failed - invalid API key", errors.New("401")), wantStatus: http.StatusBadGateway, wantCode: studyguide.CodeLLMAuth},
		{name: "rate limited", err: apperrors.Wrap(studyguide.CodeLLMRateLimited, "Rate limit exceeded - please try again later", nil), wantStatus: http.StatusTooManyRequests, wantCode: studyguide.CodeLLMRateLimited},
		{name: "no response", err: apperrors.Wrap(studyguide.CodeLLMNoResponse, "No response received", nil), wantStatus: http.StatusGatewayTimeout, wantCode: studyguide.CodeLLMNoResponse},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubStudyGuide{
				summarizeFn: func(ctx context.Context, req studyguide.Request) (studyguide.Response, error) {
					return studyguide.Response{}, tt.err
				},
			}

			recorder := performRequest(newRouterUnderTest(t, svc, nil), "/api/v1/summaries", `{"notes":"x"}`)
			require.Equal(t, tt.wantStatus, recorder.Code)

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tt.wantCode, errBody["error"]["code"])
			if tt.wantCode != "internal_error" {
				require.Equal(t, apperrors.MessageOf(tt.err), errBody["error"]["message"])
			}
		})
	}
}

func TestRouter_SummarizeStreamSuccess(t *testing.T) {
	result := studyguide.SummaryResult{Summary: "second"}.Normalize()
	chunks := []studyguide.StreamChunk{
		{PartialSummary: "first"},
		{PartialSummary: "second", Completed: true, Result: &result},
	}
	svc := &stubStudyGuide{
		streamSummaryFn: func(ctx context.Context, req studyguide.Request) (<-chan studyguide.StreamChunk, error) {
			require.Equal(t, "stream me", req.Notes)
			stream := make(chan studyguide.StreamChunk, len(chunks))
			go func() {
				defer close(stream)
				for _, chunk := range chunks {
					stream <- chunk
				}
			}()
			return stream, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/api/v1/summaries/stream", `{"notes":"stream me"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	payload := strings.TrimSpace(recorder.Body.String())
	frames := strings.Split(payload, "\n\n")
	require.Len(t, frames, len(chunks))

	for i, frame := range frames {
		require.True(t, strings.HasPrefix(frame, "data: "))
		encoded := strings.TrimPrefix(frame, "data: ")
		var got studyguide.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(encoded), &got))
		require.Equal(t, chunks[i], got)
	}
}

func TestRouter_SummarizeStreamInvalidInput(t *testing.T) {
	svc := &stubStudyGuide{
		streamSummaryFn: func(ctx context.Context, req studyguide.Request) (<-chan studyguide.StreamChunk, error) {
			return nil, apperrors.Wrap(studyguide.CodeInvalidInput, "study notes cannot be empty", nil)
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/api/v1/summaries/stream", `{"notes":""}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, studyguide.CodeInvalidInput, errBody["error"]["code"])
	require.Equal(t, "study notes cannot be empty", errBody["error"]["message"])
}

func TestRouter_ListStyles(t *testing.T) {
	svc := &stubStudyGuide{styles: []studyguide.StyleInfo{{ID: studyguide.StyleConcise, Label: "Quick Review"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/styles", nil)
	recorder := httptest.NewRecorder()
	newRouterUnderTest(t, svc, nil).Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Styles []studyguide.StyleInfo `json:"styles"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, svc.styles, body.Styles)
}

func TestRouter_CORS(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigins = []string{"https://notes.example"}
	handler := NewHandler(&stubStudyGuide{}, studyguide.Config{MaxUploadBytes: 1 << 10}, newTestLogger())
	server := NewRouter(cfg, handler, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/styles", nil)
	req.Header.Set("Origin", "https://notes.example")
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "https://notes.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/styles", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	recorder = httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestOriginAllowed(t *testing.T) {
	require.True(t, originAllowed("https://a.example", nil))
	require.True(t, originAllowed("https://a.example", []string{"*"}))
	require.True(t, originAllowed("https://A.example", []string{"https://a.example"}))
	require.False(t, originAllowed("https://b.example", []string{"https://a.example"}))
}

func TestRouter_Export(t *testing.T) {
	svc := &stubStudyGuide{
		exportFn: func(ctx context.Context, req studyguide.ExportRequest) (studyguide.Artifact, error) {
			require.Equal(t, studyguide.ExportMarkdown, req.Format)
			require.Equal(t, "S", req.Result.Summary)
			return studyguide.Artifact{Filename: "exam-study-summary.md", ContentType: "text/markdown; charset=utf-8", Body: []byte("## Summary\n\nS\n")}, nil
		},
	}

	recorder := performRequest(newRouterUnderTest(t, svc, nil), "/api/v1/exports?format=markdown", `{"result":{"summary":"S"},"format":"text"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/markdown; charset=utf-8", recorder.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="exam-study-summary.md"`, recorder.Header().Get("Content-Disposition"))
	require.Equal(t, "## Summary\n\nS\n", recorder.Body.String())
}

func TestRouter_UploadNotes(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, nil)

	recorder := performUpload(t, server, "notes.txt", "# Cells\nMitochondria make ATP.")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Notes    string `json:"notes"`
		Filename string `json:"filename"`
		Bytes    int    `json:"bytes"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "# Cells\nMitochondria make ATP.", body.Notes)
	require.Equal(t, "notes.txt", body.Filename)
	require.Equal(t, len(body.Notes), body.Bytes)
}

func TestRouter_UploadNotesRejectsBinary(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, nil)

	recorder := performUpload(t, server, "notes.pdf", "%PDF-1.4\n%\xe2\xe3\xcf\xd3")
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, studyguide.CodeInvalidInput, errBody["error"]["code"])
	require.Equal(t, "Please upload a text file (.txt)", errBody["error"]["message"])
}

func TestRouter_UploadNotesMissingFile(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, nil)

	recorder := performRequest(server, "/api/v1/notes/upload", `{}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, stubLimiter{allow: false})

	recorder := performRequest(server, "/api/v1/summaries", `{"notes":"x"}`)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health := httptest.NewRecorder()
	server.Handler.ServeHTTP(health, req)
	require.Equal(t, http.StatusOK, health.Code)
}

func TestRouter_RateLimiterFailureLetsRequestsThrough(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, stubLimiter{err: errors.New("valkey down")})

	recorder := performRequest(server, "/api/v1/summaries", `{"notes":"x"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_MemoryRateLimiter(t *testing.T) {
	server := newRouterUnderTest(t, &stubStudyGuide{}, ratelimit.NewMemoryLimiter(1, 1))

	require.Equal(t, http.StatusOK, performRequest(server, "/api/v1/summaries", `{"notes":"x"}`).Code)
	require.Equal(t, http.StatusTooManyRequests, performRequest(server, "/api/v1/summaries", `{"notes":"x"}`).Code)
}

func TestRouter_RequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	recorder := httptest.NewRecorder()
	newRouterUnderTest(t, &stubStudyGuide{}, nil).Handler.ServeHTTP(recorder, req)

	require.Equal(t, "abc-123", recorder.Header().Get(requestIDHeader))
}

func TestRouter_RetriesServerErrors(t *testing.T) {
	var calls int32
	svc := &stubStudyGuide{
		exportFn: func(ctx context.Context, req studyguide.ExportRequest) (studyguide.Artifact, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return studyguide.Artifact{}, apperrors.Wrap(studyguide.CodeExportFailed, "failed to render study guide", nil)
			}
			return studyguide.Artifact{Filename: "exam-study-summary.txt", ContentType: "text/plain; charset=utf-8", Body: []byte("ok")}, nil
		},
	}
	cfg := testConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 2, BaseBackoff: time.Millisecond}
	server := NewRouter(cfg, NewHandler(svc, studyguide.Config{}, newTestLogger()), nil, newTestLogger())

	recorder := performRequest(server, "/api/v1/exports", `{"result":{"summary":"S"}}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "ok", recorder.Body.String())
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRouter_NeverReplaysSummaries(t *testing.T) {
	var calls int32
	svc := &stubStudyGuide{
		summarizeFn: func(ctx context.Context, req studyguide.Request) (studyguide.Response, error) {
			atomic.AddInt32(&calls, 1)
			return studyguide.Response{}, apperrors.Wrap(studyguide.CodeLLMServer, "LLM provider server error", nil)
		},
	}
	cfg := testConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}
	server := NewRouter(cfg, NewHandler(svc, studyguide.Config{}, newTestLogger()), nil, newTestLogger())

	recorder := performRequest(server, "/api/v1/summaries", `{"notes":"x"}`)
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRouter_SummariesCallModelAtMostTwice(t *testing.T) {
	var upstream int32
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&upstream, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer llm.Close()

	client, err := openrouter.NewClient(openrouter.Options{
		APIKey:        "sk-test",
		BaseURL:       llm.URL,
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
	require.NoError(t, err)
	studyCfg := studyguide.Config{Model: "m", DefaultStyle: studyguide.StyleConcise, MaxUploadBytes: 1 << 10}
	svc := studyguide.NewService(studyCfg, client, nil, nil, newTestLogger())

	cfg := testConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}
	server := NewRouter(cfg, NewHandler(svc, studyCfg, newTestLogger()), nil, newTestLogger())

	recorder := performRequest(server, "/api/v1/summaries", `{"notes":"Photosynthesis converts light"}`)
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Equal(t, int32(2), atomic.LoadInt32(&upstream))
}

func performRequest(server *http.Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performUpload(t *testing.T, server *http.Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newRouterUnderTest(t *testing.T, svc studyguide.Service, limiter ratelimit.Limiter) *http.Server {
	t.Helper()
	handler := NewHandler(svc, studyguide.Config{MaxUploadBytes: 1 << 10}, newTestLogger())
	return NewRouter(testConfig(), handler, limiter, newTestLogger())
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubLimiter struct {
	allow bool
	err   error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) {
	return s.allow, s.err
}

type stubStudyGuide struct {
	summarizeFn     func(ctx context.Context, req studyguide.Request) (studyguide.Response, error)
	streamSummaryFn func(ctx context.Context, req studyguide.Request) (<-chan studyguide.StreamChunk, error)
	exportFn        func(ctx context.Context, req studyguide.ExportRequest) (studyguide.Artifact, error)
	styles          []studyguide.StyleInfo
}

func (s *stubStudyGuide) Summarize(ctx context.Context, req studyguide.Request) (studyguide.Response, error) {
	if s.summarizeFn != nil {
		return s.summarizeFn(ctx, req)
	}
	return studyguide.Response{}, nil
}

func (s *stubStudyGuide) StreamSummary(ctx context.Context, req studyguide.Request) (<-chan studyguide.StreamChunk, error) {
	if s.streamSummaryFn != nil {
		return s.streamSummaryFn(ctx, req)
	}
	stream := make(chan studyguide.StreamChunk)
	close(stream)
	return stream, nil
}

func (s *stubStudyGuide) Styles() []studyguide.StyleInfo {
	return s.styles
}

func (s *stubStudyGuide) Export(ctx context.Context, req studyguide.ExportRequest) (studyguide.Artifact, error) {
	if s.exportFn != nil {
		return s.exportFn(ctx, req)
	}
	return studyguide.Artifact{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
