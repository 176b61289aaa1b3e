package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/huangang/adsentry/internal/config"
	"github.com/huangang/adsentry/pkg/logger"
)

// Capabilities describes what a provider accepts in a single request.
type Capabilities struct {
	FullVideo bool // can ingest the raw video file
	MaxImages int  // images accepted per request
}

// SubmitImage is one visual input: a sampled frame or a contact sheet.
type SubmitImage struct {
	Data     []byte
	MimeType string
}

// SubmitRequest carries the instruction document plus the visual payload
// for one provider call. VideoPath is set only for full-video providers;
// everyone else gets Images.
type SubmitRequest struct {
	System      string
	Prompt      string
	VideoPath   string
	Images      []SubmitImage
	Temperature float32
	MaxTokens   int
}

// SubmitResult is the raw provider reply plus usage accounting.
type SubmitResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the boundary to AI backends. Any backend satisfying it is
// interchangeable; callers adapt the payload to its Capabilities.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
}

// NewProvider builds the provider named by config. Unknown names fall
// through to the OpenAI-compatible client, which also covers DashScope,
// Azure and other compatible endpoints via base_url.
func NewProvider(cfg *config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires ai.api_key")
		}
		return &geminiProvider{cfg: cfg}, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ai.api_key")
		}
		return &anthropicProvider{cfg: cfg}, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
		}
		return &ollamaProvider{cfg: cfg, client: api.NewClient(u, http.DefaultClient)}, nil
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider requires ai.api_key", cfg.Provider)
		}
		return &openaiProvider{cfg: cfg}, nil
	}
}

// videoMimeType maps a file extension to the MIME type upload APIs expect.
func videoMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}

// --- Gemini ---

// geminiProvider is the only backend that takes the raw video file; the
// file goes through the Files API and is referenced by URI.
type geminiProvider struct {
	cfg *config.AIConfig
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Capabilities() Capabilities {
	return Capabilities{FullVideo: p.cfg.VideoUpload, MaxImages: 16}
}

func (p *geminiProvider) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	model := p.cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	var parts []*genai.Part
	if req.VideoPath != "" {
		part, err := p.uploadVideo(ctx, client, req.VideoPath)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	genCfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	result := &SubmitResult{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// uploadVideo pushes the file through the Files API and waits for it to
// become active before it can be referenced in a generate call.
func (p *geminiProvider) uploadVideo(ctx context.Context, client *genai.Client, path string) (*genai.Part, error) {
	file, err := client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: videoMimeType(path),
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini file upload error: %w", err)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
		file, err = client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("Gemini file status error: %w", err)
		}
	}
	if file.State != genai.FileStateActive {
		return nil, fmt.Errorf("Gemini file processing failed: state %s", file.State)
	}

	logger.Debug().Str("file", file.Name).Str("uri", file.URI).Msg("video uploaded to Gemini")
	return genai.NewPartFromURI(file.URI, file.MIMEType), nil
}

// --- OpenAI and compatible endpoints ---

type openaiProvider struct {
	cfg *config.AIConfig
}

func (p *openaiProvider) Name() string {
	if p.cfg.Provider != "" {
		return p.cfg.Provider
	}
	return "openai"
}

func (p *openaiProvider) Capabilities() Capabilities {
	return Capabilities{FullVideo: false, MaxImages: 10}
}

func (p *openaiProvider) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	clientConfig := openai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		clientConfig.BaseURL = p.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	model := p.cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
	}
	for _, img := range req.Images {
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: content,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &SubmitResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// --- Anthropic ---

type anthropicProvider struct {
	cfg *config.AIConfig
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Capabilities() Capabilities {
	return Capabilities{FullVideo: false, MaxImages: 20}
}

func (p *anthropicProvider) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(p.cfg.APIKey),
	)

	model := p.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MimeType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &SubmitResult{
		Content:          content,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

// --- Ollama ---

// ollamaProvider runs local vision models. Most of them handle one image
// well, so MaxImages is 1 and the reviewer packs frames into contact
// sheets instead.
type ollamaProvider struct {
	cfg    *config.AIConfig
	client *api.Client
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Capabilities() Capabilities {
	return Capabilities{FullVideo: false, MaxImages: 1}
}

func (p *ollamaProvider) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	model := p.cfg.Model
	if model == "" {
		model = "llava"
	}

	images := make([]api.ImageData, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, api.ImageData(img.Data))
	}

	messages := []api.Message{}
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt, Images: images})

	var content strings.Builder
	result := &SubmitResult{}
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			result.PromptTokens = resp.Metrics.PromptEvalCount
			result.CompletionTokens = resp.Metrics.EvalCount
			result.TotalTokens = resp.Metrics.PromptEvalCount + resp.Metrics.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}

	result.Content = content.String()
	return result, nil
}
