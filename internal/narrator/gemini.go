package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/antoniostano/ironhand/internal/reliability"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider generates text with Google's Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GOOGLE_API_KEY is required for the gemini provider")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	temp := float32(0.8)
	return &GeminiProvider{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:     &temp,
			MaxOutputTokens: int32(1024),
		},
	}, nil
}

func (p *GeminiProvider) GenerateContent(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	res, err := p.client.Models.GenerateContent(ctx, p.model, contents, p.config)
	if err != nil {
		return "", geminiError(err)
	}
	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// geminiError surfaces the API status code so the gateway stops retrying
// requests the service rejected outright.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return fmt.Errorf("gemini generate content: %w", &reliability.StatusError{Code: apiErr.Code, Body: apiErr.Message})
	}
	return fmt.Errorf("gemini generate content: %w", err)
}
