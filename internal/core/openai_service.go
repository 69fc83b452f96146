package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator builds a Responses API client with retries disabled.
func NewOpenAIGenerator(apiKey, model string, opts ...option.RequestOption) *OpenAIGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *OpenAIGenerator) Name() string { return "openai" }
func (g *OpenAIGenerator) Mode() string { return ModeOpenAI }
func (g *OpenAIGenerator) Close() error { return nil }

func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	params := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(1024),
		Instructions:    openai.String(systemInstruction),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(p.Text, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if p.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        string(p.Task) + "_analysis",
					Schema:      p.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String("Health entry analysis JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", classifyModelError(g.Name(), err)
	}
	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: openai returned an empty response", ErrModelError)
	}
	return text, nil
}
