// Package recognize turns a meter photograph into a normalized reading by
// way of a vision-capable chat model and a text-mining pass over its answer.
package recognize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/moritzmair/water-usage-tracker/internal/metrics"
)

const systemPrompt = `You are an expert at reading residential water meters.
Analyze the image and extract the meter reading.
The reading typically consists of 5 black digits (cubic metres) and 3 red digits (litres).
Return ONLY the number in the format XXXXX.XXX (for example 123.456).
If you cannot read the meter unambiguously, answer with "ERROR: <description>".`

// Client asks an OpenAI-compatible vision model for the reading shown on a
// meter photograph. It is stateless and safe for concurrent use.
type Client struct {
	client openai.Client
	model  string
}

// NewClient builds a recognition client. baseURL selects the provider
// (OpenRouter by default in the caller); model is a provider-qualified model
// name such as "openai/gpt-4o".
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("recognition API key not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// ReadMeter submits the image and returns the model's raw text answer.
// Transient failures (rate limits, upstream errors) are retried with
// exponential backoff for up to two minutes; auth and request errors fail
// immediately.
func (c *Client) ReadMeter(ctx context.Context, image []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	var text string
	operation := func() error {
		start := time.Now()
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart("What is the current meter reading?"),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURL,
					}),
				}),
			},
		})
		metrics.RecognitionLatency.Observe(time.Since(start).Seconds())

		if err != nil {
			var apierr *openai.Error
			if errors.As(err, &apierr) {
				switch apierr.StatusCode {
				case http.StatusTooManyRequests, http.StatusInternalServerError,
					http.StatusBadGateway, http.StatusServiceUnavailable:
					return fmt.Errorf("recognition request: %w", err)
				}
				return backoff.Permanent(fmt.Errorf("recognition request: %w", err))
			}
			return fmt.Errorf("recognition request: %w", err)
		}

		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("recognition: empty response"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.RecognitionCalls.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.RecognitionCalls.WithLabelValues("ok").Inc()
	return text, nil
}
