package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// openAIClient talks to any OpenAI-compatible chat completions endpoint,
// which covers both OpenAI itself and Groq.
type openAIClient struct {
	baseClient
	apiKey string
}

type openAIRequest struct {
	Model          string               `json:"model"`
	Messages       []ChatMessage        `json:"messages"`
	Temperature    float64              `json:"temperature"`
	Stream         bool                 `json:"stream,omitempty"`
	ResponseFormat *openAIResponseShape `json:"response_format,omitempty"`
}

type openAIResponseShape struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *openAIClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	resp, err := c.postJSON(ctx, openAIRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    0.4,
		ResponseFormat: &openAIResponseShape{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm: completions returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("llm: decode completions response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("llm: completions response had no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func (c *openAIClient) Stream(ctx context.Context, messages []ChatMessage, emit func(delta string) error) error {
	resp, err := c.postJSON(ctx, openAIRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.4,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("llm: completions returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}
		var decoded openAIResponse
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			continue
		}
		if len(decoded.Choices) == 0 {
			continue
		}
		if delta := decoded.Choices[0].Delta.Content; delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func (c *openAIClient) postJSON(ctx context.Context, payload openAIRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode completions request: %w", err)
	}

	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("llm: build completions request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(req)
	})
}
