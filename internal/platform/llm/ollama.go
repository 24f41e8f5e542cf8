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

// ollamaClient talks to a local Ollama daemon. It prefers /api/chat and
// falls back to /api/generate when the daemon predates the chat endpoint.
type ollamaClient struct {
	baseClient
	forceGenerate bool
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *ollamaClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.forceGenerate {
		resp, err := c.postJSON(ctx, "/api/chat", ollamaChatRequest{
			Model:    c.model,
			Messages: messages,
			Stream:   false,
			Format:   "json",
		})
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusNotFound {
			defer resp.Body.Close()
			return decodeOllamaBody(resp)
		}
		resp.Body.Close()
	}

	resp, err := c.postJSON(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  c.model,
		Prompt: messagesToPrompt(messages),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeOllamaBody(resp)
}

func (c *ollamaClient) Stream(ctx context.Context, messages []ChatMessage, emit func(delta string) error) error {
	if !c.forceGenerate {
		resp, err := c.postJSON(ctx, "/api/chat", ollamaChatRequest{
			Model:    c.model,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusNotFound {
			defer resp.Body.Close()
			return streamOllamaLines(resp.Body, emit)
		}
		resp.Body.Close()
	}

	resp, err := c.postJSON(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  c.model,
		Prompt: messagesToPrompt(messages),
		Stream: true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return streamOllamaLines(resp.Body, emit)
}

func (c *ollamaClient) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode ollama request: %w", err)
	}

	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("llm: build ollama request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
}

func decodeOllamaBody(resp *http.Response) (string, error) {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm: ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chunk ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("llm: decode ollama response: %w", err)
	}
	if chunk.Message.Content != "" {
		return chunk.Message.Content, nil
	}
	return chunk.Response, nil
}

// streamOllamaLines parses the NDJSON stream, emitting each delta and
// silently skipping malformed lines.
func streamOllamaLines(body io.Reader, emit func(delta string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		delta := chunk.Message.Content
		if delta == "" {
			delta = chunk.Response
		}
		if delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	return scanner.Err()
}

// messagesToPrompt flattens a chat transcript into a single prompt for the
// legacy generate endpoint.
func messagesToPrompt(messages []ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(strings.ToUpper(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nASSISTANT:")
	return b.String()
}
