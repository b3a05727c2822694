package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// AdvisorService talks to the Gemini generateContent endpoint. It is a
// fallible, side-effect-free oracle: no retries, and callers must treat
// any error as "no advice".
type AdvisorService struct {
	Client  *http.Client
	APIKey  string
	Model   string
	BaseURL string
}

func NewAdvisorService(apiKey, model string) *AdvisorService {
	return &AdvisorService{
		Client:  &http.Client{Timeout: 15 * time.Second},
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
	}
}

// Advice is the structured triage result attached to a service request.
type Advice struct {
	ServiceType     string   `json:"serviceType"`
	PossibleReasons []string `json:"possibleReasons"`
	Urgency         string   `json:"urgency"` // High | Medium | Low
	RecommendTowing bool     `json:"recommendTowing"`
}

// ChatMessage is one prior turn the caller resends; nothing is
// persisted between calls.
type ChatMessage struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const triagePrompt = `You are an automotive triage assistant.
Return ONLY valid JSON (no extra text) in this exact format:
{
  "serviceType": string,
  "possibleReasons": string[],
  "urgency": "High" | "Medium" | "Low",
  "recommendTowing": true | false
}`

const assistantPrompt = `You are a helpful assistant for AutoMate, a roadside assistance platform.
Help users with questions about car problems, service requests, how to use the app, or general automotive advice.
Be friendly, concise, and helpful.`

// Advise asks for a structured triage of a free-text problem
// description.
func (s *AdvisorService) Advise(ctx context.Context, problemDescription string) (*Advice, error) {
	contents := []geminiContent{
		{
			Role:  "user",
			Parts: []geminiPart{{Text: triagePrompt + "\n\nUser problem: " + problemDescription}},
		},
	}

	text, err := s.generate(ctx, geminiRequest{Contents: contents})
	if err != nil {
		return nil, err
	}

	var advice Advice
	if err := json.Unmarshal([]byte(stripFences(text)), &advice); err != nil {
		return nil, fmt.Errorf("parse advice failed: %w", err)
	}
	return &advice, nil
}

// Chat returns a free-text reply given the current message and any
// prior turns the caller resends.
func (s *AdvisorService) Chat(ctx context.Context, message string, history []ChatMessage) (string, error) {
	// Gemini has no system role; the prompt goes in as the first user turn.
	contents := []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: assistantPrompt}}},
	}

	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model" // Gemini uses "model", not "assistant"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: message}},
	})

	text, err := s.generate(ctx, geminiRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return "", err
	}
	return stripFences(text), nil
}

func (s *AdvisorService) generate(ctx context.Context, body geminiRequest) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.BaseURL, s.Model, s.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response failed: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("gemini error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes markdown code fences the model tends to wrap
// JSON answers in.
func stripFences(s string) string {
	for _, fence := range []string{"```json", "```text", "```plaintext", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}
