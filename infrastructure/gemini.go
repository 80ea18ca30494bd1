package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ai-interviewer/config"
	"ai-interviewer/domain"
)

// GeminiClient wraps the Gemini REST API. It performs exactly one provider
// call per invocation; retry policy belongs to the caller.
type GeminiClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGeminiClient creates a new Gemini client. A missing API key is not fatal
// here; the first call reports the configuration error.
func NewGeminiClient(cfg *config.Config) *GeminiClient {
	return &GeminiClient{
		apiKey:   cfg.GeminiAPIKey,
		model:    cfg.GeminiModel,
		endpoint: cfg.GeminiEndpoint,
		client:   &http.Client{Timeout: cfg.GeminiTimeout},
	}
}

const noAnswerMarker = "[no answer]"

// GenerateQuestion builds the interviewer prompt from the resume text and the
// ordered prior transcript and returns the generated question text.
func (g *GeminiClient) GenerateQuestion(ctx context.Context, resumeText string, transcript []domain.TranscriptEntry) (string, error) {
	var b strings.Builder
	b.WriteString("You are an AI interviewer. Candidate resume data:\n")
	if resumeText == "" {
		b.WriteString("(no resume text available)")
	} else {
		b.WriteString(resumeText)
	}
	b.WriteString("\n\nPrevious Q&A:\n")
	for _, entry := range transcript {
		answer := noAnswerMarker
		if entry.Answer != nil {
			answer = *entry.Answer
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", entry.Question, answer)
	}
	b.WriteString("Now generate one more relevant, role-specific technical question. Return only the question text.")

	text, err := g.callGemini(ctx, b.String())
	if err != nil {
		return "", err
	}
	question := strings.TrimSpace(text)
	if question == "" {
		return "", fmt.Errorf("empty question text: %w", domain.ErrGenerationParse)
	}
	return question, nil
}

// evaluationResult mirrors the structured shape demanded from the provider.
type evaluationResult struct {
	Score            *float64 `json:"score"`
	Confidence       *float64 `json:"confidence"`
	FollowUp         bool     `json:"follow_up"`
	FollowUpQuestion string   `json:"follow_up_question"`
}

// EvaluateAnswer scores one answer. A response that does not decode into the
// expected structure is a GenerationParse error, never silently defaulted.
func (g *GeminiClient) EvaluateAnswer(ctx context.Context, questionText, answerText string) (domain.Evaluation, error) {
	prompt := fmt.Sprintf(
		`You are an expert interviewer reviewing a candidate answer.

Question:
%s

Answer:
%s

Return strict JSON with structure:
{
  "score": float,
  "confidence": float,
  "follow_up": boolean,
  "follow_up_question": string
}

IMPORTANT: score is between 0-10 and confidence is between 0.0-1.0. Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.`,
		questionText, answerText)

	text, err := g.callGemini(ctx, prompt)
	if err != nil {
		return domain.Evaluation{}, err
	}

	cleaned := cleanJSONResponse(text)
	var result evaluationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return domain.Evaluation{}, fmt.Errorf("decode evaluation %q: %w", cleaned, domain.ErrGenerationParse)
	}
	if result.Score == nil || result.Confidence == nil {
		return domain.Evaluation{}, fmt.Errorf("evaluation missing score or confidence: %w", domain.ErrGenerationParse)
	}
	if *result.Score < 0 || *result.Score > 10 || *result.Confidence < 0 || *result.Confidence > 1 {
		return domain.Evaluation{}, fmt.Errorf("evaluation out of range (score=%v confidence=%v): %w",
			*result.Score, *result.Confidence, domain.ErrGenerationParse)
	}

	return domain.Evaluation{
		Score:            *result.Score,
		Confidence:       *result.Confidence,
		FollowUp:         result.FollowUp,
		FollowUpQuestion: result.FollowUpQuestion,
	}, nil
}

func (g *GeminiClient) callGemini(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set: %w", domain.ErrConfiguration)
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.1,
			"topP":        0.8,
			"topK":        40,
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts land here and count as provider unavailability.
		return "", fmt.Errorf("provider call failed: %v: %w", err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v: %w", err, domain.ErrProviderUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("provider rejected credentials (status %d): %w", resp.StatusCode, domain.ErrConfiguration)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("API request failed with status %d: %s: %w", resp.StatusCode, string(body), domain.ErrProviderUnavailable)
	}

	var apiResponse map[string]interface{}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse API response: %v: %w", err, domain.ErrGenerationParse)
	}

	text, err := extractTextFromResponse(apiResponse)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrGenerationParse)
	}
	return text, nil
}

func extractTextFromResponse(apiResponse map[string]interface{}) (string, error) {
	candidates, ok := apiResponse["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	firstCandidate, ok := candidates[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid candidate format")
	}
	content, ok := firstCandidate["content"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid content format")
	}

	parts, ok := content["parts"].([]interface{})
	if !ok || len(parts) == 0 {
		return "", fmt.Errorf("no parts in content")
	}

	firstPart, ok := parts[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid part format")
	}
	text, ok := firstPart["text"].(string)
	if !ok {
		return "", fmt.Errorf("no text in part")
	}

	return text, nil
}

// cleanJSONResponse strips markdown fences and surrounding prose the model
// sometimes adds despite being told not to.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}

	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return strings.TrimSpace(content)
}
