// pkg/imaging/client.go
package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"beef-back/internal/apperrors"
)

const (
	PartPath  = "/analyze/part"
	GradePath = "/analyze/grade"

	StagePart  = "part-analysis"
	StageGrade = "grade-analysis"

	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
)

var errMissingInsight = errors.New("analysis reply has no insight")

// PartResult is the body returned by the part endpoint.
type PartResult struct {
	DetectedPart string `json:"detectedPart"`
	Insight      string `json:"insight"`
	Status       string `json:"status,omitempty"`
}

// GradeResult is the body returned by the grade endpoint.
type GradeResult struct {
	DetectedGrade string `json:"detectedGrade"`
	Insight       string `json:"insight"`
	Status        string `json:"status,omitempty"`
}

// Client calls the AI inference server. Each call posts the image as the
// multipart field "file".
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AnalyzePart identifies the cut of meat in the image.
func (c *Client) AnalyzePart(ctx context.Context, data []byte, filename string) (*PartResult, error) {
	var res PartResult
	if err := c.call(ctx, StagePart, PartPath, data, filename, &res); err != nil {
		return nil, err
	}
	if res.Insight == "" {
		return nil, &apperrors.UpstreamError{Stage: StagePart, Err: errMissingInsight}
	}
	return &res, nil
}

// AnalyzeGrade grades the meat in the image.
func (c *Client) AnalyzeGrade(ctx context.Context, data []byte, filename string) (*GradeResult, error) {
	var res GradeResult
	if err := c.call(ctx, StageGrade, GradePath, data, filename, &res); err != nil {
		return nil, err
	}
	if res.Insight == "" {
		return nil, &apperrors.UpstreamError{Stage: StageGrade, Err: errMissingInsight}
	}
	return &res, nil
}

func (c *Client) call(ctx context.Context, stage, path string, data []byte, filename string, out any) error {
	// Create multipart form
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperrors.UpstreamError{Stage: stage, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &apperrors.UpstreamError{Stage: stage, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &apperrors.UpstreamError{Stage: stage, StatusCode: resp.StatusCode, Body: truncate(string(respBody))}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return &apperrors.UpstreamError{Stage: stage, Err: fmt.Errorf("empty response body")}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &apperrors.UpstreamError{Stage: stage, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
