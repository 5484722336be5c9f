package questiongen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chainlms-net/lms/core"
)

const (
	// MinQuestions and MaxQuestions bound the requested question count;
	// out-of-range requests are clamped, not rejected.
	MinQuestions = 1
	MaxQuestions = 50

	defaultTimeout = 2 * time.Minute
)

// allowedExts lists the source-material formats the generation service
// accepts.
var allowedExts = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// Client uploads course material to the generation service and returns the
// drafts parsed from its response.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a Client for the service at baseURL. A nil logger
// falls back to slog.Default.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type generateResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Generate uploads the named material and asks for count questions. The
// filename's extension must be one of .txt, .pdf or .docx; count is
// clamped to [MinQuestions, MaxQuestions].
func (c *Client) Generate(ctx context.Context, filename string, material io.Reader, count int) ([]core.QuestionDraft, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return nil, fmt.Errorf("unsupported material format %q", ext)
	}
	if count < MinQuestions {
		count = MinQuestions
	} else if count > MaxQuestions {
		count = MaxQuestions
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, material); err != nil {
		return nil, fmt.Errorf("read material: %w", err)
	}
	if err := mw.WriteField("questionCount", strconv.Itoa(count)); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("requesting question generation",
		"file", filepath.Base(filename), "count", count)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation service: %w", err)
	}
	defer resp.Body.Close()

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("generation service: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("generation service: %s", decoded.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service: unexpected status %d", resp.StatusCode)
	}

	drafts := Parse(decoded.Result)
	c.logger.Info("parsed generated questions", "drafts", len(drafts))
	return drafts, nil
}
