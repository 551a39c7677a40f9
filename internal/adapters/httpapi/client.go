package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// DefaultTimeout bounds JSON requests. Uploads and downloads are bounded by
// their context only.
const DefaultTimeout = 30 * time.Second

// Client talks to the Poser HTTP API
type Client struct {
	baseURL    string
	tokens     ports.TokenSource
	httpClient *http.Client
	transfer   *http.Client
	logger     *slog.Logger
}

// NewClient creates a new API client. tokens may be nil for anonymous use.
func NewClient(baseURL string, tokens ports.TokenSource, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		transfer:   &http.Client{},
		logger:     logger,
	}
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

type requestCodeBody struct {
	Email string `json:"email"`
}

type verifyCodeBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type confirmBody struct {
	Token string `json:"token"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) RequestCode(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/request-code", requestCodeBody{Email: email}, nil)
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) (*ports.TokenResponse, error) {
	var tok ports.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/verify-code", verifyCodeBody{Email: email, Code: code}, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) ConfirmEmail(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/confirm-email", confirmBody{Token: token}, nil)
}

// UploadVideo streams the file as multipart form data. Trim offsets are sent
// in seconds when req.Trim is set.
func (c *Client) UploadVideo(ctx context.Context, req ports.UploadRequest) (string, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	var trimStart, trimEnd string
	if req.Trim != nil {
		trimStart = formatSeconds(req.Trim.OffsetSeconds(domain.HandleStart, req.DurationSeconds))
		trimEnd = formatSeconds(req.Trim.OffsetSeconds(domain.HandleEnd, req.DurationSeconds))
	}

	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.Path)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if req.Trim != nil {
				if err := mw.WriteField("trim_start", trimStart); err != nil {
					return err
				}
				if err := mw.WriteField("trim_end", trimEnd); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("file", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadResponse
	if err := c.send(c.transfer, httpReq, &out); err != nil {
		pr.Close()
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("upload response did not include an analysis id")
	}
	return out.ID, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func (c *Client) GetProgress(ctx context.Context, id string) (*domain.Progress, error) {
	var p domain.Progress
	if err := c.doJSON(ctx, http.MethodGet, "/api/analysis/"+url.PathEscape(id)+"/progress", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	var a domain.AnalysisResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/analysis/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) ListAnalyses(ctx context.Context) ([]domain.AnalysisSummary, error) {
	var list []domain.AnalysisSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/analyses", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/analysis/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SubmitContact(ctx context.Context, msg *domain.ContactMessage) error {
	return c.doJSON(ctx, http.MethodPost, "/api/contact", msg, nil)
}

// ArtifactURL returns the download URL for an artifact. Absolute output
// paths are used as-is.
func (c *Client) ArtifactURL(id string, a domain.Artifact) string {
	if strings.HasPrefix(a.Path, "http://") || strings.HasPrefix(a.Path, "https://") {
		return a.Path
	}
	return fmt.Sprintf("%s/api/analysis/%s/files/%s", c.baseURL, url.PathEscape(id), url.PathEscape(a.Filename))
}

func (c *Client) DownloadArtifact(ctx context.Context, id string, a domain.Artifact, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArtifactURL(id, a), nil)
	if err != nil {
		return 0, err
	}
	c.authorize(req)

	resp, err := c.transfer.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	return n, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(c.httpClient, req, out)
}

func (c *Client) send(hc *http.Client, req *http.Request, out any) error {
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// decodeError turns a non-2xx response into *domain.APIError. The detail
// may be a string or a list of validation objects with a msg field.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body errorBody
	if json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 {
		return apiErr
	}

	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	}
	return apiErr
}

var _ ports.PoserAPI = (*Client)(nil)
