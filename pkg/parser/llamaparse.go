package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"docchat/internal/types"
)

const defaultParseBaseURL = "https://api.cloud.llamaindex.ai"

// parsingInstruction is the fixed extraction policy sent with every
// job: tables come out as markdown, repeating headers/footers and any
// table of contents are excluded.
const parsingInstruction = "You are parsing a professional document. " +
	"1. Extract all tables precisely into Markdown format. " +
	"2. Strictly ignore and exclude page headers and page footers. " +
	"3. Do not extract or include the table of contents. " +
	"Focus only on the actual content and data."

// Page is one parsed page of a source document.
type Page struct {
	Label string
	Text  string
}

// ParseClient talks to the remote parsing delegate: upload the file,
// poll the job until it settles, fetch the markdown result split per
// page. Transport failures come back as retryable ParseErrors.
type ParseClient struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	pollLimit    int
}

func NewParseClient(baseURL, apiKey string) *ParseClient {
	if baseURL == "" {
		baseURL = defaultParseBaseURL
	}
	return &ParseClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: 2 * time.Second,
		pollLimit:    150,
	}
}

func (c *ParseClient) Parse(ctx context.Context, path string) ([]Page, error) {
	jobID, err := c.upload(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := c.waitForJob(ctx, path, jobID); err != nil {
		return nil, err
	}

	return c.fetchResult(ctx, path, jobID)
}

func (c *ParseClient) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}
	if err := writer.WriteField("parsing_instruction", parsingInstruction); err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}
	if err := writer.WriteField("result_type", "markdown"); err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &types.ParseError{Source: path, Err: err}
	}

	var out struct {
		ID string `json:"id"`
	}
	url := c.baseURL + "/api/parsing/upload"
	if err := c.do(ctx, path, http.MethodPost, url, writer.FormDataContentType(), body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &types.ParseError{Source: path, Err: fmt.Errorf("upload returned no job id")}
	}
	return out.ID, nil
}

func (c *ParseClient) waitForJob(ctx context.Context, path, jobID string) error {
	url := fmt.Sprintf("%s/api/parsing/job/%s", c.baseURL, jobID)

	for i := 0; i < c.pollLimit; i++ {
		var out struct {
			Status string `json:"status"`
		}
		if err := c.do(ctx, path, http.MethodGet, url, "", nil, &out); err != nil {
			return err
		}

		switch out.Status {
		case "SUCCESS", "COMPLETED":
			return nil
		case "ERROR", "FAILED":
			return &types.ParseError{Source: path, Err: fmt.Errorf("parsing job %s failed", jobID)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return &types.ParseError{
		Source:    path,
		Retryable: true,
		Err:       fmt.Errorf("parsing job %s did not finish in time", jobID),
	}
}

func (c *ParseClient) fetchResult(ctx context.Context, path, jobID string) ([]Page, error) {
	var out struct {
		Pages []struct {
			Page int    `json:"page"`
			Md   string `json:"md"`
		} `json:"pages"`
	}
	url := fmt.Sprintf("%s/api/parsing/job/%s/result/json", c.baseURL, jobID)
	if err := c.do(ctx, path, http.MethodGet, url, "", nil, &out); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(out.Pages))
	for _, p := range out.Pages {
		pages = append(pages, Page{
			Label: strconv.Itoa(p.Page),
			Text:  p.Md,
		})
	}
	return pages, nil
}

func (c *ParseClient) do(ctx context.Context, source, method, url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &types.ParseError{Source: source, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &types.ParseError{Source: source, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &types.ParseError{
			Source:    source,
			Retryable: true,
			Err:       fmt.Errorf("parsing delegate %s %s: %s", method, url, resp.Status),
		}
	}
	if resp.StatusCode >= 300 {
		return &types.ParseError{
			Source: source,
			Err:    fmt.Errorf("parsing delegate %s %s: %s", method, url, resp.Status),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &types.ParseError{Source: source, Err: err}
		}
	}
	return nil
}
