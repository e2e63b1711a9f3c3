package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"camRelay/runner/internal/entity"
)

const formField = "image"

// Uploader posts frames to a relay's /upload endpoint as multipart forms.
type Uploader struct {
	client *http.Client
	url    string
}

func New(baseURL string, client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}

	return &Uploader{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + "/upload",
	}
}

func (r *Uploader) Upload(ctx context.Context, frame *entity.Frame) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile(formField, frame.Name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(frame.Payload); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}

	for k, v := range frame.Metadata {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, &buf)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
