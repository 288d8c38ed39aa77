package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// DefaultCloudinaryEndpoint is the upload API root
const DefaultCloudinaryEndpoint = "https://api.cloudinary.com/v1_1"

type CloudinaryConfig struct {
	CloudName    string
	UploadPreset string
	// Endpoint overrides DefaultCloudinaryEndpoint
	Endpoint string
}

// CloudinaryUploader posts unsigned uploads with an upload preset
type CloudinaryUploader struct {
	cfg    CloudinaryConfig
	client *http.Client
}

func NewCloudinaryUploader(cfg CloudinaryConfig, client *http.Client) *CloudinaryUploader {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultCloudinaryEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &CloudinaryUploader{cfg: cfg, client: client}
}

// URL returns the image upload address for the configured cloud
func (u *CloudinaryUploader) URL() string {
	return u.cfg.Endpoint + "/" + u.cfg.CloudName + "/image/upload"
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, f File) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", f.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("%w: read image: %v", ErrUploadFailed, err)
	}
	if err := form.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL(), &buf)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var body cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrUploadFailed, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if body.Error != nil {
			msg = body.Error.Message
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}
	if body.SecureURL == "" {
		return "", fmt.Errorf("%w: response has no secure_url", ErrUploadFailed)
	}
	return body.SecureURL, nil
}
