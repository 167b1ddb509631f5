package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/internal/httpx"
)

// UploadTicket is an upload grant: a signed storage target to POST the
// bytes to, and the download URL the file is reachable at afterwards.
type UploadTicket struct {
	Upload struct {
		URL    string            `json:"url"`
		Fields map[string]string `json:"fields"`
	} `json:"upload"`
	Download struct {
		URL string `json:"url"`
	} `json:"download"`
}

// RequestUpload asks the API for an upload grant for one file.
func (c *Client) RequestUpload(ctx context.Context, filename, contentType string) (*UploadTicket, error) {
	body := map[string]string{
		"filename":     filename,
		"content_type": contentType,
	}
	resp, err := c.exec.Do(ctx, Request{Method: http.MethodPost, Path: "/files/upload/", Body: body})
	if err != nil {
		return nil, err
	}
	var ticket UploadTicket
	if err := json.Unmarshal(resp.Body, &ticket); err != nil {
		return nil, errors.Wrap(err, "upload grant did not decode")
	}
	if ticket.Upload.URL == "" || ticket.Download.URL == "" {
		return nil, errors.New("upload grant is missing its storage URLs")
	}
	return &ticket, nil
}

// Uploader posts file bytes to the signed storage target from an upload
// grant. The target belongs to the storage vendor, not the API, so
// requests carry only the grant's form fields and never the account's
// credentials.
type Uploader struct {
	httpClient *http.Client
	policy     httpx.TargetPolicy
}

// NewUploader builds an uploader with its own unauthenticated client.
func NewUploader(timeout time.Duration) *Uploader {
	return &Uploader{httpClient: httpx.New(timeout)}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (u *Uploader) SetHTTPClient(client *http.Client) {
	u.httpClient = client
}

// SetTargetPolicy relaxes the storage-target checks. Used by tests that
// stand in a local server for the vendor.
func (u *Uploader) SetTargetPolicy(policy httpx.TargetPolicy) {
	u.policy = policy
}

// Send posts the file to the grant's storage target. The grant's form
// fields go first and the file part last; the storage vendor rejects any
// other order. Success is exactly 201.
func (u *Uploader) Send(ctx context.Context, ticket *UploadTicket, filename, contentType string, content []byte) error {
	if _, err := httpx.ValidateUploadURLWithPolicy(ticket.Upload.URL, u.policy); err != nil {
		return errors.Wrap(err, "refusing upload target")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for key, value := range ticket.Upload.Fields {
		if err := form.WriteField(key, value); err != nil {
			return errors.Wrap(err, "building upload form")
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return errors.Wrap(err, "building upload form")
	}
	if _, err := part.Write(content); err != nil {
		return errors.Wrap(err, "building upload form")
	}
	if err := form.Close(); err != nil {
		return errors.Wrap(err, "building upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.Upload.URL, &buf)
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting file to storage")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewAPIError(http.MethodPost, ticket.Upload.URL, resp.StatusCode, body)
	}
	return nil
}
