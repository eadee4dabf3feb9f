package pdfrenderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// RemoteRenderer renders PDFs by uploading them to a pdf2png conversion server
type RemoteRenderer struct {
	ServiceURL string
	HTTPClient *http.Client
}

// remoteJob mirrors the job JSON returned by the conversion server
type remoteJob struct {
	ID    string   `json:"id"`
	Pages []string `json:"pages"`
	Error string   `json:"error,omitempty"`

	// echo's own handlers answer with message instead of error
	Message string `json:"message,omitempty"`
}

// errorDetail returns the error text of a failed service call
func errorDetail(body []byte) string {
	var job remoteJob
	if err := json.Unmarshal(body, &job); err == nil {
		if job.Error != "" {
			return job.Error
		}
		if job.Message != "" {
			return job.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// NewRemoteRenderer creates a renderer backed by the conversion server at serviceURL
func NewRemoteRenderer(serviceURL string) (*RemoteRenderer, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("remote renderer needs a service URL")
	}
	return &RemoteRenderer{
		ServiceURL: strings.TrimSuffix(serviceURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// RenderPDF uploads the PDF, downloads every rendered page and deletes the job on the server
func (r *RemoteRenderer) RenderPDF(filename string) ([]image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("pdf", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.ServiceURL+"/api/convert", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call conversion service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("conversion service returned error status %d: %s", resp.StatusCode, errorDetail(respBody))
	}

	var job remoteJob
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("failed to decode conversion response: %w", err)
	}
	defer r.deleteJob(job.ID)

	images := make([]image.Image, 0, len(job.Pages))
	for i := range job.Pages {
		img, err := r.fetchPage(job.ID, i+1)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (r *RemoteRenderer) fetchPage(jobID string, page int) (image.Image, error) {
	resp, err := r.HTTPClient.Get(fmt.Sprintf("%s/api/convert/%s/%d", r.ServiceURL, jobID, page))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("conversion service returned error status %d: %s", resp.StatusCode, errorDetail(bodyBytes))
	}
	return imaging.Decode(resp.Body)
}

func (r *RemoteRenderer) deleteJob(jobID string) {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/convert/%s", r.ServiceURL, jobID), nil)
	if err != nil {
		return
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Close releases idle connections
func (r *RemoteRenderer) Close() error {
	r.HTTPClient.CloseIdleConnections()
	return nil
}
