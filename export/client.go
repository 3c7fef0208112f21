// Package export hands a tagged region list to the accessible-PDF generation
// service and returns the produced document.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pdf-tagger/regions"
)

var log = logrus.New()

// SetLogLevel sets the log level for the export package.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// ErrNotPDF is returned when the service answers with something other than a PDF.
var ErrNotPDF = errors.New("export: response is not a PDF")

// maxErrorBody caps how much of a failed response ends up in the error message.
const maxErrorBody = 512

// Config describes the export service.
type Config struct {
	URL               string
	Token             string
	RequestsPerMinute int
	MaxRetries        int
}

// Client talks to the accessible-PDF service.
type Client struct {
	url        string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	logger := log.WithField("url", cfg.URL)

	client := retryablehttp.NewClient()
	client.HTTPClient = newHTTPClient(cfg.Token)
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = logger

	c := &Client{url: cfg.URL, httpClient: client}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	logger.WithField("max_retries", cfg.MaxRetries).Info("Export client initialized")
	return c
}

// Request is one export call. Regions are the editor's tree in canvas pixels; they
// are flattened and converted to centimeters before sending.
type Request struct {
	TemplateName  string
	FileName      string
	PDF           []byte
	Regions       []regions.Region
	ViewportScale float64
}

// Payload is the JSON carried in the "tags" form field.
type Payload struct {
	TemplateName       string           `json:"templateName"`
	TaggingInformation []regions.Region `json:"taggingInformation"`
}

// BuildPayload flattens and converts the regions of req.
func BuildPayload(req Request) Payload {
	tags := regions.ForExport(req.Regions, req.ViewportScale)
	if tags == nil {
		tags = []regions.Region{}
	}
	return Payload{TemplateName: req.TemplateName, TaggingInformation: tags}
}

// CreateAccessiblePDF posts the document and its tags and returns the tagged PDF.
func (c *Client) CreateAccessiblePDF(ctx context.Context, req Request) ([]byte, error) {
	logger := log.WithFields(logrus.Fields{
		"template": req.TemplateName,
		"regions":  len(req.Regions),
	})
	if len(req.PDF) == 0 {
		return nil, errors.New("export: no PDF to send")
	}
	if req.ViewportScale <= 0 {
		return nil, fmt.Errorf("export: invalid viewport scale %v", req.ViewportScale)
	}

	tags, err := json.Marshal(BuildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "document.pdf"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("pdf", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.PDF); err != nil {
		return nil, fmt.Errorf("failed to copy PDF to form: %w", err)
	}
	if err := writer.WriteField("tags", string(tags)); err != nil {
		return nil, fmt.Errorf("failed to write tags field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error creating export request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", "application/pdf")

	logger.Debug("Sending document to export service")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.WithError(err).Error("Export request failed")
		return nil, fmt.Errorf("error sending export request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading export response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := out
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		logger.WithField("status_code", resp.StatusCode).Error("Received non-OK status from export service")
		return nil, fmt.Errorf("export service returned status %d: %s", resp.StatusCode, string(snippet))
	}

	if mt := mimetype.Detect(out); !mt.Is("application/pdf") {
		logger.WithField("mime_type", mt.String()).Error("Export service did not return a PDF")
		return nil, fmt.Errorf("%w: got %s", ErrNotPDF, mt.String())
	}

	logger.WithField("size", len(out)).Info("Accessible PDF created")
	return out, nil
}
