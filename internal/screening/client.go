package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classifier produces a safe-search annotation for an image.
type Classifier interface {
	Annotate(ctx context.Context, imageURL string) (Annotation, error)
}

// Client calls an external safe-search classifier over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a classifier client with sane defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Annotate submits an image URL for classification.
func (c *Client) Annotate(ctx context.Context, imageURL string) (Annotation, error) {
	body, err := json.Marshal(map[string]string{"imageUrl": imageURL})
	if err != nil {
		return Annotation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/annotate", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return Annotation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Annotation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return Annotation{}, fmt.Errorf("classifier error: %s", data)
	}

	var annotation Annotation
	if err := json.NewDecoder(resp.Body).Decode(&annotation); err != nil {
		return Annotation{}, err
	}
	return annotation, nil
}

// Service scores screenshots, using a classifier when one is configured and
// accepting caller-provided annotations otherwise.
type Service struct {
	classifier Classifier
}

// NewService builds a screening service. classifier may be nil, in which
// case only pre-annotated requests can be scored.
func NewService(classifier Classifier) *Service {
	return &Service{classifier: classifier}
}

// ErrNoClassifier is returned when an image URL is submitted without a
// configured classifier backend.
var ErrNoClassifier = fmt.Errorf("screening: no classifier configured")

// Analyze classifies an image URL and scores the result.
func (s *Service) Analyze(ctx context.Context, imageURL string) (Result, error) {
	if s.classifier == nil {
		return Result{}, ErrNoClassifier
	}
	annotation, err := s.classifier.Annotate(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}
	return Score(annotation), nil
}
