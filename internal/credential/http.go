package credential

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultMatcherTimeout = 10 * time.Second

type resolveRequest struct {
	StudentID        string   `json:"student_id"`
	RequirementCodes []string `json:"requirement_codes"`
}

type resolveResponse struct {
	Results []resolveResult `json:"results"`
}

type resolveResult struct {
	Code     string `json:"code"`
	Resolved bool   `json:"resolved"`
	Verified bool   `json:"verified"`
	Label    string `json:"label"`
}

// HTTPMatcher calls the credential matching service over HTTP.
type HTTPMatcher struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPMatcher(baseURL string) (*HTTPMatcher, error) {
	client := resty.New()
	client.SetTimeout(defaultMatcherTimeout)
	client.SetRetryCount(0)

	return NewHTTPMatcherWithClient(baseURL, client)
}

func NewHTTPMatcherWithClient(baseURL string, client *resty.Client) (*HTTPMatcher, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("matcher base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid matcher base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultMatcherTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPMatcher{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (m *HTTPMatcher) Resolve(ctx context.Context, studentID string, requirementCodes []string) (map[string]Resolution, error) {
	if m == nil || m.client == nil {
		return nil, fmt.Errorf("matcher is not initialized")
	}
	if len(requirementCodes) == 0 {
		return map[string]Resolution{}, nil
	}

	var body resolveResponse
	response, err := m.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(resolveRequest{
			StudentID:        studentID,
			RequirementCodes: requirementCodes,
		}).
		SetResult(&body).
		Post(m.baseURL + "/v1/credentials/resolve")
	if err != nil {
		return nil, fmt.Errorf("matcher request failed: %w", err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("matcher returned status %d: %s", response.StatusCode(), strings.TrimSpace(response.String()))
	}

	resolutions := make(map[string]Resolution, len(body.Results))
	for _, r := range body.Results {
		resolutions[r.Code] = Resolution{
			Resolved: r.Resolved,
			Verified: r.Verified,
			Label:    r.Label,
		}
	}

	// Codes the service omitted count as unresolved.
	for _, code := range requirementCodes {
		if _, ok := resolutions[code]; !ok {
			resolutions[code] = Resolution{}
		}
	}

	return resolutions, nil
}
