package textgensvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type httpService struct {
	url    string
	client *http.Client
	logger core.Logger
}

var _ core.TextGenService = (*httpService)(nil)

// NewHTTPService returns a client for an external text-generation endpoint.
// When the endpoint URL is not configured it returns a disabled service.
func NewHTTPService(conf *core.Config, logger core.Logger) core.TextGenService {
	if conf.TextGen.URL == "" {
		return disabledService{}
	}
	return &httpService{
		url:    conf.TextGen.URL,
		client: &http.Client{Timeout: conf.TextGen.Timeout},
		logger: logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (svc *httpService) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", errors.Wrap(err, "encoding prompt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "preparing request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("text generation request failed: %v", err))
		return "", core.ErrTextGenUnavailable
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Warn(fmt.Sprintf("text generation - status: %d", res.StatusCode))
		return "", core.ErrTextGenUnavailable
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decoding response")
	}
	return out.Text, nil
}

type disabledService struct{}

var _ core.TextGenService = disabledService{}

func (disabledService) Generate(context.Context, string) (string, error) {
	return "", core.ErrTextGenUnavailable
}
