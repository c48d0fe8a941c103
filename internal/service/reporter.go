package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"memory_webapp/internal/game"
)

// путь эндпоинта сохранения итогов
const SavePath = "/api/memory/save"

// HTTPReporter отправляет итог раунда POST запросом на <base>/api/memory/save.
// Ответ не читается, повторов нет
type HTTPReporter struct {
	url        string
	httpClient *http.Client
}

func NewHTTPReporter(baseURL string, client *http.Client) *HTTPReporter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPReporter{
		url:        strings.TrimRight(baseURL, "/") + SavePath,
		httpClient: client,
	}
}

func (r *HTTPReporter) Report(ctx context.Context, s game.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", r.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %d", r.url, resp.StatusCode)
	}
	return nil
}

// StoreReporter сохраняет итог в том же процессе, без HTTP
type StoreReporter struct {
	results *ResultService
}

func NewStoreReporter(results *ResultService) *StoreReporter {
	return &StoreReporter{results: results}
}

func (r *StoreReporter) Report(ctx context.Context, s game.Summary) error {
	_, err := r.results.Save(ctx, s)
	return err
}

// MultiReporter отдает итог всем, ошибки собираются вместе
type MultiReporter []game.Reporter

func (m MultiReporter) Report(ctx context.Context, s game.Summary) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
