package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/attendance"
)

const checkInPath = "/api/checkerAttendance"

// SubmitResult is the server answer to a check-in request.
type SubmitResult struct {
	OK         bool
	StatusCode int
	Message    string
}

// Submitter persists one check record.
type Submitter interface {
	Submit(ctx context.Context, rec attendance.CheckRecord) (SubmitResult, error)
}

// HTTPSubmitter posts check records to the API service.
type HTTPSubmitter struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPSubmitter(baseURL, token string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		url:    strings.TrimRight(baseURL, "/") + checkInPath,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, rec attendance.CheckRecord) (SubmitResult, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return SubmitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("check-in request: %w", err)
	}
	defer res.Body.Close()

	var rsp struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err != nil {
		log.Debugf("check-in response %d: read body: %v", res.StatusCode, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rsp); err != nil {
			log.Debugf("check-in response %d: decode body %q: %v", res.StatusCode, truncate(data, 256), err)
		}
	}

	return SubmitResult{
		OK:         res.StatusCode >= 200 && res.StatusCode < 300,
		StatusCode: res.StatusCode,
		Message:    rsp.Message,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
