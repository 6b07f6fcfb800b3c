package warbeacon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solmirror/beacon/internal/battle"
	"github.com/solmirror/beacon/pkg/log"
)

const (
	DefaultBaseURL = "https://warbeacon.net"
	userAgent      = "beacon/1.0"
)

var (
	ErrFetch         = errors.New("failed to fetch battle report")
	ErrRequestCreate = errors.New("failed to create api request")
	ErrResponseCode  = errors.New("api returned a non-2xx response")
	ErrResponseBody  = errors.New("api returned an undecodable payload")
)

// Client talks to the WarBeacon battle report API. One request is issued per
// matched link, with no retries, so a failure surfaces straight back to the
// message pipeline.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type apiLocation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiData struct {
	Locations []apiLocation `json:"locations"`
	battle.Report
}

type apiEnvelope struct {
	Success bool    `json:"success"`
	Data    apiData `json:"data"`
}

// FetchedReport is a decoded battle report along with the presentation
// context derived from the link that produced it.
type FetchedReport struct {
	URL        string
	SystemName string
	Timestamp  string
	Report     battle.Report
}

// Fetch retrieves the battle report behind a matched link. Exactly one HTTP
// request is made and any transport, status or payload problem is surfaced
// as ErrFetch.
func (c *Client) Fetch(ctx context.Context, link Link) (*FetchedReport, error) {
	if link.Mode == ModeReport {
		return c.fetchReport(ctx, link)
	}

	return c.fetchRelated(ctx, link)
}

type autoRequestLocation struct {
	ID         int64  `json:"id"`
	MiddleTime string `json:"middleTime"`
}

type autoRequest struct {
	Locations []autoRequestLocation `json:"locations"`
}

func (c *Client) fetchRelated(ctx context.Context, link Link) (*FetchedReport, error) {
	middleTime, errTime := ParseRelatedTime(link.Time)
	if errTime != nil {
		return nil, errors.Join(errTime, ErrFetch)
	}

	body, errBody := json.Marshal(autoRequest{Locations: []autoRequestLocation{{
		ID:         link.SystemID,
		MiddleTime: middleTime.Format("2006-01-02T15:04:00Z"),
	}}})
	if errBody != nil {
		return nil, errors.Join(errBody, ErrFetch)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/br/auto", bytes.NewReader(body))
	if errReq != nil {
		return nil, errors.Join(errReq, ErrRequestCreate, ErrFetch)
	}

	req.Header.Set("Content-Type", "application/json")

	envelope, errDo := c.do(req, link.URL)
	if errDo != nil {
		return nil, errDo
	}

	systemName := "Unknown System"
	if len(envelope.Data.Locations) > 0 && envelope.Data.Locations[0].Name != "" {
		systemName = envelope.Data.Locations[0].Name
	}

	return &FetchedReport{
		URL:        link.URL,
		SystemName: systemName,
		Timestamp:  middleTime.Format("01/02/2006"),
		Report:     envelope.Data.Report,
	}, nil
}

func (c *Client) fetchReport(ctx context.Context, link Link) (*FetchedReport, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/br/report/"+link.ReportID, nil)
	if errReq != nil {
		return nil, errors.Join(errReq, ErrRequestCreate, ErrFetch)
	}

	envelope, errDo := c.do(req, link.URL)
	if errDo != nil {
		return nil, errDo
	}

	var systemName string

	switch len(envelope.Data.Locations) {
	case 0:
		systemName = "Unknown System"
	case 1:
		systemName = envelope.Data.Locations[0].Name
		if systemName == "" {
			systemName = "Unknown System"
		}
	default:
		systemName = "Multiple Systems"
	}

	return &FetchedReport{
		URL:        link.URL,
		SystemName: systemName,
		Timestamp:  "Combined Report",
		Report:     envelope.Data.Report,
	}, nil
}

func (c *Client) do(req *http.Request, referer string) (*apiEnvelope, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "application/json")

	resp, errResp := c.httpClient.Do(req)
	if errResp != nil {
		return nil, errors.Join(errResp, ErrFetch)
	}

	defer log.Closer(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.Warn("WarBeacon API request failed",
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode))

		return nil, errors.Join(fmt.Errorf("%w: %d", ErrResponseCode, resp.StatusCode), ErrFetch)
	}

	var envelope apiEnvelope
	if errDecode := json.NewDecoder(resp.Body).Decode(&envelope); errDecode != nil {
		return nil, errors.Join(errDecode, ErrResponseBody, ErrFetch)
	}

	if !envelope.Success {
		slog.Warn("WarBeacon API returned unexpected payload", slog.String("url", req.URL.String()))

		return nil, errors.Join(ErrResponseBody, ErrFetch)
	}

	return &envelope, nil
}
