// Package feedhist fetches historical candles from the provider's REST API.
package feedhist

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"BarFlow/internal/domain/models"
	domrepo "BarFlow/internal/domain/repository"
	xhttp "BarFlow/pkg/http"
	"BarFlow/pkg/logger"
)

// Client implements a HistorySource over the provider's candle endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
	logger  *logger.Logger
}

// New creates a REST history client.
func New(baseURL, apiKey string, timeout time.Duration, l *logger.Logger) domrepo.HistorySource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		logger:  l,
	}
}

// candleResponse is the provider's columnar candle payload. Column i across
// t/o/h/l/c/v describes one bar.
type candleResponse struct {
	Status string    `json:"s"`
	Times  []int64   `json:"t"`
	Opens  []float64 `json:"o"`
	Highs  []float64 `json:"h"`
	Lows   []float64 `json:"l"`
	Closes []float64 `json:"c"`
	Vols   []float64 `json:"v"`
}

// FetchCandles pulls candles for [from, to] and converts them to bars.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Bar, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("history source not configured")
	}
	res, err := resolution(interval)
	if err != nil {
		return nil, err
	}

	var out candleResponse
	err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {strings.ToUpper(symbol)},
			"resolution": {res},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {c.apiKey},
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", symbol, err)
	}

	if out.Status == "no_data" {
		return nil, nil
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("candle response status %q", out.Status)
	}

	n := len(out.Times)
	if len(out.Opens) != n || len(out.Highs) != n || len(out.Lows) != n ||
		len(out.Closes) != n || len(out.Vols) != n {
		return nil, fmt.Errorf("candle response columns are uneven")
	}

	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, models.Bar{
			Symbol:   strings.ToUpper(symbol),
			Interval: interval,
			Bucket:   time.Unix(out.Times[i], 0).UTC(),
			Open:     out.Opens[i],
			High:     out.Highs[i],
			Low:      out.Lows[i],
			Close:    out.Closes[i],
			Volume:   out.Vols[i],
		})
	}

	c.logger.Debug("fetched candles",
		logger.String("symbol", symbol),
		logger.String("interval", interval),
		logger.Int("count", len(bars)),
	)
	return bars, nil
}

// resolution maps a bar interval to the provider's resolution parameter.
func resolution(interval string) (string, error) {
	switch interval {
	case "1min", "":
		return "1", nil
	case "5min":
		return "5", nil
	case "15min":
		return "15", nil
	case "1h":
		return "60", nil
	case "session":
		return "D", nil
	default:
		return "", fmt.Errorf("unsupported backfill interval %q", interval)
	}
}
