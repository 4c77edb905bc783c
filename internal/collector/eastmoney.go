package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SmartPick/internal/model"
)

// ErrUnknownMarket is returned for instruments whose market has no security-id prefix.
var ErrUnknownMarket = errors.New("unknown market")

// secidPrefix maps a market segment to the quote provider's numeric prefix.
var secidPrefix = map[string]string{
	"sh": "1",
	"sz": "0",
	"bj": "0",
}

// EastmoneyFetcher implements Fetcher using the Eastmoney daily kline API.
type EastmoneyFetcher struct {
	BaseURL    string
	Limit      int
	RetryDelay time.Duration
	Client     *http.Client
}

// NewEastmoneyFetcher creates a new fetcher with optional proxy support.
func NewEastmoneyFetcher(baseURL string, limit int, timeout, retryDelay time.Duration, proxyURL string) *EastmoneyFetcher {
	return &EastmoneyFetcher{
		BaseURL:    baseURL,
		Limit:      limit,
		RetryDelay: retryDelay,
		Client:     NewHTTPClient(timeout, proxyURL),
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// klineResponse is the expected JSON shape from the kline API.
type klineResponse struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchCandles returns daily candles oldest first. A failed attempt is retried once.
func (f *EastmoneyFetcher) FetchCandles(ctx context.Context, inst model.Instrument) ([]model.Candle, error) {
	endpoint, err := f.endpoint(inst)
	if err != nil {
		return nil, err
	}
	candles, err := f.fetch(ctx, endpoint)
	if err == nil {
		return candles, nil
	}
	if werr := sleepCtx(ctx, f.RetryDelay); werr != nil {
		return nil, fmt.Errorf("fetch %s: %w", inst.Symbol(), err)
	}
	candles, err = f.fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s after retry: %w", inst.Symbol(), err)
	}
	return candles, nil
}

func (f *EastmoneyFetcher) endpoint(inst model.Instrument) (string, error) {
	prefix, ok := secidPrefix[strings.ToLower(inst.Market)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarket, inst.Market)
	}
	q := url.Values{}
	q.Set("secid", prefix+"."+inst.Code)
	q.Set("fields1", "f1")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	q.Set("klt", "101")
	q.Set("fqt", "1")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(f.Limit))
	return f.BaseURL + "?" + q.Encode(), nil
}

func (f *EastmoneyFetcher) fetch(ctx context.Context, endpoint string) ([]model.Candle, error) {
	req, err := newBrowserRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch klines: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines: %w", err)
	}
	return parseKlines(body)
}

// parseKlines decodes the kline payload; `data: null` yields an empty series.
func parseKlines(body []byte) ([]model.Candle, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, errors.New("kline body is not a JSON object")
	}
	var kr klineResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	if kr.Data == nil {
		return []model.Candle{}, nil
	}
	candles := make([]model.Candle, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		c, err := parseKline(line)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline parses "date,open,close,high,low,volume[,...]".
func parseKline(line string) (model.Candle, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return model.Candle{}, fmt.Errorf("kline %q: expected at least 6 fields", line)
	}
	day, err := time.Parse("2006-01-02", fields[0])
	if err != nil {
		return model.Candle{}, fmt.Errorf("kline %q: %w", line, err)
	}
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("kline %q: %w", line, err)
		}
		vals[i] = v
	}
	return model.Candle{
		Time:   day,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}
