package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"SmartPick/internal/model"
)

var (
	codePattern   = regexp.MustCompile(`^\d{6}$`)
	symbolPattern = regexp.MustCompile(`^(?i)(sh|sz|bj)\d{6}$`)
)

// SinaLister pages through the Sina A-share node listing.
type SinaLister struct {
	BaseURL  string
	PageSize int
	Client   *http.Client
}

// NewSinaLister creates a lister with optional proxy support.
func NewSinaLister(baseURL string, pageSize int, timeout time.Duration, proxyURL string) *SinaLister {
	return &SinaLister{
		BaseURL:  baseURL,
		PageSize: pageSize,
		Client:   NewHTTPClient(timeout, proxyURL),
	}
}

type sinaRow struct {
	Symbol string `json:"symbol"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

// FetchPage returns one page of instruments; an empty slice marks the end of the listing.
func (s *SinaLister) FetchPage(ctx context.Context, page int) ([]model.Instrument, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("num", strconv.Itoa(s.PageSize))
	q.Set("sort", "symbol")
	q.Set("asc", "1")
	q.Set("node", "hs_a")
	q.Set("symbol", "")
	q.Set("_s_r_a", "sort")

	req, err := newBrowserRequest(ctx, s.BaseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listing page %d: status %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing page %d: %w", page, err)
	}
	return parseListing(body)
}

// parseListing decodes a listing body. The upstream serves GBK; UTF-8 bodies pass through.
func parseListing(body []byte) ([]model.Instrument, error) {
	if !utf8.Valid(body) {
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("decode gbk listing: %w", err)
		}
		body = decoded
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || string(body) == "null" {
		return []model.Instrument{}, nil
	}

	var rows []sinaRow
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse listing: trailing data after array")
	}

	out := make([]model.Instrument, 0, len(rows))
	for _, r := range rows {
		if !codePattern.MatchString(r.Code) || !symbolPattern.MatchString(r.Symbol) {
			continue
		}
		out = append(out, model.Instrument{
			Code:   r.Code,
			Name:   strings.TrimSpace(r.Name),
			Market: strings.ToLower(r.Symbol[:2]),
		})
	}
	return out, nil
}
