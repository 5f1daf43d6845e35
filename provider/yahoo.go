// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL   = "https://query2.finance.yahoo.com"
	DefaultYahooCookieURL = "https://fc.yahoo.com"
	DefaultSuffix         = ".NS"
	DefaultTimeout        = 30 * time.Second
	DefaultRateLimit      = 120

	defaultExchangeTimezone = "Asia/Kolkata"
	userAgent               = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	ErrInvalidStatusCode = errors.New("invalid status code received")
	ErrNoCrumb           = errors.New("could not obtain yahoo crumb")
	ErrNoResult          = errors.New("yahoo response contained no result")

	ErrUnknownStatementType = errors.New("unknown statement type")
)

// statementHistoryStart is the earliest period end requested for statements
var statementHistoryStart = time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC)

// Yahoo fetches market data from the Yahoo Finance JSON endpoints
type Yahoo struct {
	baseURL   string
	cookieURL string
	suffix    string
	timeout   time.Duration
	rateLimit int

	client  *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*resty.Response]

	crumbLocker sync.Mutex
	crumb       string
}

type YahooOption func(*Yahoo)

func WithBaseURL(url string) YahooOption {
	return func(yahoo *Yahoo) {
		yahoo.baseURL = strings.TrimRight(url, "/")
	}
}

func WithCookieURL(url string) YahooOption {
	return func(yahoo *Yahoo) {
		yahoo.cookieURL = url
	}
}

// WithSuffix sets the exchange suffix appended to every ticker
func WithSuffix(suffix string) YahooOption {
	return func(yahoo *Yahoo) {
		yahoo.suffix = suffix
	}
}

func WithTimeout(timeout time.Duration) YahooOption {
	return func(yahoo *Yahoo) {
		if timeout > 0 {
			yahoo.timeout = timeout
		}
	}
}

// WithRateLimit sets the maximum number of requests per minute
func WithRateLimit(perMinute int) YahooOption {
	return func(yahoo *Yahoo) {
		if perMinute > 0 {
			yahoo.rateLimit = perMinute
		}
	}
}

func NewYahoo(opts ...YahooOption) *Yahoo {
	yahoo := &Yahoo{
		baseURL:   DefaultYahooBaseURL,
		cookieURL: DefaultYahooCookieURL,
		suffix:    DefaultSuffix,
		timeout:   DefaultTimeout,
		rateLimit: DefaultRateLimit,
	}

	for _, opt := range opts {
		opt(yahoo)
	}

	yahoo.client = resty.New().
		SetTimeout(yahoo.timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	yahoo.limiter = rate.NewLimiter(rate.Limit(float64(yahoo.rateLimit)/float64(61)), 1)
	yahoo.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("Breaker", name).Str("From", from.String()).Str("To", to.String()).Msg("circuit breaker changed state")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return yahoo
}

func (yahoo *Yahoo) Name() string {
	return "yahoo"
}

// Symbol maps a ticker onto the exchange-qualified Yahoo symbol
func (yahoo *Yahoo) Symbol(ticker string) string {
	if yahoo.suffix == "" || strings.HasSuffix(ticker, yahoo.suffix) {
		return ticker
	}
	return ticker + yahoo.suffix
}

// History fetches daily bars for the window named by period
func (yahoo *Yahoo) History(ctx context.Context, ticker string, period Period) ([]*data.Bar, error) {
	symbol := yahoo.Symbol(ticker)

	var resp yahooChartResponse
	if err := yahoo.get(ctx, "chart", "/v8/finance/chart/"+symbol, map[string]string{
		"range":    period.String(),
		"interval": "1d",
		"events":   "div,splits",
	}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Chart.Result) == 0 {
		if resp.Chart.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoResult, resp.Chart.Error.Description)
		}
		return []*data.Bar{}, nil
	}

	return resp.Chart.Result[0].bars(), nil
}

// Info fetches the valuation snapshot for ticker
func (yahoo *Yahoo) Info(ctx context.Context, ticker string) (*Info, error) {
	symbol := yahoo.Symbol(ticker)

	var resp yahooQuoteSummaryResponse
	err := yahoo.getWithCrumb(ctx, "quoteSummary", "/v10/finance/quoteSummary/"+symbol, map[string]string{
		"modules": "summaryDetail,defaultKeyStatistics",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.QuoteSummary.Result) == 0 {
		if resp.QuoteSummary.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoResult, resp.QuoteSummary.Error.Description)
		}
		return nil, ErrNoResult
	}

	result := resp.QuoteSummary.Result[0]
	forwardPE := result.SummaryDetail.ForwardPE.null()
	if !forwardPE.Valid {
		forwardPE = result.DefaultKeyStatistics.ForwardPE.null()
	}

	return &Info{
		MarketCap:       result.SummaryDetail.MarketCap.null(),
		EnterpriseValue: result.DefaultKeyStatistics.EnterpriseValue.null(),
		TrailingPE:      result.SummaryDetail.TrailingPE.null(),
		ForwardPE:       forwardPE,
		PEGRatio:        result.DefaultKeyStatistics.PEGRatio.null(),
		PriceToBook:     result.DefaultKeyStatistics.PriceToBook.null(),
		DividendYield:   result.SummaryDetail.DividendYield.null(),
	}, nil
}

// Statements fetches the annual statement table of the requested type. Columns
// are returned newest first.
func (yahoo *Yahoo) Statements(ctx context.Context, ticker string, statementType data.StatementType) ([]*StatementColumn, error) {
	items, ok := statementLineItems[statementType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatementType, statementType)
	}

	symbol := yahoo.Symbol(ticker)

	types := make([]string, len(items))
	for idx, item := range items {
		types[idx] = "annual" + item.key
	}

	var resp yahooTimeseriesResponse
	err := yahoo.get(ctx, "timeseries", "/ws/fundamentals-timeseries/v1/finance/timeseries/"+symbol, map[string]string{
		"symbol":  symbol,
		"type":    strings.Join(types, ","),
		"period1": strconv.FormatInt(statementHistoryStart.Unix(), 10),
		"period2": strconv.FormatInt(time.Now().Unix(), 10),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp.columns(statementType)
}

func (yahoo *Yahoo) getWithCrumb(ctx context.Context, endpoint, path string, query map[string]string, result any) error {
	crumb, err := yahoo.ensureCrumb(ctx)
	if err != nil {
		return err
	}

	query["crumb"] = crumb
	err = yahoo.get(ctx, endpoint, path, query, result)
	if errors.Is(err, errUnauthorized) {
		// crumbs expire with the session cookie; refresh once
		yahoo.resetCrumb()
		if crumb, err = yahoo.ensureCrumb(ctx); err != nil {
			return err
		}
		query["crumb"] = crumb
		err = yahoo.get(ctx, endpoint, path, query, result)
	}

	return err
}

func (yahoo *Yahoo) ensureCrumb(ctx context.Context) (string, error) {
	yahoo.crumbLocker.Lock()
	defer yahoo.crumbLocker.Unlock()

	if yahoo.crumb != "" {
		return yahoo.crumb, nil
	}

	// the cookie endpoint answers with an error status but sets the session cookie
	if err := yahoo.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if _, err := yahoo.client.R().SetContext(ctx).Get(yahoo.cookieURL); err != nil {
		log.Warn().Err(err).Str("URL", yahoo.cookieURL).Msg("could not fetch yahoo session cookie")
	}

	if err := yahoo.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := yahoo.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(yahoo.baseURL + "/v1/test/getcrumb")
	if err != nil {
		return "", err
	}

	crumb := strings.TrimSpace(resp.String())
	if resp.StatusCode() >= 300 || crumb == "" {
		return "", fmt.Errorf("%w: status code %d", ErrNoCrumb, resp.StatusCode())
	}

	yahoo.crumb = crumb
	return crumb, nil
}

func (yahoo *Yahoo) resetCrumb() {
	yahoo.crumbLocker.Lock()
	defer yahoo.crumbLocker.Unlock()
	yahoo.crumb = ""
}

var errUnauthorized = fmt.Errorf("%w: %d", ErrInvalidStatusCode, http.StatusUnauthorized)

// get issues a rate limited request through the circuit breaker and decodes
// the JSON body into result. Only server side failures count against the
// breaker.
func (yahoo *Yahoo) get(ctx context.Context, endpoint, path string, query map[string]string, result any) error {
	logger := zerolog.Ctx(ctx)

	if err := yahoo.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	resp, err := yahoo.breaker.Execute(func() (*resty.Response, error) {
		resp, err := yahoo.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(yahoo.baseURL + path)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return resp, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
		}

		return resp, nil
	})
	metrics.ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
		return err
	}

	metrics.ProviderRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		// yahoo reports unknown symbols with a 404 and an error body
		if err := json.Unmarshal(resp.Body(), result); err == nil {
			return nil
		}
		return fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
	case resp.StatusCode() >= 300:
		logger.Error().Int("StatusCode", resp.StatusCode()).Str("Endpoint", endpoint).Msg("yahoo returned an invalid HTTP response")
		return fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode())
	}

	return json.Unmarshal(resp.Body(), result)
}

// Private types

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResponse struct {
	Chart struct {
		Result []*yahooChartResult `json:"result"`
		Error  *yahooError         `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Dividends map[string]struct {
			Amount float64 `json:"amount"`
			Date   int64   `json:"date"`
		} `json:"dividends"`
		Splits map[string]struct {
			Date        int64   `json:"date"`
			Numerator   float64 `json:"numerator"`
			Denominator float64 `json:"denominator"`
		} `json:"splits"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (result *yahooChartResult) location() *time.Location {
	for _, name := range []string{result.Meta.ExchangeTimezoneName, defaultExchangeTimezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// bars converts the column oriented chart into rows. Candles with a missing
// price are dropped.
func (result *yahooChartResult) bars() []*data.Bar {
	if len(result.Indicators.Quote) == 0 {
		return []*data.Bar{}
	}

	loc := result.location()
	quote := result.Indicators.Quote[0]

	dividends := make(map[time.Time]float64, len(result.Events.Dividends))
	for _, div := range result.Events.Dividends {
		dividends[data.Day(time.Unix(div.Date, 0).In(loc))] += div.Amount
	}

	splits := make(map[time.Time]float64, len(result.Events.Splits))
	for _, split := range result.Events.Splits {
		if split.Denominator == 0 {
			continue
		}
		splits[data.Day(time.Unix(split.Date, 0).In(loc))] = split.Numerator / split.Denominator
	}

	bars := make([]*data.Bar, 0, len(result.Timestamp))
	for idx, ts := range result.Timestamp {
		open, okOpen := at(quote.Open, idx)
		high, okHigh := at(quote.High, idx)
		low, okLow := at(quote.Low, idx)
		closePrice, okClose := at(quote.Close, idx)
		if !okOpen || !okHigh || !okLow || !okClose {
			continue
		}

		volume, _ := at(quote.Volume, idx)
		day := data.Day(time.Unix(ts, 0).In(loc))

		bar := &data.Bar{
			Date:       day,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closePrice,
			Volume:     int64(volume),
			Dividends:  dividends[day],
			SplitRatio: splits[day],
		}

		if !bar.Finite() {
			continue
		}

		bars = append(bars, bar)
	}

	return bars
}

func at(values []*float64, idx int) (float64, bool) {
	if idx >= len(values) || values[idx] == nil || !data.IsFinite(*values[idx]) {
		return 0, false
	}
	return *values[idx], true
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
}

func (val yahooValue) null() null.Float {
	if val.Raw == nil {
		return null.Float{}
	}
	return data.SanitizeFloat(*val.Raw)
}

type yahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				MarketCap     yahooValue `json:"marketCap"`
				TrailingPE    yahooValue `json:"trailingPE"`
				ForwardPE     yahooValue `json:"forwardPE"`
				DividendYield yahooValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				EnterpriseValue yahooValue `json:"enterpriseValue"`
				ForwardPE       yahooValue `json:"forwardPE"`
				PEGRatio        yahooValue `json:"pegRatio"`
				PriceToBook     yahooValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

type yahooTimeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yahooError                  `json:"error"`
	} `json:"timeseries"`
}

type yahooTimeseriesMeta struct {
	Type []string `json:"type"`
}

type yahooTimeseriesEntry struct {
	AsOfDate      string     `json:"asOfDate"`
	ReportedValue yahooValue `json:"reportedValue"`
}

// columns pivots the per line item series into one column per period end
func (resp *yahooTimeseriesResponse) columns(statementType data.StatementType) ([]*StatementColumn, error) {
	if resp.Timeseries.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResult, resp.Timeseries.Error.Description)
	}

	byDate := make(map[time.Time]*StatementColumn)
	for _, result := range resp.Timeseries.Result {
		var meta yahooTimeseriesMeta
		if raw, ok := result["meta"]; !ok || json.Unmarshal(raw, &meta) != nil || len(meta.Type) == 0 {
			continue
		}

		seriesKey := meta.Type[0]
		raw, ok := result[seriesKey]
		if !ok {
			continue
		}

		var entries []*yahooTimeseriesEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}

		name := lineItemName(statementType, strings.TrimPrefix(seriesKey, "annual"))
		for _, entry := range entries {
			if entry == nil {
				continue
			}

			asOf, err := time.Parse("2006-01-02", entry.AsOfDate)
			if err != nil {
				log.Warn().Err(err).Str("AsOfDate", entry.AsOfDate).Str("Series", seriesKey).Msg("could not parse statement date")
				continue
			}

			column, ok := byDate[asOf]
			if !ok {
				column = &StatementColumn{Date: asOf, Items: make(data.LineItems)}
				byDate[asOf] = column
			}

			val := entry.ReportedValue.null()
			if val.Valid {
				column.Items[name] = val
			}
		}
	}

	columns := make([]*StatementColumn, 0, len(byDate))
	for _, column := range byDate {
		columns = append(columns, column)
	}

	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Date.After(columns[j].Date)
	})

	return columns, nil
}
