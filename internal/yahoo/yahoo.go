package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/upstream"
)

// FinanceClient provides methods for fetching financial data from Yahoo Finance API.
// It implements the quote source used by valuation and history reconstruction:
// batched current quotes with fundamentals, and daily close history.
type FinanceClient struct {
	http       *upstream.Client
	chartURL   string
	quoteURL   string
	chunkSize  int
	chunkPause time.Duration
}

// NewFinanceClient creates a new Yahoo Finance client.
//
// Parameters:
//   - http: Shared upstream client (pacing, breaker, retries)
//   - endpoints: Chart and quote base URLs
//   - fetch: Chunk size and pause used by CurrentQuotes
//
// Returns:
//   - *FinanceClient: A new client instance ready for use
func NewFinanceClient(http *upstream.Client, endpoints config.UpstreamConfig, fetch config.FetchConfig) *FinanceClient {
	chunk := fetch.QuoteChunkSize
	if chunk < 1 {
		chunk = 20
	}
	return &FinanceClient{
		http:       http,
		chartURL:   strings.TrimRight(endpoints.YahooChartURL, "/"),
		quoteURL:   endpoints.YahooQuoteURL,
		chunkSize:  chunk,
		chunkPause: fetch.QuoteChunkPause,
	}
}

// NormalizeSymbol maps a ledger ticker to its Yahoo symbol. Plain B3 tickers
// (no exchange suffix or pair separator, at most six characters) get ".SA".
func NormalizeSymbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || strings.ContainsAny(t, ".-^=") {
		return t
	}
	if len(t) <= 6 {
		return t + ".SA"
	}
	return t
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
// Days with a null or non-positive close are dropped.
//
// Parameters:
//   - yahooResult: Raw response from Yahoo Finance API
//
// Returns:
//   - PriceChart: Structured chart with indicators and metadata
//   - error: If data is missing or arrays have mismatched lengths
func ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no chart result returned")
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		indicators = append(indicators, Indicators{
			Date:       model.TruncateDay(time.Unix(ts, 0)),
			PriceClose: *closes[i],
		})
	}

	return PriceChart{
		Symbol:     result.Meta.Symbol,
		Currency:   result.Meta.Currency,
		LongName:   result.Meta.LongName,
		Shortname:  result.Meta.Shortname,
		Indicators: indicators,
	}, nil
}

// QuoteHistory fetches daily closes for symbol between from and to (inclusive).
// The symbol is used as given; callers normalize ledger tickers first.
func (c *FinanceClient) QuoteHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	endpoint := fmt.Sprintf(
		"%s/%s?interval=1d&period1=%d&period2=%d",
		c.chartURL,
		url.PathEscape(symbol),
		model.TruncateDay(from).Unix(),
		model.TruncateDay(to).Add(24*time.Hour).Unix(),
	)

	var raw Response
	if err := c.http.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrQuoteUnavailable, symbol, err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrSymbolNotFound, symbol, raw.Chart.Error.Description)
	}

	chart, err := ParseChart(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrQuoteUnavailable, symbol, err)
	}

	points := make([]model.PricePoint, len(chart.Indicators))
	for i, ind := range chart.Indicators {
		points[i] = model.PricePoint{Date: ind.Date, Price: ind.PriceClose}
	}
	return points, nil
}

// CurrentQuote returns the current quote of a single ticker.
func (c *FinanceClient) CurrentQuote(ctx context.Context, ticker string) (model.Quote, error) {
	quotes, err := c.CurrentQuotes(ctx, []string{ticker})
	if err != nil {
		return model.Quote{}, err
	}
	q, ok := quotes[ticker]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, ticker)
	}
	return q, nil
}

// CurrentQuotes fetches current quotes for tickers in chunks, pausing between
// chunks. The result is keyed by the tickers as passed in; tickers without a
// price are absent. An error is returned only when every chunk failed.
func (c *FinanceClient) CurrentQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	quotes := make(map[string]model.Quote, len(tickers))
	if len(tickers) == 0 {
		return quotes, nil
	}

	bySymbol := make(map[string][]string, len(tickers))
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		s := NormalizeSymbol(t)
		if _, seen := bySymbol[s]; !seen {
			symbols = append(symbols, s)
		}
		bySymbol[s] = append(bySymbol[s], t)
	}

	var lastErr error
	failedChunks, chunks := 0, 0
	for start := 0; start < len(symbols); start += c.chunkSize {
		if start > 0 && c.chunkPause > 0 {
			select {
			case <-ctx.Done():
				return quotes, ctx.Err()
			case <-time.After(c.chunkPause):
			}
		}

		end := min(start+c.chunkSize, len(symbols))
		chunk := symbols[start:end]
		chunks++

		results, err := c.queryQuotes(ctx, chunk)
		if err != nil {
			failedChunks++
			lastErr = err
			log.Warn().Err(err).Strs("symbols", chunk).Msg("quote chunk failed")
			continue
		}

		for _, r := range results {
			price := firstPositive(r.RegularMarketPrice, r.RegularMarketPreviousClose)
			if price == nil {
				continue
			}
			q := model.Quote{
				Symbol: r.Symbol,
				Price:  *price,
				Fundamentals: model.Fundamentals{
					DividendYield:  firstNonNil(r.TrailingAnnualDividendYield, r.DividendYield),
					PriceEarnings:  r.TrailingPE,
					PriceToBook:    r.PriceToBook,
					ReturnOnEquity: r.ReturnOnEquity,
				},
			}
			for _, t := range bySymbol[strings.ToUpper(r.Symbol)] {
				quotes[t] = q
			}
		}
	}

	if chunks > 0 && failedChunks == chunks {
		return quotes, fmt.Errorf("%w: all quote requests failed: %v", apperrors.ErrQuoteUnavailable, lastErr)
	}
	return quotes, nil
}

func (c *FinanceClient) queryQuotes(ctx context.Context, symbols []string) ([]QuoteResult, error) {
	endpoint := fmt.Sprintf("%s?symbols=%s", c.quoteURL, url.QueryEscape(strings.Join(symbols, ",")))

	var raw QuoteResponse
	if err := c.http.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	if raw.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", raw.QuoteResponse.Error.Description)
	}
	return raw.QuoteResponse.Result, nil
}

func firstPositive(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil && *v > 0 {
			return v
		}
	}
	return nil
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
