package yahoo

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
// This type maps directly to the chart API response format,
// containing nested structures for metadata, timestamps, and price indicators.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, exchange)
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Close prices; null entries mark days without trades
//   - Chart.Error: Optional error object from Yahoo API
type Response struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string   `json:"currency"`
				Symbol             string   `json:"symbol"`
				ExchangeName       string   `json:"exchangeName"`
				LongName           string   `json:"longName"`
				Shortname          string   `json:"shortName"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *APIError `json:"error"`
	} `json:"chart"`
}

// QuoteResponse is the raw payload of the v7 quote endpoint, which returns
// current prices and fundamentals for several symbols at once.
type QuoteResponse struct {
	QuoteResponse struct {
		Result []QuoteResult `json:"result"`
		Error  *APIError     `json:"error"`
	} `json:"quoteResponse"`
}

// QuoteResult is a single symbol of a QuoteResponse.
type QuoteResult struct {
	Symbol                      string   `json:"symbol"`
	RegularMarketPrice          *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose  *float64 `json:"regularMarketPreviousClose"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
	DividendYield               *float64 `json:"dividendYield"`
	TrailingPE                  *float64 `json:"trailingPE"`
	PriceToBook                 *float64 `json:"priceToBook"`
	ReturnOnEquity              *float64 `json:"returnOnEquity"`
}

// APIError is the error object Yahoo embeds in otherwise successful responses.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PriceChart represents a parsed and structured price chart from Yahoo Finance.
// This is the application's internal representation after parsing the raw Response.
type PriceChart struct {
	Currency   string
	Symbol     string
	LongName   string
	Shortname  string
	Indicators []Indicators
}

// Indicators represents a single day's close for a financial instrument.
type Indicators struct {
	Date       time.Time
	PriceClose float64
}
