// Package bcb reads reference rates (SELIC, CDI, IPCA) from the Banco Central
// do Brasil SGS time-series API.
package bcb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/upstream"
)

// sgsDateLayout is the dd/mm/YYYY format used by SGS in both directions.
const sgsDateLayout = "02/01/2006"

// maxWindow bounds the date range of a single SGS request; the API rejects
// daily series spanning more than ten years.
const maxWindow = 5 * 365 * 24 * time.Hour

// Client implements the rate source on top of the SGS API.
type Client struct {
	http    *upstream.Client
	baseURL string
	series  map[model.RateIndex]int
	cache   *cache.Cache
}

// NewClient creates a rate source. Current rates are cached for ttl.
func NewClient(http *upstream.Client, cfg config.UpstreamConfig, ttl time.Duration) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(cfg.BCBBaseURL, "/"),
		series: map[model.RateIndex]int{
			model.IndexSelic:    cfg.SelicSeries,
			model.IndexCDI:      cfg.CDISeries,
			model.IndexCDIDaily: cfg.CDIDailySeries,
			model.IndexIPCA:     cfg.IPCASeries,
		},
		cache: cache.New(ttl, 2*ttl),
	}
}

// CurrentRate returns the latest published value of index in percent
// (annual for SELIC and CDI, monthly for IPCA, daily for CDI_DAILY).
func (c *Client) CurrentRate(ctx context.Context, index model.RateIndex) (float64, error) {
	key := "current:" + string(index)
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}

	id, err := c.seriesID(index)
	if err != nil {
		return 0, err
	}

	var obs []observation
	url := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/1?formato=json", c.baseURL, id)
	if err := c.http.GetJSON(ctx, url, &obs); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", apperrors.ErrRateUnavailable, index, err)
	}

	points := parseObservations(obs)
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: %s: empty series", apperrors.ErrRateUnavailable, index)
	}

	value := normalizeRate(index, points[len(points)-1].Value)
	if !plausibleRate(index, value) {
		return 0, fmt.Errorf("%w: %s: implausible value %v", apperrors.ErrRateUnavailable, index, value)
	}

	c.cache.Set(key, value, cache.DefaultExpiration)
	return value, nil
}

// HistoricalRateSeries returns the observations of index between from and to,
// inclusive, ordered by date. Long ranges are split into several requests.
func (c *Client) HistoricalRateSeries(ctx context.Context, index model.RateIndex, from, to time.Time) ([]model.RatePoint, error) {
	if to.Before(from) {
		return nil, apperrors.ErrInvalidDateRange
	}

	key := fmt.Sprintf("history:%s:%s:%s", index, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.RatePoint), nil
	}

	id, err := c.seriesID(index)
	if err != nil {
		return nil, err
	}

	var points []model.RatePoint
	for start := from; !start.After(to); start = start.Add(maxWindow + 24*time.Hour) {
		end := start.Add(maxWindow)
		if end.After(to) {
			end = to
		}

		var obs []observation
		url := fmt.Sprintf(
			"%s/bcdata.sgs.%d/dados?formato=json&dataInicial=%s&dataFinal=%s",
			c.baseURL, id, start.Format(sgsDateLayout), end.Format(sgsDateLayout),
		)
		if err := c.http.GetJSON(ctx, url, &obs); err != nil {
			return nil, fmt.Errorf("%w: %s history: %v", apperrors.ErrRateUnavailable, index, err)
		}
		points = append(points, parseObservations(obs)...)
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	c.cache.Set(key, points, cache.DefaultExpiration)
	return points, nil
}

func (c *Client) seriesID(index model.RateIndex) (int, error) {
	id, ok := c.series[index]
	if !ok || id <= 0 {
		return 0, fmt.Errorf("%w: no SGS series configured for %s", apperrors.ErrRateUnavailable, index)
	}
	return id, nil
}

// parseObservations converts raw observations, dropping malformed entries.
func parseObservations(obs []observation) []model.RatePoint {
	points := make([]model.RatePoint, 0, len(obs))
	for _, o := range obs {
		date, err := time.Parse(sgsDateLayout, strings.TrimSpace(o.Date))
		if err != nil {
			continue
		}
		value, err := parseValue(o.Value)
		if err != nil {
			continue
		}
		points = append(points, model.RatePoint{Date: date, Value: value})
	}
	return points
}

// parseValue accepts both "10.40" and the Brazilian "10,40".
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// normalizeRate turns an annual rate published as a fraction (0.1365) into a
// percentage (13.65). Monthly and daily series are already small percentages.
func normalizeRate(index model.RateIndex, v float64) float64 {
	switch index {
	case model.IndexSelic, model.IndexCDI:
		if v > 0 && v < 1 {
			return v * 100
		}
	}
	return v
}

// plausibleRate rejects non-finite readings. Interest rates must also be
// positive; monthly inflation may be negative in deflation months.
func plausibleRate(index model.RateIndex, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch index {
	case model.IndexIPCA:
		return true
	}
	return v > 0
}
