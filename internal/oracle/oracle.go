// Package oracle fetches live prices for the configured data sources. A
// transport failure never starves the decision loop: the fetcher falls back
// to a simulated quote derived from the source's default price.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"BeliefSentinel/internal/model"
)

// Quote is one price observation for a data source.
type Quote struct {
	SourceID  int
	Price     float64
	Timestamp time.Time
	Success   bool
	Simulated bool
}

// PriceFeed is the oracle surface the engine consumes.
type PriceFeed interface {
	FetchPrice(ctx context.Context, source model.DataSource) Quote
	FetchAllPrices(ctx context.Context) []Quote
	SourceByID(id int) (model.DataSource, bool)
	Sources() []model.DataSource
}

// Oracle fetches prices from DIA HTTP endpoints.
type Oracle struct {
	client  *http.Client
	sources []model.DataSource
	byID    map[int]model.DataSource
}

// New creates an Oracle for the given source catalog.
func New(sources []model.DataSource, proxyURL string) *Oracle {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	byID := make(map[int]model.DataSource, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}
	return &Oracle{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		sources: sources,
		byID:    byID,
	}
}

// SourceByID looks up a configured data source.
func (o *Oracle) SourceByID(id int) (model.DataSource, bool) {
	s, ok := o.byID[id]
	return s, ok
}

// Sources returns the configured catalog.
func (o *Oracle) Sources() []model.DataSource {
	return o.sources
}

// diaQuote is the response shape of the DIA /v1/rwa/ endpoints.
type diaQuote struct {
	Price    float64 `json:"Price"`
	PriceAlt float64 `json:"price"`
}

// FetchPrice returns a live quote for the source, or a simulated one when the
// endpoint is unreachable or returns no usable price.
func (o *Oracle) FetchPrice(ctx context.Context, source model.DataSource) Quote {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Endpoint, nil)
	if err != nil {
		return simulatedQuote(source)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return simulatedQuote(source)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return simulatedQuote(source)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return simulatedQuote(source)
	}

	var q diaQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return simulatedQuote(source)
	}
	price := q.Price
	if price == 0 {
		price = q.PriceAlt
	}
	if price == 0 {
		return simulatedQuote(source)
	}

	return Quote{
		SourceID:  source.ID,
		Price:     price,
		Timestamp: time.Now(),
		Success:   true,
	}
}

// FetchAllPrices fetches every configured source concurrently.
func (o *Oracle) FetchAllPrices(ctx context.Context) []Quote {
	quotes := make([]Quote, len(o.sources))
	var wg sync.WaitGroup
	for i, s := range o.sources {
		wg.Add(1)
		go func(i int, s model.DataSource) {
			defer wg.Done()
			quotes[i] = o.FetchPrice(ctx, s)
		}(i, s)
	}
	wg.Wait()
	return quotes
}

// simulatedQuote derives a fallback price: default price with up to ±0.5%
// jitter, rounded to 4 decimals.
func simulatedQuote(source model.DataSource) Quote {
	base := source.DefaultPrice
	variance := base * 0.005 * (rand.Float64()*2 - 1)
	return Quote{
		SourceID:  source.ID,
		Price:     math.Round((base+variance)*10000) / 10000,
		Timestamp: time.Now(),
		Success:   true,
		Simulated: true,
	}
}

// FormatPrice renders a price for display at sensible precision.
func FormatPrice(price float64) string {
	if price < 0.01 {
		return fmt.Sprintf("%.6f", price)
	}
	return fmt.Sprintf("%.2f", price)
}
