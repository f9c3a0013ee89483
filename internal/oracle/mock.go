package oracle

import (
	"context"
	"time"

	"BeliefSentinel/internal/model"
)

// MockFeed returns controllable fixed prices for development and testing.
type MockFeed struct {
	SourceList []model.DataSource
	Prices     map[int]float64 // sourceID -> price; missing ids report failure
}

func (m *MockFeed) SourceByID(id int) (model.DataSource, bool) {
	for _, s := range m.SourceList {
		if s.ID == id {
			return s, true
		}
	}
	return model.DataSource{}, false
}

func (m *MockFeed) Sources() []model.DataSource {
	return m.SourceList
}

func (m *MockFeed) FetchPrice(_ context.Context, source model.DataSource) Quote {
	price, ok := m.Prices[source.ID]
	if !ok {
		return Quote{SourceID: source.ID, Timestamp: time.Now()}
	}
	return Quote{SourceID: source.ID, Price: price, Timestamp: time.Now(), Success: true}
}

func (m *MockFeed) FetchAllPrices(ctx context.Context) []Quote {
	quotes := make([]Quote, 0, len(m.SourceList))
	for _, s := range m.SourceList {
		quotes = append(quotes, m.FetchPrice(ctx, s))
	}
	return quotes
}
