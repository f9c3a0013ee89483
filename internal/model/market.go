package model

import "time"

// MarketStatus mirrors the ledger's market lifecycle enum.
type MarketStatus int

const (
	MarketOpen MarketStatus = iota
	MarketResolving
	MarketSettled
	MarketCancelled
)

// PositionStatus mirrors the ledger's position lifecycle enum.
type PositionStatus int

const (
	PositionActive PositionStatus = iota
	PositionSettled
	PositionCancelled
	PositionRefunded
)

// Asset type bitmask, matching the ledger constants.
const (
	AssetCommodity = 1
	AssetETF       = 2
	AssetFX        = 4
)

// MarketView is the read-only slice of ledger market state the engine needs.
type MarketView struct {
	ID             uint64
	DataSourceID   int
	TargetPrice    float64
	ConditionAbove bool
	AssetType      int
	ResolutionTime time.Time
	YesPool        float64
	NoPool         float64
	Status         MarketStatus
}

// PositionView is the read-only slice of a ledger position.
type PositionView struct {
	ID       uint64
	MarketID uint64
	Status   PositionStatus
}

// DataSource describes one configured price feed.
type DataSource struct {
	ID           int     `yaml:"id"`
	Name         string  `yaml:"name"`
	Symbol       string  `yaml:"symbol"`
	AssetType    int     `yaml:"asset_type"`
	Endpoint     string  `yaml:"endpoint"`
	DefaultPrice float64 `yaml:"default_price"`
}
