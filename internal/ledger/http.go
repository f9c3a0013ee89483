package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/vault"
)

// Stakes cross the wire in micro-USDC.
const usdcDecimals = 6

// HTTPClient talks to the ledger gateway's JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a ledger client for the given gateway.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger get %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ledger decode %s: %w", path, err)
	}
	return nil
}

type marketJSON struct {
	ID             uint64  `json:"id"`
	DataSourceID   int     `json:"data_source_id"`
	TargetPrice    int64   `json:"target_price"` // micro-units
	ConditionAbove bool    `json:"condition_above"`
	AssetType      int     `json:"asset_type"`
	ResolutionTime int64   `json:"resolution_time"` // unix seconds
	YesPool        int64   `json:"yes_pool"`        // micro-USDC
	NoPool         int64   `json:"no_pool"`
	Status         int     `json:"status"`
}

type agentJSON struct {
	ID                  uint64 `json:"id"`
	Owner               string `json:"owner"`
	Delegate            string `json:"delegate"`
	Name                string `json:"name"`
	Personality         int    `json:"personality"`
	Balance             int64  `json:"balance"` // micro-USDC
	MaxBetPerMarket     int64  `json:"max_bet_per_market"`
	MaxTotalExposure    int64  `json:"max_total_exposure"`
	CurrentExposure     int64  `json:"current_exposure"`
	AllowedAssetTypes   int    `json:"allowed_asset_types"`
	ConfidenceThreshold int    `json:"confidence_threshold"`
	AutoExecute         bool   `json:"auto_execute"`
	IsActive            bool   `json:"is_active"`
}

type positionJSON struct {
	ID       uint64 `json:"id"`
	MarketID uint64 `json:"market_id"`
	Status   int    `json:"status"`
}

func fromMicro(v int64) float64 {
	return float64(v) / math.Pow10(usdcDecimals)
}

func toMicro(v float64) int64 {
	return int64(math.Round(v * math.Pow10(usdcDecimals)))
}

func (c *HTTPClient) MarketCount(ctx context.Context) (uint64, error) {
	var out struct {
		Count uint64 `json:"count"`
	}
	if err := c.get(ctx, "/v1/markets/count", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *HTTPClient) Market(ctx context.Context, id uint64) (model.MarketView, error) {
	var m marketJSON
	if err := c.get(ctx, fmt.Sprintf("/v1/markets/%d", id), &m); err != nil {
		return model.MarketView{}, err
	}
	return model.MarketView{
		ID:             m.ID,
		DataSourceID:   m.DataSourceID,
		TargetPrice:    fromMicro(m.TargetPrice),
		ConditionAbove: m.ConditionAbove,
		AssetType:      m.AssetType,
		ResolutionTime: time.Unix(m.ResolutionTime, 0),
		YesPool:        fromMicro(m.YesPool),
		NoPool:         fromMicro(m.NoPool),
		Status:         model.MarketStatus(m.Status),
	}, nil
}

func (c *HTTPClient) Agent(ctx context.Context, id uint64) (model.AgentProfile, error) {
	var a agentJSON
	if err := c.get(ctx, fmt.Sprintf("/v1/agents/%d", id), &a); err != nil {
		return model.AgentProfile{}, err
	}
	personality, ok := model.PersonalityFromIndex[a.Personality]
	if !ok {
		return model.AgentProfile{}, fmt.Errorf("agent %d: unknown personality index %d", id, a.Personality)
	}
	return model.AgentProfile{
		ID:                  a.ID,
		Owner:               a.Owner,
		Delegate:            a.Delegate,
		Name:                a.Name,
		Personality:         personality,
		Balance:             fromMicro(a.Balance),
		MaxStakePerMarket:   fromMicro(a.MaxBetPerMarket),
		MaxTotalExposure:    fromMicro(a.MaxTotalExposure),
		CurrentExposure:     fromMicro(a.CurrentExposure),
		AllowedAssetTypes:   a.AllowedAssetTypes,
		ConfidenceThreshold: a.ConfidenceThreshold,
		AutoExecute:         a.AutoExecute,
		Active:              a.IsActive,
	}, nil
}

func (c *HTTPClient) AgentPositionIDs(ctx context.Context, agentID uint64) ([]uint64, error) {
	var out struct {
		PositionIDs []uint64 `json:"position_ids"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/agents/%d/positions", agentID), &out); err != nil {
		return nil, err
	}
	return out.PositionIDs, nil
}

func (c *HTTPClient) Position(ctx context.Context, id uint64) (model.PositionView, error) {
	var p positionJSON
	if err := c.get(ctx, fmt.Sprintf("/v1/positions/%d", id), &p); err != nil {
		return model.PositionView{}, err
	}
	return model.PositionView{
		ID:       p.ID,
		MarketID: p.MarketID,
		Status:   model.PositionStatus(p.Status),
	}, nil
}

func (c *HTTPClient) OwnerAgentIDs(ctx context.Context, owner string) ([]uint64, error) {
	var out struct {
		AgentIDs []uint64 `json:"agent_ids"`
	}
	if err := c.get(ctx, "/v1/owners/"+owner+"/agents", &out); err != nil {
		return nil, err
	}
	return out.AgentIDs, nil
}

// SubmitPositionForAgent signs the submission with the agent's delegate key
// and posts it to the gateway. The signature covers the canonical payload
// agentID|marketId|stakeMicro|encryptedDirection.
func (c *HTTPClient) SubmitPositionForAgent(ctx context.Context, signer ed25519.PrivateKey,
	agentID, marketID uint64, encryptedDirection []byte, stake float64) (string, error) {

	stakeMicro := toMicro(stake)
	payload := fmt.Sprintf("%d|%d|%d|%s", agentID, marketID, stakeMicro, hex.EncodeToString(encryptedDirection))
	sig := ed25519.Sign(signer, []byte(payload))

	body, err := json.Marshal(map[string]any{
		"agent_id":            agentID,
		"market_id":           marketID,
		"encrypted_direction": hex.EncodeToString(encryptedDirection),
		"stake":               stakeMicro,
		"delegate":            vault.DeriveAddress(signer.Public().(ed25519.PublicKey)),
		"signature":           hex.EncodeToString(sig),
	})
	if err != nil {
		return "", fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/positions/agent", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger submit: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ledger submit read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ledger submit: status %d: %s", resp.StatusCode, respBody)
	}

	var out struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("ledger submit decode: %w", err)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("ledger submit: empty tx hash")
	}
	return out.TxHash, nil
}
