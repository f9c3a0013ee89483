// Package vault stores one delegate signing keypair per agent in the
// encrypted store. Delegate wallets sign position submissions on an agent's
// behalf without interactive approval.
package vault

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"BeliefSentinel/internal/model"
	"BeliefSentinel/internal/store"
)

const walletsKey = "agent_wallets"

// Vault manages delegate wallets. The decrypted collection is cached in
// memory, populated lazily on first access and kept in sync on writes.
type Vault struct {
	store *store.Store

	mu      sync.Mutex
	wallets []model.DelegateWallet
	loaded  bool
}

// New creates a Vault over the given encrypted store.
func New(s *store.Store) *Vault {
	return &Vault{store: s}
}

// ensureLoaded populates the cache from the store. Caller must hold v.mu.
func (v *Vault) ensureLoaded() {
	if v.loaded {
		return
	}
	var wallets []model.DelegateWallet
	if v.store.GetItem(walletsKey, &wallets) {
		v.wallets = wallets
	}
	v.loaded = true
}

// persist writes the cache back to the store. Caller must hold v.mu.
func (v *Vault) persist() error {
	return v.store.SetItem(walletsKey, v.wallets)
}

// Create generates a fresh keypair for the agent and persists it. Any
// existing wallet for the same agent is replaced, keeping the
// one-wallet-per-agent invariant. Returns the delegate address for on-chain
// registration.
func (v *Vault) Create(agentID uint64) (string, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", fmt.Errorf("generate keypair: %w", err)
	}

	w := model.DelegateWallet{
		AgentID:    agentID,
		PrivateKey: hex.EncodeToString(priv),
		Address:    DeriveAddress(pub),
		CreatedAt:  time.Now(),
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded()

	kept := v.wallets[:0]
	for _, existing := range v.wallets {
		if existing.AgentID != agentID {
			kept = append(kept, existing)
		}
	}
	v.wallets = append(kept, w)

	if err := v.persist(); err != nil {
		return "", fmt.Errorf("persist wallets: %w", err)
	}
	return w.Address, nil
}

// Get returns the stored wallet for an agent.
func (v *Vault) Get(agentID uint64) (model.DelegateWallet, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded()

	for _, w := range v.wallets {
		if w.AgentID == agentID {
			return w, true
		}
	}
	return model.DelegateWallet{}, false
}

// Has reports whether the agent has a stored wallet.
func (v *Vault) Has(agentID uint64) bool {
	_, ok := v.Get(agentID)
	return ok
}

// Address returns the delegate address for an agent, or "" if none.
func (v *Vault) Address(agentID uint64) string {
	w, ok := v.Get(agentID)
	if !ok {
		return ""
	}
	return w.Address
}

// ExportPrivateKey returns the raw hex private key for an agent.
func (v *Vault) ExportPrivateKey(agentID uint64) (string, error) {
	w, ok := v.Get(agentID)
	if !ok {
		return "", fmt.Errorf("no wallet for agent %d", agentID)
	}
	return w.PrivateKey, nil
}

// Signer returns the agent's signing key.
func (v *Vault) Signer(agentID uint64) (ed25519.PrivateKey, error) {
	w, ok := v.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("no wallet for agent %d", agentID)
	}
	raw, err := hex.DecodeString(w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode key for agent %d: %w", agentID, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key for agent %d: expected %d bytes, got %d",
			agentID, ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// Delete removes the agent's wallet. No-op if none exists.
func (v *Vault) Delete(agentID uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded()

	kept := v.wallets[:0]
	for _, w := range v.wallets {
		if w.AgentID != agentID {
			kept = append(kept, w)
		}
	}
	v.wallets = kept
	return v.persist()
}

// All returns a copy of every stored wallet.
func (v *Vault) All() []model.DelegateWallet {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureLoaded()

	out := make([]model.DelegateWallet, len(v.wallets))
	copy(out, v.wallets)
	return out
}

// DeriveAddress maps a public key to its on-chain delegate address: the hex
// of the last 20 bytes of the key's SHA-256 digest.
func DeriveAddress(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
