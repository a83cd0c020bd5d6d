package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// CasterState is the runtime state a caster keeps across restarts.
type CasterState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Onboarding is the caster's onboarding identity. Generated once
	// at first start and stable afterwards, so printed onboarding
	// codes stay valid.
	Onboarding *OnboardingState `json:"onboarding,omitempty"`

	// Peer is the most recently commissioned commissioner.
	Peer *CommissionedPeer `json:"peer,omitempty"`
}

// OnboardingState is the persisted form of the onboarding payload.
type OnboardingState struct {
	Discriminator uint16 `json:"discriminator"`
	Passcode      uint32 `json:"passcode"`
	VendorID      uint16 `json:"vendor_id"`
	ProductID     uint16 `json:"product_id"`
}

// CommissionedPeer records a commissioner this caster completed
// commissioning with.
type CommissionedPeer struct {
	// Fingerprint is the hex SHA-256 of the peer's certificate.
	Fingerprint string `json:"fingerprint"`

	// DeviceName is the peer's advertised name.
	DeviceName string `json:"device_name,omitempty"`

	// Address and Port locate the peer's operational endpoint.
	Address string `json:"address,omitempty"`
	Port    uint16 `json:"port,omitempty"`

	// CommissionedAt is when commissioning completed.
	CommissionedAt time.Time `json:"commissioned_at"`

	// LastSeenAt is when the peer was last connected.
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// OnboardingPayload converts the persisted onboarding identity back to
// its wire form.
func (o *OnboardingState) OnboardingPayload() (*wire.OnboardingPayload, error) {
	p := &wire.OnboardingPayload{
		Version:       1,
		Discriminator: o.Discriminator,
		Passcode:      wire.Passcode(o.Passcode),
		VendorID:      o.VendorID,
		ProductID:     o.ProductID,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("persisted onboarding state invalid: %w", err)
	}
	return p, nil
}

// NewOnboardingState captures a wire onboarding payload for
// persistence.
func NewOnboardingState(p *wire.OnboardingPayload) *OnboardingState {
	return &OnboardingState{
		Discriminator: p.Discriminator,
		Passcode:      uint32(p.Passcode),
		VendorID:      p.VendorID,
		ProductID:     p.ProductID,
	}
}

// CasterStateStore persists caster state to a JSON file. Writes go
// through a temp file and rename, so a crash mid-write leaves the
// previous state intact.
type CasterStateStore struct {
	mu   sync.Mutex
	path string
}

// NewCasterStateStore creates a store backed by path.
func NewCasterStateStore(path string) *CasterStateStore {
	return &CasterStateStore{path: path}
}

// Save persists the state to disk.
func (s *CasterStateStore) Save(state *CasterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load reads the state from disk.
// Returns nil, nil when no state file exists yet.
func (s *CasterStateStore) Load() (*CasterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &CasterState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Clear removes the state file.
func (s *CasterStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
