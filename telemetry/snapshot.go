package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/world"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a full debugging dump of one sim state. It is not a replay
// format; determinism lives in the seed, not in restored state.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Tick    int   `json:"tick"`

	Agents      []AgentDump    `json:"agents"`
	Environment world.Snapshot `json:"environment"`
}

// AgentDump holds one agent's complete inspectable state.
type AgentDump struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Generation int    `json:"generation"`

	X    float64 `json:"x"`
	Z    float64 `json:"z"`
	VelX float64 `json:"vel_x"`
	VelZ float64 `json:"vel_z"`

	Energy         float64 `json:"energy"`
	Age            int     `json:"age"`
	Status         string  `json:"status"`
	InfectionTimer int     `json:"infection_timer"`
	ReproCooldown  int     `json:"repro_cooldown"`

	Genotype components.Genotype `json:"genotype"`

	// Learning (empty for the player)
	PolicyStates int `json:"policy_states,omitempty"`

	// Social layer (causal agents only)
	Personality string            `json:"personality,omitempty"`
	KnownTips   int               `json:"known_tips,omitempty"`
	KnownZones  int               `json:"known_zones,omitempty"`
	KnownHelp   int               `json:"known_help,omitempty"`
	InboxLen    int               `json:"inbox_len,omitempty"`
	Peers       int               `json:"peers,omitempty"`
	Trust       float64           `json:"trust,omitempty"`
	LastTrace   *components.Trace `json:"last_trace,omitempty"`
}

// Write saves the snapshot as indented JSON.
func (s *Snapshot) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by Write.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	return &s, nil
}
