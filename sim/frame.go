package sim

import (
	"log/slog"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/social"
	"github.com/pthm-cable/vivarium/telemetry"
	"github.com/pthm-cable/vivarium/world"
)

// AgentState is one agent's renderable state within a frame.
type AgentState struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	X          float64 `json:"x"`
	Z          float64 `json:"z"`
	Status     string  `json:"status"`
	ColorClass string  `json:"color_class"`
	Energy     float64 `json:"energy"`
	Age        int     `json:"age"`

	Trace *components.Trace `json:"trace,omitempty"`
}

// Frame is the per-tick output of Step.
type Frame struct {
	Tick   int            `json:"tick"`
	Agents []AgentState   `json:"agents"`
	Env    world.Snapshot `json:"environment"`

	Population  int `json:"population"`
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Recovered   int `json:"recovered"`
}

// buildFrame assembles the frame in roster order.
func (s *Simulation) buildFrame() Frame {
	f := Frame{
		Tick:   s.tick,
		Agents: make([]AgentState, 0, len(s.roster)),
		Env:    s.env.Snapshot(),
	}

	for _, e := range s.roster {
		id := s.idMap.Get(e)
		pos := s.posMap.Get(e)
		vit := s.vitMap.Get(e)

		st := AgentState{
			ID:         id.ID,
			Kind:       id.Kind.String(),
			X:          pos.X,
			Z:          pos.Z,
			Status:     vit.Status.String(),
			ColorClass: colorClass(id.Kind, vit.Status),
			Energy:     vit.Energy,
			Age:        vit.Age,
		}
		if s.cogMap.Has(e) {
			st.Trace = s.cogMap.Get(e).LastTrace
		}

		switch vit.Status {
		case components.StatusSusceptible:
			f.Susceptible++
		case components.StatusInfected:
			f.Infected++
		case components.StatusRecovered:
			f.Recovered++
		}
		f.Agents = append(f.Agents, st)
	}
	f.Population = len(f.Agents)

	return f
}

// colorClass maps an agent to its render class. Epidemic state wins over
// kind so outbreaks read at a glance; the player always stands out.
func colorClass(kind components.Kind, status components.Status) string {
	if kind == components.KindPlayer {
		return "player"
	}
	switch status {
	case components.StatusInfected:
		return "infected"
	case components.StatusRecovered:
		return "recovered"
	default:
		return kind.String()
	}
}

// InspectReport is the detailed view of one agent for debugging UIs.
type InspectReport struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Generation int    `json:"generation"`

	Energy        float64 `json:"energy"`
	Age           int     `json:"age"`
	Status        string  `json:"status"`
	ReproCooldown int     `json:"repro_cooldown"`

	PolicyStates int `json:"policy_states"`

	// Social layer, zero-valued for non-causal agents
	Personality string  `json:"personality,omitempty"`
	KnownTips   int     `json:"known_tips"`
	KnownZones  int     `json:"known_zones"`
	KnownHelp   int     `json:"known_help"`
	InboxLen    int     `json:"inbox_len"`
	Peers       int     `json:"peers"`
	Trust       float64 `json:"trust"`

	Trace *components.Trace `json:"trace,omitempty"`
}

// Inspect returns one agent's full state, false if the id is unknown.
func (s *Simulation) Inspect(agentID string) (InspectReport, bool) {
	e, ok := s.index[agentID]
	if !ok {
		return InspectReport{}, false
	}

	id := s.idMap.Get(e)
	vit := s.vitMap.Get(e)

	rep := InspectReport{
		ID:            id.ID,
		Kind:          id.Kind.String(),
		Generation:    id.Generation,
		Energy:        vit.Energy,
		Age:           vit.Age,
		Status:        vit.Status.String(),
		ReproCooldown: vit.ReproCooldown,
	}
	if p, ok := s.policies[agentID]; ok {
		rep.PolicyStates = p.States()
	}
	if s.socialMap.Has(e) {
		soc := s.socialMap.Get(e)
		rep.Personality = soc.Personality.String()
		rep.KnownTips = len(soc.Tips)
		rep.KnownZones = len(soc.Zones)
		rep.KnownHelp = len(soc.Help)
		rep.InboxLen = len(soc.Inbox)
		rep.Peers = len(soc.Peers)
		rep.Trust = social.AggregateTrust(soc, s.cfg.Social)
	}
	if s.cogMap.Has(e) {
		rep.Trace = s.cogMap.Get(e).LastTrace
	}

	return rep, true
}

// BuildSnapshot dumps the complete simulation state for offline inspection.
func (s *Simulation) BuildSnapshot() *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		Seed:        s.seed,
		Tick:        s.tick,
		Agents:      make([]telemetry.AgentDump, 0, len(s.roster)),
		Environment: s.env.Snapshot(),
	}

	for _, e := range s.roster {
		id := s.idMap.Get(e)
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		vit := s.vitMap.Get(e)
		gen := s.genMap.Get(e)

		dump := telemetry.AgentDump{
			ID:             id.ID,
			Kind:           id.Kind.String(),
			Generation:     id.Generation,
			X:              pos.X,
			Z:              pos.Z,
			VelX:           vel.X,
			VelZ:           vel.Z,
			Energy:         vit.Energy,
			Age:            vit.Age,
			Status:         vit.Status.String(),
			InfectionTimer: vit.InfectionTimer,
			ReproCooldown:  vit.ReproCooldown,
			Genotype:       *gen,
		}
		if p, ok := s.policies[id.ID]; ok {
			dump.PolicyStates = p.States()
		}
		if s.socialMap.Has(e) {
			soc := s.socialMap.Get(e)
			dump.Personality = soc.Personality.String()
			dump.KnownTips = len(soc.Tips)
			dump.KnownZones = len(soc.Zones)
			dump.KnownHelp = len(soc.Help)
			dump.InboxLen = len(soc.Inbox)
			dump.Peers = len(soc.Peers)
			dump.Trust = social.AggregateTrust(soc, s.cfg.Social)
		}
		if s.cogMap.Has(e) {
			dump.LastTrace = s.cogMap.Get(e).LastTrace
		}

		snap.Agents = append(snap.Agents, dump)
	}

	return snap
}

// flushTelemetry closes the stats window when due: gauges are sampled,
// the window goes to history, the callback, the log and the CSV files.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.collectGauges())
	s.history.PushWindow(stats)

	if s.onStats != nil {
		s.onStats(stats)
	}
	if s.logStats {
		stats.Log()
	}

	if s.output != nil {
		if err := s.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.output.WriteEvents(s.events); err != nil {
			slog.Error("failed to write events", "error", err)
		}
	}
	s.events = s.events[:0]
}

// collectGauges samples the point-in-time distributions for a window flush.
func (s *Simulation) collectGauges() telemetry.Gauges {
	g := telemetry.Gauges{
		ResourceCount: s.env.Count(),
		Season:        s.env.Season().String(),
	}

	query := s.agentFilter.Query()
	for query.Next() {
		id, _, _, vit, gen, _ := query.Get()

		switch id.Kind {
		case components.KindLearner:
			g.Learners++
		case components.KindCausal:
			g.Causal++
		case components.KindPlayer:
			g.Players++
		}
		switch vit.Status {
		case components.StatusSusceptible:
			g.Susceptible++
		case components.StatusInfected:
			g.Infected++
		case components.StatusRecovered:
			g.Recovered++
		}

		g.Energies = append(g.Energies, vit.Energy)
		g.Resistances = append(g.Resistances, gen.Resistance)
		g.Efficiencies = append(g.Efficiencies, gen.Efficiency)
		g.ReproThresholds = append(g.ReproThresholds, gen.ReproThreshold)

		entity := query.Entity()
		if s.socialMap.Has(entity) {
			g.Trusts = append(g.Trusts, social.AggregateTrust(s.socialMap.Get(entity), s.cfg.Social))
		}
	}

	for _, p := range s.policies {
		g.PolicyStates += p.States()
	}

	return g
}
