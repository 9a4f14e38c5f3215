package sim

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/telemetry"
	"github.com/pthm-cable/vivarium/world"
)

// deathRecord buffers one removal until the roster pass completes.
type deathRecord struct {
	idx    int
	entity ecs.Entity
	id     string
	kind   components.Kind
	cause  string
	age    int
	energy float64
}

// birthRecord buffers one birth request. The parent is re-checked when the
// birth is honored, so the record carries identity only.
type birthRecord struct {
	parentID   string
	kind       components.Kind
	generation int
}

// applyDeaths removes buffered deaths by descending roster index, so the
// earlier indices recorded during the pass stay valid.
func (s *Simulation) applyDeaths() {
	for di := len(s.deaths) - 1; di >= 0; di-- {
		d := s.deaths[di]

		s.roster = append(s.roster[:d.idx], s.roster[d.idx+1:]...)
		delete(s.index, d.id)
		delete(s.policies, d.id)

		switch d.kind {
		case components.KindPlayer:
			s.playerMap.Remove(d.entity)
			s.hasPlayer = false
		case components.KindCausal:
			s.socialMap.Remove(d.entity)
			s.cogMap.Remove(d.entity)
		}
		s.agentMapper.Remove(d.entity)

		if stats := s.lifetime.Remove(d.id, s.tick); stats != nil {
			s.history.ObserveDeath(stats)
		}
		s.collector.RecordDeath(d.cause)
		s.pushEvent(telemetry.NewDeathEvent(s.tick, d.id, d.kind, d.cause, d.energy))
		slog.Info("agent_died",
			"id", d.id,
			"kind", d.kind.String(),
			"cause", d.cause,
			"age", d.age,
			"tick", s.tick,
		)
	}
	s.deaths = s.deaths[:0]
}

// applyBirths honors buffered birth requests in order. Each birth re-checks
// the population cap and the parent's energy guard before committing; only
// then does the parent pay the cost and both sides take the cooldown.
func (s *Simulation) applyBirths() {
	rc := s.cfg.Reproduction

	for _, b := range s.births {
		if len(s.roster) >= s.cfg.World.PopulationCap {
			break
		}

		parent, ok := s.index[b.parentID]
		if !ok {
			continue
		}
		pvit := s.vitMap.Get(parent)

		threshold := world.SurvivalThreshold(len(s.roster), s.cfg.Mortality.SurvivalThresholdBase,
			s.cfg.Mortality.SurvivalThresholdMin, s.cfg.World.CarryingCapacity)
		if pvit.Energy < math.Max(rc.BirthGuardMin, threshold*rc.BirthGuardFraction) {
			continue
		}

		pgen := s.genMap.Get(parent)
		ppos := s.posMap.Get(parent)

		childGen := pgen.Mutated(s.rng, rc)
		at := components.Vec3{
			X: clampAxis(ppos.X+(s.rng.Float64()*2-1)*rc.SpawnJitter, s.cfg.World.Bound),
			Z: clampAxis(ppos.Z+(s.rng.Float64()*2-1)*rc.SpawnJitter, s.cfg.World.Bound),
		}

		child := s.spawnAgent(b.kind, at, childGen, b.generation, b.parentID)
		s.vitMap.Get(child).ReproCooldown = rc.Cooldown

		pvit.Energy -= rc.Cost
		pvit.ReproCooldown = rc.Cooldown

		childID := s.idMap.Get(child).ID
		s.collector.RecordBirth()
		s.lifetime.RecordOffspring(b.parentID)
		s.pushEvent(telemetry.NewBirthEvent(s.tick, childID, b.parentID, b.kind))
		slog.Info("agent_born",
			"id", childID,
			"kind", b.kind.String(),
			"parent", b.parentID,
			"generation", b.generation,
			"tick", s.tick,
		)
	}
	s.births = s.births[:0]
}
