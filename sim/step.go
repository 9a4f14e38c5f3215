package sim

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
	"github.com/pthm-cable/vivarium/policy"
	"github.com/pthm-cable/vivarium/reasoning"
	"github.com/pthm-cable/vivarium/social"
	"github.com/pthm-cable/vivarium/systems"
	"github.com/pthm-cable/vivarium/telemetry"
	"github.com/pthm-cable/vivarium/world"
)

// Step advances the simulation one tick and returns the resulting frame.
// While the activity gate is closed only the player's pending glide runs;
// nothing ages, rolls or reproduces.
func (s *Simulation) Step() Frame {
	if !s.running {
		s.movePlayer()
		return s.buildFrame()
	}

	// 1. Deliver traces queued by last tick's reasoning triggers
	s.resolveReasoning()

	// 2. Rebuild the spatial index
	s.updateSpatialGrid()

	// 3. Update every agent in roster order
	s.updateAgents()

	// 4. Apply buffered deaths, then births
	s.applyDeaths()
	s.applyBirths()

	// 5. Advance seasons, weather and resource regeneration
	if injected := s.env.Advance(s.rng); injected > 0 {
		s.pushEvent(telemetry.NewScarcityEvent(s.tick, injected))
		slog.Debug("scarcity_injection", "tick", s.tick, "injected", injected)
	}

	s.tick++

	// 6. Telemetry window bookkeeping
	s.flushTelemetry()

	return s.buildFrame()
}

// resolveReasoning drains the deliberation queue filled last tick. Each
// delivered trace arms a one-tick intent on its agent. Agents that died
// while the job was queued are skipped.
func (s *Simulation) resolveReasoning() {
	s.engine.Resolve(s.rng, func(agentID string, trace *components.Trace) {
		e, ok := s.index[agentID]
		if !ok {
			return
		}
		cog := s.cogMap.Get(e)
		cog.Pending = false
		cog.HasIntent = true
		cog.Intent = trace.Intent
		cog.LastTrace = trace

		s.collector.RecordReasoning()
		s.pushEvent(telemetry.NewReasoningEvent(s.tick, agentID, trace.Intent.Action))
	})
}

// updateSpatialGrid rebuilds the spatial index from the roster so cell
// contents follow insertion order, keeping neighbor queries reproducible.
func (s *Simulation) updateSpatialGrid() {
	s.spatialGrid.Clear()
	for _, e := range s.roster {
		pos := s.posMap.Get(e)
		s.spatialGrid.Insert(e, pos.X, pos.Z)
	}
}

// perception is one agent's view of its surroundings for this tick,
// computed once and shared by the epidemic, policy and social phases.
type perception struct {
	nearbyCount    int
	nearbyInfected int

	hasResource  bool
	resourceDist float64
}

// updateAgents runs the per-agent phases in roster order. Mutations are
// visible to later agents in the same tick; deaths and births buffer.
func (s *Simulation) updateAgents() {
	pop := len(s.roster)
	pressure := world.Pressure(pop, s.cfg.World.CarryingCapacity, s.cfg.World.MaxPressure)
	threshold := world.SurvivalThreshold(pop, s.cfg.Mortality.SurvivalThresholdBase,
		s.cfg.Mortality.SurvivalThresholdMin, s.cfg.World.CarryingCapacity)

	for i, e := range s.roster {
		s.updateAgent(i, e, pop, pressure, threshold)
	}
}

func (s *Simulation) updateAgent(i int, e ecs.Entity, pop int, pressure, threshold float64) {
	id := s.idMap.Get(e)
	pos := s.posMap.Get(e)
	vit := s.vitMap.Get(e)
	gen := s.genMap.Get(e)
	phen := s.phenMap.Get(e)

	if !vit.Active {
		return
	}

	vit.Age++

	s.progressInfection(id, vit)

	per := s.perceive(e, pos, phen)
	s.rollExposure(id, vit, phen, per)

	if id.Kind == components.KindPlayer {
		s.movePlayer()
	} else {
		intent := s.decideIntent(e, id, vit, per)
		dir := s.intentDirection(e, id, pos, vit, intent)
		before := pos.Vec3
		vel := s.velMap.Get(e)
		systems.Steer(vel, dir, phen.MaxSpeed, intent.Speed, s.cfg.Steering.AccelFactor)
		systems.Integrate(pos, vel, s.cfg.Steering.Damping, s.cfg.World.Bound, s.cfg.Steering.Restitution)
		s.lifetime.RecordMove(id.ID, before.DistTo(pos.Vec3))
	}

	// Communication precedes foraging: an agent standing on food announces
	// it before eating it, so a tip can be honest when sent and stale by
	// the time a receiver acts on it. Verification exists for exactly that.
	if id.Kind == components.KindCausal {
		s.communicate(e, id, pos, vit, per)
	}

	s.forage(id, pos, vit, phen)

	s.decayEnergy(id, vit, gen, pressure)

	if s.rollMortality(i, e, id, vit, gen, threshold) {
		return // death buffered; a dying agent does not reproduce
	}

	s.maybeReproduce(id, vit, pressure, threshold)
}

// progressInfection ticks the infection clock and applies recovery.
func (s *Simulation) progressInfection(id *components.Identity, vit *components.Vitals) {
	if vit.Status != components.StatusInfected {
		return
	}
	ep := s.cfg.Epidemic

	vit.InfectionTimer++
	if vit.InfectionTimer <= ep.RecoveryTicks {
		return
	}

	bonus := ep.RecoveryBonus
	if id.Kind == components.KindPlayer {
		bonus = ep.PlayerRecoveryBonus
	}
	vit.Status = components.StatusRecovered
	vit.InfectionTimer = 0
	vit.Energy = math.Min(s.cfg.Energy.Max, vit.Energy+bonus)

	s.collector.RecordRecovery()
	s.lifetime.RecordRecovery(id.ID)
	s.pushEvent(telemetry.NewRecoveryEvent(s.tick, id.ID, id.Kind, bonus))
	slog.Debug("agent_recovered", "id", id.ID, "tick", s.tick)
}

// perceive gathers the agent's neighborhood and nearest resource.
func (s *Simulation) perceive(e ecs.Entity, pos *components.Position, phen *components.Phenotype) perception {
	var per perception

	s.scratch = s.spatialGrid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Z, phen.SocialDistance, e, s.posMap)
	per.nearbyCount = len(s.scratch)
	for _, nb := range s.scratch {
		if s.vitMap.Get(nb.E).Status == components.StatusInfected {
			per.nearbyInfected++
		}
	}

	per.resourceDist = math.Inf(1)
	if r, ok := s.env.Nearest(pos.Vec3); ok {
		per.hasResource = true
		per.resourceDist = pos.Vec3.DistTo(r.Pos)
	}

	return per
}

// rollExposure performs the single per-tick infection trial for a
// susceptible agent with infected company.
func (s *Simulation) rollExposure(id *components.Identity, vit *components.Vitals, phen *components.Phenotype, per perception) {
	if vit.Status != components.StatusSusceptible || per.nearbyInfected == 0 {
		return
	}

	rate := s.cfg.Epidemic.InfectionRate
	if id.Kind == components.KindPlayer {
		rate = s.cfg.Epidemic.PlayerInfectionRate
	}
	if s.rng.Float64() >= rate*(1-phen.Resistance) {
		return
	}

	vit.Status = components.StatusInfected
	vit.InfectionTimer = 0

	s.collector.RecordInfection()
	s.pushEvent(telemetry.NewInfectionEvent(s.tick, id.ID, id.Kind))
	slog.Debug("agent_infected", "id", id.ID, "tick", s.tick)
}

// decideIntent picks this tick's intent. A trace delivered this tick
// supersedes the learned policy for exactly this tick; otherwise the
// policy decides (and learns from the previous transition). Causal agents
// may also queue a fresh deliberation job.
func (s *Simulation) decideIntent(e ecs.Entity, id *components.Identity, vit *components.Vitals, per perception) components.Intent {
	obs := policy.Observation{
		Energy:              vit.Energy,
		Age:                 vit.Age,
		NearbyCount:         per.nearbyCount,
		NearbyInfected:      per.nearbyInfected,
		NearestResourceDist: per.resourceDist,
		Status:              vit.Status,
	}

	if id.Kind != components.KindCausal {
		return s.policies[id.ID].Decide(s.rng, obs, s.cfg.Learning)
	}

	cog := s.cogMap.Get(e)

	var intent components.Intent
	if cog.HasIntent {
		intent = cog.Intent
		cog.HasIntent = false
	} else {
		intent = s.policies[id.ID].Decide(s.rng, obs, s.cfg.Learning)
	}

	if !cog.Pending && s.rng.Float64() < s.cfg.Reasoning.TriggerChance {
		gen := s.genMap.Get(e)
		s.engine.Schedule(reasoning.Input{
			AgentID:        id.ID,
			Tick:           s.tick,
			Energy:         vit.Energy,
			Age:            vit.Age,
			Lifespan:       gen.Lifespan,
			Status:         vit.Status,
			NearbyCount:    per.nearbyCount,
			NearbyInfected: per.nearbyInfected,
			HasResource:    per.hasResource,
			ResourceDist:   per.resourceDist,
			ReproCooldown:  vit.ReproCooldown,
			Season:         s.env.Season().String(),
		})
		cog.Pending = true
	}

	return intent
}

// intentDirection translates an intent into a steering direction.
func (s *Simulation) intentDirection(e ecs.Entity, id *components.Identity, pos *components.Position, vit *components.Vitals, intent components.Intent) components.Vec3 {
	st := s.cfg.Steering

	switch intent.Action {
	case components.ActForage:
		// Hungry causal agents trust their social memory over line of sight.
		if id.Kind == components.KindCausal && vit.Energy < st.TipEnergyLimit {
			soc := s.socialMap.Get(e)
			if tip, ok := social.BestTip(soc, s.tick, st.TipScoreAgeScale); ok {
				return tip.Loc.Sub(pos.Vec3).Normalized()
			}
		}
		if r, ok := s.env.Nearest(pos.Vec3); ok {
			return r.Pos.Sub(pos.Vec3).Normalized()
		}
		return s.wanderDir(st.ExploreScale)

	case components.ActFlee:
		if id.Kind == components.KindCausal {
			if dir, ok := s.zoneRepulsion(e, pos); ok {
				return dir
			}
		}
		if dir, ok := s.infectedRepulsion(e, pos, st.FleeRadius); ok {
			return dir
		}
		return s.wanderDir(st.ExploreScale)

	case components.ActReproduce:
		return s.wanderDir(st.ReproduceScale)

	default: // ActExplore
		return s.wanderDir(st.ExploreScale)
	}
}

// wanderDir draws a random heading scaled to the given magnitude.
func (s *Simulation) wanderDir(scale float64) components.Vec3 {
	a := s.rng.Float64() * 2 * math.Pi
	return components.Vec3{X: math.Cos(a) * scale, Z: math.Sin(a) * scale}
}

// zoneRepulsion sums unit vectors away from every remembered danger zone
// the agent stands within twice the radius of.
func (s *Simulation) zoneRepulsion(e ecs.Entity, pos *components.Position) (components.Vec3, bool) {
	soc := s.socialMap.Get(e)

	var sum components.Vec3
	n := 0
	for _, z := range soc.Zones {
		if pos.Vec3.DistTo(z.Loc) < 2*z.Radius {
			sum = sum.Add(pos.Vec3.Sub(z.Loc).Normalized())
			n++
		}
	}
	if n == 0 {
		return components.Vec3{}, false
	}
	return sum.Normalized(), true
}

// infectedRepulsion points away from the nearest infected agent in range.
func (s *Simulation) infectedRepulsion(e ecs.Entity, pos *components.Position, radius float64) (components.Vec3, bool) {
	s.scratch = s.spatialGrid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Z, radius, e, s.posMap)

	found := false
	bestSq := math.Inf(1)
	var away components.Vec3
	for _, nb := range s.scratch {
		if s.vitMap.Get(nb.E).Status != components.StatusInfected {
			continue
		}
		if nb.DistSq < bestSq {
			bestSq = nb.DistSq
			away = components.Vec3{X: -nb.DX, Z: -nb.DZ}
			found = true
		}
	}
	if !found {
		return components.Vec3{}, false
	}
	return away.Normalized(), true
}

// movePlayer glides the player toward its pending target, if any. Runs
// both in the normal movement phase and while the gate is closed.
func (s *Simulation) movePlayer() {
	if !s.hasPlayer {
		return
	}
	pc := s.playerMap.Get(s.player)
	if !pc.HasTarget {
		return
	}

	pos := s.posMap.Get(s.player)
	before := pos.Vec3
	if systems.GlideToward(pos, pc.Target, pc.MoveSpeed, s.cfg.Player.ArriveDistance) {
		pc.HasTarget = false
	}
	id := s.idMap.Get(s.player)
	s.lifetime.RecordMove(id.ID, before.DistTo(pos.Vec3))
}

// forage consumes every resource in reach at the post-move position.
// Consumption is immediate: later agents this tick cannot eat the same one.
func (s *Simulation) forage(id *components.Identity, pos *components.Position, vit *components.Vitals, phen *components.Phenotype) {
	ec := s.cfg.Energy

	s.resScratch = s.env.WithinInto(s.resScratch[:0], pos.Vec3, ec.ForageRadius)
	for _, r := range s.resScratch {
		if _, ok := s.env.Consume(r.ID); !ok {
			continue
		}
		gain := r.Value * phen.Efficiency
		if vit.Status == components.StatusRecovered {
			gain *= ec.RecoveredForageBonus
		}
		vit.Energy = math.Min(ec.Max, vit.Energy+gain)

		s.collector.RecordForage(gain)
		s.lifetime.RecordForage(id.ID, gain)
	}
}

// communicate runs one causal agent's social phase: cooldown, verification
// of remembered claims, then at most one outbound broadcast.
func (s *Simulation) communicate(e ecs.Entity, id *components.Identity, pos *components.Position, vit *components.Vitals, per perception) {
	sc := s.cfg.Social
	soc := s.socialMap.Get(e)

	if soc.Cooldown > 0 {
		soc.Cooldown--
	}

	social.Verify(soc, pos.Vec3, sc,
		func(loc components.Vec3, radius float64) bool { return s.env.HasWithin(loc, radius) },
		func(loc components.Vec3, radius float64) bool { return s.infectedWithin(loc, radius) },
	)

	view := social.View{
		SelfID:         id.ID,
		Tick:           s.tick,
		Pos:            pos.Vec3,
		Status:         vit.Status,
		Energy:         vit.Energy,
		NearbyInfected: per.nearbyInfected,
	}
	if r, ok := s.env.Nearest(pos.Vec3); ok {
		view.HasResource = true
		view.ResourceDist = pos.Vec3.DistTo(r.Pos)
		view.ResourcePos = r.Pos
		view.ResourceValue = r.Value
	}

	msg, ok := social.Decide(soc, view, s.rng, sc)
	if !ok {
		return
	}
	s.msgSerial++
	msg.ID = s.msgSerial

	recipients := 0
	rangeSq := sc.Range * sc.Range
	for _, other := range s.roster {
		if other == e || !s.socialMap.Has(other) {
			continue
		}
		if pos.Vec3.DistSqTo(s.posMap.Get(other).Vec3) > rangeSq {
			continue
		}
		if social.Receive(s.socialMap.Get(other), msg, sc) {
			social.RecordBroadcast(soc, s.idMap.Get(other).ID, s.tick)
			recipients++
		}
	}

	s.collector.RecordMessage(msg.Type)
	s.lifetime.RecordMessage(id.ID)
	s.pushEvent(telemetry.NewMessageEvent(s.tick, id.ID, msg.Type, recipients))
}

// infectedWithin answers the danger-zone verification callback.
func (s *Simulation) infectedWithin(loc components.Vec3, radius float64) bool {
	s.scratch = s.spatialGrid.QueryRadiusInto(s.scratch[:0], loc.X, loc.Z, radius, ecs.Entity{}, s.posMap)
	for _, nb := range s.scratch {
		if s.vitMap.Get(nb.E).Status == components.StatusInfected {
			return true
		}
	}
	return false
}

// decayEnergy applies the per-tick energy economics.
func (s *Simulation) decayEnergy(id *components.Identity, vit *components.Vitals, gen *components.Genotype, pressure float64) {
	ec := s.cfg.Energy

	base := ec.BaseLoss
	infPenalty := ec.InfectionPenalty
	if id.Kind == components.KindPlayer {
		base = ec.PlayerBaseLoss
		infPenalty = ec.PlayerInfectionPenalty
	}

	loss := base * (1 + pressure*ec.PressureFactor)
	if vit.Status == components.StatusInfected {
		loss += infPenalty
	}
	if float64(vit.Age) > ec.AgePenaltyFraction*float64(gen.Lifespan) {
		loss += ec.AgePenalty
	}

	vit.Energy = math.Max(0, vit.Energy-loss)
	s.lifetime.ObserveEnergy(id.ID, vit.Energy)
}

// deathChance sums the three mortality terms for one agent and names the
// dominant one. Zero chance means no roll is due.
func deathChance(kind components.Kind, energy float64, age, lifespan int, threshold float64, mc config.MortalityConfig) (float64, string) {
	ageChance := mc.AgeDeathChance
	exFactor := mc.ExhaustionFactor
	if kind == components.KindPlayer {
		ageChance = mc.PlayerAgeDeathChance
		exFactor = mc.PlayerExhaustionFactor
	}

	var old, starve, exhaust float64
	if age >= lifespan {
		old = ageChance
	}
	if energy < threshold {
		starve = (threshold - energy) / math.Max(1, threshold) * mc.StarvationFactor
	}
	if energy <= mc.ExhaustionFloor {
		exhaust = (mc.ExhaustionFloor - energy) * exFactor
	}

	cause := telemetry.CauseOldAge
	top := old
	if starve > top {
		top, cause = starve, telemetry.CauseStarvation
	}
	if exhaust > top {
		cause = telemetry.CauseExhaustion
	}

	return old + starve + exhaust, cause
}

// rollMortality rolls once against the summed death terms. On death the
// removal is buffered with the dominant term as the recorded cause.
func (s *Simulation) rollMortality(i int, e ecs.Entity, id *components.Identity, vit *components.Vitals, gen *components.Genotype, threshold float64) bool {
	p, cause := deathChance(id.Kind, vit.Energy, vit.Age, gen.Lifespan, threshold, s.cfg.Mortality)
	if p <= 0 || s.rng.Float64() >= p {
		return false
	}

	s.deaths = append(s.deaths, deathRecord{
		idx:    i,
		entity: e,
		id:     id.ID,
		kind:   id.Kind,
		cause:  cause,
		age:    vit.Age,
		energy: vit.Energy,
	})
	return true
}

// maybeReproduce runs the eligibility gates and, on a successful roll,
// buffers a birth request to be honored after the roster pass.
func (s *Simulation) maybeReproduce(id *components.Identity, vit *components.Vitals, pressure, threshold float64) {
	rc := s.cfg.Reproduction

	if vit.ReproCooldown > 0 {
		vit.ReproCooldown--
	}
	if vit.ReproCooldown != 0 || vit.Age <= rc.MinAge {
		return
	}
	if len(s.roster)+len(s.births) >= s.cfg.World.PopulationCap {
		return
	}

	minEnergy := rc.MinEnergy
	if id.Kind == components.KindPlayer {
		minEnergy = rc.PlayerMinEnergy
	}
	if vit.Energy <= math.Max(minEnergy, threshold+rc.EnergyMargin) {
		return
	}

	if s.rng.Float64() >= rc.BaseChance/(1+pressure) {
		return
	}

	childKind := id.Kind
	if childKind == components.KindPlayer {
		childKind = components.KindLearner
	}
	s.births = append(s.births, birthRecord{
		parentID:   id.ID,
		kind:       childKind,
		generation: id.Generation + 1,
	})
}

// pushEvent records an event in the history ring and the window buffer.
func (s *Simulation) pushEvent(ev telemetry.Event) {
	s.history.PushEvent(ev)
	s.events = append(s.events, ev)
}
