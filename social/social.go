// Package social implements the messaging, memory and trust layer carried
// by causal agents. Functions here mutate the Social component; delivery
// and id stamping belong to the sim loop.
package social

import (
	"math/rand"
	"sort"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

// New returns an initialized social state.
func New(p components.Personality) components.Social {
	return components.Social{
		Personality: p,
		Peers:       make(map[string]*components.PeerRecord),
	}
}

// RandomPersonality draws a personality for a fresh agent.
func RandomPersonality(rng *rand.Rand) components.Personality {
	return components.Personality(rng.Intn(components.PersonalityCount))
}

// View is the slice of the world a communication decision sees.
type View struct {
	SelfID string
	Tick   int
	Pos    components.Vec3
	Status components.Status
	Energy float64

	NearbyInfected int

	HasResource   bool // a nearest resource exists
	ResourceDist  float64
	ResourcePos   components.Vec3
	ResourceValue float64
}

// Decide runs the outbound waterfall: threat, tip, help, share. At most
// one message per tick, and only when the cooldown has expired. Sending
// arms the cooldown with the chosen type's value.
func Decide(s *components.Social, v View, rng *rand.Rand, sc config.SocialConfig) (components.Message, bool) {
	if s.Cooldown > 0 {
		return components.Message{}, false
	}

	base := components.Message{From: v.SelfID, Tick: v.Tick, HasLoc: true}

	switch {
	case v.NearbyInfected >= sc.ThreatMinNearby && v.Status == components.StatusSusceptible:
		base.Type = components.MsgThreatWarning
		base.Loc = v.Pos
		base.Radius = sc.ThreatZoneRadius
		base.Confidence = sc.ZoneConfidence
		s.Cooldown = sc.ThreatCooldown

	case v.HasResource && v.ResourceDist < sc.TipMaxDistance && v.Energy > sc.TipMinEnergy:
		base.Type = components.MsgResourceLocation
		base.Loc = v.ResourcePos
		base.Value = v.ResourceValue
		base.Confidence = sc.TipConfidence
		s.Cooldown = sc.TipCooldown

	case v.Energy < sc.HelpMaxEnergy && s.Personality != components.Solitary:
		base.Type = components.MsgHelpRequest
		base.Loc = v.Pos
		base.Urgency = clamp01(1 - v.Energy/sc.HelpMaxEnergy)
		s.Cooldown = sc.HelpCooldown

	case len(s.Tips) > 0 && rng.Float64() < sc.ShareChance:
		tip := s.Tips[rng.Intn(len(s.Tips))]
		base.Type = components.MsgKnowledgeShare
		base.Loc = tip.Loc
		base.Value = tip.Value
		base.Confidence = tip.Confidence
		s.Cooldown = sc.ShareCooldown

	default:
		return components.Message{}, false
	}

	return base, true
}

// RecordBroadcast updates the sender's per-peer bookkeeping for one
// recipient reached.
func RecordBroadcast(s *components.Social, recipient string, tick int) {
	touch(s, recipient, tick).Interactions++
}

// Receive validates and files an incoming message. Malformed messages
// (no location) are dropped whole. Returns whether the message was kept.
func Receive(s *components.Social, msg components.Message, sc config.SocialConfig) bool {
	if !msg.HasLoc {
		return false
	}

	s.Inbox = append(s.Inbox, msg)
	if len(s.Inbox) > sc.InboxCap {
		s.Inbox = s.Inbox[len(s.Inbox)-sc.InboxCap:]
	}

	rec := touch(s, msg.From, msg.Tick)
	rec.Interactions++
	rec.Shared = append(rec.Shared, components.SharedInfo{Type: msg.Type, Tick: msg.Tick})

	switch msg.Type {
	case components.MsgThreatWarning:
		s.Zones = append(s.Zones, components.DangerZone{
			Loc: msg.Loc, Radius: msg.Radius, Confidence: sc.ZoneConfidence,
			From: msg.From, Tick: msg.Tick,
		})
		if len(s.Zones) > sc.StoreCap {
			s.Zones = s.Zones[len(s.Zones)-sc.StoreCap:]
		}

	case components.MsgResourceLocation, components.MsgKnowledgeShare:
		s.Tips = append(s.Tips, components.ResourceTip{
			Loc: msg.Loc, Value: msg.Value, Confidence: msg.Confidence,
			From: msg.From, Tick: msg.Tick,
		})
		if len(s.Tips) > sc.StoreCap {
			s.Tips = s.Tips[len(s.Tips)-sc.StoreCap:]
		}

	case components.MsgHelpRequest:
		s.Help = append(s.Help, components.HelpSignal{
			From: msg.From, Loc: msg.Loc, Urgency: msg.Urgency, Tick: msg.Tick,
		})
		if len(s.Help) > sc.StoreCap {
			s.Help = s.Help[len(s.Help)-sc.StoreCap:]
		}
	}

	return true
}

// Verify checks remembered claims the agent has physically reached against
// ground truth, marks the sender's record, and drops the claim. The
// callbacks answer whether a live resource / an infected agent exists
// within radius of loc.
func Verify(s *components.Social, selfPos components.Vec3, sc config.SocialConfig,
	resourceNear func(loc components.Vec3, radius float64) bool,
	infectedNear func(loc components.Vec3, radius float64) bool,
) int {
	verified := 0

	kept := s.Tips[:0]
	for _, tip := range s.Tips {
		if selfPos.DistTo(tip.Loc) > sc.VerifyDistance {
			kept = append(kept, tip)
			continue
		}
		markVerified(s, tip.From, tip.Tick, resourceNear(tip.Loc, sc.VerifyDistance))
		verified++
	}
	s.Tips = kept

	keptZones := s.Zones[:0]
	for _, zone := range s.Zones {
		if selfPos.DistTo(zone.Loc) > zone.Radius {
			keptZones = append(keptZones, zone)
			continue
		}
		markVerified(s, zone.From, zone.Tick, infectedNear(zone.Loc, zone.Radius))
		verified++
	}
	s.Zones = keptZones

	return verified
}

// BestTip returns the highest-scoring remembered tip. Score decays with
// age: confidence * (1 - age/ageScale).
func BestTip(s *components.Social, tick int, ageScale float64) (components.ResourceTip, bool) {
	if len(s.Tips) == 0 {
		return components.ResourceTip{}, false
	}
	best := 0
	bestScore := TipScore(s.Tips[0], tick, ageScale)
	for i := 1; i < len(s.Tips); i++ {
		if score := TipScore(s.Tips[i], tick, ageScale); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return s.Tips[best], true
}

// TipScore rates a tip by confidence decayed over its age.
func TipScore(tip components.ResourceTip, tick int, ageScale float64) float64 {
	return tip.Confidence * (1 - float64(tick-tip.Tick)/ageScale)
}

// TrustOf derives the trust in one peer from its verification history.
func TrustOf(rec *components.PeerRecord, sc config.SocialConfig) float64 {
	t := sc.TrustBase
	for _, si := range rec.Shared {
		if !si.Verified {
			continue
		}
		if si.Accurate {
			t += sc.TrustAccurate
		} else {
			t -= sc.TrustInaccurate
		}
	}
	return clamp01(t)
}

// AggregateTrust averages trust across all known peers, defaulting to the
// base value when the agent knows nobody. Peers are summed in sorted id
// order so the float result is stable across runs.
func AggregateTrust(s *components.Social, sc config.SocialConfig) float64 {
	if len(s.Peers) == 0 {
		return sc.TrustBase
	}
	ids := make([]string, 0, len(s.Peers))
	for id := range s.Peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sum := 0.0
	for _, id := range ids {
		sum += TrustOf(s.Peers[id], sc)
	}
	return sum / float64(len(s.Peers))
}

// touch returns the peer record for id, creating it on first contact.
func touch(s *components.Social, id string, tick int) *components.PeerRecord {
	rec := s.Peers[id]
	if rec == nil {
		rec = &components.PeerRecord{FirstSeen: tick, LastSeen: tick}
		s.Peers[id] = rec
	}
	if tick > rec.LastSeen {
		rec.LastSeen = tick
	}
	return rec
}

// markVerified flags the sender's shared record for the message that
// produced a claim. One sender emits at most one message per tick, so
// (sender, tick) identifies the record.
func markVerified(s *components.Social, from string, tick int, accurate bool) {
	rec := s.Peers[from]
	if rec == nil {
		return
	}
	for i := range rec.Shared {
		si := &rec.Shared[i]
		if si.Tick == tick && !si.Verified {
			si.Verified = true
			si.Accurate = accurate
			return
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
