// Package policy provides tabular Q-learning movement policies.
// Each agent owns one Learner; the sim keeps them in a map keyed by agent
// ID, outside the entity store.
package policy

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

// Observation is the per-tick view a policy learns over. Distances are in
// world units; NearestResourceDist is +Inf when no resources exist.
type Observation struct {
	Energy              float64
	Age                 int
	NearbyCount         int
	NearbyInfected      int
	NearestResourceDist float64
	Status              components.Status
}

// Key collapses the observation into the tabular state key: energy bucket,
// capped neighbor count, capped infected count, resource-near bit, status.
func (o Observation) Key(lc config.LearningConfig) string {
	bucket := int(o.Energy / lc.EnergyBucket)
	near := o.NearbyCount
	if near > lc.NearbyCap {
		near = lc.NearbyCap
	}
	inf := o.NearbyInfected
	if inf > lc.InfectedCap {
		inf = lc.InfectedCap
	}
	resNear := 1
	if o.NearestResourceDist < lc.ResourceNearDist {
		resNear = 0
	}
	return fmt.Sprintf("%d|%d|%d|%d|%d", bucket, near, inf, resNear, int(o.Status))
}

// Reward scores the state the previous action led to.
func Reward(o Observation, lc config.LearningConfig) float64 {
	r := o.Energy*lc.RewardEnergyFactor -
		float64(o.NearbyInfected)*lc.RewardInfectedCost -
		float64(o.Age)*lc.RewardAgeFactor
	if o.Energy < lc.RewardSeekEnergy && o.NearestResourceDist < lc.RewardSeekDist {
		r += lc.RewardSeekBonus
	}
	return r
}

// Learner is one agent's Q-table plus its previous transition. Unseen
// state/action values read as zero.
type Learner struct {
	table map[string]*[components.ActionCount]float64

	prevKey    string
	prevAction components.Action
	hasPrev    bool
}

// NewLearner creates an empty policy.
func NewLearner() *Learner {
	return &Learner{table: make(map[string]*[components.ActionCount]float64)}
}

// Decide folds the new observation into the table (updating the previous
// transition first) and selects the next intent epsilon-greedily.
func (l *Learner) Decide(rng *rand.Rand, o Observation, lc config.LearningConfig) components.Intent {
	key := o.Key(lc)

	if l.hasPrev {
		l.update(l.prevKey, l.prevAction, Reward(o, lc), key, lc)
	}

	var action components.Action
	if rng.Float64() < lc.Epsilon {
		action = components.Action(rng.Intn(components.ActionCount))
	} else {
		action = l.bestAction(key)
	}

	l.prevKey = key
	l.prevAction = action
	l.hasPrev = true

	speed := lc.ReproduceSpeed
	if action != components.ActReproduce {
		speed = lc.SpeedMin + rng.Float64()*(lc.SpeedMax-lc.SpeedMin)
	}

	return components.Intent{Action: action, Speed: speed}
}

// States returns the number of distinct states visited.
func (l *Learner) States() int {
	return len(l.table)
}

// Q returns the learned value for a state/action pair, zero if unseen.
func (l *Learner) Q(key string, a components.Action) float64 {
	if vals, ok := l.table[key]; ok {
		return vals[a]
	}
	return 0
}

// update applies the Q-learning rule to the previous transition:
// Q(s,a) += alpha * (r + gamma*max_a' Q(s',a') - Q(s,a)).
func (l *Learner) update(prevKey string, a components.Action, reward float64, nextKey string, lc config.LearningConfig) {
	maxNext := 0.0
	if vals, ok := l.table[nextKey]; ok {
		maxNext = vals[0]
		for _, v := range vals[1:] {
			if v > maxNext {
				maxNext = v
			}
		}
	}

	vals := l.table[prevKey]
	if vals == nil {
		vals = &[components.ActionCount]float64{}
		l.table[prevKey] = vals
	}
	vals[a] += lc.Alpha * (reward + lc.Gamma*maxNext - vals[a])
}

// bestAction returns the argmax action; ties resolve to the lowest action
// index, keeping the enumeration order authoritative.
func (l *Learner) bestAction(key string) components.Action {
	vals, ok := l.table[key]
	if !ok {
		return components.Action(0)
	}
	best := components.Action(0)
	bestV := vals[0]
	for i := 1; i < components.ActionCount; i++ {
		if vals[i] > bestV {
			best = components.Action(i)
			bestV = vals[i]
		}
	}
	return best
}
