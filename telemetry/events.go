// Package telemetry provides ecosystem health tracking, run history, and
// snapshots for the simulation.
package telemetry

import "github.com/pthm-cable/vivarium/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventBirth EventType = iota
	EventDeath
	EventInfection
	EventRecovery
	EventMessage
	EventReasoning
	EventScarcity
)

// String returns the event name used in logs and CSV.
func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	case EventInfection:
		return "infection"
	case EventRecovery:
		return "recovery"
	case EventMessage:
		return "message"
	case EventReasoning:
		return "reasoning"
	case EventScarcity:
		return "scarcity"
	}
	return "unknown"
}

// Event is a single notable occurrence.
type Event struct {
	Type    EventType
	Tick    int
	AgentID string
	Kind    components.Kind

	// Optional fields depending on event type
	TargetID string  // parent for births, sender for messages
	Detail   string  // death cause, message type
	Amount   float64 // energy at death, recovery bonus, injected resources
}

// NewBirthEvent records a birth; TargetID holds the parent.
func NewBirthEvent(tick int, childID, parentID string, kind components.Kind) Event {
	return Event{Type: EventBirth, Tick: tick, AgentID: childID, Kind: kind, TargetID: parentID}
}

// NewDeathEvent records a death with its attributed cause.
func NewDeathEvent(tick int, agentID string, kind components.Kind, cause string, energy float64) Event {
	return Event{Type: EventDeath, Tick: tick, AgentID: agentID, Kind: kind, Detail: cause, Amount: energy}
}

// NewInfectionEvent records an exposure that stuck.
func NewInfectionEvent(tick int, agentID string, kind components.Kind) Event {
	return Event{Type: EventInfection, Tick: tick, AgentID: agentID, Kind: kind}
}

// NewRecoveryEvent records an infection running its course.
func NewRecoveryEvent(tick int, agentID string, kind components.Kind, bonus float64) Event {
	return Event{Type: EventRecovery, Tick: tick, AgentID: agentID, Kind: kind, Amount: bonus}
}

// NewMessageEvent records one broadcast; Detail holds the message type.
func NewMessageEvent(tick int, senderID string, msgType components.MessageType, recipients int) Event {
	return Event{
		Type: EventMessage, Tick: tick, AgentID: senderID, Kind: components.KindCausal,
		Detail: msgType.String(), Amount: float64(recipients),
	}
}

// NewReasoningEvent records a resolved deliberation job.
func NewReasoningEvent(tick int, agentID string, action components.Action) Event {
	return Event{Type: EventReasoning, Tick: tick, AgentID: agentID, Kind: components.KindCausal, Detail: action.String()}
}

// NewScarcityEvent records an emergency resource injection.
func NewScarcityEvent(tick int, injected int) Event {
	return Event{Type: EventScarcity, Tick: tick, Amount: float64(injected)}
}

// EventRow is the CSV projection of an Event.
type EventRow struct {
	Tick   int     `csv:"tick"`
	Type   string  `csv:"type"`
	Agent  string  `csv:"agent"`
	Kind   string  `csv:"kind"`
	Target string  `csv:"target"`
	Detail string  `csv:"detail"`
	Amount float64 `csv:"amount"`
}

// ToCSV converts the event for CSV output.
func (e Event) ToCSV() EventRow {
	kind := ""
	if e.Type != EventScarcity {
		kind = e.Kind.String()
	}
	return EventRow{
		Tick:   e.Tick,
		Type:   e.Type.String(),
		Agent:  e.AgentID,
		Kind:   kind,
		Target: e.TargetID,
		Detail: e.Detail,
		Amount: e.Amount,
	}
}
