package components

// Personality shades a causal agent's social presentation. Fixed at
// birth. Only Solitary changes behavior (never asks for help); the rest
// exist for observers.
type Personality uint8

const (
	Gregarious Personality = iota
	Pragmatic
	Solitary
	Cautious
	Bold
	Curious
)

// PersonalityCount is the size of the personality space.
const PersonalityCount = 6

// String returns the display name for a Personality.
func (p Personality) String() string {
	switch p {
	case Gregarious:
		return "gregarious"
	case Pragmatic:
		return "pragmatic"
	case Solitary:
		return "solitary"
	case Cautious:
		return "cautious"
	case Bold:
		return "bold"
	case Curious:
		return "curious"
	}
	return "unknown"
}

// MessageType tags broadcast messages. Declaration order is the send
// priority (threat first). AllianceProposal is reserved on the wire but
// nothing emits it.
type MessageType uint8

const (
	MsgThreatWarning MessageType = iota
	MsgResourceLocation
	MsgHelpRequest
	MsgKnowledgeShare
	MsgAllianceProposal
)

// String returns the wire name for a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgThreatWarning:
		return "THREAT_WARNING"
	case MsgResourceLocation:
		return "RESOURCE_LOCATION"
	case MsgHelpRequest:
		return "HELP_REQUEST"
	case MsgKnowledgeShare:
		return "KNOWLEDGE_SHARE"
	case MsgAllianceProposal:
		return "ALLIANCE_PROPOSAL"
	}
	return "UNKNOWN"
}

// Message is one broadcast. All types carry a location; a message without
// one is malformed and receivers drop it whole.
type Message struct {
	ID   uint64
	Type MessageType
	From string
	Tick int

	HasLoc bool
	Loc    Vec3

	Value      float64 // resource tips
	Confidence float64 // tips and shared knowledge
	Radius     float64 // threat zones
	Urgency    float64 // help requests
}

// ResourceTip is a remembered claim that food exists at a location.
type ResourceTip struct {
	Loc        Vec3
	Value      float64
	Confidence float64
	From       string
	Tick       int // tick the tip was received
}

// DangerZone is a remembered claim that infection clusters at a location.
type DangerZone struct {
	Loc        Vec3
	Radius     float64
	Confidence float64
	From       string
	Tick       int
}

// HelpSignal is a remembered plea from a starving peer.
type HelpSignal struct {
	From    string
	Loc     Vec3
	Urgency float64
	Tick    int
}

// SharedInfo records one piece of information received from a peer and,
// once ground truth was checked, whether it held up.
type SharedInfo struct {
	Type     MessageType
	Tick     int
	Verified bool
	Accurate bool
}

// PeerRecord accumulates the history with one sender. Never reclaimed
// except through agent death.
type PeerRecord struct {
	FirstSeen    int
	LastSeen     int
	Interactions int
	Shared       []SharedInfo
}

// Social carries the messaging state of a causal agent.
type Social struct {
	Personality Personality
	Inbox       []Message              // bounded FIFO, oldest evicted
	Tips        []ResourceTip          // bounded typed stores
	Zones       []DangerZone
	Help        []HelpSignal
	Peers       map[string]*PeerRecord // keyed by sender ID
	Cooldown    int                    // ticks until the next send is allowed
}
