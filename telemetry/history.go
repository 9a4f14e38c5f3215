package telemetry

import "sort"

// History keeps the bounded in-memory record of a run: recent window
// stats, recent notable events, and a leaderboard of the most successful
// dead agents. This is the only history the core retains; durable
// archiving is the caller's business.
type History struct {
	maxWindows int
	maxEvents  int
	boardSize  int

	windows []WindowStats
	events  []Event
	board   []BoardEntry
}

// BoardEntry is a finalized lifetime scored for the leaderboard.
type BoardEntry struct {
	Stats LifetimeStats
	Score float64
}

// NewHistory creates a history bounded to size windows/events and a
// boardSize leaderboard.
func NewHistory(size, boardSize int) *History {
	return &History{maxWindows: size, maxEvents: size, boardSize: boardSize}
}

// PushWindow appends window stats, evicting the oldest beyond the cap.
func (h *History) PushWindow(ws WindowStats) {
	h.windows = append(h.windows, ws)
	if len(h.windows) > h.maxWindows {
		h.windows = h.windows[len(h.windows)-h.maxWindows:]
	}
}

// PushEvent appends an event, evicting the oldest beyond the cap.
func (h *History) PushEvent(ev Event) {
	h.events = append(h.events, ev)
	if len(h.events) > h.maxEvents {
		h.events = h.events[len(h.events)-h.maxEvents:]
	}
}

// ObserveDeath offers a finalized lifetime to the leaderboard.
func (h *History) ObserveDeath(s *LifetimeStats) {
	if s == nil || h.boardSize == 0 {
		return
	}
	entry := BoardEntry{Stats: *s, Score: lifetimeScore(s)}
	h.board = append(h.board, entry)
	sort.SliceStable(h.board, func(i, j int) bool {
		if h.board[i].Score != h.board[j].Score {
			return h.board[i].Score > h.board[j].Score
		}
		return h.board[i].Stats.ID < h.board[j].Stats.ID
	})
	if len(h.board) > h.boardSize {
		h.board = h.board[:h.boardSize]
	}
}

// lifetimeScore weighs longevity, offspring and foraging success.
func lifetimeScore(s *LifetimeStats) float64 {
	return float64(s.SurvivalTicks) + 100*float64(s.Offspring) + s.EnergyForaged
}

// Windows returns the retained window stats, oldest first.
func (h *History) Windows() []WindowStats {
	out := make([]WindowStats, len(h.windows))
	copy(out, h.windows)
	return out
}

// Events returns the retained events, oldest first.
func (h *History) Events() []Event {
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Leaderboard returns the best finalized lifetimes, best first.
func (h *History) Leaderboard() []BoardEntry {
	out := make([]BoardEntry, len(h.board))
	copy(out, h.board)
	return out
}
