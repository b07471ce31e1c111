package main

type HistoryEntry struct {
	Move              Move
	Player            PlayerColor
	CapturedPositions []Move
	ElapsedMs         float64
	IsAi              bool
	Depth             int
}

type MoveHistory struct {
	entries []HistoryEntry
}

func (h *MoveHistory) Clear() {
	h.entries = nil
}

func (h *MoveHistory) Push(entry HistoryEntry) {
	h.entries = append(h.entries, entry)
}

func (h MoveHistory) Size() int {
	return len(h.entries)
}

func (h MoveHistory) All() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}

func (h MoveHistory) Last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// CapturedBy totals the stones player has removed from the board.
func (h MoveHistory) CapturedBy(player PlayerColor) int {
	total := 0
	for _, entry := range h.entries {
		if entry.Player == player {
			total += len(entry.CapturedPositions)
		}
	}
	return total
}
