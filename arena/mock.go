package arena

import (
	"strings"
	"sync"
)

// MockHost is a Host that records everything instead of talking to an engine.
type MockHost struct {
	m sync.Mutex
	// Lines holds all printed lines in order.
	Lines []string
	// Private holds lines printed to single players by player name.
	Private map[string][]string
	// Respawns counts respawns by player name.
	Respawns map[string]int
	// Spectating holds the players that were last moved out of play.
	Spectating map[string]bool
	// Skins holds the last applied skin by player name.
	Skins map[string]string
	// Refreshes counts status refreshes by player name.
	Refreshes map[string]int
}

// NewMockHost creates an empty MockHost.
func NewMockHost() *MockHost {
	return &MockHost{
		Lines:      make([]string, 0),
		Private:    make(map[string][]string),
		Respawns:   make(map[string]int),
		Spectating: make(map[string]bool),
		Skins:      make(map[string]string),
		Refreshes:  make(map[string]int),
	}
}

func (h *MockHost) PrintTo(p *Player, msg string) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Private[p.Name] = append(h.Private[p.Name], msg)
}

func (h *MockHost) PrintArena(_ *Arena, msg string) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Lines = append(h.Lines, msg)
}

func (h *MockHost) PrintAll(msg string) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Lines = append(h.Lines, msg)
}

func (h *MockHost) Respawn(p *Player, _ Rules) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Respawns[p.Name]++
	h.Spectating[p.Name] = false
}

func (h *MockHost) Spectate(p *Player) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Spectating[p.Name] = true
}

func (h *MockHost) ApplySkin(p *Player, skin string) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Skins[p.Name] = skin
}

func (h *MockHost) RefreshStatus(p *Player, _ Rules) {
	h.m.Lock()
	defer h.m.Unlock()
	h.Refreshes[p.Name]++
}

// Printed reports whether any printed line contains the given text.
func (h *MockHost) Printed(text string) bool {
	h.m.Lock()
	defer h.m.Unlock()
	for _, line := range h.Lines {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

// PrintedTo reports whether a line containing the given text was printed to the
// player with the given name.
func (h *MockHost) PrintedTo(name string, text string) bool {
	h.m.Lock()
	defer h.m.Unlock()
	for _, line := range h.Private[name] {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}
