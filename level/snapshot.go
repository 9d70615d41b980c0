package level

import (
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/vote"
	"time"
)

func proposalDescription(b *vote.Booth) nulls.String {
	if b == nil || !b.InFlight() {
		return nulls.String{}
	}
	return nulls.NewString(b.Current().Description)
}

func arenaClock(a *arena.Arena) nulls.String {
	switch a.State() {
	case arena.StateCountdown:
		return nulls.NewString(a.CountdownClock().Display())
	case arena.StateTimeout:
		return nulls.NewString(a.TimeoutClock().Display())
	}
	return nulls.String{}
}

func playerNames(players []*arena.Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return names
}

// Snapshot returns the status of the level and all arenas.
func (l *Level) Snapshot() event.LevelSnapshot {
	snapshot := event.LevelSnapshot{
		Time:    time.Now(),
		Map:     l.mapName,
		Frame:   uint64(l.frame),
		Players: len(l.order),
		Arenas:  make([]event.ArenaSnapshot, 0, len(l.arenas)),
		Vote:    proposalDescription(l.global),
	}
	for _, a := range l.arenas {
		rules := a.Rules()
		as := event.ArenaSnapshot{
			Number:     a.Number,
			Name:       a.Name,
			State:      a.State().String(),
			Round:      a.Round(),
			RoundLimit: rules.RoundLimit,
			Clock:      arenaClock(a),
			Teams:      make([]event.TeamSnapshot, 0, len(a.Teams())),
			Spectators: playerNames(a.Spectators()),
			Weapons:    rules.Loadout.String(),
			Damage:     rules.Damage.String(),
			Mode:       rules.Mode.String(),
			Vote:       proposalDescription(l.booths[a]),
		}
		for _, t := range a.Teams() {
			ts := event.TeamSnapshot{
				Number:      t.Number,
				Name:        t.Name,
				Skin:        t.Skin,
				Players:     playerNames(t.Players()),
				Alive:       t.Alive(),
				Ready:       t.Ready(),
				Locked:      t.Locked(),
				Points:      t.Points,
				DamageDealt: t.DamageDealt,
				DamageTaken: t.DamageTaken,
			}
			if captain := t.Captain(); captain != nil {
				ts.Captain = nulls.NewString(captain.Name)
			}
			as.Teams = append(as.Teams, ts)
		}
		snapshot.Arenas = append(snapshot.Arenas, as)
	}
	return snapshot
}
