package arenasvc

import (
	"context"
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/arena-server/arena"
	"github.com/lefinal/arena-server/event"
	"github.com/lefinal/arena-server/portal"
)

// portalHost implements level.Host by publishing engine requests.
type portalHost struct {
	ctx    context.Context
	portal portal.Portal
}

func (h *portalHost) PrintTo(p *arena.Player, msg string) {
	h.portal.Publish(h.ctx, portal.TopicPrint, event.PrintEvent{
		Target:   event.PrintTargetPlayer,
		PlayerID: nulls.NewString(p.ID.String()),
		Message:  msg,
	})
}

func (h *portalHost) PrintArena(a *arena.Arena, msg string) {
	h.portal.Publish(h.ctx, portal.TopicPrint, event.PrintEvent{
		Target:  event.PrintTargetArena,
		Arena:   nulls.NewInt(a.Number),
		Message: msg,
	})
}

func (h *portalHost) PrintAll(msg string) {
	h.portal.Publish(h.ctx, portal.TopicPrint, event.PrintEvent{
		Target:  event.PrintTargetAll,
		Message: msg,
	})
}

// respawnEvent builds the inventory for the given rules.
func respawnEvent(p *arena.Player, rules arena.Rules) event.RespawnEvent {
	e := event.RespawnEvent{
		PlayerID:   p.ID,
		Weapons:    make([]string, 0),
		Ammo:       make(map[string]int),
		Infinite:   make([]string, 0),
		Health:     rules.Health,
		Armor:      rules.Armor,
		Damage:     rules.Damage.String(),
		FastSwitch: rules.FastSwitch,
		CorpseView: rules.CorpseView,
	}
	l := rules.Loadout
	for w := arena.Weapon(0); w < arena.WeaponCount; w++ {
		if !l.Has(w) && w.Flag() != 0 {
			continue
		}
		if l.Has(w) {
			e.Weapons = append(e.Weapons, w.Token())
		}
		if l.Infinite[w] {
			e.Infinite = append(e.Infinite, w.Token())
		} else if l.Ammo[w] > 0 {
			e.Ammo[w.Token()] = l.Ammo[w]
		}
	}
	return e
}

func (h *portalHost) Respawn(p *arena.Player, rules arena.Rules) {
	h.portal.Publish(h.ctx, portal.TopicRespawn, respawnEvent(p, rules))
}

func (h *portalHost) Spectate(p *arena.Player) {
	h.portal.Publish(h.ctx, portal.TopicSpectate, event.SpectateEvent{PlayerID: p.ID})
}

func (h *portalHost) ApplySkin(p *arena.Player, skin string) {
	h.portal.Publish(h.ctx, portal.TopicSkin, event.SkinEvent{PlayerID: p.ID, Skin: skin})
}

// statusLine is the status bar content for the player.
func statusLine(p *arena.Player, rules arena.Rules) string {
	if p.Arena == nil {
		return ""
	}
	team := "spectator"
	if p.Team != nil {
		team = p.Team.Name
	}
	return fmt.Sprintf("%s | %s | round %d/%d | %s", p.Arena.Name, team, p.Arena.Round(), rules.RoundLimit,
		p.Arena.State())
}

func (h *portalHost) RefreshStatus(p *arena.Player, rules arena.Rules) {
	h.portal.Publish(h.ctx, portal.TopicStatus, event.StatusEvent{PlayerID: p.ID, Status: statusLine(p, rules)})
}

func (h *portalHost) Kick(p *arena.Player, reason string) {
	h.portal.Publish(h.ctx, portal.TopicKick, event.KickEvent{PlayerID: p.ID, Reason: reason})
}

func (h *portalHost) Mute(p *arena.Player, muted bool) {
	h.portal.Publish(h.ctx, portal.TopicMute, event.MuteEvent{PlayerID: p.ID, Muted: muted})
}

func (h *portalHost) ChangeMap(name string) {
	h.portal.Publish(h.ctx, portal.TopicChangeMap, event.ChangeMapEvent{Map: name})
}
