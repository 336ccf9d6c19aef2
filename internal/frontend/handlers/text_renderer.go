package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/hexdraft/internal/frontend/telnet"
	"github.com/cory-johannsen/hexdraft/internal/game/command"
	"github.com/cory-johannsen/hexdraft/internal/game/effect"
	"github.com/cory-johannsen/hexdraft/internal/game/engine"
	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/game/world"
	"github.com/cory-johannsen/hexdraft/internal/storage/postgres"
)

// Cell glyphs. Every glyph is cellWidth visible characters wide.
const (
	glyphPlayer   = "[@]"
	glyphExit     = "[X]"
	glyphShop     = "[$]"
	glyphUnspent  = "[+]"
	glyphRoom     = "[ ]"
	glyphFrontier = " ? "
	glyphHidden   = " . "
	cellWidth     = 3
)

var directionAbbrev = [world.DirectionCount]string{"n", "ne", "se", "s", "sw", "nw"}

// cellGlyph picks the colored glyph for c. reg may be nil, in which case revealed rooms
// carry no effect hint.
func cellGlyph(v engine.View, reg *effect.Registry, c world.Coord, frontier map[world.Coord]bool) string {
	room := v.At(c)
	switch {
	case c == v.Player:
		return telnet.Colorize(telnet.BrightYellow, glyphPlayer)
	case c == v.Exit:
		return telnet.Colorize(telnet.BrightGreen, glyphExit)
	case !room.Revealed && frontier[c]:
		return telnet.Colorize(telnet.BrightCyan, glyphFrontier)
	case !room.Revealed:
		return telnet.Colorize(telnet.Dim, glyphHidden)
	}
	if reg != nil {
		if e, ok := reg.Lookup(room.Events.Enter); ok {
			switch {
			case e.Kind == effect.KindShop:
				return telnet.Colorize(telnet.BrightMagenta, glyphShop)
			case e.Kind != effect.KindNoop && (!e.Limited() || room.TriggerCount < e.TriggerLimit):
				return telnet.Colorize(telnet.Yellow, glyphUnspent)
			}
		}
	}
	return telnet.Colorize(telnet.White, glyphRoom)
}

// frontierCells returns the unrevealed cells the player could draft into from here.
func frontierCells(v engine.View) map[world.Coord]bool {
	out := make(map[world.Coord]bool)
	here := v.At(v.Player)
	for _, d := range here.OpenDirections() {
		c := world.TileTowards(v.Player, d)
		if v.Layout.Valid(c) && !v.At(c).Revealed {
			out[c] = true
		}
	}
	return out
}

// RenderMap draws the grid as staggered rows. Each grid row takes two text lines: even
// columns on the first, odd columns half a cell lower on the second.
//
// Postcondition: Returns 2*Rows lines joined by "\r\n", every line the same visible width.
func RenderMap(v engine.View, reg *effect.Registry) string {
	frontier := frontierCells(v)
	blank := strings.Repeat(" ", cellWidth)
	lines := make([]string, 0, 2*v.Layout.Rows)
	for r := 0; r < v.Layout.Rows; r++ {
		var even, odd strings.Builder
		for c := 0; c < v.Layout.Cols; c++ {
			glyph := cellGlyph(v, reg, world.Coord{Row: r, Col: c}, frontier)
			if c%2 == 0 {
				even.WriteString(glyph)
				odd.WriteString(blank)
			} else {
				even.WriteString(blank)
				odd.WriteString(glyph)
			}
		}
		lines = append(lines, even.String(), odd.String())
	}
	return strings.Join(lines, "\r\n")
}

// RenderRule returns a dim line of dashes as wide as the first visible line of block.
func RenderRule(block string) string {
	first, _, _ := strings.Cut(block, "\r\n")
	return telnet.Colorize(telnet.Dim, strings.Repeat("-", telnet.VisibleWidth(first)))
}

// RenderLegend explains the map glyphs.
func RenderLegend() string {
	return telnet.Colorize(telnet.Dim, fmt.Sprintf("%s you  %s exit  %s shop  %s unclaimed  %s room  %s draftable  %s unknown",
		glyphPlayer, glyphExit, glyphShop, glyphUnspent, glyphRoom, strings.TrimSpace(glyphFrontier), strings.TrimSpace(glyphHidden)))
}

// RenderHallways lists the hallways of the player's room with their status.
func RenderHallways(v engine.View) string {
	here := v.At(v.Player)
	parts := make([]string, 0, world.DirectionCount)
	for _, d := range world.Directions {
		h := here.Hallways[d]
		if !h.Enabled {
			continue
		}
		color := telnet.Green
		switch h.Status {
		case world.StatusUnknown:
			color = telnet.BrightCyan
		case world.StatusBlocked:
			color = telnet.Red
		}
		parts = append(parts, telnet.Colorf(color, "%s (%s)", directionAbbrev[d], h.Status))
	}
	if len(parts) == 0 {
		return telnet.Colorize(telnet.Dim, "There are no hallways out of this room.")
	}
	return telnet.Colorize(telnet.Cyan, "Hallways: ") + strings.Join(parts, ", ")
}

// RenderStatus formats the resource line and run statistics.
func RenderStatus(v engine.View) string {
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.BrightWhite, "Steps: %d  Keys: %d  Gems: %d",
		v.Resources[resource.Steps], v.Resources[resource.Keys], v.Resources[resource.Gems]))
	for _, item := range extraResources(v.Resources) {
		b.WriteString(telnet.Colorf(telnet.White, "  %s: %d", item, v.Resources[item]))
	}
	b.WriteString("\r\n")
	b.WriteString(telnet.Colorf(telnet.Dim, "Seed %d  Moves %d  Placed %d  Refreshes %d  Revealed %d",
		v.Seed, v.Stats.Moves, v.Stats.Placements, v.Stats.Refreshes, revealed(v)))
	return b.String()
}

// extraResources returns script-defined resources beyond the built-in three, sorted.
func extraResources(res map[resource.ItemID]int) []resource.ItemID {
	var out []resource.ItemID
	for item := range res {
		switch item {
		case resource.Steps, resource.Keys, resource.Gems:
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func revealed(v engine.View) int {
	n := 0
	for _, r := range v.Rooms {
		if r.Revealed {
			n++
		}
	}
	return n
}

// RenderDraft formats the three draft options with the selection highlighted.
//
// Precondition: d must be non-nil.
func RenderDraft(d *engine.Draft, reg *effect.Registry, keys int) string {
	var b strings.Builder
	b.WriteString(telnet.Colorf(telnet.BrightWhite, "Drafting a room %s of you at %s:", d.Direction, d.Position))
	b.WriteString("\r\n")
	for i, opt := range d.Options {
		marker := "  "
		color := telnet.White
		if i == d.Selected {
			marker = "> "
			color = telnet.BrightYellow
		}
		desc := string(opt.Events.Enter)
		if reg != nil {
			if e, ok := reg.Lookup(opt.Events.Enter); ok && e.Description != "" {
				desc = e.Description
			}
		}
		b.WriteString(telnet.Colorf(color, "%s%d. %s", marker, i+1, desc))
		if opt.NeedsKey {
			keyColor := telnet.Yellow
			if keys < 1 {
				keyColor = telnet.Red
			}
			b.WriteString(" " + telnet.Colorize(keyColor, "[needs key]"))
		}
		if len(opt.Items) > 0 {
			items := make([]string, len(opt.Items))
			for j, it := range opt.Items {
				items[j] = string(it)
			}
			b.WriteString(" " + telnet.Colorf(telnet.Green, "{%s}", strings.Join(items, ", ")))
		}
		b.WriteString(telnet.Colorf(telnet.Dim, "  exits: %s", optionExits(opt)))
		b.WriteString("\r\n")
	}
	b.WriteString(telnet.Colorize(telnet.Dim, "next/prev to choose, take to place, refresh to redraw."))
	return b.String()
}

func optionExits(r world.Room) string {
	var dirs []string
	for _, d := range world.Directions {
		if r.Hallways[d].Enabled {
			dirs = append(dirs, directionAbbrev[d])
		}
	}
	return strings.Join(dirs, " ")
}

// RenderShop lists the offers of an open shop.
func RenderShop(offers []engine.Offer) string {
	if len(offers) == 0 {
		return telnet.Colorize(telnet.Dim, "There is no shop here.")
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightMagenta, "The shop sells:"))
	for _, o := range offers {
		b.WriteString("\r\n")
		b.WriteString(telnet.Colorf(telnet.White, "  %d %s for %d gems", o.Amount, o.Item, o.Price))
		b.WriteString(telnet.Colorf(telnet.Dim, "  (buy %s)", o.Item))
	}
	return b.String()
}

// RenderRuns formats recent runs from the history, newest first.
func RenderRuns(runs []postgres.Run) string {
	if len(runs) == 0 {
		return telnet.Colorize(telnet.Dim, "No runs recorded yet.")
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Recent runs:"))
	for _, r := range runs {
		color := telnet.Dim
		if r.Outcome == postgres.OutcomeEscaped {
			color = telnet.Green
		}
		b.WriteString("\r\n")
		b.WriteString(telnet.Colorf(color, "  %-9s seed %-20d steps %3d  moves %3d  rooms %3d  %s",
			r.Outcome, r.Seed, r.StepsLeft, r.Moves, r.RoomsRevealed, r.FinishedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// RenderHelp lists commands by category in registration order. Debug commands are
// listed only when debug is true.
func RenderHelp(registry *command.Registry, debug bool) string {
	categories := []struct {
		name  string
		label string
	}{
		{command.CategoryMovement, "Movement"},
		{command.CategoryDraft, "Draft"},
		{command.CategoryWorld, "World"},
		{command.CategorySystem, "System"},
		{command.CategoryDebug, "Debug"},
	}

	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Available commands:"))
	byCategory := registry.CommandsByCategory()
	for _, cat := range categories {
		if cat.name == command.CategoryDebug && !debug {
			continue
		}
		cmds := byCategory[cat.name]
		if len(cmds) == 0 {
			continue
		}
		b.WriteString("\r\n")
		b.WriteString(telnet.Colorf(telnet.BrightYellow, "  %s:", cat.label))
		for _, cmd := range cmds {
			name := cmd.Name
			if cmd.Usage != "" {
				name = cmd.Usage
			}
			aliases := ""
			if len(cmd.Aliases) > 0 {
				aliases = " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			b.WriteString("\r\n")
			b.WriteString(telnet.Colorf(telnet.Green, "    %-22s", name) + cmd.Help + aliases)
		}
	}
	return b.String()
}

// RenderMessage formats the game's latest effect message. Empty messages render empty.
func RenderMessage(msg string) string {
	if msg == "" {
		return ""
	}
	return telnet.Colorize(telnet.BrightWhite, msg)
}

// RenderError formats a rejection as red text.
func RenderError(msg string) string {
	return telnet.Colorize(telnet.Red, msg)
}

// RenderView draws the full screen for v: map, legend, hallways, draft panel when
// drafting, message, and status.
func RenderView(v engine.View, reg *effect.Registry) string {
	var b strings.Builder
	m := RenderMap(v, reg)
	b.WriteString(m)
	b.WriteString("\r\n")
	b.WriteString(RenderRule(m))
	b.WriteString("\r\n")
	b.WriteString(RenderLegend())
	b.WriteString("\r\n")
	if v.Draft != nil {
		b.WriteString(RenderDraft(v.Draft, reg, v.Resources[resource.Keys]))
	} else {
		b.WriteString(RenderHallways(v))
	}
	if v.ShopOpen {
		b.WriteString("\r\n")
		b.WriteString(RenderShop(v.Offers))
	}
	if msg := RenderMessage(v.Message); msg != "" {
		b.WriteString("\r\n")
		b.WriteString(msg)
	}
	b.WriteString("\r\n")
	b.WriteString(RenderStatus(v))
	return b.String()
}
