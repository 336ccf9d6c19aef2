// Package command provides the command registry, parser, and built-in command definitions.
package command

import "github.com/cory-johannsen/hexdraft/internal/game/world"

// Categories for organizing commands.
const (
	CategoryMovement = "movement"
	CategoryDraft    = "draft"
	CategoryWorld    = "world"
	CategorySystem   = "system"
	CategoryDebug    = "debug"
)

// Handler identifiers mapping commands to game operations.
const (
	HandlerMove    = "move"
	HandlerNext    = "next"
	HandlerPrev    = "prev"
	HandlerTake    = "take"
	HandlerRefresh = "refresh"
	HandlerMap     = "map"
	HandlerStatus  = "status"
	HandlerShop    = "shop"
	HandlerBuy     = "buy"
	HandlerScores  = "scores"
	HandlerNew     = "new"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
	HandlerCheat   = "cheat"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "buy <keys|steps>". Empty means no arguments.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command.
	Category string
	// Handler maps to the game operation.
	Handler string
}

// BuiltinCommands returns all built-in commands in help order.
func BuiltinCommands() []Command {
	return []Command{
		// Movement commands, clockwise from north
		{Name: "north", Aliases: []string{"n"}, Help: "Move north", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "north_east", Aliases: []string{"ne", "northeast"}, Help: "Move north-east", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south_east", Aliases: []string{"se", "southeast"}, Help: "Move south-east", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south", Aliases: []string{"s"}, Help: "Move south", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south_west", Aliases: []string{"sw", "southwest"}, Help: "Move south-west", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "north_west", Aliases: []string{"nw", "northwest"}, Help: "Move north-west", Category: CategoryMovement, Handler: HandlerMove},

		// Draft commands
		{Name: "next", Aliases: []string{">", "right"}, Help: "Select the next draft option", Category: CategoryDraft, Handler: HandlerNext},
		{Name: "prev", Aliases: []string{"<", "left"}, Help: "Select the previous draft option", Category: CategoryDraft, Handler: HandlerPrev},
		{Name: "take", Aliases: []string{"t", "commit", "place"}, Help: "Place the selected room and walk in", Category: CategoryDraft, Handler: HandlerTake},
		{Name: "refresh", Aliases: []string{"r", "reroll"}, Help: "Pay gems to redraw the options", Category: CategoryDraft, Handler: HandlerRefresh},

		// World commands
		{Name: "map", Aliases: []string{"m", "look", "l"}, Help: "Show the map", Category: CategoryWorld, Handler: HandlerMap},
		{Name: "status", Aliases: []string{"st", "inventory", "i"}, Help: "Show resources and run statistics", Category: CategoryWorld, Handler: HandlerStatus},
		{Name: "shop", Aliases: []string{"wares"}, Help: "List what the shop sells", Category: CategoryWorld, Handler: HandlerShop},
		{Name: "buy", Usage: "buy <keys|steps>", Help: "Buy from an open shop", Category: CategoryWorld, Handler: HandlerBuy},

		// System commands
		{Name: "scores", Aliases: []string{"history"}, Help: "Show recent runs", Category: CategorySystem, Handler: HandlerScores},
		{Name: "new", Aliases: []string{"newgame", "restart"}, Usage: "new [seed]", Help: "Start a new game", Category: CategorySystem, Handler: HandlerNew},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"q", "logout"}, Help: "Disconnect from the game", Category: CategorySystem, Handler: HandlerQuit},

		// Debug commands
		{Name: "cheat", Usage: "cheat <item> <amount>", Help: "Add resources (debug builds only)", Category: CategoryDebug, Handler: HandlerCheat},
	}
}

// Direction returns the movement direction of a move command.
//
// Postcondition: ok is false for commands that are not movement commands.
func Direction(cmd *Command) (world.Direction, bool) {
	if cmd == nil || cmd.Handler != HandlerMove {
		return 0, false
	}
	return world.ParseDirection(cmd.Name)
}

// IsMovementCommand reports whether the command name is a movement direction.
func IsMovementCommand(name string) bool {
	_, ok := world.ParseDirection(name)
	return ok
}
