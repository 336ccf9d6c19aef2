package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// RegisterModules registers the hex Lua table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: hex global is defined in L with get, add, remove, set, and log.
func (m *Manager) RegisterModules(L *lua.LState) {
	hex := L.NewTable()
	L.SetFuncs(hex, map[string]lua.LGFunction{
		"get":    m.luaGet,
		"add":    m.luaAdd,
		"remove": m.luaRemove,
		"set":    m.luaSet,
		"log":    m.luaLog,
	})
	L.SetGlobal("hex", hex)
}

// boundLedger raises a Lua error when hex.* is used outside a hook call.
func (m *Manager) boundLedger(L *lua.LState) *resource.Ledger {
	if m.ledger == nil {
		L.RaiseError("hex: no game bound outside a hook call")
	}
	return m.ledger
}

// checkAmount returns argument n as a non-negative integer.
func checkAmount(L *lua.LState, n int) int {
	v := L.CheckInt(n)
	if v < 0 {
		L.ArgError(n, "amount must be >= 0")
	}
	return v
}

// luaGet implements hex.get(item) -> count.
func (m *Manager) luaGet(L *lua.LState) int {
	item := resource.ItemID(L.CheckString(1))
	L.Push(lua.LNumber(m.boundLedger(L).Get(item)))
	return 1
}

// luaAdd implements hex.add(item, n).
func (m *Manager) luaAdd(L *lua.LState) int {
	item := resource.ItemID(L.CheckString(1))
	n := checkAmount(L, 2)
	m.boundLedger(L).Add(item, n)
	return 0
}

// luaRemove implements hex.remove(item, n), clamped at 0.
func (m *Manager) luaRemove(L *lua.LState) int {
	item := resource.ItemID(L.CheckString(1))
	n := checkAmount(L, 2)
	m.boundLedger(L).Remove(item, n)
	return 0
}

// luaSet implements hex.set(item, n).
func (m *Manager) luaSet(L *lua.LState) int {
	item := resource.ItemID(L.CheckString(1))
	n := checkAmount(L, 2)
	m.boundLedger(L).Set(item, n)
	return 0
}

// luaLog implements hex.log(msg) at Info level.
func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}
