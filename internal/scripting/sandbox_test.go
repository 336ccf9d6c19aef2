package scripting_test

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hexdraft/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()
	err := L.DoString(`
		local x = math.floor(7 / 2)
		assert(x == 3, "math.floor failed")
		local s = string.format("+%d steps", 4)
		assert(s == "+4 steps", "string.format failed")
		local t = {}
		table.insert(t, "gems")
		assert(#t == 1, "table.insert failed")
	`)
	assert.NoError(t, err)
}

func TestNewSandboxedState_InstructionLimitExceeded(t *testing.T) {
	L := scripting.NewSandboxedState(10)
	require.NotNil(t, L)
	defer L.Close()
	err := L.DoString(`while true do end`)
	assert.Error(t, err, "expected instruction limit error")
}

func TestNewSandboxedState_DefaultLimit_NormalScriptRuns(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer L.Close()
	assert.NoError(t, L.DoString(`local x = 1 + 1`))
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState(limit)
		defer L.Close()
		err := L.DoString(`while true do end`)
		if err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}

func TestNewSandboxedState_HexModuleNotPreloaded(t *testing.T) {
	L := scripting.NewSandboxedState(0)
	defer L.Close()
	assert.Equal(t, lua.LNil, L.GetGlobal("hex"), "hex is registered by the Manager, not the sandbox")
}

func TestNewSandboxedState_LimitAppliesToTopLevelChunk(t *testing.T) {
	L := scripting.NewSandboxedState(1000)
	defer L.Close()
	err := L.DoString(`
		visits = 0
		for i = 1, 1e9 do visits = visits + 1 end
	`)
	assert.Error(t, err, "a runaway script file is stopped at load")
}
