package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hexdraft/internal/game/resource"
	"github.com/cory-johannsen/hexdraft/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level zapcore.Level) bool {
	for _, e := range logs.All() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function greet()
			return "hello"
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	assert.True(t, mgr.Loaded())
	assert.True(t, hasLevel(logs, zap.InfoLevel))

	msg, err := mgr.CallHook("greet", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "hello", msg)
}

func TestManager_CallHook_NonStringReturnIsEmpty(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function number() return 42 end
		function nothing() end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	for _, hook := range []string{"number", "nothing"} {
		msg, err := mgr.CallHook(hook, resource.NewLedger())
		require.NoError(t, err)
		assert.Equal(t, "", msg)
	}
}

func TestManager_CallHook_NotLoaded(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.False(t, mgr.Loaded())
	_, err := mgr.CallHook("anything", resource.NewLedger())
	assert.ErrorIs(t, err, scripting.ErrNotLoaded)
}

func TestManager_CallHook_MissingHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "empty.lua", `not_a_function = 3`)
	require.NoError(t, mgr.Load(dir, 0))
	for _, hook := range []string{"nonexistent_hook", "not_a_function"} {
		_, err := mgr.CallHook(hook, resource.NewLedger())
		assert.ErrorContains(t, err, hook)
	}
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	msg, err := mgr.CallHook("bad_hook", resource.NewLedger())
	assert.Error(t, err)
	assert.Equal(t, "", msg)
	assert.True(t, hasLevel(logs, zap.WarnLevel), "expected Warn log for Lua runtime error")
}

func TestManager_CallHook_BudgetResetsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function spin()
			while true do end
		end
		function count()
			local n = 0
			for i = 1, 100 do n = n + i end
			return tostring(n)
		end
	`)
	require.NoError(t, mgr.Load(dir, 5000))

	_, err := mgr.CallHook("spin", resource.NewLedger())
	assert.Error(t, err, "runaway hook must be stopped")

	// The exhausted budget does not leak into later calls.
	for i := 0; i < 3; i++ {
		msg, err := mgr.CallHook("count", resource.NewLedger())
		require.NoError(t, err)
		assert.Equal(t, "5050", msg)
	}
}

func TestManager_Load_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(t.TempDir(), 0))
	_, err := mgr.CallHook("anything", resource.NewLedger())
	assert.Error(t, err)
}

func TestManager_Load_MissingDir_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.Load(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
	assert.False(t, mgr.Loaded())
}

func TestManager_Load_InvalidLua_KeepsPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	good := writeTempLua(t, "good.lua", `function ok() return "ok" end`)
	require.NoError(t, mgr.Load(good, 0))

	bad := writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)
	assert.Error(t, mgr.Load(bad, 0))

	msg, err := mgr.CallHook("ok", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
}

func TestManager_Load_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = "ten"`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, mgr.Load(dir, 0))
	msg, err := mgr.CallHook("get_val", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "ten", msg)
}

func TestManager_ConcurrentCallsUseTheirOwnLedger(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function bump()
			hex.add("gems", 1)
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))

	const goroutines = 10
	const callsEach = 5
	ledgers := make([]*resource.Ledger, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		ledgers[i] = resource.NewLedger()
		go func(l *resource.Ledger) {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				_, err := mgr.CallHook("bump", l)
				assert.NoError(t, err)
			}
		}(ledgers[i])
	}
	wg.Wait()
	for _, l := range ledgers {
		assert.Equal(t, callsEach, l.Get(resource.Gems))
	}
}

func TestProperty_CallHookUndefinedNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(t.TempDir(), 0))
	rapid.Check(t, func(rt *rapid.T) {
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		count := rapid.IntRange(1, 20).Draw(rt, "count")
		for i := 0; i < count; i++ {
			mgr.CallHook(hook, resource.NewLedger()) //nolint:errcheck
		}
	})
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(nil)
	})
}

func TestManager_Close_ReleasesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "init.lua", `function get_x() return "x" end`)
	require.NoError(t, mgr.Load(dir, 0))
	mgr.Close()
	_, err := mgr.CallHook("get_x", resource.NewLedger())
	assert.ErrorIs(t, err, scripting.ErrNotLoaded)
	mgr.Close()
}

func TestManager_CallHook_ErrorDiscardsLedgerWrites(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function greedy()
			hex.add("gems", 7)
			hex.remove("steps", 30)
			error("boom")
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))

	l := resource.NewLedger()
	l.Set(resource.Steps, 39)
	_, err := mgr.CallHook("greedy", l)
	require.Error(t, err)
	assert.Equal(t, 0, l.Get(resource.Gems))
	assert.Equal(t, 39, l.Get(resource.Steps))
}

func TestManager_CallHook_ExhaustedBudgetDiscardsLedgerWrites(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function spend_then_spin()
			hex.set("keys", 9)
			while true do end
		end
	`)
	require.NoError(t, mgr.Load(dir, 1000))

	l := resource.NewLedger()
	l.Set(resource.Keys, 1)
	_, err := mgr.CallHook("spend_then_spin", l)
	require.Error(t, err)
	assert.Equal(t, 1, l.Get(resource.Keys))
}

const counterScript = `
	visits = 0
	function visit()
		visits = visits + 1
		hex.add("gems", visits)
		return tostring(visits)
	end
`

func TestManager_Fork_HasIndependentGlobals(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "counter.lua", counterScript), 0))

	a, err := mgr.Fork()
	require.NoError(t, err)
	t.Cleanup(a.Close)
	b, err := mgr.Fork()
	require.NoError(t, err)
	t.Cleanup(b.Close)

	for i := 0; i < 3; i++ {
		_, err := a.CallHook("visit", resource.NewLedger())
		require.NoError(t, err)
	}
	msg, err := b.CallHook("visit", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "1", msg, "a fork starts from freshly loaded globals")

	msg, err = mgr.CallHook("visit", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "1", msg, "forks never write to the parent VM")
}

func TestManager_Fork_NotLoaded(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Fork()
	assert.ErrorIs(t, err, scripting.ErrNotLoaded)
}

func TestManager_Reset_DiscardsGlobals(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "counter.lua", counterScript), 0))

	l := resource.NewLedger()
	for i := 0; i < 2; i++ {
		_, err := mgr.CallHook("visit", l)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.Get(resource.Gems))

	require.NoError(t, mgr.Reset())
	msg, err := mgr.CallHook("visit", resource.NewLedger())
	require.NoError(t, err)
	assert.Equal(t, "1", msg)

	mgr.Close()
	assert.ErrorIs(t, mgr.Reset(), scripting.ErrNotLoaded)
}
