package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// ErrNotLoaded is returned by CallHook before Load succeeds or after Close.
var ErrNotLoaded = errors.New("scripting: no scripts loaded")

// chunk is one compiled script file.
type chunk struct {
	path  string
	proto *lua.FunctionProto
}

// Manager owns one sandboxed LState holding every effect hook.
//
// Scripts are compiled once by Load. Fork hands each game its own VM built from the
// same compiled chunks, and Reset rebuilds a VM so script globals never outlive a game.
//
// Manager is safe for concurrent CallHook; calls are serialized because the
// LState is single-threaded and the hex module is bound to one ledger per call.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	chunks    []chunk
	instLimit int
	logger    *zap.Logger

	// ledger is the target of hex.* calls for the duration of one CallHook.
	ledger *resource.Ledger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{logger: logger}
}

// Load compiles every *.lua file in scriptDir, then executes them in lexicographic
// order in a fresh sandboxed VM with the hex module registered. A previously loaded
// VM is replaced only when loading succeeds.
//
// Precondition: scriptDir must be a readable directory; instLimit >= 0.
// Postcondition: Returns error on read, compile, or Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	chunks := make([]chunk, 0, len(luaFiles))
	for _, path := range luaFiles {
		proto, err := compileFile(path)
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk{path: path, proto: proto})
	}

	L, err := m.newState(chunks, instLimit)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.chunks = chunks
	m.instLimit = instLimit
	m.mu.Unlock()

	m.logger.Info("effect scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

func compileFile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: opening %q: %w", path, err)
	}
	defer f.Close()

	stmts, err := parse.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("scripting: parsing %q: %w", path, err)
	}
	proto, err := lua.Compile(stmts, path)
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling %q: %w", path, err)
	}
	return proto, nil
}

// newState builds a sandboxed VM bound to m and runs every chunk in order.
func (m *Manager) newState(chunks []chunk, instLimit int) (*lua.LState, error) {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, c := range chunks {
		L.Push(L.NewFunctionFromProto(c.proto))
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			L.Close()
			return nil, fmt.Errorf("scripting: loading %q: %w", c.path, err)
		}
	}
	L.SetTop(0)
	return L, nil
}

// Fork returns a new Manager with its own VM built from m's compiled scripts. Script
// globals in the fork are independent of m and of every other fork.
//
// Postcondition: Returns ErrNotLoaded if m has no scripts loaded.
func (m *Manager) Fork() (*Manager, error) {
	m.mu.Lock()
	if m.L == nil {
		m.mu.Unlock()
		return nil, ErrNotLoaded
	}
	chunks, instLimit := m.chunks, m.instLimit
	m.mu.Unlock()

	f := &Manager{chunks: chunks, instLimit: instLimit, logger: m.logger}
	L, err := f.newState(chunks, instLimit)
	if err != nil {
		return nil, err
	}
	f.L = L
	return f, nil
}

// Reset replaces the VM with a fresh one built from the compiled scripts, discarding
// every global a hook has written.
//
// Postcondition: Returns ErrNotLoaded if no scripts are loaded.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return ErrNotLoaded
	}
	L, err := m.newState(m.chunks, m.instLimit)
	if err != nil {
		return err
	}
	m.L.Close()
	m.L = L
	return nil
}

// Loaded reports whether a VM is available.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.L != nil
}

// CallHook calls the named Lua global function with hex.* bound to a staged copy of
// ledger. The staged counts are written back only when the hook returns normally, so
// a failing hook leaves ledger unchanged. A string return value is passed back as the
// message; any other value yields "". Lua runtime errors, including an exhausted
// instruction budget, are logged at Warn level and returned as errors; they never panic.
//
// Precondition: ledger must be non-nil.
func (m *Manager) CallHook(hook string, ledger *resource.Ledger) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		return "", ErrNotLoaded
	}
	fn := m.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return "", fmt.Errorf("scripting: hook %q is not defined", hook)
	}

	staged := ledger.Clone()
	m.ledger = staged
	defer func() { m.ledger = nil }()
	cancel := resetBudget(m.L, m.instLimit)
	defer cancel()

	if err := m.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return "", fmt.Errorf("scripting: hook %q: %w", hook, err)
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	ledger.Replace(staged)
	if s, ok := ret.(lua.LString); ok {
		return string(s), nil
	}
	return "", nil
}

// Close releases the VM. CallHook returns ErrNotLoaded afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}
