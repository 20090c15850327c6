package worldtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"lootfall.ai/internal/persistence/indexdb"
	persistlog "lootfall.ai/internal/persistence/log"
	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/economy"
	"lootfall.ai/internal/sim/multiworld"
	"lootfall.ai/internal/sim/tuning"
	"lootfall.ai/internal/sim/world"
)

const configDir = "../../../configs"

// Harness drives the shipped configs end to end through exported APIs only:
// a manager over every configured world, wallets as the currency sink, and both
// persistence sinks writing into a temp dir.
type Harness struct {
	T       *testing.T
	Cats    *catalogs.Catalogs
	Tune    tuning.Tuning
	Worlds  multiworld.Config
	Manager *multiworld.Manager
	Wallets *economy.Wallets
	Index   *indexdb.SQLiteIndex
	Deaths  *persistlog.DeathLogger
	DataDir string

	attackers []*world.Attacker
}

// LoadConfigs reads catalogs, tuning and worlds from configs/ and fails the test on error.
func LoadConfigs(t *testing.T) (*catalogs.Catalogs, tuning.Tuning, multiworld.Config) {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	worlds, err := multiworld.Load(filepath.Join(configDir, "worlds.yaml"))
	if err != nil {
		t.Fatalf("load worlds: %v", err)
	}
	return cats, tune, worlds
}

// FastTuning shrinks every timer so lifecycles finish in milliseconds. Spin is off so
// poses stay comparable between runs.
func FastTuning(tune tuning.Tuning) tuning.Tuning {
	tune.RespawnMinMs, tune.RespawnMaxMs = 5, 10
	tune.DeathLingerMs = 0
	tune.FillEveryMs = 3_600_000
	tune.SpinEveryMs = 0
	return tune
}

func NewHarness(t *testing.T, seed int64) *Harness {
	t.Helper()
	cats, tune, worlds := LoadConfigs(t)
	tune = FastTuning(tune)

	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "lootfall.sqlite"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	deaths := persistlog.NewDeathLogger(dir)
	wallets := economy.NewWallets()

	m, err := multiworld.NewManager(worlds, tune, cats, multiworld.ManagerOptions{
		Seed:       seed,
		Bus:        world.NewBus(),
		Currency:   wallets,
		DeathSinks: []world.DeathSink{deaths, idx},
		StateFile:  filepath.Join(dir, "state", "lifetime.json"),
	})
	if err != nil {
		_ = idx.Close()
		t.Fatalf("new manager: %v", err)
	}
	h := &Harness{
		T: t, Cats: cats, Tune: tune, Worlds: worlds,
		Manager: m, Wallets: wallets, Index: idx, Deaths: deaths, DataDir: dir,
	}
	t.Cleanup(h.Close)
	return h
}

// Close tears down attackers, then worlds, then the sinks the worlds write into.
func (h *Harness) Close() {
	for _, a := range h.attackers {
		a.Destroy()
	}
	h.attackers = nil
	h.Manager.Close()
	_ = h.Deaths.Close()
	_ = h.Index.Close()
}

// Fill runs one synchronous fill on every world and returns the spawn count.
func (h *Harness) Fill() int {
	n := 0
	for _, id := range h.Manager.WorldIDs() {
		w, err := h.Manager.World(id)
		if err != nil {
			h.T.Fatalf("world %s: %v", id, err)
		}
		n += w.Scheduler().FillWorld()
	}
	return n
}

func (h *Harness) World(id string) *world.World {
	h.T.Helper()
	w, err := h.Manager.World(id)
	if err != nil {
		h.T.Fatalf("world %s: %v", id, err)
	}
	return w
}

// Attackers creates n attackers A1..An routed through the manager.
func (h *Harness) Attackers(n int, power float64, period time.Duration) []*world.Attacker {
	out := make([]*world.Attacker, 0, n)
	for i := 1; i <= n; i++ {
		a := world.NewAttacker(world.AttackerID(fmt.Sprintf("A%d", i)), world.AttackerConfig{Power: power, Period: period}, h.Manager, nil)
		out = append(out, a)
	}
	h.attackers = append(h.attackers, out...)
	return out
}

// SyncIndex waits for queued index writes to land.
func (h *Harness) SyncIndex() {
	h.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Index.Sync(ctx); err != nil {
		h.T.Fatalf("index sync: %v", err)
	}
}

func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
