package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/economy"
	"lootfall.ai/internal/sim/multiworld"
	"lootfall.ai/internal/sim/tuning"
	"lootfall.ai/internal/sim/world"
)

func newTestManager(t *testing.T, wallets *economy.Wallets) *multiworld.Manager {
	t.Helper()
	cats := catalogs.Empty()
	cats.Resources.ByType["geode"] = catalogs.ResourceDef{Type: "geode", Model: "geode.glb", MaxHP: 4, Value: 8, Currency: "shards"}
	cats.Resources.Types = []string{"geode"}
	tu := tuning.Defaults()
	tu.DeathLingerMs = 0
	tu.SpinEveryMs = 0
	cfg, _ := multiworld.Load("")
	m, err := multiworld.NewManager(cfg, tu, cats, multiworld.ManagerOptions{Seed: 9, Bus: world.NewBus(), Currency: wallets})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestAdminState(t *testing.T) {
	wallets := economy.NewWallets()
	m := newTestManager(t, wallets)
	meadow, _ := m.World("MEADOW")
	meadow.Scheduler().FillWorld()

	h := &adminHandlers{mgr: m, wallets: wallets, started: time.Now()}
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.state(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DefaultWorldID != "MEADOW" || len(resp.Worlds) != 2 {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Process.PID == 0 || resp.Process.Goroutines == 0 {
		t.Fatalf("process stats missing: %+v", resp.Process)
	}

	req.RemoteAddr = "192.168.1.4:1234"
	rec = httptest.NewRecorder()
	h.state(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d", rec.Code)
	}
}

func TestAdminDespawn(t *testing.T) {
	wallets := economy.NewWallets()
	m := newTestManager(t, wallets)
	cavern, _ := m.World("CAVERN")
	cavern.Scheduler().FillWorld()
	id := cavern.Live()[0].ID

	h := &adminHandlers{mgr: m, wallets: wallets, started: time.Now()}
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/despawn?world=CAVERN&id="+strconv.FormatInt(id, 10), nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.despawn(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["ok"] != true {
		t.Fatalf("despawn resp=%s", rec.Body.String())
	}
	if _, ok := cavern.Get(id); ok {
		t.Fatalf("resource still live")
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/despawn?world=NOPE&id=1", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec = httptest.NewRecorder()
	h.despawn(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown world status=%d", rec.Code)
	}
}

func TestBotFleetPaysOut(t *testing.T) {
	wallets := economy.NewWallets()
	m := newTestManager(t, wallets)
	for _, id := range m.WorldIDs() {
		w, _ := m.World(id)
		w.Scheduler().FillWorld()
	}
	f := newBotFleet(m, 3, 10, time.Millisecond, 1, log.New(io.Discard, "", 0))
	defer func() {
		for _, b := range f.bots {
			b.Destroy()
		}
	}()
	f.step()
	deadline := time.Now().Add(2 * time.Second)
	for len(wallets.Holdings()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no payouts from bots")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
