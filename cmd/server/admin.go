package main

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"lootfall.ai/internal/persistence/indexdb"
	"lootfall.ai/internal/sim/economy"
	"lootfall.ai/internal/sim/multiworld"
	"lootfall.ai/internal/sim/world"
)

type adminHandlers struct {
	mgr     *multiworld.Manager
	wallets *economy.Wallets
	idx     *indexdb.SQLiteIndex
	started time.Time
}

type processStats struct {
	PID        int32   `json:"pid"`
	UptimeSec  int64   `json:"uptime_sec"`
	Goroutines int     `json:"goroutines"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	NumFDs     int32   `json:"num_fds,omitempty"`
}

type stateResponse struct {
	DefaultWorldID string                            `json:"default_world_id"`
	Worlds         []world.Counters                  `json:"worlds"`
	Totals         map[string]multiworld.WorldTotals `json:"totals"`
	Payouts        map[string]int64                  `json:"payouts_by_reason"`
	Index          *indexdb.Stats                    `json:"index,omitempty"`
	Process        processStats                      `json:"process"`
}

func (h *adminHandlers) state(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	resp := stateResponse{
		DefaultWorldID: h.mgr.DefaultWorldID(),
		Worlds:         h.mgr.Counters(),
		Totals:         h.mgr.Totals(),
		Payouts:        h.wallets.ByReason(),
		Process:        h.processStats(),
	}
	if h.idx != nil {
		st := h.idx.Stats()
		resp.Index = &st
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

func (h *adminHandlers) processStats() processStats {
	st := processStats{
		PID:        int32(os.Getpid()),
		UptimeSec:  int64(time.Since(h.started).Seconds()),
		Goroutines: runtime.NumGoroutine(),
	}
	p, err := process.NewProcess(st.PID)
	if err != nil {
		return st
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	if fds, err := p.NumFDs(); err == nil {
		st.NumFDs = fds
	}
	return st
}

func (h *adminHandlers) walletsHoldings(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(h.wallets.Holdings())
}

// despawn removes one live resource without death effects: POST ?world=ID&id=N.
func (h *adminHandlers) despawn(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	w, err := h.mgr.World(r.URL.Query().Get("world"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(rw, "bad id", http.StatusBadRequest)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": w.Despawn(id), "world": w.ID(), "id": id})
}
