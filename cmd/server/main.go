package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lootfall.ai/internal/persistence/indexdb"
	persistlog "lootfall.ai/internal/persistence/log"
	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/economy"
	"lootfall.ai/internal/sim/multiworld"
	"lootfall.ai/internal/sim/tuning"
	"lootfall.ai/internal/sim/world"
	"lootfall.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "base seed; each world adds its seed_offset")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "./configs/worlds.yaml", "multi-world config path (empty or missing: built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite death/payout index")

		bots     = flag.Int("bots", 0, "number of in-process bot attackers")
		botPower = flag.Float64("bot_power", 3, "damage per bot tick")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	// A broken catalog keeps the server up in a non-spawning mode.
	cats := catalogs.LoadOrEmpty(*configDir, logger)
	logger.Printf("catalogs: %d resource types digest=%s", len(cats.Resources.Types), shortDigest(cats.Resources.Digest))

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	wp := strings.TrimSpace(*worldsPath)
	if wp != "" {
		if _, err := os.Stat(wp); err != nil {
			logger.Printf("worlds config not found (%s); using built-in worlds", wp)
			wp = ""
		}
	}
	mcfg, err := multiworld.Load(wp)
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}

	var sinks []world.DeathSink
	deathLog := persistlog.NewDeathLogger(*dataDir)
	defer deathLog.Close()
	sinks = append(sinks, deathLog)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "lootfall.sqlite"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index db upsert catalogs: %v", err)
		}
		sinks = append(sinks, idx)
	}

	wallets := economy.NewWallets()
	bus := world.NewBus()
	mgr, err := multiworld.NewManager(mcfg, tune, cats, multiworld.ManagerOptions{
		Seed:       *seed,
		Logger:     logger,
		Bus:        bus,
		Currency:   wallets,
		DeathSinks: sinks,
		StateFile:  filepath.Join(*dataDir, "state", "lifetime.json"),
	})
	if err != nil {
		logger.Fatalf("worlds: %v", err)
	}
	defer mgr.Close()

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := mgr.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("worlds stopped: %v", err)
		}
	}()

	if *bots > 0 {
		fleet := newBotFleet(mgr, *bots, *botPower, tune.DamageTick(), *seed, log.New(os.Stdout, "[bots] ", log.LstdFlags))
		go fleet.Run(ctx)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, mgr, idx)
	})

	enableAdminHTTP := envBool("LF_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("LF_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		admin := &adminHandlers{mgr: mgr, wallets: wallets, idx: idx, started: time.Now()}
		mux.HandleFunc("/admin/v1/state", admin.state)
		mux.HandleFunc("/admin/v1/wallets", admin.walletsHoldings)
		mux.HandleFunc("/admin/v1/despawn", admin.despawn)

		obsSrv := observer.NewServer(mgr, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (LF_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (LF_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s worlds=%s", *addr, strings.Join(mgr.WorldIDs(), ","))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeMetrics(rw http.ResponseWriter, mgr *multiworld.Manager, idx *indexdb.SQLiteIndex) {
	fmt.Fprintf(rw, "# HELP lootfall_world_resources Live breakable resources.\n")
	fmt.Fprintf(rw, "# TYPE lootfall_world_resources gauge\n")
	for _, c := range mgr.Counters() {
		fmt.Fprintf(rw, "lootfall_world_resources{world=%q} %d\n", c.World, c.Current)
	}
	fmt.Fprintf(rw, "# HELP lootfall_world_resources_max Configured resource cap.\n")
	fmt.Fprintf(rw, "# TYPE lootfall_world_resources_max gauge\n")
	for _, c := range mgr.Counters() {
		fmt.Fprintf(rw, "lootfall_world_resources_max{world=%q} %d\n", c.World, c.Max)
	}
	totals := mgr.Totals()
	fmt.Fprintf(rw, "# HELP lootfall_world_deaths_total Resources destroyed.\n")
	fmt.Fprintf(rw, "# TYPE lootfall_world_deaths_total counter\n")
	for _, id := range mgr.WorldIDs() {
		fmt.Fprintf(rw, "lootfall_world_deaths_total{world=%q} %d\n", id, totals[id].Deaths)
	}
	fmt.Fprintf(rw, "# HELP lootfall_observer_subscribers Connected event subscribers.\n")
	fmt.Fprintf(rw, "# TYPE lootfall_observer_subscribers gauge\n")
	fmt.Fprintf(rw, "lootfall_observer_subscribers %d\n", mgr.Bus().Subscribers())
	if idx != nil {
		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP lootfall_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE lootfall_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "lootfall_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP lootfall_index_dropped_total Death rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE lootfall_index_dropped_total counter\n")
		fmt.Fprintf(rw, "lootfall_index_dropped_total %d\n", st.DropDeathTotal)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
