package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelflow.ai/internal/persistence/indexdb"
	persistlog "voxelflow.ai/internal/persistence/log"
	"voxelflow.ai/internal/persistence/snapshot"
	"voxelflow.ai/internal/protocol"
	"voxelflow.ai/internal/sim/catalogs"
	"voxelflow.ai/internal/sim/liquid"
	"voxelflow.ai/internal/sim/tuning"
	"voxelflow.ai/internal/sim/world"
	"voxelflow.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		flat       = flag.Bool("flat", false, "generate flat terrain (no jitter, depressions or springs)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Optional: read-model index backend (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		defer idx.Close()
	}

	ids := resolveBlockIDs(cats, logger)

	store := world.NewChunkStore(world.WorldGen{
		Seed:           *seed,
		Height:         tune.World.Height,
		BoundaryR:      tune.World.BoundaryR,
		SurfaceY:       tune.World.SurfaceY,
		SpringPermille: tune.World.SpringPermille,
		Flat:           *flat,
		Air:            ids.air,
		Bedrock:        ids.bedrock,
		Stone:          ids.stone,
		Dirt:           ids.dirt,
		Grass:          ids.grass,
		Sand:           ids.sand,
		WaterSource:    ids.waterSource,
		WaterFlowing:   ids.waterFlowing,
	})

	// Resume from snapshot, or generate fresh terrain around the origin.
	var baseTick uint64
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(worldDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		store.ImportChunks(snap)
		baseTick = snap.Header.Tick
		logger.Printf("resumed from snapshot=%s tick=%d chunks=%d",
			filepath.Base(snapshotToLoad), baseTick, len(snap.Chunks))
	} else {
		r := tune.PreloadRadiusChunks
		for cx := -r; cx <= r; cx++ {
			for cz := -r; cz <= r; cz++ {
				store.LoadChunk(cx, cz)
			}
		}
		logger.Printf("generated fresh world seed=%d chunks=%d", *seed, len(store.LoadedChunkKeys()))
	}

	eng := liquid.New(store, cats, liquid.Config{
		Blocks: liquid.BlockIDs{
			Air:     ids.air,
			Source:  ids.waterSource,
			Flowing: ids.waterFlowing,
		},
		QueueCapacity:         tune.Liquid.QueueCapacity,
		MaxBudget:             tune.Liquid.MaxBudget,
		MinBudget:             tune.Liquid.MinBudget,
		MaxPerChunk:           tune.Liquid.MaxPerChunk,
		FullTicksToThrottle:   tune.Liquid.FullTicksToThrottle,
		LowWaterMark:          tune.Liquid.LowWaterMark,
		SettleTicks:           tune.Liquid.SettleTicks,
		MaxConversionsPerTick: tune.Liquid.MaxConversionsPerTick,
		PathSearchRange:       tune.Liquid.PathSearchRange,
		FallCap:               tune.Liquid.FallCap,
		DissipateAtFallCap:    tune.Liquid.DissipateAtFallCap,
		SplashMinDepth:        tune.Liquid.SplashMinDepth,
		CascadeSearchLimit:    tune.Liquid.CascadeSearchLimit,
	})
	store.SetChangeHook(eng.OnBlockChanged)

	// Boot scan: the queue is not persisted, so requeue every liquid cell and
	// let the engine settle any state the snapshot caught mid-flow.
	requeued := 0
	for _, id := range []uint16{ids.waterSource, ids.waterFlowing} {
		store.ForEachOfType(id, func(x, y, z int) {
			eng.Queue().Enqueue(x, y, z)
			requeued++
		})
	}
	logger.Printf("boot scan requeued %d liquid cells", requeued)

	tickDur := time.Duration(tune.TickDurationMs) * time.Millisecond
	sched := liquid.NewScheduler(eng, store, tickDur, logger)

	statsLog := persistlog.NewStatsLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer statsLog.Close()
	defer auditLog.Close()

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(sched, cats, protocol.WorldParams{
		TickDurationMs: tune.TickDurationMs,
		Height:         tune.World.Height,
		BoundaryR:      tune.World.BoundaryR,
		Seed:           *seed,
		BlockPalette: protocol.DigestRef{
			Digest: cats.Blocks.PaletteDigest,
			Count:  len(cats.Blocks.Palette),
		},
	}, logger)

	// Snapshot writer (off the sim goroutine; export already deep-copied).
	snapCh := make(chan snapshot.SnapshotV1, 2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshot.PathFor(worldDir, snap.Header.Tick)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(indexdb.SnapshotRow{
						Tick:   snap.Header.Tick,
						Path:   path,
						Chunks: len(snap.Chunks),
						Seed:   snap.Seed,
						Height: snap.Height,
					})
				}
				logger.Printf("snapshot written tick=%d chunks=%d", snap.Header.Tick, len(snap.Chunks))
			}
		}
	}()

	sched.SetTickHook(func(tick uint64, st liquid.Stats, events []liquid.WriteEvent) {
		worldTick := baseTick + tick

		entry := persistlog.StatsEntry{
			Tick:              worldTick,
			QueueSize:         st.QueueSize,
			Throttled:         st.Throttled,
			CurrentBudget:     st.CurrentBudget,
			DroppedUpdates:    st.DroppedUpdates,
			SettlingCells:     st.SettlingCells,
			BlocksPlaced:      st.BlocksPlaced,
			BlocksRemoved:     st.BlocksRemoved,
			SourceConversions: st.SourceConversions,
		}
		_ = statsLog.WriteStats(entry)
		if idx != nil {
			idx.RecordStats(entry)
		}

		wsSrv.Broadcast(protocol.StatsMsg{
			Type:           protocol.TypeStats,
			Tick:           worldTick,
			QueueSize:      st.QueueSize,
			Throttled:      st.Throttled,
			CurrentBudget:  st.CurrentBudget,
			DroppedUpdates: st.DroppedUpdates,
			SettlingCells:  st.SettlingCells,
		})

		if len(events) > 0 {
			evMsg := protocol.EventMsg{Type: protocol.TypeEvent, Tick: worldTick}
			for _, ev := range events {
				a := persistlog.BlockAuditEntry{
					Tick:   worldTick,
					Pos:    [3]int{ev.X, ev.Y, ev.Z},
					From:   ev.From,
					To:     ev.To,
					Meta:   ev.Meta,
					Reason: ev.Reason,
				}
				_ = auditLog.WriteAudit(a)
				if idx != nil {
					idx.RecordAudit(a)
				}
				evMsg.Events = append(evMsg.Events, protocol.BlockEvent{
					Pos:    a.Pos,
					From:   ev.From,
					To:     ev.To,
					Meta:   ev.Meta,
					Reason: ev.Reason,
				})
			}
			wsSrv.Broadcast(evMsg)
		}

		if tune.SnapshotEveryTicks > 0 && tick%uint64(tune.SnapshotEveryTicks) == 0 {
			select {
			case snapCh <- store.ExportSnapshot(*worldID, worldTick):
			default:
				logger.Printf("snapshot skipped at tick=%d: writer busy", worldTick)
			}
		}
	})

	go func() {
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("scheduler stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/stats", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string       `json:"world_id"`
			Tick    uint64       `json:"tick"`
			Clients int          `json:"clients"`
			Liquid  liquid.Stats `json:"liquid"`
		}{
			WorldID: *worldID,
			Tick:    baseTick + sched.CurrentTick(),
			Clients: wsSrv.ClientCount(),
			Liquid:  sched.Stats(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

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

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type blockIDSet struct {
	air, bedrock, stone, dirt, grass, sand uint16
	waterSource, waterFlowing              uint16
}

func resolveBlockIDs(cats *catalogs.Catalogs, logger *log.Logger) blockIDSet {
	must := func(name string) uint16 {
		id, ok := cats.ID(name)
		if !ok {
			logger.Fatalf("blocks.json missing required block %q", name)
		}
		return id
	}
	return blockIDSet{
		air:          must("AIR"),
		bedrock:      must("BEDROCK"),
		stone:        must("STONE"),
		dirt:         must("DIRT"),
		grass:        must("GRASS"),
		sand:         must("SAND"),
		waterSource:  must("WATER_SOURCE"),
		waterFlowing: must("WATER_FLOWING"),
	}
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
