package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/freeeve/blockmapper/internal/block"
	"github.com/freeeve/blockmapper/internal/blockpos"
	"github.com/freeeve/blockmapper/internal/config"
	"github.com/freeeve/blockmapper/internal/logx"
	"github.com/freeeve/blockmapper/internal/scan"
	"github.com/freeeve/blockmapper/internal/store"
	"github.com/freeeve/blockmapper/internal/world"
)

func main() {
	var (
		printExtent = flag.Bool("extent", false, "print the extent of the map and exit")
		dumpBlock   = flag.String("dumpblock", "", "decode the block at x,y,z and print its contents")
		top         = flag.Int("top", 10, "number of surface materials to list")
	)
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.World == "" {
		fmt.Fprintln(os.Stderr, "Usage: blockmapper -i <world dir> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := logx.NewLogger(logx.Options{
		Verbose:    cfg.Log.Verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	region := scan.Region{MinY: cfg.MinY, MaxY: cfg.MaxY}
	if cfg.Geometry != "" {
		g, err := scan.ParseGeometry(cfg.Geometry)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse geometry")
		}
		region.Geometry = &g
	}

	meta, err := world.Load(cfg.World)
	if err != nil {
		logger.Fatal().Err(err).Msg("read world metadata")
	}
	if cfg.Backend != "" {
		meta = meta.With(world.KeyBackend, cfg.Backend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	backend, err := store.Open(ctx, cfg.World, meta, store.Options{
		Log:   logger,
		Retry: store.RetryPolicy{Backoff: cfg.Retry.Backoff, MaxAttempts: cfg.Retry.MaxAttempts},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open block store")
	}
	defer backend.Close()
	logger.Info().
		Str("backend", meta.Backend()).
		Str("world", cfg.World).
		Dur("open", time.Since(start)).
		Msg("opened block store")

	dec, err := block.NewDecoder(logger.With().Str("component", "decoder").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("create decoder")
	}
	defer dec.Close()

	switch {
	case *printExtent:
		err = runExtent(backend, region)
	case *dumpBlock != "":
		err = runDumpBlock(backend, dec, *dumpBlock)
	default:
		err = runSurface(backend, dec, region, logger, *top)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed")
		backend.Close()
		os.Exit(1)
	}
	logStats(logger, backend.Stats(), time.Since(start))
}

func runExtent(b store.Backend, r scan.Region) error {
	e, ok, err := scan.FindExtent(b, r)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Map is empty")
		return nil
	}
	fmt.Printf("Map extent: %s (%s columns)\n", e.Geometry(), humanize.Comma(int64(e.Columns)))
	return nil
}

func runDumpBlock(b store.Backend, dec *block.Decoder, arg string) error {
	pos, err := blockpos.Parse(arg)
	if err != nil {
		return err
	}
	d, err := scan.DumpBlock(b, dec, pos)
	if err != nil {
		return err
	}
	fmt.Printf("Block %v: %s, version %d, content width %d\n",
		d.Pos, humanize.Bytes(uint64(d.Size)), d.Version, d.ContentWidth)
	fmt.Println("Name-id mapping:")
	for _, n := range d.Names {
		fmt.Printf("  %5d %s\n", n.ID, n.Name)
	}
	fmt.Println("Nodes:")
	for _, m := range d.Materials {
		fmt.Printf("  %5d %s\n", m.Nodes, m.Name)
	}
	if d.Unknown > 0 {
		fmt.Printf("  %5d with unknown content id\n", d.Unknown)
	}
	return nil
}

func runSurface(b store.Backend, dec *block.Decoder, r scan.Region, log zerolog.Logger, top int) error {
	v, err := scan.Surface(b, dec, r, log)
	if err != nil {
		return err
	}
	total := int64(v.Window.W) * int64(v.Window.H)
	fmt.Printf("Scanned %s: %s columns, %s blocks decoded, %s node columns of %s filled\n",
		v.Window, humanize.Comma(int64(v.Columns)), humanize.Comma(int64(v.BlocksDecoded)),
		humanize.Comma(int64(v.Filled)), humanize.Comma(total))
	if v.BlocksFailed > 0 {
		fmt.Printf("%s blocks could not be decoded\n", humanize.Comma(int64(v.BlocksFailed)))
	}

	type entry struct {
		name  string
		count int
	}
	var entries []entry
	for name, n := range v.Materials() {
		entries = append(entries, entry{name, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}
	for _, e := range entries {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(e.count) / float64(total)
		}
		fmt.Printf("  %12s  %5.1f%%  %s\n", humanize.Comma(int64(e.count)), pct, e.name)
	}
	return nil
}

func logStats(log zerolog.Logger, st store.Stats, elapsed time.Duration) {
	log.Info().
		Str("backend", st.Backend).
		Uint64("queries", st.Queries).
		Uint64("blocks", st.BlocksRead).
		Str("read", humanize.Bytes(st.BytesRead)).
		Uint64("busy_retries", st.BusyRetries).
		Uint64("cache_reloads", st.CacheReloads).
		Dur("elapsed", elapsed).
		Msg("done")
}
