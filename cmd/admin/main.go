package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "lootfall.ai/internal/persistence/log"
	"lootfall.ai/internal/sim/world"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "state":
		stateCmd(os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	case "deaths":
		deathsCmd(os.Args[2:])
	case "despawn":
		despawnCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  admin state [-url http://127.0.0.1:8080]")
	fmt.Fprintln(os.Stderr, "  admin despawn -world MEADOW -id 123 [-url http://127.0.0.1:8080]")
	fmt.Fprintln(os.Stderr, "  admin db [deaths|payouts|catalogs] [-data ./data] [-world MEADOW] [-attacker A1] [-limit 20]")
	fmt.Fprintln(os.Stderr, "  admin deaths [-data ./data] [-world MEADOW] [-type crystal_small] [-file path]")
}

func deathsCmd(args []string) {
	fs := flag.NewFlagSet("deaths", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "single deaths-*.jsonl.zst file (optional; defaults to all)")
	worldID := fs.String("world", "", "world id filter")
	typ := fs.String("type", "", "resource type filter")
	summary := fs.Bool("summary", false, "print per-attacker totals instead of records")
	_ = fs.Parse(args)

	files, err := deathFiles(*dataDir, *file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no death logs found")
		os.Exit(2)
	}

	var recs []world.DeathRecord
	for _, p := range files {
		rs, err := persistlog.ReadDeaths(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		recs = append(recs, filterDeaths(rs, *worldID, *typ)...)
	}

	enc := json.NewEncoder(os.Stdout)
	if *summary {
		for _, row := range summarizeDeaths(recs) {
			_ = enc.Encode(row)
		}
		return
	}
	for _, r := range recs {
		_ = enc.Encode(r)
	}
}

func deathFiles(dataDir, file string) ([]string, error) {
	if f := strings.TrimSpace(file); f != "" {
		return []string{f}, nil
	}
	files, err := filepath.Glob(filepath.Join(dataDir, "deaths", "deaths-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	// Hour-stamped names sort chronologically.
	sort.Strings(files)
	return files, nil
}

func filterDeaths(recs []world.DeathRecord, worldID, typ string) []world.DeathRecord {
	worldID = strings.TrimSpace(worldID)
	typ = strings.TrimSpace(typ)
	out := recs[:0]
	for _, r := range recs {
		if worldID != "" && r.World != worldID {
			continue
		}
		if typ != "" && r.Type != typ {
			continue
		}
		out = append(out, r)
	}
	return out
}

type attackerSummary struct {
	Attacker     string `json:"attacker"`
	Currency     string `json:"currency"`
	Kills        int    `json:"kills"`
	TopKills     int    `json:"top_kills"`
	Contribution int    `json:"contribution"`
	Earned       int    `json:"earned"`
}

func summarizeDeaths(recs []world.DeathRecord) []attackerSummary {
	type key struct{ attacker, currency string }
	agg := map[key]*attackerSummary{}
	for _, r := range recs {
		for _, p := range r.Payouts {
			k := key{string(p.Attacker), r.Currency}
			s := agg[k]
			if s == nil {
				s = &attackerSummary{Attacker: k.attacker, Currency: k.currency}
				agg[k] = s
			}
			s.Kills++
			if p.Top {
				s.TopKills++
			}
			s.Contribution += p.Contribution
			s.Earned += p.Amount
		}
	}
	out := make([]attackerSummary, 0, len(agg))
	for _, s := range agg {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Earned != out[j].Earned {
			return out[i].Earned > out[j].Earned
		}
		if out[i].Attacker != out[j].Attacker {
			return out[i].Attacker < out[j].Attacker
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
