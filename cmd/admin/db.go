package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/lootfall.sqlite)")
	worldID := fs.String("world", "", "world filter")
	attacker := fs.String("attacker", "", "attacker filter (payouts)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "deaths"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "lootfall.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	var rows []any
	switch q {
	case "deaths":
		rows, err = queryDeaths(db, strings.TrimSpace(*worldID), *limit)
	case "payouts":
		rows, err = queryPayouts(db, strings.TrimSpace(*worldID), strings.TrimSpace(*attacker), *limit)
	case "catalogs":
		rows, err = queryCatalogs(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type deathRow struct {
	World       string     `json:"world"`
	ResourceID  int64      `json:"resource_id"`
	DiedAt      string     `json:"died_at"`
	Type        string     `json:"type"`
	Currency    string     `json:"currency"`
	Value       int        `json:"value"`
	MaxHP       int        `json:"max_hp"`
	TotalDamage int        `json:"total_damage"`
	Pos         [3]float64 `json:"pos"`
}

func queryDeaths(db *sql.DB, worldID string, limit int) ([]any, error) {
	rs, err := db.Query(`SELECT world,resource_id,died_at,type,currency,value,max_hp,total_damage,x,y,z
		FROM deaths WHERE (?='' OR world=?) ORDER BY died_at DESC LIMIT ?`, worldID, worldID, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []any
	for rs.Next() {
		var r deathRow
		if err := rs.Scan(&r.World, &r.ResourceID, &r.DiedAt, &r.Type, &r.Currency, &r.Value, &r.MaxHP, &r.TotalDamage, &r.Pos[0], &r.Pos[1], &r.Pos[2]); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

type payoutRow struct {
	World        string `json:"world"`
	ResourceID   int64  `json:"resource_id"`
	DiedAt       string `json:"died_at"`
	Attacker     string `json:"attacker"`
	Currency     string `json:"currency"`
	Contribution int    `json:"contribution"`
	Amount       int    `json:"amount"`
	Top          bool   `json:"top"`
}

func queryPayouts(db *sql.DB, worldID, attacker string, limit int) ([]any, error) {
	rs, err := db.Query(`SELECT world,resource_id,died_at,attacker,currency,contribution,amount,top
		FROM payouts WHERE (?='' OR world=?) AND (?='' OR attacker=?) ORDER BY died_at DESC, attacker LIMIT ?`,
		worldID, worldID, attacker, attacker, limit)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []any
	for rs.Next() {
		var r payoutRow
		var top int
		if err := rs.Scan(&r.World, &r.ResourceID, &r.DiedAt, &r.Attacker, &r.Currency, &r.Contribution, &r.Amount, &top); err != nil {
			return nil, err
		}
		r.Top = top != 0
		out = append(out, r)
	}
	return out, rs.Err()
}

func queryCatalogs(db *sql.DB) ([]any, error) {
	rs, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var out []any
	for rs.Next() {
		var r struct {
			Name      string `json:"name"`
			Digest    string `json:"digest"`
			UpdatedAt string `json:"updated_at"`
		}
		if err := rs.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
