package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"lootfall.ai/internal/observerproto"
)

func main() {
	var (
		url      = flag.String("url", "ws://127.0.0.1:8080/admin/v1/observer/ws", "observer ws url")
		worlds   = flag.String("worlds", "", "comma-separated world ids (empty = all)")
		kinds    = flag.String("kinds", "", "comma-separated event kinds (empty = all)")
		validate = flag.Bool("validate", false, "check every event against the observer schema")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		Worlds:          splitList(*worlds),
		Kinds:           splitList(*kinds),
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if *validate {
			if err := observerproto.ValidateEvent(msg); err != nil {
				logger.Printf("invalid event: %v", err)
				continue
			}
		}
		var ev observerproto.EventMsg
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		handleEvent(logger, &ev)
	}
}

func handleEvent(logger *log.Logger, ev *observerproto.EventMsg) {
	switch {
	case ev.Counters != nil:
		logger.Printf("%s %s %d/%d", ev.World, ev.Kind, ev.Counters.Current, ev.Counters.Max)
	case ev.Resource != nil:
		r := ev.Resource
		logger.Printf("%s %s id=%d type=%s hp=%d/%d state=%s", ev.World, ev.Kind, r.ID, r.Type, r.HP, r.MaxHP, r.State)
		for _, p := range ev.Payouts {
			top := ""
			if p.Top {
				top = " top"
			}
			logger.Printf("  payout %s +%d %s (dmg=%d)%s", p.Attacker, p.Amount, r.Currency, p.Contribution, top)
		}
	default:
		logger.Printf("%s %s", ev.World, ev.Kind)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
