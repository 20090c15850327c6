package observerproto

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeEvent     = "EVENT"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to
// change the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Empty means every world.
	Worlds []string `json:"worlds,omitempty"`
	// Event kinds to receive (SPAWNED, ENGAGED, HP, DEAD, REMOVED, COUNTERS). Empty means all.
	Kinds []string `json:"kinds,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	DefaultWorldID  string       `json:"default_world_id"`
	Worlds          []WorldState `json:"worlds"`
}

type WorldState struct {
	ID        string          `json:"id"`
	Current   int             `json:"current"`
	Max       int             `json:"max"`
	Resources []ResourceState `json:"resources"`
}

type ResourceState struct {
	ID       int64      `json:"id"`
	Type     string     `json:"type"`
	World    string     `json:"world"`
	HP       int        `json:"hp"`
	MaxHP    int        `json:"max_hp"`
	Value    int        `json:"value"`
	Currency string     `json:"currency"`
	State    string     `json:"state"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Version  uint64     `json:"version"`
}

type Counters struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

type Payout struct {
	Attacker     string `json:"attacker"`
	Contribution int    `json:"contribution"`
	Amount       int    `json:"amount"`
	Top          bool   `json:"top,omitempty"`
}

// Server -> Client. One message per resource event.
type EventMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Kind            string         `json:"kind"`
	World           string         `json:"world"`
	AtUnixMs        int64          `json:"at_unix_ms"`
	Resource        *ResourceState `json:"resource,omitempty"`
	Counters        *Counters      `json:"counters,omitempty"`
	Payouts         []Payout       `json:"payouts,omitempty"`
}
