package protocol

type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	World           WorldParams `json:"world"`
}

type WorldParams struct {
	TickDurationMs int       `json:"tick_duration_ms"`
	Height         int       `json:"height"`
	BoundaryR      int       `json:"boundary_r"`
	Seed           int64     `json:"seed"`
	BlockPalette   DigestRef `json:"block_palette"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ActMsg carries external block mutations; they are applied on the sim
// timeline and flow through the engine's change notifier.
type ActMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Ops             []BlockOp `json:"ops"`
}

type BlockOp struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
	Meta  int    `json:"meta,omitempty"`
}

type StatsMsg struct {
	Type           string `json:"type"`
	Tick           uint64 `json:"tick"`
	QueueSize      int    `json:"queue_size"`
	Throttled      bool   `json:"throttled"`
	CurrentBudget  int    `json:"current_budget"`
	DroppedUpdates uint64 `json:"dropped_updates"`
	SettlingCells  int    `json:"settling_cells"`
}

type EventMsg struct {
	Type   string       `json:"type"`
	Tick   uint64       `json:"tick"`
	Events []BlockEvent `json:"events"`
}

type BlockEvent struct {
	Pos    [3]int `json:"pos"`
	From   uint16 `json:"from"`
	To     uint16 `json:"to"`
	Meta   int    `json:"meta,omitempty"`
	Reason string `json:"reason"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
