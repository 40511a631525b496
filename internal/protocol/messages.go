package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Player          string `json:"player"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Player          string         `json:"player"`
	Tools           []ToolRef      `json:"tools"`
	Panes           []PaneRef      `json:"panes"`
	KeyBindings     []string       `json:"key_bindings"`
	Catalogs        CatalogDigests `json:"catalogs"`
	World           WorldParams    `json:"world"`
}

type ToolRef struct {
	ID            string `json:"id"`
	DisplayString string `json:"display_string"`
	Tooltip       string `json:"tooltip,omitempty"`
	Icon          string `json:"icon,omitempty"`
	PaneID        string `json:"pane_id,omitempty"`
}

type PaneRef struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Width  int            `json:"width"`
	Fields []PaneFieldRef `json:"fields"`
}

type PaneFieldRef struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Value      any            `json:"value"`
	Items      []DropdownItem `json:"items,omitempty"`
	Min        *float64       `json:"min,omitempty"`
	Max        *float64       `json:"max,omitempty"`
	ShowSlider bool           `json:"show_slider,omitempty"`
}

type DropdownItem struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	StringID string `json:"string_id,omitempty"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	ItemPalette  DigestRef `json:"item_palette"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

type WorldParams struct {
	Height      int `json:"height"`
	BoundaryR   int `json:"boundary_r"`
	GroundLevel int `json:"ground_level"`
}

// INPUT_KEY (client -> server)
type InputKeyMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Key             string   `json:"key"`
	Modifiers       []string `json:"modifiers,omitempty"`
}

// INPUT_MOUSE (client -> server). Hit is the block under the ray, absent when the
// ray hits nothing.
type InputMouseMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Button          string     `json:"button"`
	InputType       string     `json:"input_type"`
	Modifiers       []string   `json:"modifiers,omitempty"`
	Origin          [3]float64 `json:"origin"`
	Direction       [3]float64 `json:"direction"`
	Hit             *[3]int    `json:"hit,omitempty"`
	Face            [3]int     `json:"face"`
}

// PANE_EDIT (client -> server)
type PaneEditMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PaneID          string `json:"pane_id"`
	Field           string `json:"field"`
	Value           any    `json:"value"`
}

// TOOL_SELECT (client -> server)
type ToolSelectMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ToolID          string `json:"tool_id"`
	Active          bool   `json:"active"`
}

// UNDO (client -> server)
type UndoMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// CURSOR (server -> client)
type CursorMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Color           string  `json:"color"`
	ControlMode     string  `json:"control_mode"`
	TargetMode      string  `json:"target_mode"`
	Visible         bool    `json:"visible"`
	Pos             *[3]int `json:"pos,omitempty"`
}

// SELECTION (server -> client)
type SelectionMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SelectionID     string      `json:"selection_id"`
	Visible         bool        `json:"visible"`
	BorderColor     string      `json:"border_color"`
	FillColor       string      `json:"fill_color"`
	Volumes         [][2][3]int `json:"volumes"`
}

// TOOL (server -> client)
type ToolMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Selected        string `json:"selected"`
}

// PANE (server -> client)
type PaneMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PaneID          string `json:"pane_id"`
	Field           string `json:"field"`
	Value           any    `json:"value"`
}

// TXN (server -> client)
type TxnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	TxnID           string `json:"txn_id"`
	Name            string `json:"name"`
	State           string `json:"state"`
	Ops             int    `json:"ops"`
	Items           int    `json:"items"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
