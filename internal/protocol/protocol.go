package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// client -> server
	TypeHello      = "HELLO"
	TypeInputKey   = "INPUT_KEY"
	TypeInputMouse = "INPUT_MOUSE"
	TypePaneEdit   = "PANE_EDIT"
	TypeToolSelect = "TOOL_SELECT"
	TypeUndo       = "UNDO"

	// server -> client
	TypeWelcome   = "WELCOME"
	TypeCursor    = "CURSOR"
	TypeSelection = "SELECTION"
	TypeTool      = "TOOL"
	TypePane      = "PANE"
	TypeTxn       = "TXN"
	TypeError     = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
