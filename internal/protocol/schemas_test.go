package protocol_test

import (
	"encoding/json"
	"testing"

	"voxeledit.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	samples := map[string]string{
		protocol.TypeHello:      `{"type":"HELLO","protocol_version":"1.0","player":"builder1"}`,
		protocol.TypeInputKey:   `{"type":"INPUT_KEY","protocol_version":"1.0","key":"I","modifiers":["CTRL"]}`,
		protocol.TypeInputMouse: `{"type":"INPUT_MOUSE","protocol_version":"1.0","button":"LEFT","input_type":"BUTTON_DOWN","origin":[0.5,70,0.5],"direction":[0,-1,0],"hit":[10,63,10],"face":[0,1,0]}`,
		protocol.TypePaneEdit:   `{"type":"PANE_EDIT","protocol_version":"1.0","pane_id":"PANE0001","field":"amount","value":12}`,
		protocol.TypeToolSelect: `{"type":"TOOL_SELECT","protocol_version":"1.0","tool_id":"editor:itemSpawner","active":true}`,
		protocol.TypeUndo:       `{"type":"UNDO","protocol_version":"1.0"}`,
	}
	for typ, raw := range samples {
		if err := protocol.Validate(typ, []byte(raw)); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	bad := map[string]string{
		protocol.TypeHello:      `{"type":"HELLO","protocol_version":"1.0"}`,
		protocol.TypeInputKey:   `{"type":"INPUT_KEY","protocol_version":"1.0","key":"I","modifiers":["HYPER"]}`,
		protocol.TypeInputMouse: `{"type":"INPUT_MOUSE","protocol_version":"1.0","button":"LEFT","input_type":"DRAG","hit":[1,2]}`,
		protocol.TypePaneEdit:   `{"type":"PANE_EDIT","protocol_version":"1.0","pane_id":"P","field":"amount","value":{"x":1}}`,
	}
	for typ, raw := range bad {
		if err := protocol.Validate(typ, []byte(raw)); err == nil {
			t.Fatalf("%s: expected validation error", typ)
		}
	}
}

func TestSchemas_WelcomeMatchesStruct(t *testing.T) {
	msg := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		Player:          "builder1",
		Tools:           []protocol.ToolRef{{ID: "editor:itemSpawner", DisplayString: "Item Spawner (CTRL + I)"}},
		Panes: []protocol.PaneRef{{ID: "PANE0001", Title: "Item Spawner", Width: 40, Fields: []protocol.PaneFieldRef{
			{Name: "itemType", Kind: "dropdown", Value: "minecraft:diamond_sword"},
		}}},
		KeyBindings: []string{"CTRL+I"},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: "deadbeef", Count: 5},
			ItemPalette:  protocol.DigestRef{Digest: "deadbeef", Count: 20},
		},
		World: protocol.WorldParams{Height: 320, BoundaryR: 4000, GroundLevel: 64},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := protocol.Validate(protocol.TypeWelcome, raw); err != nil {
		t.Fatalf("welcome: %v", err)
	}
}

func TestValidate_UnknownTypePasses(t *testing.T) {
	if protocol.HasSchema("NOPE") {
		t.Fatalf("unexpected schema")
	}
	if err := protocol.Validate("NOPE", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
