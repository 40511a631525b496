package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const AirID = "minecraft:air"

var ErrUnknownItem = errors.New("unknown item type")

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID    string `json:"id"`
	Solid bool   `json:"solid"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "TOOL","WEAPON","BLOCK","MATERIAL","FOOD"
	MaxStack int    `json:"max_stack,omitempty"`
}

// StringID is the localization key of the item name, e.g. item.diamond_sword.name.
func (d ItemDef) StringID() string {
	return "item." + LocalName(d.ID) + ".name"
}

// LocalName strips the namespace from a namespaced id.
func LocalName(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs[AirID]; !ok {
		return fmt.Errorf("blocks.json: missing %s", AirID)
	}

	// Air is palette id 0 so zeroed chunks read as empty.
	ids := sortedKeys(out.Defs, AirID)
	out.Palette = append([]string{AirID}, ids...)
	out.Index = indexOf(out.Palette)
	palJSON, _ := json.Marshal(out.Palette)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.MaxStack <= 0 {
			d.MaxStack = 64
		}
		out.Defs[d.ID] = d
	}
	if len(out.Defs) == 0 {
		return fmt.Errorf("items.json: no items")
	}
	out.Palette = sortedKeys(out.Defs, "")
	out.Index = indexOf(out.Palette)
	palJSON, _ := json.Marshal(out.Palette)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// GetAll returns every item definition in palette order.
func (c *ItemCatalog) GetAll() []ItemDef {
	out := make([]ItemDef, 0, len(c.Palette))
	for _, id := range c.Palette {
		out = append(out, c.Defs[id])
	}
	return out
}

func (c *ItemCatalog) Get(id string) (ItemDef, error) {
	d, ok := c.Defs[id]
	if !ok {
		return ItemDef{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return d, nil
}

func (c *ItemCatalog) Has(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

func sortedKeys[T any](m map[string]T, skip string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		if id != skip {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func indexOf(palette []string) map[string]uint16 {
	idx := make(map[string]uint16, len(palette))
	for i, id := range palette {
		idx[id] = uint16(i)
	}
	return idx
}
