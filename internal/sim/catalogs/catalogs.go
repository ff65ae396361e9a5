package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
}

type BlockDef struct {
	ID          string `json:"id"`
	Solid       bool   `json:"solid"`
	Replaceable bool   `json:"replaceable"`
	Liquid      bool   `json:"liquid"`
	Source      bool   `json:"source"`
}

type blocksFile struct {
	Blocks []BlockDef `json:"blocks"`
}

// Load reads blocks.json from the config directory. Palette order follows
// file order, so ids are stable for a given config.
func Load(dir string) (*Catalogs, error) {
	path := filepath.Join(dir, "blocks.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf blocksFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	if len(bf.Blocks) == 0 {
		return nil, fmt.Errorf("blocks.json: no block definitions")
	}

	c := &Catalogs{
		Blocks: BlockCatalog{
			Index: make(map[string]uint16, len(bf.Blocks)),
			Defs:  make(map[string]BlockDef, len(bf.Blocks)),
		},
	}
	for i, def := range bf.Blocks {
		if def.ID == "" {
			return nil, fmt.Errorf("blocks.json: block %d has empty id", i)
		}
		if _, dup := c.Blocks.Index[def.ID]; dup {
			return nil, fmt.Errorf("blocks.json: duplicate block id %q", def.ID)
		}
		c.Blocks.Palette = append(c.Blocks.Palette, def.ID)
		c.Blocks.Index[def.ID] = uint16(i)
		c.Blocks.Defs[def.ID] = def
	}
	sum := sha256.Sum256(raw)
	c.Blocks.PaletteDigest = hex.EncodeToString(sum[:])
	return c, nil
}

func (c *Catalogs) ID(name string) (uint16, bool) {
	if c == nil {
		return 0, false
	}
	id, ok := c.Blocks.Index[name]
	return id, ok
}

func (c *Catalogs) Name(id uint16) string {
	if c == nil || int(id) >= len(c.Blocks.Palette) {
		return ""
	}
	return c.Blocks.Palette[id]
}

// IsSolid defaults to true for unknown ids: treating garbage as solid keeps
// liquid from flowing into it.
func (c *Catalogs) IsSolid(id uint16) bool {
	name := c.Name(id)
	if name == "" {
		return true
	}
	return c.Blocks.Defs[name].Solid
}

func (c *Catalogs) IsReplaceable(id uint16) bool {
	name := c.Name(id)
	if name == "" {
		return false
	}
	return c.Blocks.Defs[name].Replaceable
}

func (c *Catalogs) IsLiquid(id uint16) bool {
	name := c.Name(id)
	if name == "" {
		return false
	}
	return c.Blocks.Defs[name].Liquid
}
