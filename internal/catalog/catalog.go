package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	appErr "monopolyx-service/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Tile groups. Anything outside the service groups below is a purchasable
// street, station or utility.
const (
	GroupSpecial     = "Special"
	GroupChance      = "Chance"
	GroupTax         = "Tax"
	GroupJail        = "Jail"
	GroupGoToJail    = "GoToJail"
	GroupFreeParking = "FreeParking"
	GroupStation     = "Station"
	GroupUtility     = "Utility"
)

// TileDef is the immutable definition of one board tile. For streets the
// rent table has six entries (base, 1..4 houses, hotel); stations carry a
// four-entry table keyed by stations owned; tax tiles keep the amount due
// in rent[0].
type TileDef struct {
	Name  string  `yaml:"name"`
	Group string  `yaml:"group"`
	Price int64   `yaml:"price"`
	Rent  []int64 `yaml:"rent"`
}

// Purchasable reports whether the tile can be owned by a player.
func (d TileDef) Purchasable() bool {
	switch d.Group {
	case GroupSpecial, GroupChance, GroupTax, GroupJail, GroupGoToJail, GroupFreeParking:
		return false
	}
	return true
}

// Street reports whether the tile is a colored street that can hold houses.
func (d TileDef) Street() bool {
	return d.Purchasable() && d.Group != GroupStation && d.Group != GroupUtility
}

// MapDef is one complete 40-tile board layout.
type MapDef struct {
	ID      string    `yaml:"id"`
	GoBonus int64     `yaml:"goBonus"`
	Tiles   []TileDef `yaml:"tiles"`

	JailIndex     int `yaml:"-"`
	GoToJailIndex int `yaml:"-"`
}

// AbilityDef is one character special ability.
type AbilityDef struct {
	Character   string `yaml:"character"`
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Cooldown    int    `yaml:"cooldown"`
	Description string `yaml:"description"`
}

// Ability kinds.
const (
	AbilityDestroy  = "destroy"
	AbilityBuyout   = "buyout"
	AbilityAid      = "aid"
	AbilityIsolate  = "isolate"
	AbilitySanction = "sanction"
	AbilityBonus    = "bonus"
)

// Tile is the mutable per-session state of a board tile.
type Tile struct {
	Index int
	TileDef

	OwnerID        string
	Houses         int
	Mortgaged      bool
	Destroyed      bool
	IsolationTurns int
	Monopoly       bool
}

// Catalog holds the static map and ability definitions loaded at startup.
type Catalog struct {
	maps        map[string]*MapDef
	mapIDs      []string
	abilities   map[string]AbilityDef
	abilityList []AbilityDef
}

type mapsFile struct {
	Maps []MapDef `yaml:"maps"`
}

type abilitiesFile struct {
	Abilities []AbilityDef `yaml:"abilities"`
}

// Load reads maps.yaml and abilities.yaml from dir and validates them.
func Load(dir string) (*Catalog, error) {
	var mf mapsFile
	if err := readYAML(filepath.Join(dir, "maps.yaml"), &mf); err != nil {
		return nil, err
	}
	var af abilitiesFile
	if err := readYAML(filepath.Join(dir, "abilities.yaml"), &af); err != nil {
		return nil, err
	}

	c := &Catalog{
		maps:      make(map[string]*MapDef, len(mf.Maps)),
		abilities: make(map[string]AbilityDef, len(af.Abilities)),
	}
	for i := range mf.Maps {
		m := &mf.Maps[i]
		if err := validateMap(m); err != nil {
			return nil, err
		}
		c.maps[m.ID] = m
		c.mapIDs = append(c.mapIDs, m.ID)
	}
	for _, a := range af.Abilities {
		if a.Character == "" || a.Name == "" || a.Cooldown <= 0 {
			return nil, fmt.Errorf("ability %q: incomplete definition", a.Name)
		}
		c.abilities[a.Character] = a
		c.abilityList = append(c.abilityList, a)
	}
	return c, nil
}

func readYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func validateMap(m *MapDef) error {
	if len(m.Tiles) != 40 {
		return fmt.Errorf("map %q: expected 40 tiles, got %d", m.ID, len(m.Tiles))
	}
	if m.GoBonus <= 0 {
		return fmt.Errorf("map %q: goBonus must be positive", m.ID)
	}
	m.JailIndex, m.GoToJailIndex = -1, -1
	for i, t := range m.Tiles {
		switch t.Group {
		case GroupJail:
			m.JailIndex = i
		case GroupGoToJail:
			m.GoToJailIndex = i
		}
		if t.Purchasable() && t.Price <= 0 {
			return fmt.Errorf("map %q: tile %d (%s) has no price", m.ID, i, t.Name)
		}
		if t.Street() && len(t.Rent) != 6 {
			return fmt.Errorf("map %q: tile %d (%s) needs a 6-entry rent table", m.ID, i, t.Name)
		}
		if t.Group == GroupStation && len(t.Rent) != 4 {
			return fmt.Errorf("map %q: tile %d (%s) needs a 4-entry rent table", m.ID, i, t.Name)
		}
		if t.Group == GroupTax && len(t.Rent) != 1 {
			return fmt.Errorf("map %q: tile %d (%s) needs the tax amount in rent[0]", m.ID, i, t.Name)
		}
	}
	if m.JailIndex < 0 || m.GoToJailIndex < 0 {
		return fmt.Errorf("map %q: missing jail tiles", m.ID)
	}
	return nil
}

// Map returns the definition for the given map ID.
func (c *Catalog) Map(id string) (*MapDef, error) {
	m, ok := c.maps[id]
	if !ok {
		return nil, appErr.ErrUnknownMap
	}
	return m, nil
}

// MapIDs returns the available map IDs in file order.
func (c *Catalog) MapIDs() []string {
	return append([]string(nil), c.mapIDs...)
}

// NewBoard instantiates a fresh mutable board for the given map.
func (c *Catalog) NewBoard(mapID string) ([]*Tile, *MapDef, error) {
	m, err := c.Map(mapID)
	if err != nil {
		return nil, nil, err
	}
	board := make([]*Tile, len(m.Tiles))
	for i, def := range m.Tiles {
		board[i] = &Tile{Index: i, TileDef: def}
	}
	return board, m, nil
}

// Ability returns the ability for a character, if the character exists.
func (c *Catalog) Ability(character string) (AbilityDef, bool) {
	a, ok := c.abilities[character]
	return a, ok
}

// Abilities returns all ability definitions in file order.
func (c *Catalog) Abilities() []AbilityDef {
	return append([]AbilityDef(nil), c.abilityList...)
}

// Characters returns the playable character names in file order.
func (c *Catalog) Characters() []string {
	out := make([]string, 0, len(c.abilityList))
	for _, a := range c.abilityList {
		out = append(out, a.Character)
	}
	return out
}
