package catalog_test

import (
	"testing"

	"monopolyx-service/internal/catalog"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("../../catalogs")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestLoadMaps(t *testing.T) {
	c := loadCatalog(t)

	ids := c.MapIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 maps, got %v", ids)
	}
	for _, id := range []string{"World", "Ukraine", "Monopoly1"} {
		m, err := c.Map(id)
		if err != nil {
			t.Fatalf("map %s: %v", id, err)
		}
		if len(m.Tiles) != 40 {
			t.Errorf("map %s: %d tiles", id, len(m.Tiles))
		}
		if m.JailIndex != 10 || m.GoToJailIndex != 30 {
			t.Errorf("map %s: jail=%d goToJail=%d", id, m.JailIndex, m.GoToJailIndex)
		}
	}

	world, _ := c.Map("World")
	if world.GoBonus != 200 {
		t.Errorf("World goBonus = %d", world.GoBonus)
	}
	mono, _ := c.Map("Monopoly1")
	if mono.GoBonus != 2000 {
		t.Errorf("Monopoly1 goBonus = %d", mono.GoBonus)
	}
	if got := world.Tiles[39].Price; got != 400 {
		t.Errorf("last World tile price = %d", got)
	}
}

func TestMapUnknown(t *testing.T) {
	c := loadCatalog(t)
	if _, err := c.Map("Mars"); err == nil {
		t.Fatal("expected error for unknown map")
	}
}

func TestNewBoardIsFresh(t *testing.T) {
	c := loadCatalog(t)

	b1, _, err := c.NewBoard("World")
	if err != nil {
		t.Fatal(err)
	}
	b1[1].OwnerID = "p1"
	b1[1].Houses = 3

	b2, _, _ := c.NewBoard("World")
	if b2[1].OwnerID != "" || b2[1].Houses != 0 {
		t.Fatal("boards share mutable state")
	}
}

func TestTileClassification(t *testing.T) {
	c := loadCatalog(t)
	m, _ := c.Map("World")

	if m.Tiles[0].Purchasable() {
		t.Error("GO tile purchasable")
	}
	if !m.Tiles[1].Street() {
		t.Error("brown street not classified as street")
	}
	if m.Tiles[5].Street() {
		t.Error("station classified as street")
	}
	if !m.Tiles[5].Purchasable() || !m.Tiles[12].Purchasable() {
		t.Error("station/utility should be purchasable")
	}
}

func TestAbilities(t *testing.T) {
	c := loadCatalog(t)

	if len(c.Abilities()) != 6 {
		t.Fatalf("expected 6 abilities, got %d", len(c.Abilities()))
	}
	a, ok := c.Ability("Putin")
	if !ok {
		t.Fatal("missing Putin ability")
	}
	if a.Name != "ORESHNIK" || a.Kind != catalog.AbilityDestroy || a.Cooldown != 5 {
		t.Errorf("unexpected ability: %+v", a)
	}
	if _, ok := c.Ability("Napoleon"); ok {
		t.Error("unknown character should not resolve")
	}
}
