package battle

// ItemID is a stable index into the battlefield item arena.
type ItemID int

// NoItem is the zero reference for "no item".
const NoItem ItemID = -1

// Item is one item instance. It is carried by exactly one unit, rests on
// exactly one tile, is loaded into a weapon, or has been destroyed.
type Item struct {
	id   ItemID
	rule *ItemRule

	owner UnitID
	tile  Position
	ammo  ItemID
	// loadedIn is the weapon this item is loaded into, if it is ammo.
	loadedIn ItemID

	ammoLeft  int
	fuse      int
	primed    bool
	destroyed bool
	// previousOwner is credited with kills from a thrown or dropped grenade.
	previousOwner UnitID
}

func newItem(id ItemID, rule *ItemRule) *Item {
	return &Item{
		id:            id,
		rule:          rule,
		owner:         NoUnit,
		tile:          InvalidPosition,
		ammo:          NoItem,
		loadedIn:      NoItem,
		ammoLeft:      rule.ClipSize,
		fuse:          -1,
		previousOwner: NoUnit,
	}
}

func (it *Item) ID() ItemID            { return it.id }
func (it *Item) Rule() *ItemRule       { return it.rule }
func (it *Item) Owner() UnitID         { return it.owner }
func (it *Item) Tile() Position        { return it.tile }
func (it *Item) AmmoLeft() int         { return it.ammoLeft }
func (it *Item) Fuse() int             { return it.fuse }
func (it *Item) IsPrimed() bool        { return it.primed }
func (it *Item) IsDestroyed() bool     { return it.destroyed }
func (it *Item) PreviousOwner() UnitID { return it.previousOwner }

// Prime arms a grenade; it explodes once the fuse reaches zero at an end of turn.
func (it *Item) Prime(fuse int) {
	it.primed = true
	it.fuse = fuse
}

// Glow returns the light power the item gives off.
func (it *Item) Glow() int {
	return it.rule.Glow
}

// HasAmmo reports whether the weapon can fire.
func (it *Item) HasAmmo() bool {
	if it.rule.BattleType != ItemFirearm {
		return it.rule.BattleType == ItemMelee || it.rule.BattleType == ItemGrenade || it.rule.BattleType == ItemProximityGrenade
	}
	if it.rule.ClipSize <= 0 {
		return true
	}
	return it.ammoLeft > 0
}

func (it *Item) spendAmmo() bool {
	if it.rule.ClipSize <= 0 {
		return true
	}
	if it.ammoLeft <= 0 {
		return false
	}
	it.ammoLeft--
	return true
}
