package battle

import (
	"math/rand"
	"sort"
)

// DamageType identifies the resistance class of a hit.
type DamageType int

const (
	DamageNone DamageType = iota
	DamageAP
	DamageIncendiary
	DamageHE
	DamageLaser
	DamagePlasma
	DamageStun
	DamageMelee
	DamageAcid
	DamageSmoke
	damageTypeCount
)

func (d DamageType) String() string {
	switch d {
	case DamageNone:
		return "none"
	case DamageAP:
		return "ap"
	case DamageIncendiary:
		return "incendiary"
	case DamageHE:
		return "he"
	case DamageLaser:
		return "laser"
	case DamagePlasma:
		return "plasma"
	case DamageStun:
		return "stun"
	case DamageMelee:
		return "melee"
	case DamageAcid:
		return "acid"
	case DamageSmoke:
		return "smoke"
	default:
		return "unknown"
	}
}

// DamageRandom selects the random distribution applied to a hit's power.
type DamageRandom int

const (
	RandomDefault DamageRandom = iota // 0–200% for direct hits, 50–150% for area hits
	RandomUFO                         // 0–200%
	RandomTFTD                        // 50–150%
	RandomFlat                        // exactly the power
	RandomFire                        // 5–10 regardless of power
	RandomNone                        // always 0
	RandomEasy                        // 50–100%
)

// DamageTypeRule describes how one damage type spreads and what it affects.
type DamageTypeRule struct {
	Type   DamageType
	Random DamageRandom

	// RadiusReduction is the power lost per tile crossed by an explosion.
	RadiusReduction int
	// FixRadius overrides the explosion radius derived from power (0 = derived).
	FixRadius int

	ToHealth float64
	ToStun   float64
	ToTile   float64
	ToArmor  float64
	ToWound  float64
	ToItem   float64

	ArmorEffectiveness float64

	// SmokeThreshold and FireThreshold are damage levels above which a hit
	// tile gains smoke or catches fire. Negative disables the effect.
	SmokeThreshold int
	FireThreshold  int

	IgnoreDirection bool
	// FireBlast makes explosions of this type spread fire over every affected tile.
	FireBlast bool
}

// RandomDamage rolls the effective damage of a hit with the given power.
func (d *DamageTypeRule) RandomDamage(power int, area bool, rng *rand.Rand) int {
	if power <= 0 {
		return 0
	}
	span := func(lo, hi int) int {
		a := power * lo / 100
		b := power * hi / 100
		if b <= a {
			return a
		}
		return a + rng.Intn(b-a+1)
	}
	switch d.Random {
	case RandomUFO:
		return span(0, 200)
	case RandomTFTD:
		return span(50, 150)
	case RandomFlat:
		return power
	case RandomFire:
		return 5 + rng.Intn(6)
	case RandomNone:
		return 0
	case RandomEasy:
		return span(50, 100)
	default:
		if area {
			return span(50, 150)
		}
		return span(0, 200)
	}
}

// TileDamage converts unit damage into terrain damage.
func (d *DamageTypeRule) TileDamage(damage int) int {
	return int(float64(damage) * d.ToTile)
}

// Radius returns the explosion radius for the given power; 0 means a direct hit.
func (d *DamageTypeRule) Radius(power int) int {
	if d.FixRadius > 0 {
		return d.FixRadius
	}
	rr := d.RadiusReduction
	if rr <= 0 {
		rr = 10
	}
	return power / rr
}

func newDamageTypeRule(dt DamageType) *DamageTypeRule {
	r := &DamageTypeRule{
		Type:               dt,
		RadiusReduction:    10,
		ToHealth:           1.0,
		ToTile:             1.0,
		ToArmor:            0.1,
		ToWound:            1.0,
		ToItem:             1.0,
		ArmorEffectiveness: 1.0,
		SmokeThreshold:     -1,
		FireThreshold:      -1,
	}
	switch dt {
	case DamageStun:
		r.ToHealth = 0
		r.ToStun = 1.0
		r.ToWound = 0
		r.ToTile = 0
	case DamageSmoke:
		r.ToHealth = 0
		r.ToStun = 0.25
		r.ToWound = 0
		r.ToTile = 0
		r.SmokeThreshold = 0
		r.Random = RandomFlat
	case DamageIncendiary:
		r.FireThreshold = 0
		r.FireBlast = true
		r.Random = RandomFire
		r.ToWound = 0
	case DamageHE:
		r.ToTile = 0.5
	case DamageMelee:
		r.ToTile = 0
		r.ToWound = 0.5
	}
	return r
}

// ItemBattleType classifies how an item is used in battle.
type ItemBattleType int

const (
	ItemNone ItemBattleType = iota
	ItemFirearm
	ItemAmmo
	ItemMelee
	ItemGrenade
	ItemProximityGrenade
	ItemMedikit
	ItemCorpse
	ItemFlare
)

// ActionCost is the multi-resource price of an action.
type ActionCost struct {
	TU     int
	Energy int
	Morale int
	Health int
	Stun   int
	Mana   int
}

// IsZero reports whether every component of the cost is zero.
func (c ActionCost) IsZero() bool { return c == ActionCost{} }

// ItemRule is the read-only template of an item.
type ItemRule struct {
	Name       string
	BattleType ItemBattleType

	Power  int
	Damage DamageType
	// ExplosionRadius: -1 derives the radius from power, 0 is a direct hit.
	ExplosionRadius int

	AccuracySnap  int
	AccuracyAimed int
	AccuracyAuto  int
	AccuracyMelee int
	AccuracyThrow int

	CostSnap  ActionCost
	CostAimed ActionCost
	CostAuto  ActionCost
	CostMelee ActionCost
	CostThrow ActionCost
	CostPrime ActionCost
	// FlatRate makes TU costs absolute instead of a percentage of base TU.
	FlatRate bool

	AutoShots int
	MaxRange  int
	AimRange  int
	SnapRange int
	AutoRange int
	// DropOff is accuracy lost per tile beyond the mode's range.
	DropOff int

	Arcing     bool
	ClipSize   int
	Ammo       []string
	TwoHanded  bool
	Weight     int
	Glow       int
	FuseTimer  int // default fuse when primed; -1 = no fuse
	Objective  bool
	CorpseOnly bool
}

// IsExplosive reports whether hits from this item resolve as an area effect.
func (r *ItemRule) IsExplosive() bool {
	return r.ExplosionRadius != 0 || r.BattleType == ItemGrenade || r.BattleType == ItemProximityGrenade
}

// HasMelee reports whether the item can be used for a melee attack.
func (r *ItemRule) HasMelee() bool {
	return r.BattleType == ItemMelee || !r.CostMelee.IsZero()
}

// ArmorRule describes an armor suit (and, for aliens, the body itself).
type ArmorRule struct {
	Name       string
	FrontArmor int
	SideArmor  int
	RearArmor  int
	UnderArmor int
	Size       int
	LoftRadius int

	PersonalLight int

	VisibilityAtDay  int
	VisibilityAtDark int
	CamouflageAtDay  int
	CamouflageAtDark int
	PsiVision        int
	PsiCamouflage    int
	// SmokeVision and FireVision are the percentage of smoke/fire density ignored.
	SmokeVision int
	FireVision  int

	DamageModifier [damageTypeCount]float64
	FearImmune     bool
}

// Modifier returns the damage multiplier the armor applies to a damage type.
func (a *ArmorRule) Modifier(dt DamageType) float64 {
	if dt < 0 || dt >= damageTypeCount {
		return 1
	}
	return a.DamageModifier[dt]
}

// Stats are the base attributes of a unit.
type Stats struct {
	TU          int
	Stamina     int
	Health      int
	Bravery     int
	Reactions   int
	Firing      int
	Throwing    int
	Strength    int
	PsiStrength int
	PsiSkill    int
	Melee       int
	Mana        int
}

// UnitRule is the read-only template of a unit.
type UnitRule struct {
	Name        string
	Stats       Stats
	Armor       string
	StandHeight int
	KneelHeight int
	FloatHeight int

	// DeathExplosionPower > 0 makes the unit explode when it dies.
	DeathExplosionPower int
	DeathExplosionType  DamageType
	// SpawnOnDeath names a unit rule spawned in place of the corpse.
	SpawnOnDeath string
	// Value is the morale weight of losing this unit.
	Value int
}

// Ruleset is the immutable rule table consulted during a battle.
type Ruleset struct {
	items   map[string]*ItemRule
	armors  map[string]*ArmorRule
	units   map[string]*UnitRule
	damages [damageTypeCount]*DamageTypeRule
}

// NewRuleset creates an empty ruleset with default damage type rules.
func NewRuleset() *Ruleset {
	rs := &Ruleset{
		items:  make(map[string]*ItemRule),
		armors: make(map[string]*ArmorRule),
		units:  make(map[string]*UnitRule),
	}
	for dt := DamageType(0); dt < damageTypeCount; dt++ {
		rs.damages[dt] = newDamageTypeRule(dt)
	}
	return rs
}

// AddItem registers an item rule.
func (rs *Ruleset) AddItem(r *ItemRule) { rs.items[r.Name] = r }

// AddArmor registers an armor rule, filling unset damage modifiers with 1.
func (rs *Ruleset) AddArmor(r *ArmorRule) {
	for i := range r.DamageModifier {
		if r.DamageModifier[i] == 0 {
			r.DamageModifier[i] = 1
		}
	}
	if r.Size == 0 {
		r.Size = 1
	}
	rs.armors[r.Name] = r
}

// AddUnit registers a unit rule.
func (rs *Ruleset) AddUnit(r *UnitRule) { rs.units[r.Name] = r }

// SetDamageType replaces the rule for one damage type.
func (rs *Ruleset) SetDamageType(r *DamageTypeRule) { rs.damages[r.Type] = r }

// Item looks up an item rule by name.
func (rs *Ruleset) Item(name string) *ItemRule { return rs.items[name] }

// Armor looks up an armor rule by name.
func (rs *Ruleset) Armor(name string) *ArmorRule { return rs.armors[name] }

// Unit looks up a unit rule by name.
func (rs *Ruleset) Unit(name string) *UnitRule { return rs.units[name] }

// DamageType returns the rule for a damage type.
func (rs *Ruleset) DamageType(dt DamageType) *DamageTypeRule {
	if dt < 0 || dt >= damageTypeCount {
		return rs.damages[DamageNone]
	}
	return rs.damages[dt]
}

// ItemNames returns the registered item names in sorted order.
func (rs *Ruleset) ItemNames() []string {
	names := make([]string, 0, len(rs.items))
	for n := range rs.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRuleset returns a small catalogue of weapons, armors and units.
func DefaultRuleset() *Ruleset {
	rs := NewRuleset()

	rs.AddItem(&ItemRule{
		Name: "rifle", BattleType: ItemFirearm, Power: 30, Damage: DamageAP,
		AccuracySnap: 60, AccuracyAimed: 110, AccuracyAuto: 35, AccuracyMelee: 0,
		CostSnap: ActionCost{TU: 25}, CostAimed: ActionCost{TU: 80}, CostAuto: ActionCost{TU: 35},
		AutoShots: 3, MaxRange: 60, AimRange: 200, SnapRange: 15, AutoRange: 7, DropOff: 2,
		ClipSize: 20, TwoHanded: true, Weight: 8, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "pistol", BattleType: ItemFirearm, Power: 26, Damage: DamageAP,
		AccuracySnap: 60, AccuracyAimed: 78,
		CostSnap: ActionCost{TU: 18}, CostAimed: ActionCost{TU: 30},
		MaxRange: 40, AimRange: 200, SnapRange: 15, DropOff: 2,
		ClipSize: 12, Weight: 5, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "plasma_pistol", BattleType: ItemFirearm, Power: 52, Damage: DamagePlasma,
		AccuracySnap: 65, AccuracyAimed: 85, AccuracyAuto: 50,
		CostSnap: ActionCost{TU: 30}, CostAimed: ActionCost{TU: 60}, CostAuto: ActionCost{TU: 30},
		AutoShots: 3, MaxRange: 50, AimRange: 200, SnapRange: 15, AutoRange: 7, DropOff: 2,
		Weight: 3, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "knife", BattleType: ItemMelee, Power: 30, Damage: DamageMelee,
		AccuracyMelee: 90, CostMelee: ActionCost{TU: 20, Energy: 5}, MaxRange: 1,
		Weight: 1, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "stun_rod", BattleType: ItemMelee, Power: 65, Damage: DamageStun,
		AccuracyMelee: 100, CostMelee: ActionCost{TU: 30, Energy: 10}, MaxRange: 1,
		Weight: 3, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "grenade", BattleType: ItemGrenade, Power: 50, Damage: DamageHE, ExplosionRadius: -1,
		AccuracyThrow: 100, CostThrow: ActionCost{TU: 25}, CostPrime: ActionCost{TU: 50},
		Arcing: true, Weight: 3, FuseTimer: 0,
	})
	rs.AddItem(&ItemRule{
		Name: "smoke_grenade", BattleType: ItemGrenade, Power: 60, Damage: DamageSmoke, ExplosionRadius: -1,
		AccuracyThrow: 100, CostThrow: ActionCost{TU: 25}, CostPrime: ActionCost{TU: 50},
		Arcing: true, Weight: 3, FuseTimer: 0,
	})
	rs.AddItem(&ItemRule{
		Name: "incendiary_rocket", BattleType: ItemFirearm, Power: 60, Damage: DamageIncendiary, ExplosionRadius: 3,
		AccuracySnap: 55, AccuracyAimed: 115,
		CostSnap: ActionCost{TU: 45}, CostAimed: ActionCost{TU: 75},
		MaxRange: 60, AimRange: 200, SnapRange: 15, DropOff: 1, TwoHanded: true, Weight: 10, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{
		Name: "flare", BattleType: ItemFlare, AccuracyThrow: 100, CostThrow: ActionCost{TU: 25},
		Arcing: true, Glow: 9, Weight: 1, FuseTimer: -1,
	})
	rs.AddItem(&ItemRule{Name: "corpse", BattleType: ItemCorpse, Weight: 20, FuseTimer: -1, CorpseOnly: true})

	rs.AddArmor(&ArmorRule{
		Name: "personal_armor", FrontArmor: 12, SideArmor: 8, RearArmor: 5, UnderArmor: 2,
		Size: 1, LoftRadius: 5, VisibilityAtDay: 20, VisibilityAtDark: 9,
	})
	rs.AddArmor(&ArmorRule{
		Name: "sectoid_body", FrontArmor: 4, SideArmor: 4, RearArmor: 4, UnderArmor: 4,
		Size: 1, LoftRadius: 4, VisibilityAtDay: 20, VisibilityAtDark: 20, PsiVision: 0,
	})
	rs.AddArmor(&ArmorRule{
		Name: "civilian_clothes", Size: 1, LoftRadius: 5, VisibilityAtDay: 20, VisibilityAtDark: 9,
	})
	rs.AddArmor(&ArmorRule{
		Name: "reaper_hide", FrontArmor: 20, SideArmor: 20, RearArmor: 15, UnderArmor: 10,
		Size: 2, LoftRadius: 7, VisibilityAtDay: 20, VisibilityAtDark: 20,
	})
	rs.AddArmor(&ArmorRule{
		Name: "chryssalid_carapace", FrontArmor: 20, SideArmor: 20, RearArmor: 20, UnderArmor: 20,
		Size: 1, LoftRadius: 5, VisibilityAtDay: 20, VisibilityAtDark: 20, FearImmune: true,
	})
	rs.AddArmor(&ArmorRule{
		Name: "cyberdisc_hull", FrontArmor: 34, SideArmor: 34, RearArmor: 34, UnderArmor: 34,
		Size: 2, LoftRadius: 7, VisibilityAtDay: 20, VisibilityAtDark: 20, FearImmune: true,
	})

	rs.AddUnit(&UnitRule{
		Name: "soldier", Armor: "personal_armor", StandHeight: 22, KneelHeight: 14, Value: 20,
		Stats: Stats{TU: 60, Stamina: 60, Health: 40, Bravery: 40, Reactions: 50, Firing: 60,
			Throwing: 60, Strength: 30, Melee: 40},
	})
	rs.AddUnit(&UnitRule{
		Name: "sectoid", Armor: "sectoid_body", StandHeight: 16, KneelHeight: 12, Value: 10,
		Stats: Stats{TU: 54, Stamina: 90, Health: 30, Bravery: 80, Reactions: 63, Firing: 52,
			Throwing: 58, Strength: 30, PsiStrength: 40, Melee: 76},
	})
	rs.AddUnit(&UnitRule{
		Name: "civilian", Armor: "civilian_clothes", StandHeight: 20, KneelHeight: 12, Value: 5,
		Stats: Stats{TU: 50, Stamina: 40, Health: 20, Bravery: 10, Reactions: 20, Firing: 10,
			Throwing: 20, Strength: 20, Melee: 20},
	})
	rs.AddUnit(&UnitRule{
		Name: "reaper", Armor: "reaper_hide", StandHeight: 18, KneelHeight: 18, Value: 15,
		Stats: Stats{TU: 100, Stamina: 100, Health: 110, Bravery: 110, Reactions: 70, Melee: 80, Strength: 80},
	})
	rs.AddUnit(&UnitRule{
		Name: "cyberdisc", Armor: "cyberdisc_hull", StandHeight: 16, FloatHeight: 4, Value: 20,
		Stats: Stats{TU: 66, Stamina: 120, Health: 120, Bravery: 110, Reactions: 60, Firing: 70},
		DeathExplosionPower: 90, DeathExplosionType: DamageHE,
	})
	rs.AddUnit(&UnitRule{
		Name: "zombie", Armor: "civilian_clothes", StandHeight: 20, KneelHeight: 20, Value: 5,
		Stats: Stats{TU: 45, Stamina: 100, Health: 80, Bravery: 110, Reactions: 40, Melee: 70, Strength: 40},
		SpawnOnDeath: "chryssalid",
	})
	rs.AddUnit(&UnitRule{
		Name: "chryssalid", Armor: "chryssalid_carapace", StandHeight: 20, KneelHeight: 20, Value: 15,
		Stats: Stats{TU: 110, Stamina: 110, Health: 96, Bravery: 110, Reactions: 70, Melee: 100, Strength: 110},
	})

	return rs
}
