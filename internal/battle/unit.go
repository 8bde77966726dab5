package battle

// Faction is the side a unit fights for.
type Faction int

const (
	FactionPlayer Faction = iota
	FactionHostile
	FactionNeutral
	factionCount
)

func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionHostile:
		return "hostile"
	case FactionNeutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// UnitID is a stable index into the battlefield unit arena.
type UnitID int

// NoUnit is the zero reference for "no unit".
const NoUnit UnitID = -1

// UnitStatus is the life-cycle status of a unit.
type UnitStatus int

const (
	StatusStanding UnitStatus = iota
	StatusWalking
	StatusFlying
	StatusTurning
	StatusAiming
	StatusCollapsing
	StatusDead
	StatusUnconscious
	StatusPanicking
	StatusBerserk
	StatusIgnoreMe
)

func (s UnitStatus) String() string {
	switch s {
	case StatusStanding:
		return "standing"
	case StatusWalking:
		return "walking"
	case StatusFlying:
		return "flying"
	case StatusTurning:
		return "turning"
	case StatusAiming:
		return "aiming"
	case StatusCollapsing:
		return "collapsing"
	case StatusDead:
		return "dead"
	case StatusUnconscious:
		return "unconscious"
	case StatusPanicking:
		return "panicking"
	case StatusBerserk:
		return "berserk"
	case StatusIgnoreMe:
		return "ignore_me"
	default:
		return "unknown"
	}
}

// ArmorSide selects which armor value absorbs a hit.
type ArmorSide int

const (
	SideFront ArmorSide = iota
	SideLeft
	SideRight
	SideRear
	SideUnder
)

// Unit is a combatant on the battlefield.
type Unit struct {
	id    UnitID
	rule  *UnitRule
	armor *ArmorRule

	pos       Position
	lastPos   Position
	dir       Direction
	turretDir Direction
	status    UnitStatus
	kneeled   bool
	floating  bool

	faction         Faction
	originalFaction Faction

	stats       Stats
	tu          int
	energy      int
	health      int
	stun        int
	morale      int
	mana        int
	fatalWounds int
	fireTurns   int

	visibleUnits []UnitID
	visibleTiles []Position
	// turnsSinceSpotted counts, per observing faction, turns since this unit was last seen.
	turnsSinceSpotted [factionCount]int

	ai AIModule

	lastAttacker    UnitID
	wantToEndTurn   bool
	dontReselect    bool
	hitByAnything   bool
	reactionExp     int
	kills           int
	murdererFaction Faction

	rightHand       ItemID
	leftHand        ItemID
	inventory       []ItemID
	preferredWeapon ItemID

	// pending death explosion owner chain
	deathExplosionCredit UnitID
}

func newUnit(id UnitID, rule *UnitRule, armor *ArmorRule, faction Faction, pos Position, dir Direction) *Unit {
	u := &Unit{
		id:                   id,
		rule:                 rule,
		armor:                armor,
		pos:                  pos,
		lastPos:              pos,
		dir:                  dir,
		turretDir:            dir,
		faction:              faction,
		originalFaction:      faction,
		stats:                rule.Stats,
		tu:                   rule.Stats.TU,
		energy:               rule.Stats.Stamina,
		health:               rule.Stats.Health,
		morale:               100,
		mana:                 rule.Stats.Mana,
		lastAttacker:         NoUnit,
		rightHand:            NoItem,
		leftHand:             NoItem,
		preferredWeapon:      NoItem,
		murdererFaction:      factionCount,
		deathExplosionCredit: NoUnit,
	}
	for i := range u.turnsSinceSpotted {
		u.turnsSinceSpotted[i] = NeverSpotted
	}
	return u
}

func (u *Unit) ID() UnitID               { return u.id }
func (u *Unit) Rule() *UnitRule          { return u.rule }
func (u *Unit) Armor() *ArmorRule        { return u.armor }
func (u *Unit) Pos() Position            { return u.pos }
func (u *Unit) Direction() Direction     { return u.dir }
func (u *Unit) Status() UnitStatus       { return u.status }
func (u *Unit) Faction() Faction         { return u.faction }
func (u *Unit) OriginalFaction() Faction { return u.originalFaction }
func (u *Unit) TU() int                  { return u.tu }
func (u *Unit) Energy() int              { return u.energy }
func (u *Unit) Health() int              { return u.health }
func (u *Unit) Stun() int                { return u.stun }
func (u *Unit) Morale() int              { return u.morale }
func (u *Unit) Mana() int                { return u.mana }
func (u *Unit) FatalWounds() int         { return u.fatalWounds }
func (u *Unit) Stats() Stats             { return u.stats }
func (u *Unit) Kills() int               { return u.kills }
func (u *Unit) ReactionExp() int         { return u.reactionExp }
func (u *Unit) LastAttacker() UnitID     { return u.lastAttacker }
func (u *Unit) WantsToEndTurn() bool     { return u.wantToEndTurn }
func (u *Unit) AI() AIModule             { return u.ai }
func (u *Unit) RightHand() ItemID        { return u.rightHand }
func (u *Unit) LeftHand() ItemID         { return u.leftHand }
func (u *Unit) IsKneeled() bool          { return u.kneeled }
func (u *Unit) FireTurns() int           { return u.fireTurns }

// SetAI attaches an AI module to the unit.
func (u *Unit) SetAI(ai AIModule) { u.ai = ai }

// SetWantToEndTurn marks the unit as done for this turn.
func (u *Unit) SetWantToEndTurn(v bool) { u.wantToEndTurn = v }

// SetPreferredWeapon records the weapon player reactions should try first.
func (u *Unit) SetPreferredWeapon(id ItemID) { u.preferredWeapon = id }

// Size returns 1 for small units and 2 for 2x2 units.
func (u *Unit) Size() int {
	if u.armor == nil || u.armor.Size < 1 {
		return 1
	}
	return u.armor.Size
}

// OccupiedTiles returns every tile position covered by the unit.
func (u *Unit) OccupiedTiles() []Position {
	size := u.Size()
	out := make([]Position, 0, size*size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			out = append(out, u.pos.Add(Pos(x, y, 0)))
		}
	}
	return out
}

// IsOut reports whether the unit is dead or unconscious.
func (u *Unit) IsOut() bool {
	return u.status == StatusDead || u.status == StatusUnconscious || u.status == StatusIgnoreMe
}

// IsOutThresholdExceed reports whether damage has crossed a lethal or knockout threshold.
func (u *Unit) IsOutThresholdExceed() bool {
	return u.health <= 0 || u.stun >= u.health
}

// OutStatus returns the status a unit crossing its thresholds should receive.
func (u *Unit) OutStatus() UnitStatus {
	if u.health <= 0 {
		return StatusDead
	}
	return StatusUnconscious
}

// Height returns the unit's silhouette height in voxels.
func (u *Unit) Height() int {
	if u.kneeled && u.rule.KneelHeight > 0 {
		return u.rule.KneelHeight
	}
	return u.rule.StandHeight
}

// FloatHeight returns the hover height in voxels.
func (u *Unit) FloatHeight() int {
	if u.floating || u.rule.FloatHeight > 0 {
		return u.rule.FloatHeight
	}
	return 0
}

// LoftRadius returns the silhouette radius in voxels.
func (u *Unit) LoftRadius() int {
	if u.armor == nil || u.armor.LoftRadius <= 0 {
		return 5
	}
	return u.armor.LoftRadius
}

// ReactionScore is reactions scaled by the fraction of TU remaining.
func (u *Unit) ReactionScore() float64 {
	if u.stats.TU <= 0 {
		return 0
	}
	return float64(u.stats.Reactions) * float64(u.tu) / float64(u.stats.TU)
}

// ReactionReduction is the score lost when spending cost TU on a reaction.
func (u *Unit) ReactionReduction(tuCost int) float64 {
	if u.stats.TU <= 0 {
		return 1
	}
	r := float64(u.stats.Reactions) * float64(tuCost) / float64(u.stats.TU)
	if r < 1 {
		r = 1
	}
	return r
}

// ArmorValue returns the armor on the given side.
func (u *Unit) ArmorValue(side ArmorSide) int {
	if u.armor == nil {
		return 0
	}
	switch side {
	case SideFront:
		return u.armor.FrontArmor
	case SideLeft, SideRight:
		return u.armor.SideArmor
	case SideRear:
		return u.armor.RearArmor
	default:
		return u.armor.UnderArmor
	}
}

// ArmorSideFrom returns which side of the unit faces an attack from the given tile.
func (u *Unit) ArmorSideFrom(origin Position) ArmorSide {
	if origin.Z < u.pos.Z {
		return SideUnder
	}
	d := DirectionTo(u.pos, origin)
	if d == DirNone {
		return SideUnder
	}
	rel := (int(d) - int(u.dir) + 8) % 8
	switch rel {
	case 0, 1, 7:
		return SideFront
	case 2, 3:
		return SideRight
	case 5, 6:
		return SideLeft
	default:
		return SideRear
	}
}

// CanSpend reports the first resource the unit lacks to pay cost, or nil.
func (u *Unit) CanSpend(cost ActionCost) error {
	switch {
	case cost.TU > u.tu:
		return ErrNotEnoughTimeUnits
	case cost.Energy > u.energy:
		return ErrNotEnoughEnergy
	case cost.Morale > u.morale:
		return ErrNotEnoughMorale
	case cost.Health >= u.health && cost.Health > 0:
		return ErrNotEnoughHealth
	case cost.Mana > u.mana:
		return ErrNotEnoughMana
	case cost.Stun > 0 && u.stun+cost.Stun >= u.health:
		return ErrNotEnoughStunHeadroom
	}
	return nil
}

// Spend deducts cost after CanSpend succeeded.
func (u *Unit) Spend(cost ActionCost) {
	u.tu -= cost.TU
	u.energy -= cost.Energy
	u.morale -= cost.Morale
	u.health -= cost.Health
	u.stun += cost.Stun
	u.mana -= cost.Mana
}

// SpendTU deducts time units, never below zero.
func (u *Unit) SpendTU(tu int) bool {
	if tu > u.tu {
		return false
	}
	u.tu -= tu
	return true
}

// MoraleChange adjusts morale, clamped to 0-100.
func (u *Unit) MoraleChange(delta int) {
	if u.armor != nil && u.armor.FearImmune && delta < 0 {
		return
	}
	u.morale = clampInt(u.morale+delta, 0, 100)
}

// applyDamage applies a hit that already passed armor and returns health lost.
func (u *Unit) applyDamage(health, stun, wounds int) int {
	if health < 0 {
		health = 0
	}
	u.health -= health
	u.stun += stun
	u.fatalWounds += wounds
	if u.health < 0 {
		u.health = 0
	}
	u.hitByAnything = true
	return health
}

// prepareNewTurn restores TU and energy and resets per-turn flags.
func (u *Unit) prepareNewTurn() {
	u.tu = u.stats.TU
	u.energy = clampInt(u.energy+u.stats.Stamina/3, 0, u.stats.Stamina)
	u.wantToEndTurn = false
	u.dontReselect = false
	u.hitByAnything = false
	if u.status == StatusPanicking || u.status == StatusBerserk {
		u.status = StatusStanding
	}
}

// VisibleUnits returns the enemy units currently seen.
func (u *Unit) VisibleUnits() []UnitID { return u.visibleUnits }

// VisibleTiles returns the tiles in the unit's last FOV sweep.
func (u *Unit) VisibleTiles() []Position { return u.visibleTiles }

func (u *Unit) seesUnit(id UnitID) bool {
	for _, v := range u.visibleUnits {
		if v == id {
			return true
		}
	}
	return false
}

func (u *Unit) addVisibleUnit(id UnitID) bool {
	if u.seesUnit(id) {
		return false
	}
	u.visibleUnits = append(u.visibleUnits, id)
	return true
}

func (u *Unit) removeVisibleUnit(id UnitID) {
	for i, v := range u.visibleUnits {
		if v == id {
			u.visibleUnits = append(u.visibleUnits[:i], u.visibleUnits[i+1:]...)
			return
		}
	}
}

// NeverSpotted is the turns-since-spotted value of a unit a faction has not seen yet.
const NeverSpotted = 255

// TurnsSinceSpotted returns how long ago the given faction last saw the unit.
func (u *Unit) TurnsSinceSpotted(by Faction) int { return u.turnsSinceSpotted[by] }

// IsEnemyOf reports whether the two units fight each other.
func (u *Unit) IsEnemyOf(o *Unit) bool {
	return areHostile(u.faction, o.faction)
}

func areHostile(a, b Faction) bool {
	if a == b {
		return false
	}
	// neutrals are only hostile to the hostile side
	if a == FactionNeutral {
		return b == FactionHostile
	}
	if b == FactionNeutral {
		return a == FactionHostile
	}
	return true
}

// IsAIControlled reports whether the unit acts through its AI module.
func (u *Unit) IsAIControlled() bool {
	return u.faction != FactionPlayer || u.status == StatusPanicking || u.status == StatusBerserk
}
