package battle

// ActionType identifies what a unit intends to do.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionTurn
	ActionWalk
	ActionPrime
	ActionThrow
	ActionSnapShot
	ActionAimedShot
	ActionAutoShot
	ActionMelee
	ActionOpenDoor
	ActionKneel
	// ActionRethink is returned by AI modules that found no plan.
	ActionRethink
)

func (t ActionType) String() string {
	switch t {
	case ActionNone:
		return "none"
	case ActionTurn:
		return "turn"
	case ActionWalk:
		return "walk"
	case ActionPrime:
		return "prime"
	case ActionThrow:
		return "throw"
	case ActionSnapShot:
		return "snap"
	case ActionAimedShot:
		return "aimed"
	case ActionAutoShot:
		return "auto"
	case ActionMelee:
		return "melee"
	case ActionOpenDoor:
		return "open_door"
	case ActionKneel:
		return "kneel"
	case ActionRethink:
		return "rethink"
	default:
		return "unknown"
	}
}

// IsAttack reports whether the action fires, throws or strikes.
func (t ActionType) IsAttack() bool {
	switch t {
	case ActionThrow, ActionSnapShot, ActionAimedShot, ActionAutoShot, ActionMelee:
		return true
	}
	return false
}

// IsShot reports whether the action fires a projectile from a weapon.
func (t ActionType) IsShot() bool {
	return t == ActionSnapShot || t == ActionAimedShot || t == ActionAutoShot
}

// Action is one intended or in-progress action. It is built fresh per
// request and consumed by the battle states.
type Action struct {
	Type      ActionType
	Actor     UnitID
	Weapon    ItemID
	Target    Position
	Waypoints []Position
	Cost      ActionCost
	Fuse      int
	Run       bool
	Strafe    bool
	// Reaction marks attacks made as reaction fire.
	Reaction bool
	// Result holds the failure message key of the last attempt.
	Result string
	// TargetVoxel is filled in when line-of-fire resolution succeeds.
	TargetVoxel Position
	// Origin overrides the firing voxel for off-centre shots.
	Origin Position
	Shots  int
}

// NewAction builds an action and prices it for the acting unit.
func NewAction(typ ActionType, actor *Unit, weapon *Item, target Position) Action {
	a := Action{
		Type:        typ,
		Actor:       actor.ID(),
		Weapon:      NoItem,
		Target:      target,
		TargetVoxel: InvalidPosition,
		Origin:      InvalidPosition,
		Fuse:        -1,
	}
	if weapon != nil {
		a.Weapon = weapon.ID()
	}
	a.Cost = actionCost(typ, actor, weapon)
	if typ == ActionAutoShot && weapon != nil {
		a.Shots = weapon.Rule().AutoShots
	}
	if a.Shots <= 0 {
		a.Shots = 1
	}
	return a
}

// actionCost prices an action; weapon costs are a percentage of base TU unless flat.
func actionCost(typ ActionType, u *Unit, weapon *Item) ActionCost {
	if weapon == nil {
		switch typ {
		case ActionKneel:
			return ActionCost{TU: 4}
		case ActionOpenDoor:
			return ActionCost{TU: 4}
		}
		return ActionCost{}
	}
	r := weapon.Rule()
	var c ActionCost
	switch typ {
	case ActionSnapShot:
		c = r.CostSnap
	case ActionAimedShot:
		c = r.CostAimed
	case ActionAutoShot:
		c = r.CostAuto
	case ActionMelee:
		c = r.CostMelee
	case ActionThrow:
		c = r.CostThrow
	case ActionPrime:
		c = r.CostPrime
	default:
		return ActionCost{}
	}
	if !r.FlatRate && c.TU > 0 {
		c.TU = u.Stats().TU * c.TU / 100
		if c.TU < 1 {
			c.TU = 1
		}
	}
	return c
}

// Validate reports the first shortage preventing the actor from paying the
// cost and records its reason as the action's Result.
func (a *Action) Validate(u *Unit) error {
	if err := u.CanSpend(a.Cost); err != nil {
		a.Result = err.Error()
		return err
	}
	return nil
}

// Spend validates and then deducts the cost from the actor.
func (a *Action) Spend(u *Unit) error {
	if err := a.Validate(u); err != nil {
		return err
	}
	u.Spend(a.Cost)
	return nil
}
