package battle

import "fmt"

// ActionError is a recoverable gameplay failure. Reason is the message key
// shown to the player; AI callers simply drop the action.
type ActionError struct {
	Reason string
}

func (e *ActionError) Error() string { return e.Reason }

// Is matches two ActionErrors with the same reason.
func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	return ok && t.Reason == e.Reason
}

var (
	ErrNotEnoughTimeUnits    = &ActionError{Reason: "STR_NOT_ENOUGH_TIME_UNITS"}
	ErrNotEnoughEnergy       = &ActionError{Reason: "STR_NOT_ENOUGH_ENERGY"}
	ErrNotEnoughMorale       = &ActionError{Reason: "STR_NOT_ENOUGH_MORALE"}
	ErrNotEnoughHealth       = &ActionError{Reason: "STR_NOT_ENOUGH_HEALTH"}
	ErrNotEnoughMana         = &ActionError{Reason: "STR_NOT_ENOUGH_MANA"}
	ErrNotEnoughStunHeadroom = &ActionError{Reason: "STR_NOT_ENOUGH_STUN"}
	ErrNoLineOfFire          = &ActionError{Reason: "STR_NO_LINE_OF_FIRE"}
	ErrNoTrajectory          = &ActionError{Reason: "STR_UNABLE_TO_THROW_HERE"}
	ErrOutOfRange            = &ActionError{Reason: "STR_OUT_OF_RANGE"}
	ErrNoAmmo                = &ActionError{Reason: "STR_NO_AMMUNITION_LOADED"}
	ErrNoWeapon              = &ActionError{Reason: "STR_NO_WEAPON"}
	ErrInvalidPlacement      = &ActionError{Reason: "STR_INVALID_PLACEMENT"}
	ErrNoPath                = &ActionError{Reason: "STR_NO_PATH"}
	ErrNotYourTurn           = &ActionError{Reason: "STR_NOT_YOUR_TURN"}
	ErrUnitOut               = &ActionError{Reason: "STR_UNIT_IS_OUT"}
	ErrBusy                  = &ActionError{Reason: "STR_ACTION_IN_PROGRESS"}
	ErrBattleOver            = &ActionError{Reason: "STR_BATTLE_OVER"}
	ErrUnknownUnit           = &ActionError{Reason: "STR_UNKNOWN_UNIT"}
	ErrInvalidAction         = &ActionError{Reason: "STR_INVALID_ACTION"}
	ErrNoDoor                = &ActionError{Reason: "STR_NO_DOOR"}
)

// InvariantViolation is the panic value for internal consistency failures.
// It is never returned as an error.
type InvariantViolation struct {
	Msg string
}

func (v InvariantViolation) String() string { return "battle invariant violated: " + v.Msg }

func invariantf(format string, args ...any) InvariantViolation {
	return InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}
