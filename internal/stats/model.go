package stats

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Battle is one recorded battle and, once it is over, its outcome.
type Battle struct {
	gorm.Model
	Seed     int64          `json:"seed"`
	Options  datatypes.JSON `json:"options"`
	Finished bool           `json:"finished"`
	Winner   string         `json:"winner" gorm:"size:16"` // empty when aborted
	Aborted  bool           `json:"aborted"`
	Reason   string         `json:"reason" gorm:"size:32"`
	Turns    int            `json:"turns"`
	Kills    []Kill         `json:"kills"`
}

// Kill is a unit put out of the fight. A victim is recorded once per
// status: knocked out then killed gives two rows.
type Kill struct {
	ID              uint      `json:"id" gorm:"primarykey"`
	CreatedAt       time.Time `json:"createdAt"`
	BattleID        uint      `json:"battleId" gorm:"uniqueIndex:idx_kill_victim_status"`
	Turn            int       `json:"turn"`
	VictimID        int       `json:"victimId" gorm:"uniqueIndex:idx_kill_victim_status"`
	VictimRule      string    `json:"victimRule" gorm:"size:64"`
	VictimFaction   string    `json:"victimFaction" gorm:"size:16"`
	Status          string    `json:"status" gorm:"size:16;uniqueIndex:idx_kill_victim_status"`
	MurdererID      int       `json:"murdererId"` // -1 when nobody is credited
	MurdererFaction string    `json:"murdererFaction" gorm:"size:16"`
	FriendlyFire    bool      `json:"friendlyFire"`
}

// Models lists every table the store migrates.
var Models = []any{&Battle{}, &Kill{}}

// optionsSnapshot is the persisted form of the rule options a battle ran with.
type optionsSnapshot struct {
	MaxViewDistance           int    `json:"maxViewDistance"`
	MaxDarknessToSeeUnits     int    `json:"maxDarknessToSeeUnits"`
	EnhancedLighting          int    `json:"enhancedLighting"`
	ExplosionHeight           int    `json:"explosionHeight"`
	ReactionAccuracyThreshold int    `json:"reactionAccuracyThreshold"`
	ExtendedMeleeReactions    int    `json:"extendedMeleeReactions"`
	OffCentreShooting         bool   `json:"offCentreShooting"`
	ReactionPrecedence        int    `json:"reactionPrecedence"`
	TurnLimit                 int    `json:"turnLimit"`
	TurnLimitPolicy           int    `json:"turnLimitPolicy"`
	AIActionsPerUnit          int    `json:"aiActionsPerUnit"`
	ProjectileSpeed           int    `json:"projectileSpeed"`
	MoraleModifier            [3]int `json:"moraleModifier"`
	GlobalShade               int    `json:"globalShade"`
}
