// Package stats persists battle outcomes and casualties through gorm, on
// SQLite or Postgres.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Garsondee/battlecore/internal/battle"
)

// ErrDisabled is returned by Open for the "none" driver.
var ErrDisabled = errors.New("stats disabled")

// Store is an open statistics database.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the database for driver ("sqlite" or "postgres") and
// migrates the schema. An empty sqlite dsn uses a shared in-memory database.
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "none", "":
		return nil, ErrDisabled
	case "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			log.Info().Str("path", dsn).Msg("Using SQLite stats DB")
		}
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			SkipDefaultTransaction: true,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			log.Info().Msg("Using Postgres stats DB")
		}
	default:
		return nil, fmt.Errorf("unknown stats driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s stats db: %w", driver, err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("migrate stats db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin inserts a battle row and returns a recorder bound to it.
func (s *Store) Begin(seed int64, opts battle.Options) (*Recorder, error) {
	snap, err := json.Marshal(snapshot(opts))
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	b := Battle{Seed: seed, Options: datatypes.JSON(snap)}
	if err := s.db.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("insert battle: %w", err)
	}
	s.log.Debug().Uint("battle", b.ID).Int64("seed", seed).Msg("battle recording started")
	return &Recorder{db: s.db, battleID: b.ID}, nil
}

// Recorder writes the statistics of one battle. It satisfies
// battle.StatsRecorder.
type Recorder struct {
	db       *gorm.DB
	battleID uint
}

// BattleID is the row id of the recorded battle.
func (r *Recorder) BattleID() uint { return r.battleID }

// RecordCasualty inserts a kill row. A repeat of the same victim and status
// is ignored.
func (r *Recorder) RecordCasualty(c battle.Casualty) error {
	k := Kill{
		BattleID:      r.battleID,
		Turn:          c.Turn,
		VictimID:      int(c.Victim),
		VictimRule:    c.VictimRule,
		VictimFaction: c.VictimFaction.String(),
		Status:        c.Status.String(),
		MurdererID:    int(c.Murderer),
		FriendlyFire:  c.FriendlyFire,
	}
	if c.Murderer != battle.NoUnit {
		k.MurdererFaction = c.MurdererFaction.String()
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&k).Error
}

// RecordOutcome stores the final result on the battle row.
func (r *Recorder) RecordOutcome(o battle.Outcome) error {
	winner := ""
	if !o.Aborted {
		winner = o.Winner.String()
	}
	return r.db.Model(&Battle{}).Where("id = ?", r.battleID).Updates(map[string]any{
		"finished": o.Over,
		"winner":   winner,
		"aborted":  o.Aborted,
		"reason":   o.Reason,
		"turns":    o.Turn,
	}).Error
}

func snapshot(o battle.Options) optionsSnapshot {
	return optionsSnapshot{
		MaxViewDistance:           o.MaxViewDistance,
		MaxDarknessToSeeUnits:     o.MaxDarknessToSeeUnits,
		EnhancedLighting:          o.EnhancedLighting,
		ExplosionHeight:           o.ExplosionHeight,
		ReactionAccuracyThreshold: o.ReactionAccuracyThreshold,
		ExtendedMeleeReactions:    o.ExtendedMeleeReactions,
		OffCentreShooting:         o.OffCentreShooting,
		ReactionPrecedence:        int(o.ReactionPrecedence),
		TurnLimit:                 o.TurnLimit,
		TurnLimitPolicy:           int(o.TurnLimitPolicy),
		AIActionsPerUnit:          o.AIActionsPerUnit,
		ProjectileSpeed:           o.ProjectileSpeed,
		MoraleModifier:            o.MoraleModifier,
		GlobalShade:               o.GlobalShade,
	}
}
