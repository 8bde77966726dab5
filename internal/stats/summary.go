package stats

import "fmt"

// Summary aggregates every recorded battle.
type Summary struct {
	Battles      int64
	Aborted      int64
	Wins         map[string]int64 // by winning faction
	Kills        int64
	FriendlyFire int64
	// KillsByRule counts casualties per victim rule name.
	KillsByRule map[string]int64
}

// Summary reads the aggregate statistics of the store.
func (s *Store) Summary() (Summary, error) {
	sum := Summary{
		Wins:        map[string]int64{},
		KillsByRule: map[string]int64{},
	}
	if err := s.db.Model(&Battle{}).Count(&sum.Battles).Error; err != nil {
		return sum, fmt.Errorf("count battles: %w", err)
	}
	if err := s.db.Model(&Battle{}).Where("aborted = ?", true).Count(&sum.Aborted).Error; err != nil {
		return sum, fmt.Errorf("count aborted battles: %w", err)
	}

	var wins []struct {
		Winner string
		N      int64
	}
	err := s.db.Model(&Battle{}).
		Select("winner, count(*) as n").
		Where("finished = ? AND winner <> ''", true).
		Group("winner").
		Scan(&wins).Error
	if err != nil {
		return sum, fmt.Errorf("count wins: %w", err)
	}
	for _, w := range wins {
		sum.Wins[w.Winner] = w.N
	}

	if err := s.db.Model(&Kill{}).Count(&sum.Kills).Error; err != nil {
		return sum, fmt.Errorf("count kills: %w", err)
	}
	if err := s.db.Model(&Kill{}).Where("friendly_fire = ?", true).Count(&sum.FriendlyFire).Error; err != nil {
		return sum, fmt.Errorf("count friendly fire: %w", err)
	}

	var byRule []struct {
		VictimRule string
		N          int64
	}
	err = s.db.Model(&Kill{}).
		Select("victim_rule, count(*) as n").
		Group("victim_rule").
		Scan(&byRule).Error
	if err != nil {
		return sum, fmt.Errorf("count kills by rule: %w", err)
	}
	for _, r := range byRule {
		sum.KillsByRule[r.VictimRule] = r.N
	}
	return sum, nil
}

// Kills returns the casualties recorded for one battle in insertion order.
func (s *Store) Kills(battleID uint) ([]Kill, error) {
	var kills []Kill
	err := s.db.Where("battle_id = ?", battleID).Order("id").Find(&kills).Error
	return kills, err
}

// Battle loads one battle row.
func (s *Store) Battle(id uint) (Battle, error) {
	var b Battle
	err := s.db.First(&b, id).Error
	return b, err
}
