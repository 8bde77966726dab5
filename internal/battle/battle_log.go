package battle

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Log categories.
const (
	CatState    = "state"
	CatAction   = "action"
	CatShot     = "shot"
	CatHit      = "hit"
	CatExplode  = "explode"
	CatTerrain  = "terrain"
	CatReaction = "reaction"
	CatVision   = "vision"
	CatCasualty = "casualty"
	CatMorale   = "morale"
	CatTurn     = "turn"
	CatMission  = "mission"
)

// LogEntry is one recorded battle event.
type LogEntry struct {
	Turn     int
	Tick     int
	Unit     string  // "U3" or "--" for global events
	Faction  string  // "player", "hostile", "neutral" or "--"
	Category string  // state, shot, hit, explode, reaction, casualty, morale, turn, mission
	Key      string  // event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[R=02 T=0042] U3   reaction  fired           snap at U7
func (e LogEntry) String() string {
	return fmt.Sprintf("[R=%02d T=%04d] %-4s %-9s %-16s %s",
		e.Turn, e.Tick, e.Unit, e.Category, e.Key, e.Value)
}

// BattleLog collects structured events. It is unbounded and machine-readable;
// every entry is mirrored to the zerolog logger at debug level.
type BattleLog struct {
	entries []LogEntry
	logger  zerolog.Logger
	turn    func() int
	tick    int
}

// NewBattleLog creates an empty log mirrored to logger.
func NewBattleLog(logger zerolog.Logger) *BattleLog {
	return &BattleLog{logger: logger}
}

func unitLabel(u *Unit) (string, string) {
	if u == nil {
		return "--", "--"
	}
	return fmt.Sprintf("U%d", u.id), u.faction.String()
}

// Add records a new entry about u (nil for global events).
func (bl *BattleLog) Add(u *Unit, category, key, value string, numVal float64) {
	label, faction := unitLabel(u)
	turn := 0
	if bl.turn != nil {
		turn = bl.turn()
	}
	e := LogEntry{
		Turn:     turn,
		Tick:     bl.tick,
		Unit:     label,
		Faction:  faction,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	}
	bl.entries = append(bl.entries, e)
	bl.logger.Debug().
		Int("turn", e.Turn).
		Int("tick", e.Tick).
		Str("unit", e.Unit).
		Str("faction", e.Faction).
		Str("category", e.Category).
		Str("key", e.Key).
		Float64("num", e.NumVal).
		Msg(e.Value)
}

// Addf is Add with a formatted value.
func (bl *BattleLog) Addf(u *Unit, category, key string, numVal float64, format string, args ...any) {
	bl.Add(u, category, key, fmt.Sprintf(format, args...), numVal)
}

// Entries returns all recorded entries.
func (bl *BattleLog) Entries() []LogEntry { return bl.entries }

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (bl *BattleLog) Filter(category, key string) []LogEntry {
	var out []LogEntry
	for _, e := range bl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterUnit returns entries for a specific unit label.
func (bl *BattleLog) FilterUnit(label string) []LogEntry {
	var out []LogEntry
	for _, e := range bl.entries {
		if e.Unit == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTurn returns entries recorded during the given turn.
func (bl *BattleLog) FilterTurn(turn int) []LogEntry {
	var out []LogEntry
	for _, e := range bl.entries {
		if e.Turn == turn {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many entries match the given category and key.
func (bl *BattleLog) Count(category, key string) int {
	return len(bl.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (bl *BattleLog) LastOf(category, key string) (LogEntry, bool) {
	for i := len(bl.entries) - 1; i >= 0; i-- {
		e := bl.entries[i]
		if (category == "" || e.Category == category) && (key == "" || e.Key == key) {
			return e, true
		}
	}
	return LogEntry{}, false
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (bl *BattleLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range bl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (bl *BattleLog) Format() string {
	var sb strings.Builder
	for _, e := range bl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatTurn returns the log of one turn.
func (bl *BattleLog) FormatTurn(turn int) string {
	var sb strings.Builder
	for _, e := range bl.FilterTurn(turn) {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable summary of the battle state.
func (bl *BattleLog) Summary(bf *Battlefield) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at turn %d (%s to move) ---\n", bf.Turn(), bf.Side())
	for f := FactionPlayer; f < factionCount; f++ {
		fmt.Fprintf(&sb, "%s alive: %d\n", f, bf.LiveUnits(f))
	}
	fmt.Fprintf(&sb, "shots=%d hits=%d explosions=%d reactions=%d casualties=%d\n",
		bl.Count(CatShot, ""), bl.Count(CatHit, ""), bl.Count(CatExplode, "explosion"),
		bl.Count(CatReaction, "fired"), bl.Count(CatCasualty, ""))
	return sb.String()
}
