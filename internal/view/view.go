// Package view is the ebiten debug viewer of a running battle.
package view

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/battlecore/internal/battle"
)

// borderWidth is the pixel gap between the window edge and the battlefield.
const borderWidth = 24

// tileSize is the on-screen size of one tile in pixels.
const tileSize = 28

// panelWidth is the width of the battle log panel right of the map.
const panelWidth = 560

// Restart builds a fresh game, e.g. for a new seed.
type Restart func(seed int64) (*battle.Game, error)

// Viewer implements ebiten.Game over a battle.
type Viewer struct {
	game    *battle.Game
	restart Restart
	seed    int64
	logger  zerolog.Logger
	face    text.Face

	width, height int
	mapW, mapH    int

	simSpeed  float64
	tickAccum float64

	showLight bool
	showFOV   bool
	showHUD   bool
	fovSide   battle.Faction

	status string // last one-line message, e.g. "log copied"
}

// Option customises a Viewer.
type Option func(*Viewer)

// WithRestart lets N restart the battle with the next seed.
func WithRestart(seed int64, fn Restart) Option {
	return func(v *Viewer) { v.seed, v.restart = seed, fn }
}

// WithLogger sets the viewer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Viewer) { v.logger = l }
}

// New creates a viewer running g at normal speed.
func New(g *battle.Game, opts ...Option) *Viewer {
	v := &Viewer{
		logger:   zerolog.Nop(),
		face:     text.NewGoXFace(basicfont.Face7x13),
		simSpeed: 1,
		showHUD:  true,
		showFOV:  true,
		fovSide:  battle.FactionPlayer,
	}
	for _, o := range opts {
		o(v)
	}
	v.setGame(g)
	return v
}

func (v *Viewer) setGame(g *battle.Game) {
	v.game = g
	sx, sy, _ := g.Battlefield().Size()
	v.mapW, v.mapH = sx*tileSize, sy*tileSize
	v.width = borderWidth*3 + v.mapW + panelWidth
	v.height = max(borderWidth*2+v.mapH, 640)
}

// WindowSize returns the window size the viewer lays out for.
func (v *Viewer) WindowSize() (int, int) { return v.width, v.height }

func (v *Viewer) Update() error {
	v.handleInput()

	if v.simSpeed <= 0 {
		return nil
	}
	// For speeds > 1 run multiple ticks per frame; below 1 accumulate fractions.
	v.tickAccum += v.simSpeed
	for v.tickAccum >= 1.0 {
		v.tickAccum -= 1.0
		v.game.Think()
	}
	return nil
}

var speeds = []float64{0, 0.25, 1, 4, 16}

func (v *Viewer) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		if v.simSpeed > 0 {
			v.simSpeed = 0
		} else {
			v.simSpeed = 1
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyComma):
		v.simSpeed = stepSpeed(v.simSpeed, -1)
	case inpututil.IsKeyJustPressed(ebiten.KeyPeriod):
		v.simSpeed = stepSpeed(v.simSpeed, +1)
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if v.simSpeed == 0 {
			v.game.Think()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		v.showLight = !v.showLight
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		v.showFOV = !v.showFOV
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		v.fovSide = nextSide(v.fovSide)
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		v.showHUD = !v.showHUD
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		v.copyLog()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		v.restartNext()
	}
}

// stepSpeed moves one notch up (dir > 0) or down the speed ladder.
func stepSpeed(cur float64, dir int) float64 {
	idx := 0
	for i, s := range speeds {
		if s <= cur {
			idx = i
		}
	}
	idx += dir
	idx = max(0, min(len(speeds)-1, idx))
	return speeds[idx]
}

func nextSide(f battle.Faction) battle.Faction {
	if f == battle.FactionPlayer {
		return battle.FactionHostile
	}
	return battle.FactionPlayer
}

// report is the text copied to the clipboard: the summary then the full log.
func report(g *battle.Game) string {
	log := g.Log()
	return log.Summary(g.Battlefield()) + "\n" + log.Format()
}

func (v *Viewer) copyLog() {
	if err := clipboard.WriteAll(report(v.game)); err != nil {
		v.logger.Warn().Err(err).Msg("copy battle log")
		v.status = "clipboard unavailable"
		return
	}
	v.status = fmt.Sprintf("copied %d log entries", len(v.game.Log().Entries()))
}

func (v *Viewer) restartNext() {
	if v.restart == nil {
		return
	}
	g, err := v.restart(v.seed + 1)
	if err != nil {
		v.logger.Error().Err(err).Int64("seed", v.seed+1).Msg("restart")
		v.status = "restart failed"
		return
	}
	v.seed++
	v.setGame(g)
	v.status = fmt.Sprintf("seed %d", v.seed)
	v.logger.Info().Int64("seed", v.seed).Msg("battle restarted")
}

func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}
