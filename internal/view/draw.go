package view

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/battlecore/internal/battle"
)

// lineHeight is the basicfont line spacing in pixels.
const lineHeight = 15

var (
	backgroundCol = color.RGBA{R: 12, G: 14, B: 12, A: 255}
	wallCol       = color.RGBA{R: 150, G: 120, B: 90, A: 255}
	doorCol       = color.RGBA{R: 190, G: 150, B: 60, A: 255}
	windowCol     = color.RGBA{R: 120, G: 180, B: 220, A: 255}
	fireCol       = color.RGBA{R: 255, G: 110, B: 20, A: 170}
	smokeCol      = color.RGBA{R: 160, G: 160, B: 160, A: 0}
	textCol       = color.RGBA{R: 200, G: 220, B: 200, A: 255}
)

var factionCols = map[battle.Faction]color.RGBA{
	battle.FactionPlayer:  {R: 60, G: 140, B: 255, A: 255},
	battle.FactionHostile: {R: 230, G: 60, B: 50, A: 255},
	battle.FactionNeutral: {R: 220, G: 220, B: 120, A: 255},
}

// floorColor maps a floor part to its debug colour.
func floorColor(name string) color.RGBA {
	switch name {
	case "grass":
		return color.RGBA{R: 52, G: 84, B: 44, A: 255}
	case "dirt":
		return color.RGBA{R: 92, G: 74, B: 52, A: 255}
	case "wood_floor":
		return color.RGBA{R: 104, G: 78, B: 50, A: 255}
	case "scorched_earth":
		return color.RGBA{R: 30, G: 26, B: 22, A: 255}
	case "rubble_floor":
		return color.RGBA{R: 84, G: 80, B: 76, A: 255}
	case "":
		return backgroundCol
	default:
		return color.RGBA{R: 70, G: 72, B: 70, A: 255}
	}
}

// objectColor maps an object part to its debug colour.
func objectColor(name string) color.RGBA {
	switch name {
	case "hedge":
		return color.RGBA{R: 30, G: 110, B: 40, A: 255}
	case "crate", "table":
		return color.RGBA{R: 150, G: 110, B: 60, A: 255}
	case "fuel_barrel":
		return color.RGBA{R: 200, G: 60, B: 40, A: 255}
	case "power_source":
		return color.RGBA{R: 120, G: 255, B: 200, A: 255}
	case "lamp":
		return color.RGBA{R: 255, G: 240, B: 150, A: 255}
	case "debris":
		return color.RGBA{R: 100, G: 96, B: 90, A: 255}
	default:
		return color.RGBA{R: 130, G: 130, B: 130, A: 255}
	}
}

// shade darkens c for a tile light level 0-15.
func shade(c color.RGBA, light int) color.RGBA {
	light = max(0, min(15, light))
	f := 0.25 + 0.75*float64(light)/15
	return color.RGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: c.A}
}

func partName(t *battle.Tile, k battle.PartKind) string {
	if p := t.Part(k); p != nil {
		return p.Name
	}
	return ""
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundCol)
	v.drawTiles(screen)
	v.drawUnits(screen)

	ox, oy := float32(borderWidth), float32(borderWidth)
	vector.StrokeRect(screen, ox-1, oy-1, float32(v.mapW)+2, float32(v.mapH)+2, 2.0,
		color.RGBA{R: 65, G: 90, B: 65, A: 255}, false)

	v.drawLogPanel(screen)
	if v.showHUD {
		v.drawHUD(screen)
	}
}

func (v *Viewer) drawTiles(screen *ebiten.Image) {
	bf := v.game.Battlefield()
	sx, sy, _ := bf.Size()
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			t := bf.Tile(battle.Pos(x, y, 0))
			px := float32(borderWidth + x*tileSize)
			py := float32(borderWidth + y*tileSize)

			light := 15
			if v.showLight {
				light = t.Light()
			}
			if v.showFOV && !t.IsDiscovered(v.fovSide) {
				light = 0
			}
			vector.FillRect(screen, px, py, tileSize, tileSize, shade(floorColor(partName(t, battle.PartFloor)), light), false)

			if obj := partName(t, battle.PartObject); obj != "" {
				inset := float32(4)
				vector.FillRect(screen, px+inset, py+inset, tileSize-2*inset, tileSize-2*inset,
					shade(objectColor(obj), light), false)
			}
			if s := t.Smoke(); s > 0 {
				c := smokeCol
				c.A = uint8(min(200, s*12))
				vector.FillRect(screen, px, py, tileSize, tileSize, c, false)
			}
			if t.Fire() > 0 {
				vector.FillRect(screen, px+6, py+6, tileSize-12, tileSize-12, fireCol, false)
			}
			if v.showFOV && t.IsVisible(v.fovSide) {
				vector.StrokeRect(screen, px+1, py+1, tileSize-2, tileSize-2, 1,
					color.RGBA{R: 255, G: 255, B: 255, A: 40}, false)
			}

			if w := partName(t, battle.PartNorthWall); w != "" {
				vector.StrokeLine(screen, px, py, px+tileSize, py, 3, wallColor(w), false)
			}
			if w := partName(t, battle.PartWestWall); w != "" {
				vector.StrokeLine(screen, px, py, px, py+tileSize, 3, wallColor(w), false)
			}
		}
	}
}

func wallColor(name string) color.RGBA {
	switch {
	case strings.HasPrefix(name, "door_open"):
		return color.RGBA{R: 90, G: 70, B: 30, A: 255}
	case strings.HasPrefix(name, "door"):
		return doorCol
	case strings.Contains(name, "window"):
		return windowCol
	default:
		return wallCol
	}
}

func (v *Viewer) drawUnits(screen *ebiten.Image) {
	bf := v.game.Battlefield()
	selected := bf.SelectedUnit()
	for _, u := range bf.Units() {
		p := u.Pos()
		if p.Z != 0 || !bf.InBounds(p) {
			continue
		}
		cx := float32(borderWidth+p.X*tileSize) + tileSize/2
		cy := float32(borderWidth+p.Y*tileSize) + tileSize/2
		col := factionCols[u.Faction()]

		if u.IsOut() {
			d := float32(tileSize) / 4
			vector.StrokeLine(screen, cx-d, cy-d, cx+d, cy+d, 2, col, false)
			vector.StrokeLine(screen, cx-d, cy+d, cx+d, cy-d, 2, col, false)
			continue
		}
		r := float32(tileSize)/2 - 4
		vector.FillCircle(screen, cx, cy, r, col, true)
		dv := u.Direction().Vector()
		vector.StrokeLine(screen, cx, cy, cx+float32(dv.X)*r*1.4, cy+float32(dv.Y)*r*1.4, 2,
			color.RGBA{R: 255, G: 255, B: 255, A: 220}, true)
		if u.ID() == selected {
			vector.StrokeCircle(screen, cx, cy, r+3, 1.5, color.RGBA{R: 255, G: 255, B: 0, A: 255}, true)
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", u.ID()), int(cx)-3, int(cy)-8)
	}
}

// logTail returns the last n formatted log lines.
func logTail(entries []battle.LogEntry, n int) []string {
	start := max(0, len(entries)-n)
	lines := make([]string, 0, len(entries)-start)
	for _, e := range entries[start:] {
		lines = append(lines, e.String())
	}
	return lines
}

func (v *Viewer) drawLogPanel(screen *ebiten.Image) {
	x := float64(borderWidth*2 + v.mapW)
	y := float64(borderWidth)

	header := strings.TrimRight(v.game.Log().Summary(v.game.Battlefield()), "\n")
	if out := v.game.Outcome(); out.Over {
		header += fmt.Sprintf("\nBATTLE OVER: %s (%s)", outcomeLabel(out), out.Reason)
	}
	lines := strings.Split(header, "\n")
	lines = append(lines, "")

	rows := (v.height-borderWidth*2)/lineHeight - len(lines)
	lines = append(lines, logTail(v.game.Log().Entries(), max(0, rows))...)

	for i, l := range lines {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x, y+float64(i*lineHeight))
		op.ColorScale.ScaleWithColor(textCol)
		text.Draw(screen, l, v.face, op)
	}
}

func outcomeLabel(o battle.Outcome) string {
	if o.Aborted {
		return "aborted"
	}
	return o.Winner.String() + " wins"
}

func (v *Viewer) drawHUD(screen *ebiten.Image) {
	speed := fmt.Sprintf("%gx", v.simSpeed)
	if v.simSpeed == 0 {
		speed = "PAUSED (space=step)"
	}
	on := func(b bool) string {
		if b {
			return "*"
		}
		return " "
	}
	lines := []string{
		fmt.Sprintf("SIM: %s  P=pause  ,/. speed", speed),
		fmt.Sprintf("[L]%s light  [F]%s fov (%s, Tab=switch)", on(v.showLight), on(v.showFOV), v.fovSide),
		"[C] copy log  [N] next seed  [H] hide",
	}
	if v.status != "" {
		lines = append(lines, v.status)
	}
	y := v.height - borderWidth/2 - len(lines)*12
	for i, l := range lines {
		ebitenutil.DebugPrintAt(screen, l, borderWidth, y+i*12)
	}
}
