package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/samuelfneumann/mlscenes/environment/crossroad"
	"github.com/samuelfneumann/mlscenes/environment/motion"
	"github.com/samuelfneumann/mlscenes/environment/pyramids"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
)

// PixelsPerUnit is the scale of rendered frames
const PixelsPerUnit float64 = 16.0

var (
	roadColour    color.Color = color.RGBA{R: 40, G: 40, B: 44, A: 255}
	wallColour    color.Color = color.RGBA{R: 255, G: 166, B: 0, A: 255}
	hazardColour  color.Color = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	goalColour    color.Color = color.RGBA{R: 133, G: 153, B: 0, A: 255}
	lockedColour  color.Color = color.RGBA{R: 88, G: 88, B: 60, A: 255}
	switchOff     color.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	switchOn      color.Color = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	agentColour   color.Color = color.RGBA{R: 128, G: 102, B: 230, A: 255}
	textColour    color.Color = color.White
	headingColour color.Color = color.White
)

// canvas maps the world floor onto an image. World x grows to the
// right and world z grows up the image.
type canvas struct {
	dc         *gg.Context
	minX, maxZ float64
}

func newCanvas(minX, maxX, minZ, maxZ float64) *canvas {
	w := int(math.Ceil((maxX - minX) * PixelsPerUnit))
	h := int(math.Ceil((maxZ - minZ) * PixelsPerUnit))
	return &canvas{dc: gg.NewContext(w, h), minX: minX, maxZ: maxZ}
}

func (c *canvas) pixel(x, z float64) (float64, float64) {
	return (x - c.minX) * PixelsPerUnit, (c.maxZ - z) * PixelsPerUnit
}

func (c *canvas) rect(x1, z1, x2, z2 float64, col color.Color) {
	px1, pz1 := c.pixel(x1, z2)
	px2, pz2 := c.pixel(x2, z1)
	c.dc.SetColor(col)
	c.dc.DrawRectangle(px1, pz1, px2-px1, pz2-pz1)
	c.dc.Fill()
}

func (c *canvas) zone(z *zone.Zone, col color.Color) {
	c.rect(z.Bounds[0].Min, z.Bounds[2].Min, z.Bounds[0].Max,
		z.Bounds[2].Max, col)
}

func (c *canvas) circle(x, z, r float64, col color.Color) {
	px, pz := c.pixel(x, z)
	c.dc.SetColor(col)
	c.dc.DrawCircle(px, pz, r*PixelsPerUnit)
	c.dc.Fill()
}

func (c *canvas) stats(s episode.Stats) {
	c.dc.SetColor(textColour)
	c.dc.DrawString(s.String(), 6, 16)
}

// DrawCrossRoad draws the current state of a cross-the-road environment
// with the argument ground colour
func DrawCrossRoad(e *crossroad.Env, ground color.Color,
	s episode.Stats) *gg.Context {
	cfg := e.Config()
	goal := e.Goal()

	minX, maxX := cfg.XBounds.Min-1, cfg.XBounds.Max+1
	if math.IsInf(minX, 0) || math.IsInf(maxX, 0) {
		minX, maxX = goal.Bounds[0].Min-1, goal.Bounds[0].Max+1
	}
	minZ, maxZ := cfg.SpawnZ-2, goal.Bounds[2].Max+2
	c := newCanvas(minX, maxX, minZ, maxZ)

	c.dc.SetColor(ground)
	c.dc.Clear()
	c.rect(minX, cfg.RoadBoundary+cfg.Radius, maxX, goal.Bounds[2].Min,
		roadColour)
	c.zone(goal, goalColour)
	for _, h := range e.Hazards() {
		c.zone(h, hazardColour)
	}

	pos := e.Position()
	c.circle(pos.AtVec(0), pos.AtVec(2), cfg.Radius, agentColour)
	c.stats(s)
	return c.dc
}

// DrawPyramids draws the current state of a Pyramids environment with the
// argument ground colour
func DrawPyramids(e *pyramids.Env, ground color.Color,
	s episode.Stats) *gg.Context {
	cfg := e.Config()
	size := cfg.ArenaSize + 1
	c := newCanvas(-size, size, -size, size)

	c.dc.SetColor(ground)
	c.dc.Clear()

	// Walls
	c.dc.SetColor(wallColour)
	c.dc.SetLineWidth(0.5 * PixelsPerUnit)
	x1, z1 := c.pixel(-cfg.ArenaSize, -cfg.ArenaSize)
	x2, z2 := c.pixel(cfg.ArenaSize, cfg.ArenaSize)
	c.dc.DrawRectangle(x1, z2, x2-x1, z1-z2)
	c.dc.Stroke()

	for _, b := range cfg.Blocks {
		c.rect(b.X-b.Width/2, b.Z-b.Depth/2, b.X+b.Width/2, b.Z+b.Depth/2,
			wallColour)
	}

	if goal := e.Goal(); goal != nil {
		col := lockedColour
		if e.Switch().On() {
			col = goalColour
		}
		c.zone(goal, col)
	}

	col := switchOff
	if e.Switch().On() {
		col = switchOn
	}
	c.zone(e.SwitchZone(), col)

	pos := e.Position()
	c.circle(pos.AtVec(0), pos.AtVec(2), cfg.AgentRadius, agentColour)

	facing := motion.Facing(e.Heading())
	px, pz := c.pixel(pos.AtVec(0), pos.AtVec(2))
	hx, hz := c.pixel(pos.AtVec(0)+facing.AtVec(0)*cfg.AgentRadius,
		pos.AtVec(2)+facing.AtVec(2)*cfg.AgentRadius)
	c.dc.SetColor(headingColour)
	c.dc.SetLineWidth(2)
	c.dc.DrawLine(px, pz, hx, hz)
	c.dc.Stroke()

	c.stats(s)
	return c.dc
}
