package render

import (
	"image/color"
	"time"

	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
)

// DefaultEffectDelay is how long the ground stays tinted after an
// episode ends
const DefaultEffectDelay = 500 * time.Millisecond

var (
	GroundColour  color.Color = color.RGBA{R: 96, G: 96, B: 104, A: 255}
	SuccessColour color.Color = color.RGBA{R: 64, G: 160, B: 80, A: 255}
	FailureColour color.Color = color.RGBA{R: 190, G: 60, B: 50, A: 255}
)

// Presenter tints the ground with a success or failure colour when an
// episode ends, and restores the ground colour after a delay. It also
// keeps the statistics shown on screen. Presenter implements
// episode.Listener.
type Presenter struct {
	scheduler *Scheduler
	delay     time.Duration
	ground    color.Color
	restore   int

	stats episode.Stats
	last  *episode.Summary
}

// NewPresenter returns a new Presenter that restores the ground colour
// delay after each episode ends
func NewPresenter(delay time.Duration) *Presenter {
	return &Presenter{
		scheduler: NewScheduler(),
		delay:     delay,
		ground:    GroundColour,
	}
}

// EpisodeEnded implements episode.Listener
func (p *Presenter) EpisodeEnded(s episode.Summary) {
	p.stats.Add(s)
	p.last = &s

	var tint color.Color
	switch s.Event {
	case zone.GoalReached, zone.SwitchActivated:
		tint = SuccessColour
	case zone.HazardReached:
		tint = FailureColour
	default:
		return
	}

	p.scheduler.Cancel(p.restore)
	p.ground = tint
	p.restore = p.scheduler.After(p.delay, func() {
		p.ground = GroundColour
	})
}

// Advance moves the Presenter's clock forward by dt
func (p *Presenter) Advance(dt time.Duration) {
	p.scheduler.Advance(dt)
}

// Reset cancels pending effects and restores the ground colour
func (p *Presenter) Reset() {
	p.scheduler.CancelAll()
	p.ground = GroundColour
}

// Ground returns the current ground colour
func (p *Presenter) Ground() color.Color {
	return p.ground
}

// Stats returns the statistics of all episodes seen by the Presenter
func (p *Presenter) Stats() episode.Stats {
	return p.stats
}

// Last returns the summary of the last episode seen, or nil
func (p *Presenter) Last() *episode.Summary {
	return p.last
}
