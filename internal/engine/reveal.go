package engine

import "time"

// Fixed pauses after punctuation. They ignore the text speed setting.
const (
	DelayPause    = 120 * time.Millisecond // . , ; :
	DelayEmphasis = 200 * time.Millisecond // ! ?
	DelayNewline  = 150 * time.Millisecond
	DelayEllipsis = 280 * time.Millisecond
)

// RevealState is the visible part of the current text.
type RevealState struct {
	Text     string
	Revealed int // runes
	Active   bool
}

// Visible returns the revealed prefix.
func (r RevealState) Visible() string {
	runes := []rune(r.Text)
	if r.Revealed >= len(runes) {
		return r.Text
	}
	return string(runes[:r.Revealed])
}

func (r RevealState) Complete() bool { return !r.Active && r.Revealed == len([]rune(r.Text)) }

// Revealer types text out one rune per tick on a Scheduler. The pause before
// the next rune depends on the rune just revealed.
type Revealer struct {
	sched    *Scheduler
	source   string
	text     []rune
	revealed int
	active   bool
	base     time.Duration
	pending  Handle
	gen      uint64

	// OnTick runs after every change to the revealed prefix.
	OnTick func(RevealState)
	// OnComplete runs once per started text, when the last rune is shown.
	OnComplete func()
}

func NewRevealer(s *Scheduler) *Revealer {
	return &Revealer{sched: s, base: DelayNormal}
}

// Start replaces the current text and begins revealing it from zero. Any tick
// still pending for the previous text is cancelled first.
func (r *Revealer) Start(text string, base time.Duration) {
	r.cancel()
	r.gen++
	r.source = text
	r.text = []rune(text)
	r.revealed = 0
	r.base = base
	if len(r.text) == 0 {
		r.active = false
		r.changed()
		r.complete()
		return
	}
	r.active = true
	r.changed()
	r.schedule(r.base)
}

// SkipToEnd reveals everything at once. It reports false when there was
// nothing left to reveal.
func (r *Revealer) SkipToEnd() bool {
	if !r.active {
		return false
	}
	r.cancel()
	r.revealed = len(r.text)
	r.active = false
	r.changed()
	r.complete()
	return true
}

// Stop cancels any pending tick without completing the text.
func (r *Revealer) Stop() {
	r.cancel()
	r.gen++
	r.active = false
}

// SetBaseDelay changes the default delay for every pause computed from now on.
// A tick that is already scheduled keeps its due time.
func (r *Revealer) SetBaseDelay(d time.Duration) { r.base = d }

func (r *Revealer) BaseDelay() time.Duration { return r.base }

func (r *Revealer) Active() bool { return r.active }

func (r *Revealer) State() RevealState {
	return RevealState{Text: r.source, Revealed: r.revealed, Active: r.active}
}

// NextDue is the time until the next rune appears.
func (r *Revealer) NextDue() (time.Duration, bool) {
	return r.sched.Remaining(r.pending)
}

func (r *Revealer) schedule(d time.Duration) {
	gen := r.gen
	r.pending = r.sched.Schedule(d, func() { r.tick(gen) })
}

func (r *Revealer) cancel() {
	if r.pending != 0 {
		r.sched.Cancel(r.pending)
		r.pending = 0
	}
}

func (r *Revealer) tick(gen uint64) {
	if gen != r.gen || !r.active {
		return
	}
	r.pending = 0
	r.revealed++
	if r.revealed >= len(r.text) {
		r.revealed = len(r.text)
		r.active = false
		r.changed()
		r.complete()
		return
	}
	r.changed()
	r.schedule(r.pauseAfter(r.revealed))
}

// pauseAfter picks the delay that follows the first n runes.
func (r *Revealer) pauseAfter(n int) time.Duration {
	return PauseAfter(r.text, n, r.base)
}

// PauseAfter returns the delay before revealing rune n, given that runes
// [0, n) are visible. A period that closes a run of exactly three counts as an
// ellipsis; longer runs pause like plain periods after the third.
func PauseAfter(text []rune, n int, base time.Duration) time.Duration {
	if n <= 0 || n > len(text) {
		return base
	}
	switch text[n-1] {
	case '…':
		return DelayEllipsis
	case '.':
		if n >= 3 && text[n-2] == '.' && text[n-3] == '.' && (n < 4 || text[n-4] != '.') {
			return DelayEllipsis
		}
		return DelayPause
	case ',', ';', ':':
		return DelayPause
	case '!', '?':
		return DelayEmphasis
	case '\n':
		return DelayNewline
	default:
		return base
	}
}

func (r *Revealer) changed() {
	if r.OnTick != nil {
		r.OnTick(r.State())
	}
}

func (r *Revealer) complete() {
	if r.OnComplete != nil {
		r.OnComplete()
	}
}
