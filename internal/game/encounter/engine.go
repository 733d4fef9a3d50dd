package encounter

import (
	"runtime"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/stylewatch/internal/game/classify"
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/memory"
	"github.com/cory-johannsen/stylewatch/internal/game/pending"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
	"github.com/cory-johannsen/stylewatch/internal/observability"
)

// hostile is the engine's record of one tracked hostile actor.
type hostile struct {
	id    string
	index int
	state rotation.State
	obs   HostileObservation

	lastAnimation int
	lastOverhead  int
	lastTarget    string
	lastArea      geom.Area
	hasLastArea   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel runs the per-actor stage concurrently, joining before pending resolution.
func WithParallel(parallel bool) Option {
	return func(e *Engine) { e.parallel = parallel }
}

// WithBlocker sets the terrain that blocks line of sight and movement. The default treats
// every tile as open.
func WithBlocker(b geom.Blocker) Option {
	return func(e *Engine) { e.blocker = b }
}

// WithIDSource replaces the encounter id generator.
func WithIDSource(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

// Engine infers the hidden rotation of every hostile actor in one encounter.
// It is driven by exactly one goroutine calling Tick; it is not safe for concurrent use.
type Engine struct {
	profile    Profile
	rules      rotation.Rules
	classifier *classify.Classifier
	base       *zap.Logger
	log        *zap.Logger
	parallel   bool
	blocker    geom.Blocker
	newID      func() string

	encounterID string
	tick        int
	hostiles    map[string]*hostile
	memory      *memory.Memory
	queue       pending.Queue
	// ledger maps projectile keys to the tick they land on.
	ledger  map[string]int
	impacts []geom.Point
	// defenderAreas is the memorized defender snapshot shared by every step of a tick.
	defenderAreas []geom.Area
}

// NewEngine creates an idle Engine for one hostile profile.
//
// Precondition: logger must be non-nil; profile must be valid.
// Postcondition: Returns an Engine with no active encounter.
func NewEngine(profile Profile, rules rotation.Rules, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		panic("encounter.NewEngine: logger must not be nil")
	}
	e := &Engine{
		profile:    profile,
		rules:      rules,
		classifier: classify.New(profile.IDs()),
		base:       logger,
		log:        logger,
		newID:      func() string { return uuid.NewString() },
		hostiles:   make(map[string]*hostile),
		memory:     memory.New(),
		ledger:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncounterID returns the id of the active encounter, or "" when idle.
func (e *Engine) EncounterID() string { return e.encounterID }

// Active reports whether any hostile actor is tracked.
func (e *Engine) Active() bool { return e.encounterID != "" }

// State returns the rotation state of the hostile with id as of the last tick.
func (e *Engine) State(id string) (rotation.State, bool) {
	h, ok := e.hostiles[id]
	if !ok {
		return rotation.State{}, false
	}
	return h.state, true
}

// PendingCount returns the number of attacks awaiting confirmation.
func (e *Engine) PendingCount() int { return e.queue.Len() }

// Tick runs the full pipeline for one batch: ingest, classify and update each hostile,
// resolve pending confirmations, and advance memory.
//
// Postcondition: every tracked hostile has a non-empty feasible set; returns the
// predictions ordered by stable index.
func (e *Engine) Tick(b Batch) []Prediction {
	e.tick = b.Tick
	if !e.syncHostiles(b.Hostiles) {
		return nil
	}
	e.syncDefenders(b.Defenders)
	e.ingestProjectiles(b.Projectiles)
	e.impacts = append(e.impacts, b.Impacts...)

	order := e.ordered()
	e.stepAll(order)
	e.resolvePending()

	for _, h := range order {
		e.endTick(h)
	}
	e.memory.Advance()
	e.impacts = e.impacts[:0]
	for key, lands := range e.ledger {
		if lands <= e.tick {
			delete(e.ledger, key)
		}
	}
	return e.predictions(order)
}

// Predictions returns the current predictions without advancing the tick.
func (e *Engine) Predictions() []Prediction {
	return e.predictions(e.ordered())
}

// syncHostiles reconciles tracked hostiles with the batch and handles encounter
// boundaries. Reports whether an encounter is active afterwards.
func (e *Engine) syncHostiles(observed []HostileObservation) bool {
	seen := make(map[string]struct{}, len(observed))
	for _, o := range observed {
		if !e.profile.Tracks(o.NPCID) {
			continue
		}
		seen[o.ID] = struct{}{}
		if !e.Active() {
			e.begin()
		}
		h, ok := e.hostiles[o.ID]
		if !ok {
			h = &hostile{
				id:            o.ID,
				index:         o.Index,
				state:         rotation.NewState(e.rules),
				lastAnimation: o.Animation,
				lastOverhead:  o.Overhead,
				lastTarget:    o.Target,
			}
			e.hostiles[o.ID] = h
			e.log.Debug("hostile entered perception",
				zap.String("actor", o.ID),
				zap.Int("index", o.Index),
				zap.Int("tick", e.tick),
			)
		}
		h.obs = o
		h.index = o.Index
	}

	for id := range e.hostiles {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(e.hostiles, id)
		dropped := e.queue.CancelAttacker(id)
		e.log.Debug("hostile left perception",
			zap.String("actor", id),
			zap.Int("dropped_pending", dropped),
			zap.Int("tick", e.tick),
		)
	}

	if len(e.hostiles) == 0 {
		if e.Active() {
			e.end()
		}
		return false
	}
	return true
}

func (e *Engine) begin() {
	e.encounterID = e.newID()
	e.log = observability.EncounterLogger(e.base, e.encounterID)
	e.log.Info("encounter started", zap.Int("tick", e.tick))
}

// end discards every piece of encounter state.
func (e *Engine) end() {
	e.log.Info("encounter ended", zap.Int("tick", e.tick))
	clear(e.hostiles)
	clear(e.ledger)
	e.memory.Clear()
	e.queue.Clear()
	e.impacts = nil
	e.defenderAreas = nil
	e.encounterID = ""
	e.log = e.base
}

func (e *Engine) syncDefenders(observed []memory.Observation) {
	spawned, despawned := e.memory.Sync(observed)
	if len(spawned) > 0 || len(despawned) > 0 {
		e.log.Debug("defenders changed",
			zap.Strings("spawned", spawned),
			zap.Strings("despawned", despawned),
			zap.Int("tick", e.tick),
		)
	}
}

// ingestProjectiles records new sightings. Area projectiles mark an impact point; attack
// projectiles are attributed to every hostile standing on their source tile.
func (e *Engine) ingestProjectiles(sightings []ProjectileSighting) {
	for _, s := range sightings {
		if _, dup := e.ledger[s.Key]; dup {
			continue
		}
		switch s.Graphic {
		case e.profile.Projectiles.Area:
			e.impacts = append(e.impacts, s.Source)
		case e.profile.Projectiles.Ranged, e.profile.Projectiles.Magic:
			for _, h := range e.hostiles {
				if h.obs.Area.Origin().DistanceTo(s.Source) == 0 {
					h.state.RecentProjectile = s.Graphic
				}
			}
		default:
			continue
		}
		// a key is remembered through the next tick even when its landing tick is unknown
		e.ledger[s.Key] = max(s.LandsOnTick, e.tick+1)
	}
}

// ordered returns the tracked hostiles sorted by stable index, then id.
func (e *Engine) ordered() []*hostile {
	out := make([]*hostile, 0, len(e.hostiles))
	for _, h := range e.hostiles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

// stepAll runs the per-actor stage. Each step reads only previous-tick state of other
// actors, so steps may run concurrently; pending entries are queued in index order.
func (e *Engine) stepAll(order []*hostile) {
	e.defenderAreas = e.memory.KnownAreas()
	results := make([]stepResult, len(order))
	if e.parallel && len(order) > 1 {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, h := range order {
			g.Go(func() error {
				results[i] = e.step(h)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, h := range order {
			results[i] = e.step(h)
		}
	}

	for i, h := range order {
		h.state = results[i].state
		if results[i].pending != nil {
			e.queue.Push(*results[i].pending)
		}
	}
}

func (e *Engine) resolvePending() {
	for _, r := range e.queue.Resolve(e.tick, e.memory) {
		h, ok := e.hostiles[r.Attacker]
		fields := []zap.Field{
			zap.String("actor", r.Attacker),
			zap.String("target", r.Target),
			zap.Stringer("style", r.Style),
			zap.String("reason", string(r.Reason)),
			zap.Int("tick", e.tick),
		}
		if !ok || !r.Miss {
			e.log.Debug("pending attack resolved", fields...)
			continue
		}
		var reset bool
		h.state, reset = h.state.ConfirmMiss(e.rules)
		e.log.Debug("pending attack confirmed as miss",
			append(fields,
				zap.Int("actions_until_rotation", h.state.ActionsUntilRotation),
				zap.Bool("reset", reset),
			)...,
		)
	}
}

func (e *Engine) endTick(h *hostile) {
	var healed bool
	h.state, healed = h.state.EndTick(e.rules)
	if healed {
		e.log.Warn("empty feasible set healed by rotation reset",
			zap.String("actor", h.id),
			zap.Int("tick", e.tick),
		)
	}
	h.lastAnimation = h.obs.Animation
	h.lastOverhead = h.obs.Overhead
	h.lastTarget = h.obs.Target
	h.lastArea = h.obs.Area
	h.hasLastArea = true
}

func (e *Engine) predictions(order []*hostile) []Prediction {
	out := make([]Prediction, 0, len(order))
	for _, h := range order {
		out = append(out, Prediction{
			ActorID:              h.id,
			Index:                h.index,
			Styles:               h.state.Feasible.Styles(),
			ActionsUntilRotation: h.state.ActionsUntilRotation,
			NextActionTick:       h.state.NextActionTick,
			StyleChanged:         h.state.StyleChangedLastTick,
		})
	}
	return out
}
