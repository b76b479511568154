package wheel

import (
	"context"
	"sync"
	"time"
)

// Wheel owns the option set, the cumulative rotation and the spin lifecycle
// of one prize wheel
type Wheel struct {
	store   OptionStore
	guard   SpinGuard
	random  RandomSource
	logger  Logger
	monitor *SpinMonitor
	now     func() time.Time

	mu       sync.RWMutex // 保护以下状态的并发访问
	config   *WheelConfig
	options  OptionSet
	rotation float64
	pending  *SpinResult
	winner   *SelectionResult
}

// NewWheel creates a wheel with default configuration and an in-process spin guard
func NewWheel(store OptionStore) *Wheel {
	return NewWheelWithConfigAndLogger(store, nil, nil, &DefaultLogger{})
}

// NewWheelWithConfig creates a wheel with custom configuration and spin guard
func NewWheelWithConfig(store OptionStore, guard SpinGuard, config *WheelConfig) *Wheel {
	return NewWheelWithConfigAndLogger(store, guard, config, &DefaultLogger{})
}

// NewWheelWithConfigAndLogger creates a wheel with custom configuration, spin guard and logger.
// A nil store keeps options in memory, a nil guard guards within the process.
func NewWheelWithConfigAndLogger(store OptionStore, guard SpinGuard, config *WheelConfig, logger Logger) *Wheel {
	if store == nil {
		store = NewMemoryOptionStore()
	}
	if guard == nil {
		guard = NewLocalSpinGuard()
	}
	if config == nil {
		config = DefaultWheelConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	return &Wheel{
		store:   store,
		guard:   guard,
		random:  NewSecureRandomGenerator(),
		logger:  logger,
		monitor: NewSpinMonitor(),
		now:     time.Now,
		config:  config,
		options: DefaultOptions(),
	}
}

// ID returns the identifier the wheel's options are stored under
func (w *Wheel) ID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.config.ID
}

// GetConfig returns the current wheel configuration
func (w *Wheel) GetConfig() *WheelConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.config
}

// UpdateConfig replaces the configuration used by subsequent spins.
// A pending spin keeps the geometry it was started with.
func (w *Wheel) UpdateConfig(config *WheelConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("UpdateConfig called")

	if config == nil {
		w.logger.Error("UpdateConfig failed: nil configuration")
		return ErrInvalidParameters.WithDetails("nil wheel configuration")
	}
	if err := config.Validate(); err != nil {
		w.logger.Error("UpdateConfig validation failed: %v", err)
		return err
	}

	if config.ID != w.config.ID && w.pending != nil {
		w.logger.Error("UpdateConfig failed: cannot change wheel id while a spin is in progress")
		return ErrSpinInProgress
	}
	w.config = config

	w.logger.Info("Configuration updated successfully: ID=%s, FullTurns=%d, SpinDuration=%v, PointerAngle=%v",
		config.ID, config.FullTurns, config.SpinDuration, config.PointerAngle)
	return nil
}

// SetRandomSource replaces the source used for draws and landing offsets
func (w *Wheel) SetRandomSource(rnd RandomSource) {
	if rnd == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.random = rnd
}

// SetLogger updates the logger at runtime
func (w *Wheel) SetLogger(logger Logger) {
	if logger == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if logger != w.logger {
		w.logger.Info("Logger updated")
		w.logger = logger
		w.logger.Info("New logger activated")
	}
}

// GetLogger returns the current logger
func (w *Wheel) GetLogger() Logger {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.logger
}

// Load replaces the in-memory options with the stored set, seeding the
// defaults when nothing (or an empty set) was stored
func (w *Wheel) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("Load called for wheel=%s", w.config.ID)

	if w.pending != nil {
		w.logger.Error("Load rejected for wheel=%s: spin in progress", w.config.ID)
		return ErrSpinInProgress
	}

	stored, err := w.store.Load(ctx, w.config.ID)
	if err != nil {
		w.monitor.RecordStoreError()
		w.logger.Error("Load failed for wheel=%s: %v", w.config.ID, err)
		return err
	}

	if len(stored) == 0 {
		w.options = DefaultOptions()
		w.winner = nil
		w.logger.Info("No saved options for wheel=%s, using %d default options", w.config.ID, len(w.options))
		return nil
	}

	if err := stored.Validate(); err != nil {
		w.logger.Error("Load failed for wheel=%s: stored options invalid: %v", w.config.ID, err)
		return ErrStateCorrupted.WithDetails("stored options failed validation").WithCause(err)
	}

	w.options = stored
	w.winner = nil
	w.logger.Info("Loaded %d options for wheel=%s", len(stored), w.config.ID)
	return nil
}

// Options returns a copy of the current option set
func (w *Wheel) Options() OptionSet {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.options.Clone()
}

// Rotation returns the cumulative wheel rotation in radians
func (w *Wheel) Rotation() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.rotation
}

// Layout returns the slices for the current option set
func (w *Wheel) Layout() ([]Slice, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Layout(w.options)
}

// Probabilities returns the win probability of each current option
func (w *Wheel) Probabilities() ([]float64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Probabilities(w.options)
}

// Rarities returns the configured rarity tiers
func (w *Wheel) Rarities() RarityTable {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.config.Rarities
}

// IsSpinning reports whether a spin is waiting to be revealed
func (w *Wheel) IsSpinning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.pending != nil
}

// Winner returns the last revealed winner, if it has not been removed or dismissed
func (w *Wheel) Winner() (SelectionResult, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.winner == nil {
		return SelectionResult{}, false
	}
	return *w.winner, true
}

// AddOption appends an option whose weight comes from its rarity tier
func (w *Wheel) AddOption(ctx context.Context, name, rarity string) (Option, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("AddOption called with name=%q, rarity=%q", name, rarity)

	opt, err := w.config.Rarities.NewOption(name, rarity)
	if err != nil {
		w.logger.Error("AddOption failed: %v", err)
		return Option{}, err
	}

	if err := w.edit(ctx, "AddOption", func(s OptionSet) (OptionSet, error) { return s.Add(opt) }); err != nil {
		return Option{}, err
	}

	w.logger.Info("Option added: %s (%s, weight=%d)", opt.Name, opt.Rarity, opt.Weight)
	return opt, nil
}

// UpdateOption replaces the option at index
func (w *Wheel) UpdateOption(ctx context.Context, index int, name, rarity string) (Option, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("UpdateOption called with index=%d, name=%q, rarity=%q", index, name, rarity)

	opt, err := w.config.Rarities.NewOption(name, rarity)
	if err != nil {
		w.logger.Error("UpdateOption failed: %v", err)
		return Option{}, err
	}

	if err := w.edit(ctx, "UpdateOption", func(s OptionSet) (OptionSet, error) { return s.Replace(index, opt) }); err != nil {
		return Option{}, err
	}

	w.logger.Info("Option %d updated: %s (%s, weight=%d)", index, opt.Name, opt.Rarity, opt.Weight)
	return opt, nil
}

// DeleteOption removes the option at index
func (w *Wheel) DeleteOption(ctx context.Context, index int) (Option, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("DeleteOption called with index=%d", index)

	if err := w.options.checkIndex(index); err != nil {
		w.logger.Error("DeleteOption failed: %v", err)
		return Option{}, err
	}
	removed := w.options[index]

	if err := w.edit(ctx, "DeleteOption", func(s OptionSet) (OptionSet, error) { return s.Remove(index) }); err != nil {
		return Option{}, err
	}

	w.logger.Info("Option %d deleted: %s", index, removed.Name)
	return removed, nil
}

// edit applies change to the option set, persists the result and only then
// commits it. Must be called with w.mu held.
func (w *Wheel) edit(ctx context.Context, operation string, change func(OptionSet) (OptionSet, error)) error {
	if w.pending != nil {
		w.logger.Error("%s rejected: spin in progress", operation)
		return ErrSpinInProgress
	}

	next, err := change(w.options)
	if err != nil {
		w.logger.Error("%s failed: %v", operation, err)
		return err
	}

	if err := w.store.Save(ctx, w.config.ID, next); err != nil {
		w.monitor.RecordStoreError()
		w.logger.Error("%s failed to save options for wheel=%s: %v", operation, w.config.ID, err)
		return err
	}

	w.options = next
	// Indices shift on every edit, a remembered winner would point at the wrong option
	w.winner = nil
	w.monitor.RecordOptionEdit()
	return nil
}

// Spin takes the spin guard, draws the winner and computes where the wheel
// comes to rest. The result stays pending until Reveal.
func (w *Wheel) Spin(ctx context.Context) (*SpinResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("Spin called for wheel=%s with %d options", w.config.ID, len(w.options))

	if w.pending != nil {
		w.monitor.RecordRejected()
		w.logger.Debug("Spin rejected for wheel=%s: pending spin %s", w.config.ID, w.pending.Token)
		return nil, ErrSpinInProgress
	}
	if len(w.options) == 0 {
		w.monitor.RecordFailed()
		w.logger.Error("Spin failed for wheel=%s: %v", w.config.ID, ErrEmptyOptionSet)
		return nil, ErrEmptyOptionSet
	}

	token := generateSpinToken()
	// The guard must outlive the animation window of the current config
	acquired, err := w.guard.TryAcquire(ctx, token, w.config.SpinDuration+DefaultSpinGuardSlack)
	if err != nil {
		w.monitor.RecordFailed()
		w.logger.Error("Spin failed for wheel=%s: spin guard error: %v", w.config.ID, err)
		return nil, err
	}
	if !acquired {
		w.monitor.RecordRejected()
		w.logger.Debug("Spin rejected for wheel=%s: guard held elsewhere", w.config.ID)
		return nil, ErrSpinInProgress
	}

	result, err := w.prepareSpin(token)
	if err != nil {
		w.monitor.RecordFailed()
		w.logger.Error("Spin failed for wheel=%s: %v", w.config.ID, err)
		if _, releaseErr := w.guard.Release(ctx, token); releaseErr != nil {
			w.logger.Error("Spin failed to release guard for wheel=%s: %v", w.config.ID, releaseErr)
		}
		return nil, err
	}

	w.rotation = result.Rotation.Absolute
	w.pending = result
	w.winner = nil
	w.monitor.RecordSpin()

	w.logger.Info("Spin started for wheel=%s: winner=%d (%s), rotation=%.4f rad, reveal at %s",
		w.config.ID, result.Selection.Index, result.Selection.Option.Name,
		result.Rotation.Absolute, result.RevealAt.Format(time.RFC3339Nano))

	spin := *result
	return &spin, nil
}

// prepareSpin draws the winner and computes its rotation. Must be called with w.mu held.
func (w *Wheel) prepareSpin(token string) (*SpinResult, error) {
	selection, err := Select(w.options, w.random)
	if err != nil {
		return nil, err
	}

	rotation, err := w.config.Geometry().TargetRotation(w.options, selection.Index, w.rotation, w.random)
	if err != nil {
		return nil, err
	}

	slices, err := Layout(w.options)
	if err != nil {
		return nil, err
	}

	startedAt := w.now()
	return &SpinResult{
		Token:     token,
		Selection: selection,
		Rotation:  rotation,
		Slices:    slices,
		StartedAt: startedAt,
		RevealAt:  startedAt.Add(w.config.SpinDuration),
	}, nil
}

// Reveal completes the pending spin once its animation window has elapsed,
// releasing the spin guard and recording the winner
func (w *Wheel) Reveal(ctx context.Context, token string) (*SelectionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("Reveal called for wheel=%s", w.config.ID)

	if w.pending == nil {
		w.logger.Error("Reveal failed for wheel=%s: %v", w.config.ID, ErrNoSpinInProgress)
		return nil, ErrNoSpinInProgress
	}
	if token != w.pending.Token {
		w.logger.Error("Reveal failed for wheel=%s: %v", w.config.ID, ErrInvalidSpinToken)
		return nil, ErrInvalidSpinToken
	}

	now := w.now()
	if !w.pending.Finished(now) {
		return nil, ErrSpinNotFinished.WithDetailsf("%s remaining", w.pending.Remaining(now))
	}

	// The guard key expires on its own, a failed release must not strand the spin
	if released, err := w.guard.Release(ctx, token); err != nil {
		w.monitor.RecordStoreError()
		w.logger.Error("Reveal failed to release guard for wheel=%s: %v", w.config.ID, err)
	} else if !released {
		w.logger.Debug("Reveal found guard for wheel=%s already released", w.config.ID)
	}

	selection := w.pending.Selection
	w.monitor.RecordReveal(now.Sub(w.pending.StartedAt))
	w.pending = nil
	w.winner = &selection

	w.logger.Info("Spin revealed for wheel=%s: winner=%d (%s)", w.config.ID, selection.Index, selection.Option.Name)
	return &selection, nil
}

// Await blocks until the spin's animation window has elapsed, then reveals it.
// A cancelled ctx returns ctx.Err() and leaves the spin pending.
func (w *Wheel) Await(ctx context.Context, spin *SpinResult) (*SelectionResult, error) {
	if spin == nil {
		return nil, ErrInvalidParameters.WithDetails("nil spin")
	}

	if wait := spin.Remaining(w.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return w.Reveal(ctx, spin.Token)
}

// RemoveWinner deletes the last revealed winner from the option set
func (w *Wheel) RemoveWinner(ctx context.Context) (Option, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("RemoveWinner called for wheel=%s", w.config.ID)

	if w.winner == nil {
		w.logger.Error("RemoveWinner failed for wheel=%s: %v", w.config.ID, ErrNoWinner)
		return Option{}, ErrNoWinner
	}
	winner := *w.winner

	if err := w.edit(ctx, "RemoveWinner", func(s OptionSet) (OptionSet, error) { return s.Remove(winner.Index) }); err != nil {
		return Option{}, err
	}

	w.monitor.RecordRemovedWinner()
	w.logger.Info("Winner removed from wheel=%s: %s, %d options left", w.config.ID, winner.Option.Name, len(w.options))
	return winner.Option, nil
}

// DismissWinner forgets the last revealed winner without touching the options
func (w *Wheel) DismissWinner() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.winner = nil
}

// Metrics returns a snapshot of the spin counters
func (w *Wheel) Metrics() SpinMetrics { return w.monitor.GetMetrics() }

// Monitor returns the wheel's spin monitor
func (w *Wheel) Monitor() *SpinMonitor { return w.monitor }
