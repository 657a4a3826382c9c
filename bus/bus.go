package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
)

// Scheduler selects how matched handlers for a single event are invoked.
type Scheduler int

const (
	// SchedulerSequential invokes matched handlers one at a time in
	// tie-break order. Deterministic; the default.
	SchedulerSequential Scheduler = iota

	// SchedulerParallel invokes different agents' matched handlers
	// concurrently. Handlers of the same agent are serialized, and all
	// emission into the pending queue is synchronized so sequence numbers
	// remain a total order.
	SchedulerParallel
)

// Status describes how a Run ended.
type Status string

const (
	// StatusCompleted: the pending queue drained with no outstanding input.
	StatusCompleted Status = "completed"
	// StatusTerminated: a configured termination kind was dispatched.
	StatusTerminated Status = "terminated"
	// StatusAwaitingInput: the queue drained but handlers are waiting for
	// external input; satisfy the requests and call Run again.
	StatusAwaitingInput Status = "awaiting_input"
	// StatusAborted: a handler failed under the abort-on-error policy.
	StatusAborted Status = "aborted"
)

// ErrAlreadyRunning is returned when Run is called on a bus whose dispatch
// loop is already active.
var ErrAlreadyRunning = fmt.Errorf("bus: dispatch loop already running")

// Outcome is the result of a Run: the ordered event log so far plus, when
// suspended, the input requests the external driver must satisfy.
type Outcome struct {
	Status        Status
	Log           []core.Event
	InputRequests []core.Event
	// TerminatedBy is set for StatusTerminated: the event that halted the run.
	TerminatedBy *core.Event
}

// Options configures a Bus instance.
type Options struct {
	// Scheduler selects sequential or parallel handler invocation.
	Scheduler Scheduler

	// TerminationKinds lists event kinds that halt the run once dispatched.
	TerminationKinds []string

	// AbortOnError makes any handler failure abort the whole run instead of
	// continuing with the remaining matches.
	AbortOnError bool

	// CheckpointStore receives automatic captures; nil disables them.
	CheckpointStore checkpoint.Store

	// CheckpointPolicy decides, per completed event, whether to capture.
	// Ignored when CheckpointStore is nil. Defaults to AfterEvery().
	CheckpointPolicy Policy

	// StreamBufferSize sets the channel buffer for Subscribe consumers.
	// Slow consumers whose buffer fills miss events (logged, never blocking
	// dispatch).
	StreamBufferSize int

	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// Hooks observe and guard the dispatch pipeline.
	Hooks []Hook
}

// Policy decides whether the bus captures a checkpoint after the given event
// completed.
type Policy func(e core.Event) bool

// AfterEvery captures after every completed event.
func AfterEvery() Policy {
	return func(core.Event) bool { return true }
}

// OnKind captures after events of the given kinds.
func OnKind(kinds ...string) Policy {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(e core.Event) bool { return set[e.Kind] }
}

// OnError captures after error events only.
func OnError() Policy {
	return OnKind(core.KindError)
}

// Bus is the dispatch substrate: the registry of agents, the pending event
// queue, the completed log and the monotonic sequence counter. It is safe
// for concurrent use; the queue and registry are the only shared mutable
// resources and the bus is their single coordinating owner.
type Bus struct {
	mu        sync.Mutex
	agents    []core.Agent // registration order; drives the final tie-break
	pending   []core.Event
	completed []core.Event
	nextSeq   int64
	cursor    int64 // seq of the last completed event
	inputs    map[string]core.Event
	running   bool
	subs      map[int]*subscriber
	nextSub   int
	runID     string

	scheduler    Scheduler
	termination  map[string]bool
	abortOnError bool
	cpStore      checkpoint.Store
	cpPolicy     Policy
	streamBuf    int
	logger       logging.Logger
	hooks        *hookSet
}

// New creates a Bus with optional configuration overrides.
//
// Example:
//
//	b := bus.New(func(o *bus.Options) {
//	    o.TerminationKinds = []string{"workflow.done"}
//	    o.Logger = logger
//	})
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		Scheduler:        SchedulerSequential,
		CheckpointPolicy: AfterEvery(),
		StreamBufferSize: 100,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	termination := make(map[string]bool, len(opts.TerminationKinds))
	for _, k := range opts.TerminationKinds {
		termination[k] = true
	}

	return &Bus{
		agents:       []core.Agent{},
		inputs:       make(map[string]core.Event),
		subs:         make(map[int]*subscriber),
		nextSeq:      1,
		runID:        core.NewID(),
		scheduler:    opts.Scheduler,
		termination:  termination,
		abortOnError: opts.AbortOnError,
		cpStore:      opts.CheckpointStore,
		cpPolicy:     opts.CheckpointPolicy,
		streamBuf:    opts.StreamBufferSize,
		logger:       opts.Logger,
		hooks:        newHookSet(opts.Hooks),
	}
}

// Register adds an agent to the registry. Agent names are identities:
// registering a second agent with the same name is an error, never a silent
// replacement.
func (b *Bus) Register(a core.Agent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.agents {
		if existing.Name() == a.Name() {
			return fmt.Errorf("bus: agent %q already registered", a.Name())
		}
	}
	b.agents = append(b.agents, a)
	b.logger.Debug("agent registered", "agent", a.Name(), "rules", len(a.Rules()))
	return nil
}

// Deregister removes the named agent, reporting whether it was present.
// Later registrations keep their relative order for tie-breaking.
func (b *Bus) Deregister(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.agents {
		if a.Name() == name {
			b.agents = append(b.agents[:i], b.agents[i+1:]...)
			b.logger.Debug("agent deregistered", "agent", name)
			return true
		}
	}
	return false
}

// Agents returns the registered agent names in registration order.
func (b *Bus) Agents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.agents))
	for i, a := range b.agents {
		names[i] = a.Name()
	}
	return names
}

// Emit publishes an externally-sourced event (the workflow initiator or a
// transport adapter). The bus assigns identity and the next sequence number;
// the returned value is the admitted, immutable event.
func (b *Bus) Emit(kind string, fields map[string]any) core.Event {
	return b.emitFrom(core.ExternalAuthor, kind, fields)
}

func (b *Bus) emitFrom(author, kind string, fields map[string]any) core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emitLocked(author, kind, fields)
}

func (b *Bus) emitLocked(author, kind string, fields map[string]any) core.Event {
	e := core.NewEvent(author, kind, fields)
	e.Seq = b.nextSeq
	b.nextSeq++
	b.pending = append(b.pending, e)
	return e
}

// subscriber is a single consumer of the completed-event stream. Its own
// mutex orders sends against close, so a cancel racing the dispatch loop's
// notification can never hit a closed channel.
type subscriber struct {
	mu     sync.Mutex
	ch     chan core.Event
	closed bool
}

// send delivers non-blockingly; it reports false only when the consumer's
// buffer is full (the event is dropped from the stream, never from dispatch).
func (s *subscriber) send(e core.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Subscribe returns a stream of completed events plus a cancel function.
// Intended for external consumers such as transport adapters; the stream
// never blocks dispatch, so a consumer that falls behind its buffer misses
// events. Cancel is safe to call at any time, from any goroutine, more than
// once; it closes the stream.
func (b *Bus) Subscribe() (<-chan core.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	sub := &subscriber{ch: make(chan core.Event, b.streamBuf)}
	b.subs[id] = sub
	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Log returns a copy of the completed event log in dispatch order.
func (b *Bus) Log() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLogLocked()
}

func (b *Bus) snapshotLogLocked() []core.Event {
	log := make([]core.Event, len(b.completed))
	copy(log, b.completed)
	return log
}

// PendingInputs returns the outstanding input requests, oldest first.
func (b *Bus) PendingInputs() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotInputsLocked()
}

func (b *Bus) snapshotInputsLocked() []core.Event {
	reqs := make([]core.Event, 0, len(b.inputs))
	for _, req := range b.inputs {
		reqs = append(reqs, req)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Seq < reqs[j].Seq })
	return reqs
}

// SupplyInput satisfies an outstanding input request: it emits the correlated
// core.KindInputResponse event carrying the supplied fields. Call Run again
// afterwards to continue the cascade.
func (b *Bus) SupplyInput(requestID string, fields map[string]any) (core.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inputs[requestID]; !ok {
		return core.Event{}, fmt.Errorf("bus: no outstanding input request %s", requestID)
	}
	delete(b.inputs, requestID)
	merged := map[string]any{core.FieldRequestID: requestID}
	for k, v := range fields {
		merged[k] = v
	}
	return b.emitLocked(core.ExternalAuthor, core.KindInputResponse, merged), nil
}

// CancelInput cancels an outstanding input request (timeout, shutdown). The
// cancellation is never silent: it is reported as an error event carrying the
// requesting agent, the request id and the cause.
func (b *Bus) CancelInput(requestID, cause string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.inputs[requestID]
	if !ok {
		return fmt.Errorf("bus: no outstanding input request %s", requestID)
	}
	delete(b.inputs, requestID)
	b.emitLocked(core.BusAuthor, core.KindError, map[string]any{
		core.FieldOrigin:    req.StringField(core.FieldOrigin),
		core.FieldTriggerID: req.ID,
		core.FieldRequestID: req.ID,
		core.FieldDetail:    fmt.Sprintf("input request cancelled: %s", cause),
	})
	return nil
}

// requestInputFrom registers an outstanding input request on behalf of an
// activated handler and emits the request event so observers can forward it.
func (b *Bus) requestInputFrom(agent string, trigger core.Event, prompt string, fields map[string]any) core.Event {
	merged := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		merged[k] = v
	}
	merged[core.FieldPrompt] = prompt
	merged[core.FieldOrigin] = agent
	merged[core.FieldTriggerID] = trigger.ID
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.emitLocked(agent, core.KindInputRequest, merged)
	b.inputs[e.ID] = e
	return e
}

// Run drives the dispatch loop until the queue drains, a termination kind is
// dispatched, the context is cancelled, or (under AbortOnError) a handler
// fails. Run may be called repeatedly: after StatusAwaitingInput, satisfy the
// requests via SupplyInput and call Run again to continue the same cascade.
func (b *Bus) Run(ctx context.Context) (*Outcome, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	b.logger.Debug("dispatch loop started", "run_id", b.runID)

	start := time.Now()
	outcome, err := b.loop(ctx)
	b.logCascade(outcome, time.Since(start), err)
	return outcome, err
}

func (b *Bus) loop(ctx context.Context) (*Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, ok := b.dequeue()
		if !ok {
			b.mu.Lock()
			log := b.snapshotLogLocked()
			reqs := b.snapshotInputsLocked()
			b.mu.Unlock()
			if len(reqs) > 0 {
				b.logger.Info("dispatch suspended awaiting input", "requests", len(reqs))
				return &Outcome{Status: StatusAwaitingInput, Log: log, InputRequests: reqs}, nil
			}
			b.logger.Debug("dispatch loop drained", "events", len(log))
			return &Outcome{Status: StatusCompleted, Log: log}, nil
		}

		if err := b.dispatch(ctx, e); err != nil {
			b.complete(ctx, e)
			return &Outcome{Status: StatusAborted, Log: b.Log()}, err
		}

		b.complete(ctx, e)

		if b.termination[e.Kind] {
			ev := e
			b.logger.Info("termination event dispatched", "kind", e.Kind, "seq", e.Seq)
			return &Outcome{Status: StatusTerminated, Log: b.Log(), TerminatedBy: &ev}, nil
		}
	}
}

func (b *Bus) dequeue() (core.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return core.Event{}, false
	}
	e := b.pending[0]
	b.pending = b.pending[1:]
	return e, true
}

// matchRec is a matched (agent, rule) pair with the ordering keys used by the
// tie-break policy.
type matchRec struct {
	agentIdx int
	ruleIdx  int
	agent    core.Agent
	rule     core.Rule
	match    core.Match
}

// dispatch evaluates every registered agent's rules against e (exhaustive
// matching), orders the matches and invokes them. The returned error is
// non-nil only under the abort-on-error policy.
func (b *Bus) dispatch(ctx context.Context, e core.Event) error {
	b.mu.Lock()
	agents := make([]core.Agent, len(b.agents))
	copy(agents, b.agents)
	b.mu.Unlock()

	var recs []matchRec
	for ai, a := range agents {
		for ri, r := range a.Rules() {
			if m, ok := r.Selector.Match(e); ok {
				recs = append(recs, matchRec{agentIdx: ai, ruleIdx: ri, agent: a, rule: r, match: m})
			}
		}
	}

	if len(recs) == 0 {
		// Not an error: the event is absorbed.
		b.logger.Debug("no selector matched", "kind", e.Kind, "seq", e.Seq)
		if err := b.hooks.run(ctx, HookOnIdle, &HookContext{Event: &e}); err != nil {
			b.logger.Warn("on_idle hook failed", "error", err)
		}
		return nil
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].match.Priority != recs[j].match.Priority {
			return recs[i].match.Priority > recs[j].match.Priority
		}
		if recs[i].agentIdx != recs[j].agentIdx {
			return recs[i].agentIdx < recs[j].agentIdx
		}
		return recs[i].ruleIdx < recs[j].ruleIdx
	})

	if b.scheduler == SchedulerParallel {
		return b.invokeParallel(ctx, e, recs)
	}
	return b.invokeSequential(ctx, e, recs)
}

func (b *Bus) invokeSequential(ctx context.Context, e core.Event, recs []matchRec) error {
	for _, rec := range recs {
		if err := b.invokeOne(ctx, e, rec); err != nil {
			return err
		}
	}
	return nil
}

// invokeParallel runs each agent's matched handlers in its own goroutine.
// Handlers of the same agent stay serialized in tie-break order; emission is
// synchronized inside the bus, so sequence numbers remain a total order.
func (b *Bus) invokeParallel(ctx context.Context, e core.Event, recs []matchRec) error {
	groups := make(map[int][]matchRec)
	var order []int
	for _, rec := range recs {
		if _, seen := groups[rec.agentIdx]; !seen {
			order = append(order, rec.agentIdx)
		}
		groups[rec.agentIdx] = append(groups[rec.agentIdx], rec)
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for _, idx := range order {
		group := groups[idx]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, rec := range group {
				errMu.Lock()
				aborted := firstErr != nil
				errMu.Unlock()
				if aborted {
					return
				}
				if err := b.invokeOne(ctx, e, rec); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// invokeOne runs a single matched handler. Failures (returned errors, panics,
// guard-hook rejections) are converted to error events; the returned error is
// non-nil only under the abort-on-error policy.
func (b *Bus) invokeOne(ctx context.Context, e core.Event, rec matchRec) error {
	name := rec.agent.Name()
	hc := &HookContext{Event: &e, AgentName: name}
	if err := b.hooks.run(ctx, HookBeforeDispatch, hc); err != nil {
		b.reportFailure(ctx, name, e, err)
		if b.abortOnError {
			return fmt.Errorf("bus: agent %s suppressed on event %s: %w", name, e.ID, err)
		}
		return nil
	}

	act := core.NewActivation(
		ctx,
		e,
		rec.match.Bindings,
		name,
		b.logger,
		func(kind string, fields map[string]any) core.Event {
			return b.emitFrom(name, kind, fields)
		},
		func(prompt string, fields map[string]any) core.Event {
			return b.requestInputFrom(name, e, prompt, fields)
		},
	)

	start := time.Now()
	err := safeInvoke(rec.rule.Handler, act)
	dur := time.Since(start)

	if hookErr := b.hooks.run(ctx, HookAfterDispatch, hc); hookErr != nil {
		b.logger.Warn("after_dispatch hook failed", "agent", name, "error", hookErr)
	}

	b.logDispatch(name, e, dur, err)

	if err != nil {
		b.reportFailure(ctx, name, e, err)
		if b.abortOnError {
			return fmt.Errorf("bus: agent %s failed handling event %s: %w", name, e.ID, err)
		}
	}
	return nil
}

// logDispatch routes per-invocation metrics through the richer BusLogger when
// one is configured, falling back to the minimal interface otherwise.
func (b *Bus) logDispatch(agent string, e core.Event, dur time.Duration, err error) {
	if bl, ok := b.logger.(*logging.BusLogger); ok {
		bl.LogDispatch(agent, e.Kind, dur, err)
		return
	}
	if err != nil {
		b.logger.Error("handler failed", "agent", agent, "kind", e.Kind, "seq", e.Seq, "duration", dur, "error", err)
		return
	}
	b.logger.Debug("handler dispatched", "agent", agent, "kind", e.Kind, "seq", e.Seq, "duration", dur)
}

func (b *Bus) logCheckpoint(id string, cursor int64, dur time.Duration, err error) {
	if bl, ok := b.logger.(*logging.BusLogger); ok {
		bl.LogCheckpoint(id, cursor, dur, err)
		return
	}
	if err != nil {
		b.logger.Error("checkpoint capture failed", "cursor", cursor, "duration", dur, "error", err)
		return
	}
	b.logger.Debug("checkpoint captured", "checkpoint_id", id, "cursor", cursor, "duration", dur)
}

func (b *Bus) logCascade(o *Outcome, dur time.Duration, err error) {
	status := ""
	events := 0
	if o != nil {
		status = string(o.Status)
		events = len(o.Log)
	}
	if bl, ok := b.logger.(*logging.BusLogger); ok {
		bl.LogCascade(status, events, dur, err)
		return
	}
	if err != nil {
		b.logger.Error("run failed", "status", status, "events", events, "duration", dur, "error", err)
		return
	}
	b.logger.Info("run completed", "status", status, "events", events, "duration", dur)
}

// reportFailure converts a handler failure into an error event re-entering
// the dispatch pipeline. Failures raised while already processing an error
// event are logged only, so a faulty error-handling agent cannot produce an
// unbounded error cascade.
func (b *Bus) reportFailure(ctx context.Context, agent string, trigger core.Event, cause error) {
	hc := &HookContext{Event: &trigger, AgentName: agent, Err: cause}
	if hookErr := b.hooks.run(ctx, HookOnError, hc); hookErr != nil {
		b.logger.Warn("on_error hook failed", "agent", agent, "error", hookErr)
	}
	if trigger.Kind == core.KindError {
		b.logger.Error("handler failed while processing an error event; not re-reporting", "agent", agent, "trigger", trigger.ID, "error", cause)
		return
	}
	b.emitFrom(core.BusAuthor, core.KindError, map[string]any{
		core.FieldOrigin:    agent,
		core.FieldTriggerID: trigger.ID,
		core.FieldDetail:    cause.Error(),
	})
}

// safeInvoke shields the dispatch loop from handler panics.
func safeInvoke(h core.Handler, act *core.Activation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(act)
}

// complete marks the event dispatched: it joins the log, the cursor advances,
// subscribers are notified and the checkpoint policy runs.
func (b *Bus) complete(ctx context.Context, e core.Event) {
	b.mu.Lock()
	b.completed = append(b.completed, e)
	b.cursor = e.Seq
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.send(e) {
			b.logger.Warn("subscriber buffer full; event dropped from stream", "seq", e.Seq)
		}
	}

	if b.cpStore == nil || b.cpPolicy == nil || !b.cpPolicy(e) {
		return
	}
	start := time.Now()
	cp, err := b.Capture()
	if err == nil {
		err = b.cpStore.Save(ctx, cp)
	}
	if err != nil {
		b.logCheckpoint("", e.Seq, time.Since(start), err)
		return
	}
	b.logCheckpoint(cp.ID, cp.Cursor, time.Since(start), nil)
	if hookErr := b.hooks.run(ctx, HookOnCheckpoint, &HookContext{Event: &e, Checkpoint: cp}); hookErr != nil {
		b.logger.Warn("on_checkpoint hook failed", "error", hookErr)
	}
}

// Capture serializes the current bus state into a checkpoint document:
// completed log, pending queue, outstanding input requests, sequence cursor
// and every snapshottable agent's private state. Between events the document
// is always consistent; capturing while handlers are executing concurrently
// is the caller's responsibility to avoid.
func (b *Bus) Capture() (*checkpoint.Checkpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := &checkpoint.Checkpoint{
		ID:            core.NewID(),
		Version:       checkpoint.FormatVersion,
		CapturedAt:    time.Now().UTC(),
		NextSeq:       b.nextSeq,
		Cursor:        b.cursor,
		Completed:     b.snapshotLogLocked(),
		Pending:       append([]core.Event{}, b.pending...),
		InputRequests: b.snapshotInputsLocked(),
		AgentStates:   map[string]json.RawMessage{},
	}
	for _, a := range b.agents {
		ss, ok := a.(core.StateSnapshotter)
		if !ok {
			continue
		}
		raw, err := ss.SnapshotState()
		if err != nil {
			return nil, fmt.Errorf("bus: snapshot state of agent %s: %w", a.Name(), err)
		}
		cp.AgentStates[a.Name()] = raw
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

// Resume reconstructs a bus from a checkpoint. The registry itself is code,
// not data: the caller supplies the agents (same identities as at capture
// time); their private state is restored from the document. Events at or
// below the cursor are never re-dispatched. Resume fails fatally on a
// malformed document, a duplicate agent identity, or a state snapshot whose
// agent is missing or cannot restore.
func Resume(cp *checkpoint.Checkpoint, agents []core.Agent, optFns ...func(o *Options)) (*Bus, error) {
	if cp == nil {
		return nil, fmt.Errorf("%w: nil document", checkpoint.ErrInvalidCheckpoint)
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	b := New(optFns...)
	for _, a := range agents {
		if err := b.Register(a); err != nil {
			return nil, err
		}
	}

	for name, raw := range cp.AgentStates {
		var target core.Agent
		for _, a := range agents {
			if a.Name() == name {
				target = a
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("%w: state snapshot for unregistered agent %q", checkpoint.ErrInvalidCheckpoint, name)
		}
		ss, ok := target.(core.StateSnapshotter)
		if !ok {
			return nil, fmt.Errorf("%w: agent %q cannot restore state", checkpoint.ErrInvalidCheckpoint, name)
		}
		if err := ss.RestoreState(raw); err != nil {
			return nil, fmt.Errorf("%w: restore state of agent %q: %v", checkpoint.ErrInvalidCheckpoint, name, err)
		}
	}

	b.mu.Lock()
	b.nextSeq = cp.NextSeq
	b.cursor = cp.Cursor
	b.completed = append([]core.Event{}, cp.Completed...)
	b.pending = append([]core.Event{}, cp.Pending...)
	for _, req := range cp.InputRequests {
		b.inputs[req.ID] = req
	}
	b.mu.Unlock()

	b.logger.Info("bus resumed from checkpoint", "checkpoint_id", cp.ID, "cursor", cp.Cursor, "pending", len(cp.Pending))
	return b, nil
}
