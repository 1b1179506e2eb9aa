package mwha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/mqtt"
)

// defaultPollInterval is how long the worker waits for queued commands
// before polling the amplifier stack when nothing arrives.
const defaultPollInterval = 500 * time.Millisecond

// MQTTClient is the narrow slice of the message bus client the bridge
// needs: exact-topic command subscriptions and retained state publishes.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// AmpController is the device driver surface the bridge drives. It is
// satisfied by *Driver and never called concurrently; the worker
// goroutine owns all device traffic.
type AmpController interface {
	ZoneEnquiry(id ZoneID) ([]ZoneStatus, error)
	SetZoneAttribute(id ZoneID, attr Attribute) error
	Resync() error
}

// ZoneConfig carries the operator-facing metadata for one addressable id.
type ZoneConfig struct {
	Name string
}

// SourceConfig carries the operator-facing metadata for one source input.
type SourceConfig struct {
	Name    string
	Enabled bool
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// MQTT is the connected message bus client. Required.
	MQTT MQTTClient

	// Amp is the device driver for the amplifier stack. Required.
	Amp AmpController

	// Topics builds the bus topic names for this gateway instance.
	Topics mqtt.Topics

	// Zones maps every addressable id the gateway exposes to its
	// metadata. Zone-level ids are polled and published; amp-level and
	// system ids only accept fan-out commands. At least one zone-level
	// id is required.
	Zones map[ZoneID]ZoneConfig

	// Sources maps the source inputs announced on the bus.
	Sources map[SourceID]SourceConfig

	// PollInterval is the idle wait between device polls. Defaults to
	// 500ms when zero.
	PollInterval time.Duration

	// Logger receives bridge lifecycle and traffic logs. May be nil.
	Logger *logging.Logger
}

// changeKey coalesces queued commands so only the latest value per
// zone and attribute reaches the device.
type changeKey struct {
	zone ZoneID
	kind AttributeKind
}

// Bridge ties the amplifier driver to the message bus. A single worker
// goroutine serializes all device traffic: it drains queued zone
// commands, applies them, polls the amplifiers and publishes attribute
// changes as retained bus messages.
//
// Thread Safety:
//   - Start, Stop, Fatal, Err, Statuses and Status are safe for
//     concurrent use.
//   - Bus message handlers only enqueue; they never touch the device.
type Bridge struct {
	mqtt   MQTTClient
	amp    AmpController
	topics mqtt.Topics
	logger *logging.Logger

	zones   map[ZoneID]ZoneConfig
	sources map[SourceID]SourceConfig

	// interest holds the zone-level ids whose state is published.
	interest map[ZoneID]bool

	// pollTargets holds one amp-level id per amplifier that owns a
	// zone in interest, in address order.
	pollTargets []ZoneID

	pollInterval time.Duration
	queue        *changeQueue

	statusMu sync.RWMutex
	status   map[ZoneID]ZoneStatus

	fatalOnce sync.Once
	fatalErr  error
	fatalCh   chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBridge validates the options and builds a Bridge.
//
// Parameters:
//   - opts: Bridge configuration; MQTT, Amp and at least one zone-level
//     entry in Zones are required
//
// Returns:
//   - *Bridge: Ready to Start
//   - error: ErrInvalidOptions describing the first missing requirement
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("%w: MQTT client is required", ErrInvalidOptions)
	}
	if opts.Amp == nil {
		return nil, fmt.Errorf("%w: amp controller is required", ErrInvalidOptions)
	}
	if len(opts.Zones) == 0 {
		return nil, fmt.Errorf("%w: at least one zone is required", ErrInvalidOptions)
	}

	interest := make(map[ZoneID]bool)
	for id := range opts.Zones {
		if id.IsZone() {
			interest[id] = true
		}
	}
	if len(interest) == 0 {
		return nil, fmt.Errorf("%w: at least one zone-level id is required", ErrInvalidOptions)
	}

	seen := make(map[ZoneID]bool)
	targets := make([]ZoneID, 0, MaxAmps)
	for id := range interest {
		amp := id.OwningAmp()
		if !seen[amp] {
			seen[amp] = true
			targets = append(targets, amp)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Encode() < targets[j].Encode() })

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	zones := make(map[ZoneID]ZoneConfig, len(opts.Zones))
	for id, zc := range opts.Zones {
		zones[id] = zc
	}
	sources := make(map[SourceID]SourceConfig, len(opts.Sources))
	for id, sc := range opts.Sources {
		sources[id] = sc
	}

	return &Bridge{
		mqtt:         opts.MQTT,
		amp:          opts.Amp,
		topics:       opts.Topics,
		logger:       opts.Logger,
		zones:        zones,
		sources:      sources,
		interest:     interest,
		pollTargets:  targets,
		pollInterval: interval,
		queue:        newChangeQueue(),
		status:       make(map[ZoneID]ZoneStatus),
		fatalCh:      make(chan struct{}),
	}, nil
}

// Start installs the command subscriptions, announces the gateway
// metadata on the bus and launches the worker goroutine. It must be
// called once.
//
// Parameters:
//   - ctx: Bounds subscription setup; the worker itself is stopped via
//     Stop, not ctx
//
// Returns:
//   - error: Subscription or metadata publish failure; the bridge is
//     not running when Start fails
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.installSubscriptions(ctx); err != nil {
		return err
	}
	if err := b.publishMetadata(); err != nil {
		return fmt.Errorf("publishing gateway metadata: %w", err)
	}

	b.wg.Add(1)
	go b.worker()

	b.logInfo("bridge started",
		"zones", len(b.interest),
		"amps", len(b.pollTargets),
		"poll_interval", b.pollInterval.String(),
	)
	return nil
}

// installSubscriptions subscribes to the set topic of every writable
// attribute on every configured id, including amp-level and system ids
// used for command fan-out.
func (b *Bridge) installSubscriptions(ctx context.Context) error {
	for _, id := range b.configuredZoneIDs() {
		for _, kind := range WritableAttributeKinds() {
			if err := ctx.Err(); err != nil {
				return err
			}
			topic := b.topics.ZoneSet(id.String(), kind.String())
			if err := b.mqtt.Subscribe(topic, mqtt.QoSAtLeastOnce, b.setHandler(id, kind)); err != nil {
				return fmt.Errorf("subscribing to %s: %w", topic, err)
			}
		}
	}
	b.logDebug("command subscriptions installed",
		"ids", len(b.zones),
		"attributes", len(WritableAttributeKinds()),
	)
	return nil
}

// setHandler builds the bus handler for one id and attribute kind. The
// handler decodes and validates the payload, then enqueues the change
// for the worker; it never blocks on the device.
func (b *Bridge) setHandler(id ZoneID, kind AttributeKind) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		attr, err := UnmarshalPayload(kind, payload)
		if err != nil {
			return fmt.Errorf("command on %s: %w", topic, err)
		}
		b.queue.push(queueMessage{change: changeRequest{zone: id, attr: attr}})
		return nil
	}
}

// publishMetadata announces the gateway on the bus: availability,
// source names, the zone list and per-zone metadata. Everything is
// retained so late bus subscribers see it immediately.
func (b *Bridge) publishMetadata() error {
	if err := b.mqtt.Publish(b.topics.Connected(), []byte(mqtt.ConnectedPayload), mqtt.QoSAtLeastOnce, true); err != nil {
		return err
	}

	for _, id := range b.configuredSourceIDs() {
		src := b.sources[id]
		if err := b.publishJSON(b.topics.SourceName(id.String()), src.Name); err != nil {
			return err
		}
		if err := b.publishJSON(b.topics.SourceEnabled(id.String()), src.Enabled); err != nil {
			return err
		}
	}

	ids := b.configuredZoneIDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	if err := b.publishJSON(b.topics.Zones(), names); err != nil {
		return err
	}

	for _, id := range ids {
		zone := b.zones[id]
		if err := b.publishJSON(b.topics.ZoneName(id.String()), zone.Name); err != nil {
			return err
		}
		if err := b.publishJSON(b.topics.ZoneType(id.String()), zoneTypeName(id)); err != nil {
			return err
		}
	}
	return nil
}

// zoneTypeName renders the addressing level announced on the zone
// type topic.
func zoneTypeName(id ZoneID) string {
	switch {
	case id.IsSystem():
		return "system"
	case id.IsAmp():
		return "amp"
	default:
		return "zone"
	}
}

// publishJSON marshals value and publishes it retained.
func (b *Bridge) publishJSON(topic string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", topic, err)
	}
	return b.mqtt.Publish(topic, payload, mqtt.QoSAtLeastOnce, true)
}

// worker is the single goroutine that owns the device. Each cycle it
// waits up to pollInterval for a queued command, drains the rest of
// the queue coalescing by zone and attribute, applies the changes,
// then polls every owning amp and publishes what moved.
func (b *Bridge) worker() {
	defer b.wg.Done()

	for {
		msg, ok := b.queue.popWait(b.pollInterval)
		if ok && msg.poison {
			return
		}

		changes := make(map[changeKey]Attribute)
		if ok {
			changes[changeKey{zone: msg.change.zone, kind: msg.change.attr.Kind}] = msg.change.attr
		}
		poisoned := false
		for {
			next, more := b.queue.tryPop()
			if !more {
				break
			}
			if next.poison {
				poisoned = true
				break
			}
			changes[changeKey{zone: next.change.zone, kind: next.change.attr.Kind}] = next.change.attr
		}
		if poisoned {
			return
		}

		if len(changes) > 0 && !b.applyChanges(changes) {
			return
		}
		if !b.pollAndPublish() {
			return
		}
	}
}

// applyChanges writes the coalesced commands to the device. Rejected
// values are logged and dropped; transaction failures trigger one
// resync and retry before the bridge goes fatal. Returns false when
// the worker must stop.
func (b *Bridge) applyChanges(changes map[changeKey]Attribute) bool {
	for key, attr := range changes {
		err := b.amp.SetZoneAttribute(key.zone, attr)
		if err == nil {
			b.logDebug("zone change applied", "zone", key.zone.String(), "attribute", attr.String())
			continue
		}
		if errors.Is(err, ErrValueOutOfRange) || errors.Is(err, ErrReadOnlyAttribute) {
			b.logWarn("zone change rejected, dropping",
				"zone", key.zone.String(),
				"attribute", attr.String(),
				"error", err,
			)
			continue
		}
		if err := b.recoverAndRetry(func() error { return b.amp.SetZoneAttribute(key.zone, attr) }, err); err != nil {
			b.fail(fmt.Errorf("setting %s on zone %s: %w", attr.Kind, key.zone, err))
			return false
		}
	}
	return true
}

// pollAndPublish enquires every owning amp, publishes attributes that
// differ from the previous snapshot and swaps the snapshot. Returns
// false when the worker must stop.
func (b *Bridge) pollAndPublish() bool {
	fresh := make(map[ZoneID]ZoneStatus, len(b.interest))
	for _, amp := range b.pollTargets {
		statuses, err := b.amp.ZoneEnquiry(amp)
		if err != nil {
			retryErr := b.recoverAndRetry(func() error {
				var rerr error
				statuses, rerr = b.amp.ZoneEnquiry(amp)
				return rerr
			}, err)
			if retryErr != nil {
				b.fail(fmt.Errorf("polling amp %s: %w", amp, retryErr))
				return false
			}
		}
		for _, status := range statuses {
			if b.interest[status.Zone] {
				fresh[status.Zone] = status
			}
		}
	}

	b.publishChanges(fresh)

	b.statusMu.Lock()
	b.status = fresh
	b.statusMu.Unlock()
	return true
}

// publishChanges publishes every attribute whose value differs from
// the previous snapshot, retained. Zones absent from the snapshot
// publish all attributes, so the first poll after startup announces
// full state. Publish failures are logged and skipped; state is
// re-published once the value changes again.
func (b *Bridge) publishChanges(fresh map[ZoneID]ZoneStatus) {
	b.statusMu.RLock()
	previous := b.status
	b.statusMu.RUnlock()

	ids := make([]ZoneID, 0, len(fresh))
	for id := range fresh {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Encode() < ids[j].Encode() })

	for _, id := range ids {
		status := fresh[id]
		prev, seen := previous[id]
		for i, attr := range status.Attributes {
			if seen && prev.Attributes[i] == attr {
				continue
			}
			topic := b.topics.ZoneStatus(id.String(), attr.Kind.String())
			if err := b.mqtt.Publish(topic, attr.MarshalPayload(), mqtt.QoSAtLeastOnce, true); err != nil {
				b.logError("publishing zone state", "topic", topic, "error", err)
			}
		}
	}
}

// recoverAndRetry resyncs the device link after a failed transaction
// and runs the operation once more.
//
// Returns:
//   - error: nil only when the retry succeeds; otherwise the resync or
//     retry failure wrapping the original cause
func (b *Bridge) recoverAndRetry(op func() error, cause error) error {
	b.logWarn("device transaction failed, resyncing", "error", cause)
	if err := b.amp.Resync(); err != nil {
		return fmt.Errorf("resync failed: %w (transaction error: %w)", err, cause)
	}
	if err := op(); err != nil {
		return fmt.Errorf("retry after resync: %w", err)
	}
	b.logInfo("device link recovered after resync")
	return nil
}

// fail records the first fatal error and signals Fatal exactly once.
func (b *Bridge) fail(err error) {
	b.fatalOnce.Do(func() {
		b.fatalErr = err
		b.logError("bridge worker stopping", "error", err)
		close(b.fatalCh)
	})
}

// Fatal returns a channel closed when the worker hits an unrecoverable
// device failure. The process is expected to shut down; the bridge
// does not restart itself.
func (b *Bridge) Fatal() <-chan struct{} {
	return b.fatalCh
}

// Err returns the fatal error, or nil while the bridge is healthy.
func (b *Bridge) Err() error {
	select {
	case <-b.fatalCh:
		return b.fatalErr
	default:
		return nil
	}
}

// Stop terminates the worker and waits for it to exit. Queued commands
// behind the shutdown signal are discarded. Safe to call more than
// once and after a fatal failure.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.queue.push(queueMessage{poison: true})
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// Statuses returns a copy of the most recent zone snapshot.
func (b *Bridge) Statuses() map[ZoneID]ZoneStatus {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	out := make(map[ZoneID]ZoneStatus, len(b.status))
	for id, status := range b.status {
		out[id] = status
	}
	return out
}

// Status returns the most recent snapshot for one zone.
func (b *Bridge) Status(id ZoneID) (ZoneStatus, bool) {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	status, ok := b.status[id]
	return status, ok
}

// configuredZoneIDs returns every configured id in address order.
func (b *Bridge) configuredZoneIDs() []ZoneID {
	ids := make([]ZoneID, 0, len(b.zones))
	for id := range b.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Encode() < ids[j].Encode() })
	return ids
}

// configuredSourceIDs returns every configured source in numeric order.
func (b *Bridge) configuredSourceIDs() []SourceID {
	ids := make([]SourceID, 0, len(b.sources))
	for id := range b.sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
