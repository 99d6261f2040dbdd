// Package remote exposes the control router over MQTT: JSON control events
// come in on <prefix>/control, status goes out on <prefix>/status.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ivlev/ministudio/internal/config"
	"github.com/ivlev/ministudio/internal/control"
	"github.com/ivlev/ministudio/internal/live"
)

const (
	queueSize      = 64
	statusInterval = time.Second
	qos            = 1
)

// Router is what remote drives.
type Router interface {
	Handle(ev control.Event)
	Status() control.Status
}

// StatsFunc returns the statistics of the current loop, zero when idle.
type StatsFunc func() live.Stats

// Status is published once per second.
type Status struct {
	control.Status
	Delivered uint64    `json:"delivered"`
	Dropped   uint64    `json:"dropped"`
	Stale     uint64    `json:"stale"`
	Time      time.Time `json:"time"`
}

func NewStatus(s control.Status, st live.Stats, now time.Time) Status {
	return Status{
		Status:    s,
		Delivered: st.Delivered,
		Dropped:   st.CameraDropped,
		Stale:     st.Stale,
		Time:      now,
	}
}

type Remote struct {
	cfg    config.MQTT
	router Router
	stats  StatsFunc
	log    *slog.Logger

	client   mqtt.Client
	events   chan control.Event
	received atomic.Uint64
	rejected atomic.Uint64

	wg   sync.WaitGroup
	once sync.Once
}

func New(cfg config.MQTT, router Router, stats StatsFunc, log *slog.Logger) *Remote {
	if log == nil {
		log = slog.Default()
	}
	if stats == nil {
		stats = func() live.Stats { return live.Stats{} }
	}
	return &Remote{
		cfg:    cfg,
		router: router,
		stats:  stats,
		log:    log.With("component", "remote"),
		events: make(chan control.Event, queueSize),
	}
}

func (r *Remote) ControlTopic() string { return r.cfg.Prefix + "/control" }

func (r *Remote) StatusTopic() string { return r.cfg.Prefix + "/status" }

// Connect connects to the broker, subscribes to the control topic and starts
// the event and status goroutines. They stop when ctx is done.
func (r *Remote) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(r.cfg.Broker)
	opts.SetClientID(r.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		r.log.Info("mqtt connection established", "broker", r.cfg.Broker, "client_id", r.cfg.ClientID)
		// После переподключения подписка теряется.
		if err := r.subscribe(c); err != nil {
			r.log.Error("subscribe failed", "topic", r.ControlTopic(), "error", err)
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		r.log.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", r.cfg.Broker)
	}

	r.client = mqtt.NewClient(opts)
	r.log.Info("connecting to mqtt broker", "broker", r.cfg.Broker)

	token := r.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	r.wg.Add(2)
	go r.processEvents(ctx)
	go r.publishStatus(ctx)
	return nil
}

func (r *Remote) subscribe(c mqtt.Client) error {
	token := c.Subscribe(r.ControlTopic(), qos, r.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	r.log.Info("subscribed to control topic", "topic", r.ControlTopic())
	return nil
}

func (r *Remote) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	ev, err := decodeEvent(msg.Payload())
	if err != nil {
		r.rejected.Add(1)
		r.log.Warn("invalid control event", "topic", msg.Topic(), "error", err)
		return
	}
	r.received.Add(1)

	select {
	case r.events <- ev:
	default:
		r.rejected.Add(1)
		r.log.Warn("control queue full, event dropped", "event", ev.String())
	}
}

// decodeEvent accepts an event addressed by name or by id; kind and the
// missing half of the address come from the surface tables.
func decodeEvent(payload []byte) (control.Event, error) {
	var ev control.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode: %w", err)
	}
	if ev.Name != "" {
		kind, id, ok := control.Lookup(ev.Name)
		if !ok {
			return ev, fmt.Errorf("unknown control %q", ev.Name)
		}
		ev.Kind, ev.ID = kind, id
	} else {
		kind, name, ok := control.ByID(ev.ID)
		if !ok {
			return ev, fmt.Errorf("unknown control id %d", ev.ID)
		}
		ev.Kind, ev.Name = kind, name
	}
	if ev.Kind == control.Slider && (ev.Value < 0 || ev.Value > 1) {
		return ev, fmt.Errorf("slider value %v out of range", ev.Value)
	}
	return ev, nil
}

func (r *Remote) processEvents(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.router.Handle(ev)
		}
	}
}

func (r *Remote) publishStatus(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(statusInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			payload, err := json.Marshal(NewStatus(r.router.Status(), r.stats(), now))
			if err != nil {
				r.log.Error("status encode failed", "error", err)
				continue
			}
			if !r.client.IsConnected() {
				continue
			}
			token := r.client.Publish(r.StatusTopic(), 0, false, payload)
			if !token.WaitTimeout(2*time.Second) || token.Error() != nil {
				r.log.Debug("status publish failed", "error", token.Error())
			}
		}
	}
}

// Received and Rejected count incoming control messages.
func (r *Remote) Received() uint64 { return r.received.Load() }
func (r *Remote) Rejected() uint64 { return r.rejected.Load() }

// Close waits for the goroutines started by Connect (cancel their context
// first) and disconnects.
func (r *Remote) Close() {
	r.once.Do(func() {
		r.wg.Wait()
		if r.client != nil && r.client.IsConnected() {
			r.client.Disconnect(250)
			r.log.Info("mqtt disconnected")
		}
	})
}
