package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
)

// SnapshotSource is satisfied by *coordinator.Coordinator.
type SnapshotSource interface {
	Snapshot() coordinator.Snapshot
}

// Collector exports the latest coordinator snapshot. It never talks to the
// gateway itself; scrapes see whatever the last refresh produced.
type Collector struct {
	source SnapshotSource

	up          prometheus.Gauge
	lastSuccess prometheus.Gauge
	authFailed  prometheus.Gauge

	windowOpen    *prometheus.GaugeVec
	windowBattery *prometheus.GaugeVec
	windowRSSI    *prometheus.GaugeVec
	windowTemp    *prometheus.GaugeVec
	windowSolar   *prometheus.GaugeVec
	windowUSB     *prometheus.GaugeVec
	roomOpen      *prometheus.GaugeVec
	roomDevices   *prometheus.GaugeVec

	commands *prometheus.CounterVec
}

// NewCollector creates a collector reading from source.
func NewCollector(source SnapshotSource) *Collector {
	windowLabels := []string{"window_id", "window_name", "room"}
	roomLabels := []string{"room_id", "room_name"}
	return &Collector{
		source: source,
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "norman_gateway_up",
			Help: "Last refresh success (1=ok, 0=error)",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "norman_gateway_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		}),
		authFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "norman_gateway_auth_failed",
			Help: "Whether the gateway rejected the configured password (1=rejected)",
		}),
		windowOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_open_percent",
			Help: "Window opening (0=closed, 100=open)",
		}, windowLabels),
		windowBattery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_battery",
			Help: "Battery level reported by the window",
		}, windowLabels),
		windowRSSI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_rssi",
			Help: "Signal strength reported by the window",
		}, windowLabels),
		windowTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_temperature",
			Help: "Temperature reported by the window",
		}, windowLabels),
		windowSolar: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_solar",
			Help: "Solar charging value reported by the window",
		}, windowLabels),
		windowUSB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_window_usb",
			Help: "USB power value reported by the window",
		}, windowLabels),
		roomOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_room_open_percent",
			Help: "Mean opening of the room's windows that report a position",
		}, roomLabels),
		roomDevices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "norman_room_windows",
			Help: "Number of windows assigned to the room",
		}, roomLabels),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "norman_commands_total",
			Help: "Position commands sent to the gateway",
		}, []string{"scope", "result"}),
	}
}

// ObserveCommand counts a command attempt. It matches coordinator.Options.OnCommand.
func (c *Collector) ObserveCommand(cmd gateway.PositionCommand, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.commands.WithLabelValues(cmd.Scope.String(), result).Inc()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.up.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.authFailed.Describe(ch)
	c.windowOpen.Describe(ch)
	c.windowBattery.Describe(ch)
	c.windowRSSI.Describe(ch)
	c.windowTemp.Describe(ch)
	c.windowSolar.Describe(ch)
	c.windowUSB.Describe(ch)
	c.roomOpen.Describe(ch)
	c.roomDevices.Describe(ch)
	c.commands.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()

	c.up.Set(boolFloat(snap.LastUpdateSuccess))
	c.authFailed.Set(boolFloat(snap.AuthFailed))
	if !snap.LastSuccess.IsZero() {
		c.lastSuccess.Set(float64(snap.LastSuccess.Unix()))
	}

	c.windowOpen.Reset()
	c.windowBattery.Reset()
	c.windowRSSI.Reset()
	c.windowTemp.Reset()
	c.windowSolar.Reset()
	c.windowUSB.Reset()
	c.roomOpen.Reset()
	c.roomDevices.Reset()

	if snap.State != nil {
		for _, e := range snap.State.Entries {
			d := e.Device
			if d.ID == "" {
				continue
			}
			labels := prometheus.Labels{
				"window_id":   d.ID.String(),
				"window_name": d.Name,
				"room":        e.DisplayArea,
			}
			if open, ok := d.OpenPercent(); ok {
				c.windowOpen.With(labels).Set(float64(open))
			}
			setOptional(c.windowBattery, labels, d.Battery)
			setOptional(c.windowRSSI, labels, d.SignalStrength)
			setOptional(c.windowTemp, labels, d.Temperature)
			setOptional(c.windowSolar, labels, d.Solar)
			setOptional(c.windowUSB, labels, d.USBPower)
		}

		for _, r := range gateway.SummarizeRooms(snap.State) {
			labels := prometheus.Labels{"room_id": r.ID.String(), "room_name": r.Name}
			c.roomDevices.With(labels).Set(float64(r.Devices))
			if r.HasPosition {
				c.roomOpen.With(labels).Set(float64(r.OpenPercent))
			}
		}
	}

	c.up.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.authFailed.Collect(ch)
	c.windowOpen.Collect(ch)
	c.windowBattery.Collect(ch)
	c.windowRSSI.Collect(ch)
	c.windowTemp.Collect(ch)
	c.windowSolar.Collect(ch)
	c.windowUSB.Collect(ch)
	c.roomOpen.Collect(ch)
	c.roomDevices.Collect(ch)
	c.commands.Collect(ch)
}

// NewRegistry returns a registry holding collector plus the Go and process collectors.
func NewRegistry(collector *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func setOptional(vec *prometheus.GaugeVec, labels prometheus.Labels, v *float64) {
	if v != nil {
		vec.With(labels).Set(*v)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
