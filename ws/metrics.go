package ws

import "github.com/prometheus/client_golang/prometheus"

// Broadcast sebepleri (teamchat_presence_broadcasts_total{reason}).
const (
	reasonAddUser    = "add-user"
	reasonRemoveUser = "remove-user"
	reasonDisconnect = "disconnect"
	reasonResume     = "resume"
	reasonSlow       = "slow-consumer"
)

var (
	roomsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "teamchat_presence_rooms",
		Help: "Number of presence rooms with a running actor.",
	})

	sessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "teamchat_presence_sessions",
		Help: "Number of live presence connections.",
	})

	broadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teamchat_presence_broadcasts_total",
		Help: "Presence snapshots broadcast to a room, by trigger.",
	}, []string{"reason"})

	droppedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teamchat_presence_dropped_frames_total",
		Help: "Malformed inbound presence frames that were dropped.",
	})
)

func init() {
	prometheus.MustRegister(roomsGauge)
	prometheus.MustRegister(sessionsGauge)
	prometheus.MustRegister(broadcastsTotal)
	prometheus.MustRegister(droppedFramesTotal)
}
