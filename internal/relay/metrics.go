package relay

import "github.com/prometheus/client_golang/prometheus"

// Inbound outcomes.
const (
	OutcomeRelayed     = "relayed"
	OutcomeBlocked     = "blocked"
	OutcomeDropped     = "dropped"
	OutcomeBanned      = "banned"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnverified  = "unverified"
	OutcomeCommand     = "command"
	OutcomeFailed      = "failed"
	OutcomeError       = "error"
)

// Reply outcomes.
const (
	ReplyDelivered  = "delivered"
	ReplyUnresolved = "unresolved"
	ReplyFailed     = "failed"
)

// Challenge results.
const (
	ChallengeIssued   = "issued"
	ChallengePassed   = "passed"
	ChallengeFailed   = "failed"
	ChallengeExpired  = "expired"
	ChallengeRepeated = "already_verified"
)

// Metrics holds the relay counters.
type Metrics struct {
	Inbound    *prometheus.CounterVec
	Replies    *prometheus.CounterVec
	Challenges *prometheus.CounterVec
}

// NewMetrics creates the relay counters and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycat_inbound_total",
			Help: "Inbound user messages by outcome.",
		}, []string{"outcome"}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycat_replies_total",
			Help: "Operator replies by outcome.",
		}, []string{"outcome"}),
		Challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycat_challenges_total",
			Help: "Verification challenges by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Inbound, m.Replies, m.Challenges)
	}
	return m
}
