package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_posted_total",
			Help: "Total messages posted",
		},
		[]string{"author"}, // "human" or "bot"
	)

	Mentions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_mentions_total",
			Help: "Mentions seen in posted messages",
		},
		[]string{"outcome"}, // "resolved", "skipped", "failed"
	)

	ReactionsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reactions_added_total",
			Help: "Total reactions created",
		},
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_search_queries_total",
			Help: "Total search queries",
		},
	)

	AttachmentUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_attachment_uploads_total",
			Help: "Attachment uploads",
		},
		[]string{"result"},
	)

	// Generation metrics
	PersonaGenerations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_persona_generations_total",
			Help: "Persona generation calls issued",
		},
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_generation_failures_total",
			Help: "Generation calls that fell back to default text",
		},
		[]string{"kind"}, // "persona" or "reply"
	)

	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_generation_latency_seconds",
			Help:    "Latency of text generation calls",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"kind"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
	)
)
