// Package monitoring holds the Prometheus collectors of the API.
package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_success_total",
		Help: "Total successful login attempts",
	})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})

	RegisterSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "register_success_total",
		Help: "Total successful register attempts",
	})

	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Total posts successfully created",
	})

	Follows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "follow_operations_total",
		Help: "Follow graph changes by operation",
	}, []string{"op"})

	Likes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "like_toggles_total",
		Help: "Like toggles by target and resulting state",
	}, []string{"target", "state"})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LoginSuccess)
	prometheus.MustRegister(LoginFailure)
	prometheus.MustRegister(RegisterSuccess)
	prometheus.MustRegister(PostsCreated)
	prometheus.MustRegister(Follows)
	prometheus.MustRegister(Likes)
}

// LikeState is the label value for a like toggle result.
func LikeState(liked bool) string {
	if liked {
		return "liked"
	}
	return "unliked"
}
