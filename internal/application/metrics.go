package application

import "expvar"

// Published under /api/debug/vars as "identity".
var metrics = expvar.NewMap("identity")

const (
	metricRegistrations   = "registrations"
	metricLogins          = "logins"
	metricLoginFailures   = "login_failures"
	metricRotations       = "refresh_rotations"
	metricRefreshRejected = "refresh_rejected"
	metricLogouts         = "logouts"
)

func incr(name string) { metrics.Add(name, 1) }
