// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for auth metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Session check results.
const (
	SessionCheckValid   = "valid"
	SessionCheckMissing = "missing"
	SessionCheckExpired = "expired"
	SessionCheckError   = "error"
)

// LoginAttempts counts login attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessionauth_logins_total",
		Help: "Total number of login attempts by result",
	},
	[]string{"result"},
)

// SessionsIssued counts sessions created.
var SessionsIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sessionauth_sessions_issued_total",
		Help: "Total number of sessions issued",
	},
)

// SessionChecks counts session validations by result.
var SessionChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessionauth_session_checks_total",
		Help: "Total number of session validations by result",
	},
	[]string{"result"},
)

// Registrations counts registration attempts by result.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessionauth_registrations_total",
		Help: "Total number of registration attempts by result",
	},
	[]string{"result"},
)

// PasswordResets counts reset token issuance and consumption.
var PasswordResets = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessionauth_password_resets_total",
		Help: "Total number of password reset operations by stage and result",
	},
	[]string{"stage", "result"},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(SessionChecks)
	reg.MustRegister(Registrations)
	reg.MustRegister(PasswordResets)
}

// RecordLogin increments the login counter.
func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// RecordSessionIssued increments the issued session counter.
func RecordSessionIssued() {
	SessionsIssued.Inc()
}

// RecordSessionCheck increments the session check counter.
func RecordSessionCheck(result string) {
	SessionChecks.WithLabelValues(result).Inc()
}

// RecordRegistration increments the registration counter.
func RecordRegistration(result string) {
	Registrations.WithLabelValues(result).Inc()
}

// RecordPasswordReset increments the reset counter.
// stage is "issue" or "consume".
func RecordPasswordReset(stage, result string) {
	PasswordResets.WithLabelValues(stage, result).Inc()
}
