// Package domain defines the core business entities of the biometrics
// tracker: units of measure, typed datapoint variants, tracking
// configurations, schedules, and the person aggregate that owns them.
//
// Entities here are value objects with constructor validation. They carry
// no persistence or scheduling behavior; the recurrence algorithms live in
// the domain/recurrence subpackage and storage in internal/store.
package domain
