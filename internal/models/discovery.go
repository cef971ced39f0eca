// Package models defines the client-side data model for sighting records:
// discoveries keyed by a stable entity key, each holding an ordered list of
// photographic observations.
package models

import "time"

// Sex classifies the observed subject.
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Coordinates is an optional latitude/longitude pair attached to an observation.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Observation is one dated, optionally geolocated data point with a photo
// payload. Immutable once embedded; changes happen via whole-record replace
// of the parent Discovery.
type Observation struct {
	// Date is the calendar date of the sighting, formatted YYYY-MM-DD.
	Date string `json:"date"`

	// Location is free-text place description.
	Location string `json:"location,omitempty"`

	// Coordinates is the optional geolocation of the sighting.
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// Country, Region and City are derived from Coordinates by the
	// surrounding application; empty when geocoding was unavailable.
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`

	// PhotoData is the opaque base64-encoded photo payload.
	PhotoData string `json:"photo"`

	// Sex of the observed subject.
	Sex Sex `json:"sex"`

	// Note is optional free text.
	Note string `json:"note,omitempty"`
}

// Discovery is the unit of user data: accumulated knowledge about one
// subject, keyed by EntityKey. Mutation is always whole-record
// replace-by-key; there is no field-level patch.
type Discovery struct {
	// EntityKey is the stable external identifier (e.g. the species number).
	// It is the map key on the wire and the primary key locally, so it is
	// not serialized inside the record itself.
	EntityKey string `json:"-"`

	// Description is optional free text about the subject.
	Description string `json:"description,omitempty"`

	// Photos is the ordered sequence of observations.
	Photos []Observation `json:"photos"`
}

// CacheEntry is one row of the local entity cache: the full Discovery
// snapshot plus bookkeeping. At most one entry exists per key; last write
// wins.
type CacheEntry struct {
	EntityKey string
	Record    Discovery

	// UpdatedAt is the local write time in UTC.
	UpdatedAt time.Time

	// Synced is true iff the value currently matches, or is believed to
	// match, the remote authority's value for this key.
	Synced bool
}

// QueueStatus is the lifecycle state of a pending mutation. There is no
// terminal "done" status: completion is modeled by row deletion.
type QueueStatus string

// QueueStatusPending marks a mutation awaiting transmission.
const QueueStatusPending QueueStatus = "pending"

// QueueEntry is a full Discovery snapshot awaiting transmission to the
// remote authority. A key may have several historical entries if mutated
// multiple times while offline; each carries the full snapshot, so replay
// is idempotent-safe and the latest snapshot per key is the one that
// ultimately applies.
type QueueEntry struct {
	// ID is monotonic and store-assigned.
	ID int64

	EntityKey string
	Record    Discovery

	// Timestamp is the enqueue time in UTC; used to pick the winning
	// snapshot when several entries share a key.
	Timestamp time.Time

	Status QueueStatus
}
