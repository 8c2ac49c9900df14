package models

// Facility is a named collection bin with a fixed position.
type Facility struct {
	Name     string   `bson:"name" json:"name"`
	Location Location `bson:"location" json:"location"`
}

// Match pairs a facility with its distance from a query point.
type Match struct {
	Facility   Facility `bson:"facility" json:"facility"`
	DistanceKm float64  `bson:"distance_km" json:"distance_km"`
}
