package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus tracks a report through municipal handling.
type ReportStatus string

const (
	StatusOpen       ReportStatus = "open"
	StatusDispatched ReportStatus = "dispatched"
	StatusCollected  ReportStatus = "collected"
	StatusRejected   ReportStatus = "rejected"
)

// IsValidStatus checks if a status is valid
func IsValidStatus(s ReportStatus) bool {
	switch s {
	case StatusOpen, StatusDispatched, StatusCollected, StatusRejected:
		return true
	default:
		return false
	}
}

// Report is a citizen garbage report as stored and exported.
type Report struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Location  *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Nearest   *Match             `bson:"nearest,omitempty" json:"nearest,omitempty"`
	ImageName string             `bson:"image_name,omitempty" json:"image_name,omitempty"`
	ImageType string             `bson:"image_type,omitempty" json:"image_type,omitempty"`
	ImageSize int                `bson:"image_size,omitempty" json:"image_size,omitempty"`
	Status    ReportStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReportRequest is the JSON body for POST /api/reports.
// Lat and Lon are pointers so an absent coordinate stays unknown.
type ReportRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Notes string   `json:"notes"`
	Image []byte   `json:"image,omitempty"`
}

// ShareLinks are the outbound channels offered for a report.
type ShareLinks struct {
	WhatsApp   string `json:"whatsapp"`
	Mailto     string `json:"mailto"`
	Directions string `json:"directions,omitempty"`
}

// ReportResponse is returned after a report is accepted.
type ReportResponse struct {
	ID      string     `json:"id"`
	Text    string     `json:"text"`
	Nearest *Match     `json:"nearest"`
	Channel string     `json:"channel,omitempty"`
	Links   ShareLinks `json:"links"`
}
