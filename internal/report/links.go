package report

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ukydev/smart-clean/internal/models"
)

const (
	MailSubject    = "Garbage Report from Smart Clean India"
	attachReminder = "(Attach the image manually)"
)

// WhatsAppURL opens a chat pre-filled with text.
func WhatsAppURL(text string) string {
	return "https://wa.me/?text=" + encodeComponent(text)
}

// MailtoURL addresses the report to the municipal inbox. The body carries
// a reminder because mail links cannot attach the photo.
func MailtoURL(address, subject, body string) string {
	body = body + "\n\n" + attachReminder
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", address, encodeComponent(subject), encodeComponent(body))
}

// DirectionsURL opens navigation to a facility in Google Maps.
func DirectionsURL(f models.Facility) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%v,%v", f.Location.Lat, f.Location.Lon)
}

// Links builds every share link for a formatted report.
func Links(text, mailTo string, nearest *models.Match) models.ShareLinks {
	links := models.ShareLinks{
		WhatsApp: WhatsAppURL(text),
		Mailto:   MailtoURL(mailTo, MailSubject, text),
	}
	if nearest != nil {
		links.Directions = DirectionsURL(nearest.Facility)
	}
	return links
}

// encodeComponent escapes like a URI component: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
