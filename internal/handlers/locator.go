package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ukydev/smart-clean/internal/catalog"
	"github.com/ukydev/smart-clean/internal/geo"
	"github.com/ukydev/smart-clean/internal/models"
	"github.com/ukydev/smart-clean/internal/report"
)

// LocatorHandler serves the bin catalog and nearest-bin lookups.
type LocatorHandler struct {
	locator *geo.Locator
}

func NewLocatorHandler(locator *geo.Locator) *LocatorHandler {
	return &LocatorHandler{locator: locator}
}

type binView struct {
	models.Facility
	Description string `json:"description"`
}

// ListBins returns the catalog in order.
func (h *LocatorHandler) ListBins(w http.ResponseWriter, r *http.Request) {
	bins := h.locator.Catalog()
	out := make([]binView, 0, len(bins))
	for _, b := range bins {
		out = append(out, binView{Facility: b, Description: catalog.Describe(b)})
	}
	writeJSON(w, http.StatusOK, out)
}

type nearestRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	RadiusKm float64  `json:"radius_km,omitempty"`
}

type nearestResponse struct {
	Location   *models.Location `json:"location"`
	Nearest    *models.Match    `json:"nearest"`
	Summary    string           `json:"summary"`
	Directions string           `json:"directions,omitempty"`
	Within     []models.Match   `json:"within,omitempty"`
}

// Nearest finds the closest bin to the posted coordinate. A missing
// coordinate is answered with a null match, not an error.
func (h *LocatorHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	var req nearestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	query, err := coordinate(req.Lat, req.Lon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	match, err := h.locator.Nearest(query)
	if err != nil {
		if errors.Is(err, geo.ErrNoFacilities) {
			http.Error(w, "No bins configured", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to locate nearest bin", http.StatusInternalServerError)
		return
	}

	resp := nearestResponse{Location: query, Nearest: match}
	if match == nil {
		resp.Summary = "Nearest bin: (location unknown)"
	} else {
		resp.Summary = fmt.Sprintf("Nearest bin: %s — %.2f km", match.Facility.Name, match.DistanceKm)
		resp.Directions = report.DirectionsURL(match.Facility)
	}
	if req.RadiusKm > 0 && query != nil {
		resp.Within, _ = h.locator.Within(query, req.RadiusKm)
	}
	writeJSON(w, http.StatusOK, resp)
}

var errInvalidCoordinate = errors.New("invalid coordinate")

// coordinate turns optional lat/lon into a query point. Either half
// missing means unknown.
func coordinate(lat, lon *float64) (*models.Location, error) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	loc := models.Location{Lat: *lat, Lon: *lon}
	if !loc.Valid() {
		return nil, errInvalidCoordinate
	}
	return &loc, nil
}
