package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/db"
	"github.com/ukydev/smart-clean/internal/device"
	"github.com/ukydev/smart-clean/internal/export"
	"github.com/ukydev/smart-clean/internal/geo"
	"github.com/ukydev/smart-clean/internal/middleware"
	"github.com/ukydev/smart-clean/internal/models"
	"github.com/ukydev/smart-clean/internal/report"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const storeTimeout = 8 * time.Second

// Deliverer pushes a stored report out through an export channel and
// names the channel that took it.
type Deliverer interface {
	Deliver(ctx context.Context, p report.Payload) (string, error)
}

// ReportHandler handles report intake and the staff report queue.
type ReportHandler struct {
	service       *report.Service
	store         db.ReportCollection
	deliverer     Deliverer
	mailTo        string
	maxImageBytes int64
}

// NewReportHandler creates a report handler. deliverer may be nil.
func NewReportHandler(service *report.Service, store db.ReportCollection, deliverer Deliverer, mailTo string, maxImageBytes int64) *ReportHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = device.DefaultMaxImageBytes
	}
	return &ReportHandler{
		service:       service,
		store:         store,
		deliverer:     deliverer,
		mailTo:        mailTo,
		maxImageBytes: maxImageBytes,
	}
}

// intake is a parsed submission before it becomes a draft.
type intake struct {
	lat, lon *float64
	notes    string
	image    io.Reader
}

// Create accepts a citizen report as JSON or multipart form data.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes*2+1<<20)

	var in intake
	var err error
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		in, err = parseJSONIntake(r)
	case strings.HasPrefix(ct, "multipart/form-data"):
		in, err = h.parseMultipartIntake(r)
	default:
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := coordinate(in.lat, in.lon); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	draft := h.service.NewDraft()
	draft.Notes = strings.TrimSpace(in.notes)
	if in.lat != nil && in.lon != nil {
		draft.Location = h.service.Resolve(ctx, device.Fixed(*in.lat, *in.lon))
	}
	if in.image != nil {
		capture := &device.ReaderImage{R: in.image, MaxBytes: h.maxImageBytes}
		if err := h.service.Attach(ctx, capture, draft); err != nil {
			if errors.Is(err, device.ErrImageTooLarge) {
				http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
				return
			}
			if !errors.Is(err, device.ErrNoImage) {
				http.Error(w, "Failed to read image", http.StatusBadRequest)
				return
			}
		}
	}

	text, nearest, err := h.service.Prepare(ctx, draft)
	if err != nil {
		if errors.Is(err, geo.ErrNoFacilities) {
			http.Error(w, "No bins configured", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to prepare report", http.StatusInternalServerError)
		return
	}

	doc := models.Report{
		ID:        primitive.NewObjectID(),
		Text:      text,
		Notes:     draft.Notes,
		Location:  draft.Location,
		Nearest:   nearest,
		Status:    models.StatusOpen,
		CreatedAt: draft.CreatedAt.UTC(),
	}
	if draft.HasImage() {
		doc.ImageType = draft.ImageType
		doc.ImageSize = len(draft.Image)
		doc.ImageName = export.ImageFilename(doc.ID.Hex(), draft.ImageType)
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	id, err := h.store.InsertReport(storeCtx, doc)
	if err != nil {
		log.WithError(err).Error("Failed to store report")
		http.Error(w, "Failed to store report", http.StatusInternalServerError)
		return
	}

	channel := ""
	if h.deliverer != nil {
		channel, err = h.deliverer.Deliver(ctx, report.Payload{
			ID:        id,
			Text:      text,
			Image:     draft.Image,
			ImageType: draft.ImageType,
			Location:  draft.Location,
			Nearest:   nearest,
		})
		if err != nil {
			log.WithError(err).WithField("report_id", id).Warn("Report stored but not exported")
		}
	}

	log.WithFields(log.Fields{
		"report_id": id,
		"has_image": draft.HasImage(),
		"located":   draft.Location != nil,
		"channel":   channel,
	}).Info("Report received")

	writeJSON(w, http.StatusCreated, models.ReportResponse{
		ID:      id,
		Text:    text,
		Nearest: nearest,
		Channel: channel,
		Links:   report.Links(text, h.mailTo, nearest),
	})
}

func parseJSONIntake(r *http.Request) (intake, error) {
	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return intake{}, err
		}
		return intake{}, errors.New("invalid JSON")
	}
	in := intake{lat: req.Lat, lon: req.Lon, notes: req.Notes}
	if len(req.Image) > 0 {
		in.image = bytes.NewReader(req.Image)
	}
	return in, nil
}

func (h *ReportHandler) parseMultipartIntake(r *http.Request) (intake, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return intake{}, err
		}
		return intake{}, errors.New("invalid multipart form")
	}

	lat, err := parseOptionalFloat(r.FormValue("lat"))
	if err != nil {
		return intake{}, errors.New("invalid lat")
	}
	lon, err := parseOptionalFloat(r.FormValue("lon"))
	if err != nil {
		return intake{}, errors.New("invalid lon")
	}

	in := intake{lat: lat, lon: lon, notes: r.FormValue("notes")}
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		// the multipart form keeps the file open until the request ends
		in.image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		return intake{}, errors.New("invalid image upload")
	}
	return in, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns reports newest first, optionally filtered by ?status= and ?limit=.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := db.ReportFilter{Status: models.ReportStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	reports, err := h.store.FindReports(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list reports")
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Get returns one report.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Share returns the outbound links for a stored report.
func (h *ReportHandler) Share(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Links(rep.Text, h.mailTo, rep.Nearest))
}

// UpdateStatus moves a report along the handling workflow.
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.ReportStatus `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !models.IsValidStatus(req.Status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if err := h.store.UpdateStatus(ctx, id, req.Status); err != nil {
		writeStoreError(w, err)
		return
	}

	fields := log.Fields{"report_id": id, "status": req.Status}
	if claims, ok := middleware.GetStaffFromContext(r.Context()); ok {
		fields["staff"] = claims.Username
	}
	log.WithFields(fields).Info("Report status updated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}

// Export streams the report queue as a spreadsheet.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter := db.ReportFilter{Status: models.ReportStatus(r.URL.Query().Get("status")), Limit: 10000}
	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	reports, err := h.store.FindReports(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to load reports for export")
		http.Error(w, "Failed to export reports", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, reports); err != nil {
		log.WithError(err).Error("Failed to build report workbook")
		http.Error(w, "Failed to export reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="garbage_reports.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ReportHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	rep, err := h.store.FindReportByID(ctx, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return rep, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrInvalidID):
		http.Error(w, "Invalid report ID", http.StatusBadRequest)
	case errors.Is(err, db.ErrReportNotFound):
		http.Error(w, "Report not found", http.StatusNotFound)
	default:
		log.WithError(err).Error("Report store error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
