package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/smart-clean/internal/catalog"
	"github.com/ukydev/smart-clean/internal/db"
	"github.com/ukydev/smart-clean/internal/geo"
	"github.com/ukydev/smart-clean/internal/middleware"
	"github.com/ukydev/smart-clean/internal/models"
	"github.com/ukydev/smart-clean/internal/report"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockReportCollection is a mock implementation of db.ReportCollection
type MockReportCollection struct {
	mock.Mock
}

func (m *MockReportCollection) InsertReport(ctx context.Context, r models.Report) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func (m *MockReportCollection) FindReports(ctx context.Context, filter db.ReportFilter) ([]models.Report, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockReportCollection) FindReportByID(ctx context.Context, id string) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportCollection) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockDeliverer is a mock implementation of Deliverer
type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, p report.Payload) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newReportHandler(store db.ReportCollection, d Deliverer) *ReportHandler {
	svc := report.NewService(geo.NewLocator(catalog.Default()), time.UTC)
	return NewReportHandler(svc, store, d, "ghmc@example.com", 1<<10)
}

func jsonReport(t *testing.T, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestReportHandler_CreateJSON(t *testing.T) {
	bin := catalog.Default()[0]

	t.Run("located report with image", func(t *testing.T) {
		store := new(MockReportCollection)
		deliverer := new(MockDeliverer)
		h := newReportHandler(store, deliverer)

		store.On("InsertReport", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
			return r.Status == models.StatusOpen &&
				r.Nearest != nil && r.Nearest.Facility.Name == bin.Name &&
				r.ImageType == "image/png" && r.ImageSize == len(pngHeader) &&
				strings.HasPrefix(r.ImageName, "garbage_report_") &&
				r.Notes == "overflowing"
		})).Return("abc123", nil)
		deliverer.On("Deliver", mock.Anything, mock.MatchedBy(func(p report.Payload) bool {
			return p.ID == "abc123" && bytes.Equal(p.Image, pngHeader)
		})).Return("mqtt", nil)

		lat, lon := bin.Location.Lat, bin.Location.Lon
		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, models.ReportRequest{Lat: &lat, Lon: &lon, Notes: " overflowing ", Image: pngHeader}))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp models.ReportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "abc123", resp.ID)
		assert.Equal(t, "mqtt", resp.Channel)
		require.NotNil(t, resp.Nearest)
		assert.Equal(t, bin.Name, resp.Nearest.Facility.Name)
		assert.Contains(t, resp.Text, "Nearest Bin: "+bin.Name+" (0.00 km)")
		assert.Contains(t, resp.Text, "Notes: overflowing")
		assert.True(t, strings.HasPrefix(resp.Links.WhatsApp, "https://wa.me/?text="))
		assert.True(t, strings.HasPrefix(resp.Links.Mailto, "mailto:ghmc@example.com?"))
		assert.NotEmpty(t, resp.Links.Directions)
		store.AssertExpectations(t)
		deliverer.AssertExpectations(t)
	})

	t.Run("unknown location", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("InsertReport", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
			return r.Location == nil && r.Nearest == nil && r.ImageName == ""
		})).Return("xyz", nil)

		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, map[string]string{"notes": "near the market"}))

		require.Equal(t, http.StatusCreated, w.Code)
		var resp models.ReportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Nearest)
		assert.Contains(t, resp.Text, "Location: Unknown")
		assert.Contains(t, resp.Text, "Nearest Bin: Unknown")
		assert.Empty(t, resp.Links.Directions)
		assert.Empty(t, resp.Channel)
	})

	t.Run("delivery failure still stores", func(t *testing.T) {
		store := new(MockReportCollection)
		deliverer := new(MockDeliverer)
		h := newReportHandler(store, deliverer)
		store.On("InsertReport", mock.Anything, mock.Anything).Return("id1", nil)
		deliverer.On("Deliver", mock.Anything, mock.Anything).Return("", assert.AnError)

		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, map[string]string{}))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid coordinate", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)

		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, map[string]float64{"lat": 17.4, "lon": 200}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
	})

	t.Run("image too large", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)

		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, models.ReportRequest{Image: bytes.Repeat([]byte{0xff}, 1<<10+1)}))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		store.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("InsertReport", mock.Anything, mock.Anything).Return("", assert.AnError)

		w := httptest.NewRecorder()
		h.Create(w, jsonReport(t, map[string]string{}))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		h := newReportHandler(new(MockReportCollection), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader("hello"))
		req.Header.Set("Content-Type", "text/plain")

		w := httptest.NewRecorder()
		h.Create(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestReportHandler_CreateMultipart(t *testing.T) {
	bin := catalog.Default()[2]

	build := func(t *testing.T, fields map[string]string, image []byte) *http.Request {
		t.Helper()
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		if image != nil {
			fw, err := mw.CreateFormFile("image", "photo.png")
			require.NoError(t, err)
			_, err = fw.Write(image)
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("form with photo", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("InsertReport", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
			return r.Nearest != nil && r.Nearest.Facility.Name == bin.Name && r.ImageType == "image/png"
		})).Return("m1", nil)

		w := httptest.NewRecorder()
		h.Create(w, build(t, map[string]string{
			"lat":   "17.4190",
			"lon":   "78.4280",
			"notes": "bags on the pavement",
		}, pngHeader))

		require.Equal(t, http.StatusCreated, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("form without photo or location", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("InsertReport", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
			return r.Location == nil && r.ImageSize == 0
		})).Return("m2", nil)

		w := httptest.NewRecorder()
		h.Create(w, build(t, map[string]string{"notes": "somewhere"}, nil))

		require.Equal(t, http.StatusCreated, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("bad latitude", func(t *testing.T) {
		h := newReportHandler(new(MockReportCollection), nil)

		w := httptest.NewRecorder()
		h.Create(w, build(t, map[string]string{"lat": "north", "lon": "78.4"}, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportHandler_CreateEmptyCatalog(t *testing.T) {
	store := new(MockReportCollection)
	svc := report.NewService(geo.NewLocator(nil), time.UTC)
	h := NewReportHandler(svc, store, nil, "ghmc@example.com", 0)

	lat, lon := 17.4, 78.4
	w := httptest.NewRecorder()
	h.Create(w, jsonReport(t, models.ReportRequest{Lat: &lat, Lon: &lon}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	store.AssertNotCalled(t, "InsertReport", mock.Anything, mock.Anything)
}

func TestReportHandler_List(t *testing.T) {
	t.Run("filtered", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		reports := []models.Report{{ID: primitive.NewObjectID(), Text: "r1", Status: models.StatusOpen}}
		store.On("FindReports", mock.Anything, db.ReportFilter{Status: models.StatusOpen, Limit: 5}).Return(reports, nil)

		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/reports?status=open&limit=5", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got []models.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "r1", got[0].Text)
		store.AssertExpectations(t)
	})

	t.Run("bad status", func(t *testing.T) {
		h := newReportHandler(new(MockReportCollection), nil)
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/reports?status=lost", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		h := newReportHandler(new(MockReportCollection), nil)
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/reports?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("FindReports", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestReportHandler_GetAndShare(t *testing.T) {
	id := primitive.NewObjectID()
	bin := catalog.Default()[1]
	stored := &models.Report{
		ID:      id,
		Text:    "Garbage Report",
		Nearest: &models.Match{Facility: bin, DistanceKm: 0.4},
		Status:  models.StatusOpen,
	}

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"found", nil, http.StatusOK},
		{"not found", db.ErrReportNotFound, http.StatusNotFound},
		{"invalid id", db.ErrInvalidID, http.StatusBadRequest},
		{"store failure", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockReportCollection)
			h := newReportHandler(store, nil)
			if tc.err != nil {
				store.On("FindReportByID", mock.Anything, id.Hex()).Return(nil, tc.err)
			} else {
				store.On("FindReportByID", mock.Anything, id.Hex()).Return(stored, nil)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/reports/"+id.Hex(), nil)
			req.SetPathValue("id", id.Hex())
			w := httptest.NewRecorder()
			h.Get(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.err == nil {
				var got models.Report
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, id, got.ID)
			}
		})
	}

	t.Run("share links", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("FindReportByID", mock.Anything, id.Hex()).Return(stored, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/"+id.Hex()+"/share", nil)
		req.SetPathValue("id", id.Hex())
		w := httptest.NewRecorder()
		h.Share(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var links models.ShareLinks
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
		assert.Equal(t, report.WhatsAppURL("Garbage Report"), links.WhatsApp)
		assert.Equal(t, report.DirectionsURL(bin), links.Directions)
		assert.Contains(t, links.Mailto, "Attach%20the%20image%20manually")
	})
}

func TestReportHandler_UpdateStatus(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	patch := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, "/api/reports/"+id+"/status", strings.NewReader(body))
		req.SetPathValue("id", id)
		claims := &models.Claims{Username: "crew1", Role: models.RoleCrew}
		return req.WithContext(context.WithValue(req.Context(), middleware.StaffContextKey, claims))
	}

	t.Run("valid transition", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("UpdateStatus", mock.Anything, id, models.StatusCollected).Return(nil)

		w := httptest.NewRecorder()
		h.UpdateStatus(w, patch(`{"status":"collected"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		store.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)

		w := httptest.NewRecorder()
		h.UpdateStatus(w, patch(`{"status":"burned"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing report", func(t *testing.T) {
		store := new(MockReportCollection)
		h := newReportHandler(store, nil)
		store.On("UpdateStatus", mock.Anything, id, models.StatusRejected).Return(db.ErrReportNotFound)

		w := httptest.NewRecorder()
		h.UpdateStatus(w, patch(`{"status":"rejected"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReportHandler_Export(t *testing.T) {
	store := new(MockReportCollection)
	h := newReportHandler(store, nil)
	bin := catalog.Default()[0]
	reports := []models.Report{
		{ID: primitive.NewObjectID(), Text: "first", Status: models.StatusOpen, Nearest: &models.Match{Facility: bin, DistanceKm: 1.5}},
		{ID: primitive.NewObjectID(), Text: "second", Status: models.StatusCollected},
	}
	store.On("FindReports", mock.Anything, mock.MatchedBy(func(f db.ReportFilter) bool {
		return f.Status == ""
	})).Return(reports, nil)

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest(http.MethodGet, "/api/reports/export.xlsx", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	assert.Len(t, rows, len(reports)+1)
}
