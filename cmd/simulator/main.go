package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ukydev/smart-clean/internal/catalog"
	"github.com/ukydev/smart-clean/internal/models"
)

// unknownRate is the share of reports sent without a location, as when a
// phone refuses the permission prompt.
const unknownRate = 0.15

// fakePhoto is a PNG signature followed by filler; the server only sniffs it.
var fakePhoto = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 256)...)

var notes = []string{
	"",
	"Overflowing bin",
	"Bags dumped on the footpath",
	"Construction debris",
	"Near the bus stop",
	"Stray animals scattering waste",
}

// Submission is what the simulator posts for one report.
type Submission struct {
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Notes string   `json:"notes,omitempty"`
	Image []byte   `json:"image,omitempty"`
}

// Receipt is the part of the API answer the simulator logs.
type Receipt struct {
	ID         string
	NearestBin string
	DistanceKm float64
	Channel    string
}

type simulator struct {
	apiURL string
	token  string
	client *http.Client
	bins   []models.Facility

	mu  sync.Mutex
	rng *rand.Rand
}

func newSimulator(apiURL, token string, bins []models.Facility, seed int64) *simulator {
	return &simulator{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		bins:   bins,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// jitterLocation moves base by up to meters in each axis.
func (s *simulator) jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (s.float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (s.float64()*2 - 1) * (meters / lonMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

// nextSubmission builds a report near a random bin.
func (s *simulator) nextSubmission() Submission {
	sub := Submission{Notes: notes[s.intn(len(notes))]}
	if s.float64() >= unknownRate {
		loc := s.jitterLocation(s.bins[s.intn(len(s.bins))].Location, 1500)
		sub.Lat, sub.Lon = &loc.Lat, &loc.Lon
	}
	if s.float64() < 0.7 {
		sub.Image = fakePhoto
	}
	return sub
}

func (s *simulator) do(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, rd)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// sendReport posts one report and extracts the receipt.
func (s *simulator) sendReport(ctx context.Context, sub Submission) (*Receipt, error) {
	body, status, err := s.do(ctx, http.MethodPost, "/reports", sub)
	if err != nil {
		return nil, fmt.Errorf("failed to send report: %w", err)
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("report rejected with status: %d", status)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON in response")
	}

	res := gjson.GetManyBytes(body, "id", "nearest.facility.name", "nearest.distance_km", "channel")
	if res[0].String() == "" {
		return nil, fmt.Errorf("invalid report ID in response")
	}
	return &Receipt{
		ID:         res[0].String(),
		NearestBin: res[1].String(),
		DistanceKm: res[2].Float(),
		Channel:    res[3].String(),
	}, nil
}

// collectOpen plays a crew member: every open report in the queue is
// marked collected. Needs a token with update_reports.
func (s *simulator) collectOpen(ctx context.Context) (int, error) {
	body, status, err := s.do(ctx, http.MethodGet, "/reports?status=open&limit=20", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("listing failed with status: %d", status)
	}

	collected := 0
	for _, id := range gjson.GetBytes(body, "#.id").Array() {
		path := "/reports/" + id.String() + "/status"
		_, status, err := s.do(ctx, http.MethodPatch, path, map[string]string{"status": string(models.StatusCollected)})
		if err != nil {
			return collected, err
		}
		if status != http.StatusOK {
			log.WithFields(log.Fields{"report_id": id.String(), "status": status}).Warn("Status update refused")
			continue
		}
		collected++
	}
	return collected, nil
}

func (s *simulator) runReporter(ctx context.Context, name string, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		sub := s.nextSubmission()
		receipt, err := s.sendReport(ctx, sub)
		if err != nil {
			log.WithError(err).WithField("reporter", name).Error("Failed to submit report")
			continue
		}
		log.WithFields(log.Fields{
			"reporter":    name,
			"report_id":   receipt.ID,
			"located":     sub.Lat != nil,
			"nearest_bin": receipt.NearestBin,
			"distance_km": receipt.DistanceKm,
			"channel":     receipt.Channel,
		}).Info("Submitted report")
	}
}

func (s *simulator) runCrew(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		n, err := s.collectOpen(ctx)
		if err != nil {
			log.WithError(err).Error("Crew pass failed")
			continue
		}
		log.WithField("collected", n).Info("Crew pass completed")
	}
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n
		}
	}
	return def
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	reporters := envInt("REPORTER_COUNT", 5)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 5)) * time.Second

	bins, err := catalog.Load(os.Getenv("CATALOG_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load bin catalog")
	}

	sim := newSimulator(apiURL, os.Getenv("SIM_AUTH_TOKEN"), bins, time.Now().UnixNano())

	log.WithFields(log.Fields{
		"reporters": reporters,
		"api_url":   apiURL,
		"interval":  interval,
		"bins":      len(bins),
	}).Info("Starting report simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sim.runReporter(ctx, name, interval)
		}(fmt.Sprintf("reporter-%d", i+1))
	}
	if sim.token != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.runCrew(ctx, 4*interval)
		}()
	}

	wg.Wait()
	log.Info("Report simulation stopped")
}
