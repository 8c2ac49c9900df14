package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ukydev/smart-clean/internal/models"
	"github.com/ukydev/smart-clean/internal/report"
)

// Publisher is the part of an MQTT client the exporter needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ConnectMQTT dials broker and waits for the session to come up.
func ConnectMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

// Message is the JSON body published for each report.
type Message struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Location  *models.Location `json:"location,omitempty"`
	Nearest   *models.Match    `json:"nearest,omitempty"`
	Image     []byte           `json:"image,omitempty"`
	ImageType string           `json:"image_type,omitempty"`
	SentAt    time.Time        `json:"sent_at"`
}

// MQTTExporter is the messaging channel; subscribers such as a dispatch
// board or a chat bridge pick reports up from Topic.
type MQTTExporter struct {
	Client Publisher
	Topic  string
	QoS    byte
}

func (e *MQTTExporter) Name() string { return "mqtt" }

// Export publishes p and waits for the broker acknowledgement or ctx.
func (e *MQTTExporter) Export(ctx context.Context, p report.Payload) error {
	if e.Client == nil {
		return fmt.Errorf("mqtt client is nil")
	}
	data, err := json.Marshal(Message{
		ID:        p.ID,
		Text:      p.Text,
		Location:  p.Location,
		Nearest:   p.Nearest,
		Image:     p.Image,
		ImageType: p.ImageType,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal report message: %w", err)
	}

	token := e.Client.Publish(e.Topic, e.QoS, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", e.Topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
