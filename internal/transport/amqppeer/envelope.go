package amqppeer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"filerelay/internal/archive"
	"filerelay/internal/attachments"
	"filerelay/internal/transfer"
)

const messageType = "filerelay.transfer.v1"

// Meta carries delivery metadata alongside the transfer.
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// Payload is the transfer itself. Container is base64 in JSON.
type Payload struct {
	Manifest  transfer.Manifest `json:"manifest"`
	Container []byte            `json:"container"`
}

// Envelope is the message body published to the broker.
type Envelope struct {
	Meta Meta    `json:"meta"`
	Data Payload `json:"data"`
}

// ErrPoison marks a message that can never be processed.
var ErrPoison = errors.New("poison message")

func encodeEnvelope(manifest transfer.Manifest, container archive.Container, now time.Time) ([]byte, Envelope, error) {
	id, err := attachments.ID(container.Bytes())
	if err != nil {
		return nil, Envelope{}, fmt.Errorf("compute attachment id: %w", err)
	}
	manifest.AttachmentID = id.String()
	env := Envelope{
		Meta: Meta{
			ID:            manifest.TransferID,
			Type:          messageType,
			Time:          now.UTC(),
			CorrelationID: manifest.TransferID,
		},
		Data: Payload{Manifest: manifest, Container: container.Bytes()},
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, Envelope{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, env, nil
}

func decodeEnvelope(body []byte) (transfer.Manifest, archive.Container, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return transfer.Manifest{}, archive.Container{}, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if env.Meta.Type != messageType {
		return transfer.Manifest{}, archive.Container{}, fmt.Errorf("%w: unexpected type %q", ErrPoison, env.Meta.Type)
	}
	manifest := env.Data.Manifest
	if manifest.TransferID == "" {
		manifest.TransferID = env.Meta.ID
	}
	if err := attachments.Verify(manifest.AttachmentID, env.Data.Container); err != nil {
		return transfer.Manifest{}, archive.Container{}, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	return manifest, archive.FromBytes(env.Data.Container), nil
}
