package domain

import (
	"encoding/base64"
	"fmt"
	"time"
)

// MediaSource identifies which of the accepted input shapes carried the media.
type MediaSource string

const (
	// MediaSourceUpload is a multipart file upload from the JSON API.
	MediaSourceUpload MediaSource = "upload"

	// MediaSourceDataURL is an inline base64 data URL string.
	MediaSourceDataURL MediaSource = "data_url"

	// MediaSourceRemote is a carrier-hosted URL that must be fetched.
	MediaSourceRemote MediaSource = "remote"
)

// MediaRef references media attached to an inbound message before
// normalization. Which fields are set depends on Source: Data/Filename/
// ContentType for uploads, DataURL for inline payloads, RemoteURL plus an
// optional ContentType hint for carrier media.
type MediaRef struct {
	Source      MediaSource
	Data        []byte
	Filename    string
	ContentType string
	DataURL     string
	RemoteURL   string
}

// InboundMessage is one farmer-submitted message from any channel.
// It is immutable after construction and never persisted directly; only the
// Interaction derived from it is stored.
type InboundMessage struct {
	Sender      string
	Body        string
	Media       *MediaRef
	ContextHint string
	ReceivedAt  time.Time
}

// NewInboundMessage creates an inbound message stamped with the current time.
func NewInboundMessage(sender, body string, media *MediaRef) *InboundMessage {
	return &InboundMessage{
		Sender:     sender,
		Body:       body,
		Media:      media,
		ReceivedAt: time.Now(),
	}
}

// NormalizedMedia is the canonical byte buffer + MIME type pair produced by
// the media normalizer. MimeType always begins with "image/" once
// normalization has succeeded.
type NormalizedMedia struct {
	Data     []byte
	MimeType string
	Ext      string
}

// AsDataURL renders the media as a base64 data URL, the form the vision
// model expects images in.
func (m *NormalizedMedia) AsDataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", m.MimeType, base64.StdEncoding.EncodeToString(m.Data))
}

// Reply is the outcome of one trip through the advice pipeline. Degraded
// marks replies produced by a fallback path (missing credential, provider
// failure, unreadable media) rather than by the model itself; Reason holds
// the cause for logging.
type Reply struct {
	Text     string
	Degraded bool
	Reason   string
}

// OkReply wraps a model answer.
func OkReply(text string) Reply {
	return Reply{Text: text}
}

// DegradedReply wraps a fallback answer together with its cause.
func DegradedReply(text, reason string) Reply {
	return Reply{Text: text, Degraded: true, Reason: reason}
}

// Interaction is one persisted record of an inbound message and the advice
// produced for it. Records are append-only; nothing updates or deletes them.
type Interaction struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	MediaMime string    `json:"media_mime,omitempty"`
	MediaPath string    `json:"media_path,omitempty"`
	Category  string    `json:"category"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}
