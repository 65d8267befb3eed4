package http

import (
	"encoding/xml"
	"net/http"

	"github.com/agricagent/agricagent/internal/core/domain"
)

// twimlResponse is the carrier's expected XML reply envelope: one Message
// element whose character data carries the reply text.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Webhook handles an inbound carrier form POST. The carrier transport does
// not use HTTP status to signal processing failures, so this handler always
// answers 200 with a well-formed XML envelope; failures become the message
// text.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Warn("malformed webhook form", "error", err)
		h.renderTwiML(w, "Sorry, I couldn't process your request.")
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")

	var ref *domain.MediaRef
	if mediaURL := r.PostFormValue("MediaUrl0"); r.PostFormValue("NumMedia") != "0" && mediaURL != "" {
		ref = &domain.MediaRef{
			Source:      domain.MediaSourceRemote,
			RemoteURL:   mediaURL,
			ContentType: r.PostFormValue("MediaContentType0"),
		}
	}

	msg := domain.NewInboundMessage(from, body, ref)
	reply := h.service.HandleInbound(r.Context(), msg)
	h.renderTwiML(w, reply.Text)
}

// renderTwiML writes the XML envelope. encoding/xml escapes the markup
// special characters in the message text.
func (h *Handler) renderTwiML(w http.ResponseWriter, text string) {
	payload, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		h.log.Error("failed to marshal TwiML response", "error", err)
		payload = []byte("<Response><Message>Sorry, I couldn't process your request.</Message></Response>")
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(payload)
}
