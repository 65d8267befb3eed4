package ports

import "context"

// CarrierPort sends outbound messages through the WhatsApp carrier's REST
// API. Send returns the carrier-assigned message SID.
type CarrierPort interface {
	Send(ctx context.Context, to, body string) (sid string, err error)
}
