package notify

import (
	"context"
	"log"
)

// LogGateway is an SMS gateway that only logs the outgoing message. It is
// used in development environments where no real gateway is configured.
type LogGateway struct{}

// SendSMS logs the message instead of delivering it.
func (g *LogGateway) SendSMS(ctx context.Context, phoneNumber, message string) error {
	log.Printf("level=info component=log_sms_gateway msg=\"sms suppressed\" phone=%s body=%q", phoneNumber, message)
	return nil
}
