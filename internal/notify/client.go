package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/PagerNation/escalator/internal/config"
	"github.com/PagerNation/escalator/internal/domain"
	util "github.com/PagerNation/escalator/pkg/util"
)

// Client performs the direct-send path: one page, one device, right now.
// The batch fan-out never goes through here; the paging queue calls back
// into this when a request's delay has elapsed.
type Client interface {
	Send(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error
	SendEmail(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error
	SendSMS(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error
	SendVoiceCall(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error
}

type gatewayClient struct {
	cfg    config.NotifyConfig
	logger *zap.Logger
}

// NewClient constructs the gateway-backed client.
func NewClient(cfg config.NotifyConfig, logger *zap.Logger) Client {
	return &gatewayClient{cfg: cfg, logger: logger}
}

// Send dispatches on device type. Unknown device types are rejected before
// any transport is touched.
func (c *gatewayClient) Send(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	switch device.Type {
	case domain.DeviceTypeEmail:
		return c.SendEmail(ctx, ticket, user, device)
	case domain.DeviceTypeSMS:
		return c.SendSMS(ctx, ticket, user, device)
	case domain.DeviceTypePhone:
		return c.SendVoiceCall(ctx, ticket, user, device)
	default:
		return util.NewValidationError("invalid device type", map[string]any{
			"device_id": device.ID,
			"type":      string(device.Type),
		})
	}
}

func (c *gatewayClient) SendEmail(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	if strings.TrimSpace(c.cfg.EmailFrom) == "" {
		return util.NewTransportError("email gateway not configured", nil)
	}
	c.logger.Info("sending page email",
		zap.String("from", c.cfg.EmailFrom),
		zap.String("to", device.Target),
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", user.ID))
	return nil
}

func (c *gatewayClient) SendSMS(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	if strings.TrimSpace(c.cfg.SMSGatewayURL) == "" {
		return util.NewTransportError("sms gateway not configured", nil)
	}
	c.logger.Info("sending page sms",
		zap.String("gateway", c.cfg.SMSGatewayURL),
		zap.String("to", device.Target),
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", user.ID))
	return nil
}

func (c *gatewayClient) SendVoiceCall(ctx context.Context, ticket *domain.Ticket, user *domain.User, device domain.Device) error {
	if strings.TrimSpace(c.cfg.VoiceGatewayURL) == "" {
		return util.NewTransportError("voice gateway not configured", nil)
	}
	c.logger.Info("placing page voice call",
		zap.String("gateway", c.cfg.VoiceGatewayURL),
		zap.String("to", device.Target),
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", user.ID))
	return nil
}
