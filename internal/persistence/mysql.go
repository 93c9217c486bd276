package persistence

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// SMSGateway is the external SQL database whose outbox table the SMS
// gateway polls for messages to send.
type SMSGateway struct {
	DB *sql.DB
}

// NewSMSGateway opens the gateway database. An empty DSN disables SMS delivery.
func NewSMSGateway(ctx context.Context, dsn string, logger *zap.Logger) (*SMSGateway, error) {
	if dsn == "" {
		logger.Info("NOTIFY_SMS_GATEWAY_DSN not provided; sms delivery disabled")
		return &SMSGateway{}, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("connected to sms gateway")
	return &SMSGateway{DB: db}, nil
}

// Enabled reports whether the gateway is configured.
func (g *SMSGateway) Enabled() bool {
	return g != nil && g.DB != nil
}

// Ping verifies gateway connectivity. A disabled gateway reports healthy.
func (g *SMSGateway) Ping(ctx context.Context) error {
	if !g.Enabled() {
		return nil
	}
	return g.DB.PingContext(ctx)
}

// Close releases the connection pool.
func (g *SMSGateway) Close() {
	if g.Enabled() {
		_ = g.DB.Close()
	}
}
