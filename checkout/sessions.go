package checkout

import (
	"context"
	"encoding/json"
	"time"

	"vendo/models"
	"vendo/rdx"
)

const sessionTTL = 24 * time.Hour

// RedisSessions stores payment sessions in Redis keyed by order. The
// TTL bounds how long an abandoned checkout lingers.
type RedisSessions struct{}

func NewRedisSessions() RedisSessions { return RedisSessions{} }

func (RedisSessions) Save(ctx context.Context, session models.PaymentSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return rdx.Conn.Set(ctx, "paysession:"+session.OrderID, data, sessionTTL).Err()
}

func (RedisSessions) Get(ctx context.Context, orderID string) (models.PaymentSession, error) {
	var session models.PaymentSession
	data, err := rdx.Conn.Get(ctx, "paysession:"+orderID).Result()
	if err != nil {
		return session, err
	}
	err = json.Unmarshal([]byte(data), &session)
	return session, err
}
