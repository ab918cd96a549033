package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UnitsPubSub broadcasts unit-changed notifications so every instance can
// drop its cached calendars when availability moves.
type UnitsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewUnitsPubSub(rdb *redis.Client) *UnitsPubSub {
	return &UnitsPubSub{
		rdb:     rdb,
		channel: ChannelUnitsChanged(),
	}
}

type unitChangedMsg struct {
	Type   string    `json:"type"`
	UnitID uuid.UUID `json:"unit_id"`
	TsUnix int64     `json:"ts_unix"`
}

func (p *UnitsPubSub) PublishUnitChanged(ctx context.Context, unitID uuid.UUID) error {
	msg := unitChangedMsg{
		Type:   "unit_changed",
		UnitID: unitID,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *UnitsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, unitID uuid.UUID)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev unitChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.UnitID != uuid.Nil {
				handler(ctx, ev.UnitID)
			}
		}
	}
}
