package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do escrow-service: bet_placed na
// orquestração e match_settled no endpoint administrativo de liquidação.
type KafkaPublisher struct {
	BetPlacedWriter    *kafka.Writer
	MatchSettledWriter *kafka.Writer
}

func NewKafkaPublisher(betPlaced, matchSettled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{BetPlacedWriter: betPlaced, MatchSettledWriter: matchSettled}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.BetPlacedWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.EscrowID), Value: b})
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e events.MatchSettled) error {
	e.Ts = time.Now()
	b, _ := json.Marshal(e)
	return p.MatchSettledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
