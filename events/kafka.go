// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/foundriesio/dg-shadow/context"
)

const kafkaTypeHeader = "event-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaExporter forwards bus events to a Kafka topic keyed by device id, so
// that all events of one device land on the same partition in order.
type KafkaExporter struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaExporter(brokers []string, topic string) *KafkaExporter {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &KafkaExporter{writer: w, timeout: 5 * time.Second}
}

func (k *KafkaExporter) Export(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("unable to marshal %s event: %w", evt.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(evt.DeviceId),
		Value:   value,
		Time:    evt.Time,
		Headers: []kafka.Header{{Key: kafkaTypeHeader, Value: []byte(evt.Type)}},
	})
}

// Run exports events from the subscription until ctx is done or the
// subscription is closed. Export failures are logged and the event is lost;
// Kafka is a best-effort mirror of the bus, not a source of truth.
func (k *KafkaExporter) Run(ctx context.Context, sub *Subscription) {
	log := context.CtxGetLog(ctx).With("daemon", "kafka-exporter")
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := k.Export(ctx, evt); err != nil {
				log.Error("failed to export event", "type", evt.Type, "device", evt.DeviceId, "error", err)
			}
		}
	}
}

func (k *KafkaExporter) Close() error {
	return k.writer.Close()
}
