package queue

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

const RegistrationTopic = "pidkeeper.registrations"

var _ EventQueue = (*Kafka)(nil)

// Kafka publishes registration events to a kafka topic.
type Kafka struct {
	producer *kafka.Producer
	topic    string
}

func NewKafka(brokers, topic string) (*Kafka, error) {
	if topic == "" {
		topic = RegistrationTopic
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return nil, err
	}

	k := &Kafka{producer: producer, topic: topic}
	go k.drainDeliveryReports()
	return k, nil
}

func (k *Kafka) PublishRegistration(ctx context.Context, ev *RegistrationEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(ev.V3),
		Value:          value,
	}, nil)
}

func (k *Kafka) drainDeliveryReports() {
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			logrus.Errorf("kafka delivery failed: %v", m.TopicPartition.Error)
		}
	}
}

func (k *Kafka) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}
