package app

import (
	"context"
	"errors"
	"strings"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fulfillment/internal/domain"
	"github.com/vladislavdragonenkov/fulfillment/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/fulfillment/internal/service/lifecycle"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой или если произошла ошибка.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	if brokers == "" {
		return nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// initPaymentConsumer подписывается на платёжные события и транслирует их в
// системные команды координатора.
func initPaymentConsumer(
	cfg Config,
	coordinator lifecycle.Coordinator,
	dlqProducer *kafka.Producer,
	logger *log.Entry,
) (*kafka.Consumer, error) {
	if cfg.KafkaBrokers == "" {
		return nil, nil
	}

	handler := paymentEventHandler(coordinator, logger)
	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.PaymentGroupID,
		[]string{kafka.TopicPaymentEvents},
		handler,
		dlqProducer,
		3,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create payment consumer, continuing without it")
		return nil, err
	}

	return consumer, nil
}

// paymentEventHandler превращает платёжное событие в команду жизненного цикла.
// Повторная доставка события даёт AlreadyTerminal или IllegalTransition —
// такие ошибки подтверждаются без ретрая.
func paymentEventHandler(coordinator lifecycle.Coordinator, logger *log.Entry) kafka.MessageHandler {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		event, err := kafka.ParsePaymentEvent(message)
		if err != nil {
			return err
		}

		var action domain.Action
		switch event.EventType {
		case kafka.EventTypePaymentSucceeded:
			action = domain.ActionPaymentSucceeded
		case kafka.EventTypePaymentTimeout:
			action = domain.ActionPaymentTimeout
		default:
			logger.WithField("event_type", event.EventType).Debug("ignoring payment event")
			return nil
		}

		_, err = coordinator.Submit(domain.Command{
			OrderID:   event.OrderID,
			ActorType: domain.ActorSystem,
			Action:    action,
		})
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyTerminal) || errors.Is(err, domain.ErrIllegalTransition) {
				logger.WithError(err).WithFields(log.Fields{
					"order_id": event.OrderID,
					"action":   action,
				}).Info("payment event is stale, acknowledging")
				return nil
			}
			return err
		}

		return nil
	}
}
