package kafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{RetryMax: 3, RequiredAcks: 1})
	require.Error(t, err)

	_, err = NewProducer(ProducerConfig{Brokers: []string{}})
	require.Error(t, err)
}
