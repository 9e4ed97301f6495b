package messaging

import (
	"context"
	"testing"

	"consultation-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher_NoURLIsNoop(t *testing.T) {
	p, err := NewPublisher(config.RabbitMQConfig{Exchange: "consultations"})
	require.NoError(t, err)

	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.PublishJSON(context.Background(), "consultation.saved", map[string]string{"id": "1"}))
	assert.NoError(t, p.Close())
}

func TestNewRabbitPublisher_BadURL(t *testing.T) {
	_, err := NewRabbitPublisher("not-a-url", "consultations")
	assert.Error(t, err)
}
