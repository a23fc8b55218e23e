package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusPayload struct {
	RegistrationID string `json:"registration_id"`
	Status         string `json:"status"`
}

func TestRedisBroadcaster_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	b := NewRedisBroadcaster(db, "realtime")

	payload := statusPayload{RegistrationID: "r1", Status: "approved"}
	body, err := json.Marshal(envelope{Event: "registration:status", Payload: payload})
	require.NoError(t, err)

	mock.ExpectPublish("realtime:admin", body).SetVal(1)

	require.NoError(t, b.Publish(context.Background(), AdminRoom, "registration:status", payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBroadcaster_DeliverTargetsUserRoom(t *testing.T) {
	db, mock := redismock.NewClientMock()
	b := NewRedisBroadcaster(db, "realtime")

	msg := Message{SubjectID: "s1", Event: "certificate:issued", Title: "Certificate issued"}
	body, err := json.Marshal(envelope{Event: msg.Event, Payload: msg})
	require.NoError(t, err)

	mock.ExpectPublish("realtime:user:s1", body).SetErr(errors.New("connection refused"))

	err = b.Deliver(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user:s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
