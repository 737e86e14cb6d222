package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/mail"
)

type fakeSender struct {
	got []mail.Message
	id  string
	err error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	f.got = append(f.got, msg)
	return f.id, f.err
}

func request(t *testing.T, req comm.EmailRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestProcessDelivers(t *testing.T) {
	sender := &fakeSender{id: "msg-1"}
	b := NewBroker(nil, sender, time.Second)

	reply := b.process(request(t, comm.EmailRequest{
		To:      []string{"maria@hk.test"},
		Subject: "Account Created - HK-SAMMS",
		Text:    "Welcome",
	}))

	assert.Equal(t, comm.EmailReply{ID: "msg-1"}, reply)
	require.Len(t, sender.got, 1)
	assert.Equal(t, []string{"maria@hk.test"}, sender.got[0].To)
	assert.Equal(t, "Welcome", sender.got[0].Text)
}

func TestProcessReportsFailure(t *testing.T) {
	sender := &fakeSender{err: &mail.DeliveryError{Attempts: 3, Err: errors.New("503")}}
	b := NewBroker(nil, sender, time.Second)

	reply := b.process(request(t, comm.EmailRequest{To: []string{"a@hk.test"}, Subject: "s", Text: "t"}))

	assert.Empty(t, reply.ID)
	assert.Equal(t, 3, reply.Attempts)
	assert.Contains(t, reply.Error, "503")
}

func TestProcessMalformed(t *testing.T) {
	sender := &fakeSender{id: "x"}
	b := NewBroker(nil, sender, 0)

	reply := b.process([]byte("{not json"))
	assert.Equal(t, "malformed email request", reply.Error)
	assert.Empty(t, sender.got)
}
