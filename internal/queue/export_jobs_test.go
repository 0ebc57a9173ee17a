package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	exchanges map[string]string
	queues    map[string]amqp.Table
	bindings  []string
	published []published
	qos       int
	failQueue string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{exchanges: map[string]string{}, queues: map[string]amqp.Table{}}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if name == f.failQueue {
		return amqp.Queue{}, errors.New("access refused")
	}
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"/"+key+"->"+name)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Qos(count, _ int, _ bool) error {
	f.qos = count
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not consuming")
}

func (f *fakeChannel) Close() error { return nil }

func TestEnsureExportJobsTopology(t *testing.T) {
	ch := newFakeChannel()
	qc := &Client{ch: ch}

	require.NoError(t, EnsureExportJobsTopology(context.Background(), qc))
	assert.Equal(t, "direct", ch.exchanges[ExportJobsExchange])
	assert.Equal(t, amqp.Table{
		"x-dead-letter-exchange":    ExportJobsExchange,
		"x-dead-letter-routing-key": ExportJobsDeadRK,
	}, ch.queues[ExportJobsQueue])
	assert.Equal(t, []string{
		"citai.exports/dead->citai.exports.dlq",
		"citai.exports/generate->citai.exports.generate",
	}, ch.bindings)

	assert.NoError(t, EnsureExportJobsTopology(context.Background(), nil))

	failing := newFakeChannel()
	failing.failQueue = ExportJobsDLQ
	assert.Error(t, EnsureExportJobsTopology(context.Background(), &Client{ch: failing}))
	assert.Empty(t, failing.bindings)
}

func TestPublishExportJob(t *testing.T) {
	ch := newFakeChannel()
	qc := &Client{ch: ch}

	assert.Error(t, qc.PublishExportJob(context.Background(), ExportJobMessage{}))

	require.NoError(t, qc.PublishExportJob(context.Background(), ExportJobMessage{JobID: "job-1", RestaurantID: "r1"}))
	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, ExportJobsExchange, p.exchange)
	assert.Equal(t, ExportJobsRK, p.key)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)

	var msg ExportJobMessage
	require.NoError(t, json.Unmarshal(p.msg.Body, &msg))
	assert.Equal(t, "job-1", msg.JobID)
}

func TestPrefetchDefaultsToOne(t *testing.T) {
	ch := newFakeChannel()
	qc := &Client{ch: ch}

	require.NoError(t, qc.Prefetch(0))
	assert.Equal(t, 1, ch.qos)
	require.NoError(t, qc.Prefetch(4))
	assert.Equal(t, 4, ch.qos)
}
