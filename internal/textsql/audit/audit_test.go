package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-query-workers/internal/common/aws"
	"school-query-workers/internal/common/config"
	"school-query-workers/internal/common/database"
	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
)

func sampleEvent() SecurityEvent {
	return NewSecurityEvent("tenant-1", "user-9", "teacher", "How much did we collect?",
		"SELECT SUM(amount) FROM fee_payments WHERE tenant_id = 'tenant-1'",
		"table_not_allowed", "Access to table 'fee_payments' is not permitted for your role")
}

type fakeSink struct {
	mu     sync.Mutex
	events []SecurityEvent
	err    error
}

func (f *fakeSink) Record(_ context.Context, e SecurityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func TestNewSecurityEvent(t *testing.T) {
	e := sampleEvent()

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "Rejected statement (table_not_allowed) for tenant tenant-1", e.Summary())
	assert.Contains(t, e.Text(), "fee_payments")
}

func TestRecorder_FansOutAndJoinsErrors(t *testing.T) {
	ok := &fakeSink{}
	broken := &fakeSink{err: errors.New("boom")}
	r := NewRecorder(logger.NewTestLogger(t), ok, broken)

	err := r.Record(context.Background(), sampleEvent())

	assert.ErrorContains(t, err, "boom")
	assert.Len(t, ok.events, 1)
	assert.Len(t, broken.events, 1)
}

func TestRecorder_NoSinks(t *testing.T) {
	r := NewRecorder(logger.NewTestLogger(t))
	assert.NoError(t, r.Record(context.Background(), sampleEvent()))
}

func TestIndexSink(t *testing.T) {
	var gotPath string
	var gotDoc map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	sink := NewIndexSink(es, "")
	event := sampleEvent()

	require.NoError(t, sink.Record(context.Background(), event))
	assert.Equal(t, "/"+DefaultIndex+"/_doc/"+event.ID, gotPath)
	assert.Equal(t, "table_not_allowed", gotDoc["reason"])
}

func TestIndexSink_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = NewIndexSink(es, "audit").Record(context.Background(), sampleEvent())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeAuditIndexFailed, stdErr.Code)
}

type fakeSNS struct{ input *sns.PublishInput }

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil
}

func TestTopicSink(t *testing.T) {
	api := &fakeSNS{}
	sink := NewTopicSink(aws.NewSNSClientWithAPI(api), "arn:aws:sns:eu-west-1:123456789012:security")

	require.NoError(t, sink.Record(context.Background(), sampleEvent()))
	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:security", awssdk.ToString(api.input.TopicArn))
	assert.Equal(t, "Rejected statement (table_not_allowed) for tenant tenant-1", awssdk.ToString(api.input.Subject))
	assert.Contains(t, awssdk.ToString(api.input.Message), "fee_payments")
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{}, f.err
}

func TestEmailSink(t *testing.T) {
	api := &fakeSES{}
	sink := NewEmailSink(aws.NewSESClientWithAPI(api), "alerts@school.example", []string{"security@school.example"})

	require.NoError(t, sink.Record(context.Background(), sampleEvent()))
	require.NotNil(t, api.input)
	assert.Equal(t, []string{"security@school.example"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "alerts@school.example", awssdk.ToString(api.input.Source))
}

func TestEmailSink_NoRecipients(t *testing.T) {
	api := &fakeSES{}
	sink := NewEmailSink(aws.NewSESClientWithAPI(api), "alerts@school.example", nil)

	require.NoError(t, sink.Record(context.Background(), sampleEvent()))
	assert.Nil(t, api.input)
}
