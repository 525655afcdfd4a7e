package audit

import (
	"context"

	"school-query-workers/internal/common/aws"
	"school-query-workers/internal/common/database"
	apperrors "school-query-workers/internal/common/errors"
)

// DefaultIndex is the Elasticsearch index events go to when none is set.
const DefaultIndex = "text-to-sql-security-events"

// IndexSink writes events to an Elasticsearch index keyed by event id.
type IndexSink struct {
	es    *database.ElasticsearchClient
	index string
}

func NewIndexSink(es *database.ElasticsearchClient, index string) *IndexSink {
	if index == "" {
		index = DefaultIndex
	}
	return &IndexSink{es: es, index: index}
}

func (s *IndexSink) Record(ctx context.Context, event SecurityEvent) error {
	if err := s.es.IndexDocument(ctx, s.index, event.ID, event); err != nil {
		return apperrors.NewAuditIndexFailedError(s.index, err)
	}
	return nil
}

// TopicSink publishes events to an SNS topic.
type TopicSink struct {
	client   *aws.SNSClient
	topicARN string
}

func NewTopicSink(client *aws.SNSClient, topicARN string) *TopicSink {
	return &TopicSink{client: client, topicARN: topicARN}
}

func (s *TopicSink) Record(ctx context.Context, event SecurityEvent) error {
	_, err := s.client.PublishText(ctx, s.topicARN, event.Summary(), event.Text())
	return err
}

// EmailSink mails events to a fixed recipient list through SES.
type EmailSink struct {
	client *aws.SESClient
	from   string
	to     []string
}

func NewEmailSink(client *aws.SESClient, from string, to []string) *EmailSink {
	return &EmailSink{client: client, from: from, to: to}
}

func (s *EmailSink) Record(ctx context.Context, event SecurityEvent) error {
	if len(s.to) == 0 {
		return nil
	}
	return s.client.SendText(ctx, s.from, s.to, event.Summary(), event.Text())
}
