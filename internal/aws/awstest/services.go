package awstest

import (
	"context"
	"fmt"
	"io"
	"sync"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records sent messages.
type SQS struct {
	mu       sync.Mutex
	Messages []*sqs.SendMessageInput
	Err      error
}

func (q *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return nil, q.Err
	}
	q.Messages = append(q.Messages, in)
	id := fmt.Sprintf("msg-%d", len(q.Messages))
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

// Bodies returns the bodies of every sent message in order.
func (q *SQS) Bodies() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.Messages))
	for _, m := range q.Messages {
		out = append(out, deref(m.MessageBody))
	}
	return out
}

// S3 keeps uploaded objects in memory, keyed by bucket/key.
type S3 struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error

	// PresignErr, when set, fails PresignGetObject.
	PresignErr error
}

// NewS3 returns an empty S3 fake.
func NewS3() *S3 {
	return &S3{Objects: map[string][]byte{}}
}

func (s *S3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var body []byte
	if in.Body != nil {
		b, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}
	s.Objects[deref(in.Bucket)+"/"+deref(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

// PresignGetObject returns a fake URL that encodes bucket, key and expiry.
func (s *S3) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PresignErr != nil {
		return nil, s.PresignErr
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	u := fmt.Sprintf("https://%s.s3.local/%s?X-Amz-Expires=%d", deref(in.Bucket), deref(in.Key), int(opts.Expires.Seconds()))
	return &v4.PresignedHTTPRequest{URL: u, Method: "GET"}, nil
}

// Object returns the stored bytes for bucket/key.
func (s *S3) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Objects[bucket+"/"+key]
	return b, ok
}

// CloudWatch records metric data points.
type CloudWatch struct {
	mu   sync.Mutex
	Data []cwtypes.MetricDatum
	Err  error
}

func (c *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.Data = append(c.Data, in.MetricData...)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Sum returns the summed value of every data point named name.
func (c *CloudWatch) Sum(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum float64
	for _, d := range c.Data {
		if deref(d.MetricName) == name && d.Value != nil {
			sum += *d.Value
		}
	}
	return sum
}
