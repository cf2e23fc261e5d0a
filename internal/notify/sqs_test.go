package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSChannel_Send(t *testing.T) {
	client := &fakeSQS{}
	ch := NewSQSChannel(client, "https://sqs.local/queue")

	msg := Message{To: "a@example.com", Subject: "Order Cancelled", Body: "your order was cancelled"}
	require.NoError(t, ch.Send(context.Background(), msg))

	assert.Equal(t, "https://sqs.local/queue", aws.ToString(client.input.QueueUrl))

	var got Message
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &got))
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("message body mismatch (-want +got):\n%s", diff)
	}
}

func TestSQSChannel_SendError(t *testing.T) {
	ch := NewSQSChannel(&fakeSQS{err: errors.New("throttled")}, "q")
	assert.Error(t, ch.Send(context.Background(), Message{To: "a@example.com"}))
}
