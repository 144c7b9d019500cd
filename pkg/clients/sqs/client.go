// Package sqs wraps the message-queue collaborator: queue depth via
// AWS SQS GetQueueAttributes. Queue URL resolution mirrors
// sqs_scaler.py's account-id-qualified URL shape, with the account ID
// resolved once via STS and cached for the life of the client.
package sqs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Client resolves a queue name to its depth. The AWS account ID is
// fetched once on construction (mirroring AwsBaseScaler.__init__) since
// every queue URL in the account shares it.
type Client struct {
	sqs       *sqs.Client
	region    string
	accountID string
}

func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("sqs: load aws config: %w", err)
	}

	stsClient := sts.NewFromConfig(cfg)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("sqs: resolve account id via sts: %w", err)
	}

	return &Client{
		sqs:       sqs.NewFromConfig(cfg),
		region:    region,
		accountID: aws.ToString(identity.Account),
	}, nil
}

func (c *Client) queueURL(queueName string) string {
	return fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", c.region, c.accountID, queueName)
}

// GetQueueDepth returns ApproximateNumberOfMessages for the named queue.
func (c *Client) GetQueueDepth(ctx context.Context, queueName string) (int, error) {
	out, err := c.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(c.queueURL(queueName)),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("sqs: get queue attributes for %s: %w", queueName, err)
	}

	raw, ok := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	if !ok {
		return 0, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("sqs: parse queue depth %q: %w", raw, err)
	}
	return depth, nil
}
