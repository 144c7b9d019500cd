// Package cloudwatch wraps the AWS CloudWatch "get_metric_statistics"
// collaborator the ElbScaler and SqsScaler depend on, implemented over
// aws-sdk-go-v2's GetMetricData (the v2 SDK has no direct
// GetMetricStatistics equivalent; GetMetricData with a single query and
// matching Stat/Period reproduces the same series).
package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Datapoint is one sample of a metric time series, already sorted by
// Timestamp ascending by GetMetricStatistics.
type Datapoint struct {
	Timestamp time.Time
	Value     float64
}

// Client is the narrow cloud-metrics collaborator used by scalers.
type Client struct {
	cw *cloudwatch.Client
}

func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("cloudwatch: load aws config: %w", err)
	}
	return &Client{cw: cloudwatch.NewFromConfig(cfg)}, nil
}

// Stat selects which CloudWatch statistic GetMetricStatistics reduces
// each period to: "Sum" for request counts, "Maximum" for surge queue
// and queue-throughput peaks.
type Stat string

const (
	StatSum     Stat = "Sum"
	StatMaximum Stat = "Maximum"
)

// GetMetricStatistics mirrors the original boto3 call shape: a
// namespace/metric/dimension selector over [start,end] at a fixed
// period, reduced by stat, returned sorted by timestamp ascending.
func (c *Client) GetMetricStatistics(ctx context.Context, namespace, metricName, dimName, dimValue string, start, end time.Time, period time.Duration, stat Stat) ([]Datapoint, error) {
	query := types.MetricDataQuery{
		Id: aws.String("q1"),
		MetricStat: &types.MetricStat{
			Metric: &types.Metric{
				Namespace:  aws.String(namespace),
				MetricName: aws.String(metricName),
				Dimensions: []types.Dimension{
					{Name: aws.String(dimName), Value: aws.String(dimValue)},
				},
			},
			Period: aws.Int32(int32(period.Seconds())),
			Stat:   aws.String(string(stat)),
		},
		ReturnData: aws.Bool(true),
	}

	out, err := c.cw.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime:         aws.Time(start),
		EndTime:           aws.Time(end),
		MetricDataQueries: []types.MetricDataQuery{query},
	})
	if err != nil {
		return nil, fmt.Errorf("cloudwatch: get metric data for %s/%s: %w", namespace, metricName, err)
	}

	var points []Datapoint
	for _, result := range out.MetricDataResults {
		for i, v := range result.Values {
			if i >= len(result.Timestamps) {
				break
			}
			points = append(points, Datapoint{Timestamp: result.Timestamps[i], Value: v})
		}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points, nil
}
