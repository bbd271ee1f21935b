package function

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/costexplorer"
)

func costData(amounts ...map[string]string) *costexplorer.GetCostAndUsageOutput {
	out := &costexplorer.GetCostAndUsageOutput{}

	for _, period := range amounts {
		res := &costexplorer.ResultByTime{}
		for service, amount := range period {
			res.Groups = append(res.Groups, &costexplorer.Group{
				Keys: []*string{aws.String(service)},
				Metrics: map[string]*costexplorer.MetricValue{
					"BlendedCost": {Amount: aws.String(amount)},
				},
			})
		}
		out.ResultsByTime = append(out.ResultsByTime, res)
	}

	return out
}

func TestTotalCost(t *testing.T) {
	data := costData(
		map[string]string{"AmazonEC2": "10.50", "AmazonS3": "2.25"},
		map[string]string{"AmazonEC2": "11.25"},
	)

	if got := totalCost(data); got != 24.0 {
		t.Errorf("expected 24.0, got %f", got)
	}
}

func TestTotalCostIgnoresBadAmounts(t *testing.T) {
	data := costData(map[string]string{"AmazonEC2": "not-a-number", "AmazonS3": "3"})

	if got := totalCost(data); got != 3.0 {
		t.Errorf("expected 3.0, got %f", got)
	}
}

func TestCostTrend(t *testing.T) {
	cases := []struct {
		name string
		data *costexplorer.GetCostAndUsageOutput
		want string
	}{
		{
			"increasing",
			costData(map[string]string{"svc": "100"}, map[string]string{"svc": "150"}),
			"increasing",
		},
		{
			"decreasing",
			costData(map[string]string{"svc": "100"}, map[string]string{"svc": "50"}),
			"decreasing",
		},
		{
			"stable",
			costData(map[string]string{"svc": "100"}, map[string]string{"svc": "104"}),
			"stable",
		},
		{
			"single period",
			costData(map[string]string{"svc": "100"}),
			"insufficient_data",
		},
	}

	for _, c := range cases {
		if got := costTrend(c.data); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}
