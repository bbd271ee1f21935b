package function

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/costexplorer"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/dop251/goja"
)

func newSession(region, profile string) (*session.Session, error) {
	return session.NewSessionWithOptions(session.Options{
		Profile:           profile,
		Config:            aws.Config{Region: aws.String(region)},
		SharedConfigState: session.SharedConfigEnable,
	})
}

// awsBindings is the default helper group: resource listing, cost queries
// and identity, all thin wrappers over the SDK.
type awsBindings struct {
	region  string
	profile string
}

func (b *awsBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("region", b.region)

	obj.Set("listInstances", func(call goja.FunctionCall) goja.Value {
		state := "running"
		if len(call.Arguments) >= 1 {
			if err := vm.ExportTo(call.Argument(0), &state); err != nil {
				return vm.ToValue(Result{Content: "the first argument should be a string"})
			}
		}

		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		out, err := ec2.New(sess).DescribeInstances(&ec2.DescribeInstancesInput{
			Filters: []*ec2.Filter{{
				Name:   aws.String("instance-state-name"),
				Values: []*string{aws.String(state)},
			}},
		})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling listInstances(): %v", err)})
		}

		type instance struct {
			ID         string `json:"instanceId"`
			Type       string `json:"instanceType"`
			State      string `json:"state"`
			LaunchTime string `json:"launchTime"`
		}

		var instances []instance
		for _, res := range out.Reservations {
			for _, inst := range res.Instances {
				instances = append(instances, instance{
					ID:         aws.StringValue(inst.InstanceId),
					Type:       aws.StringValue(inst.InstanceType),
					State:      aws.StringValue(inst.State.Name),
					LaunchTime: aws.TimeValue(inst.LaunchTime).Format(time.RFC3339),
				})
			}
		}

		return vm.ToValue(Result{OK: true, Content: instances})
	})

	obj.Set("costAndUsage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return vm.ToValue(Result{Content: "argument missmatch: you need at least 2 arguments for costAndUsage(start, end, [granularity])"})
		}

		var start, end string
		if err := vm.ExportTo(call.Argument(0), &start); err != nil {
			return vm.ToValue(Result{Content: "the first argument should be a string"})
		} else if err := vm.ExportTo(call.Argument(1), &end); err != nil {
			return vm.ToValue(Result{Content: "the second argument should be a string"})
		}

		granularity := "MONTHLY"
		if len(call.Arguments) >= 3 {
			if err := vm.ExportTo(call.Argument(2), &granularity); err != nil {
				return vm.ToValue(Result{Content: "the third argument should be a string"})
			}
		}

		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		out, err := costexplorer.New(sess).GetCostAndUsage(&costexplorer.GetCostAndUsageInput{
			TimePeriod:  &costexplorer.DateInterval{Start: aws.String(start), End: aws.String(end)},
			Granularity: aws.String(granularity),
			Metrics:     []*string{aws.String("BlendedCost"), aws.String("UnblendedCost")},
			GroupBy: []*costexplorer.GroupDefinition{{
				Type: aws.String("DIMENSION"),
				Key:  aws.String("SERVICE"),
			}},
		})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling costAndUsage(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	obj.Set("callerIdentity", func(call goja.FunctionCall) goja.Value {
		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		out, err := sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling callerIdentity(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	vm.Set("aws", obj)
}

// costBindings operate on data previously fetched with aws.costAndUsage.
// They are pure and never touch the network.
type costBindings struct{}

func (b *costBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("totalCost", func(call goja.FunctionCall) goja.Value {
		data, ok := exportCostData(call.Argument(0))
		if !ok {
			return vm.ToValue(Result{Content: "the first argument should be a costAndUsage() result"})
		}

		return vm.ToValue(Result{OK: true, Content: totalCost(data)})
	})

	obj.Set("serviceCosts", func(call goja.FunctionCall) goja.Value {
		data, ok := exportCostData(call.Argument(0))
		if !ok {
			return vm.ToValue(Result{Content: "the first argument should be a costAndUsage() result"})
		}

		summary := make(map[string]float64)
		for _, period := range data.ResultsByTime {
			for _, group := range period.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				summary[aws.StringValue(group.Keys[0])] += groupAmount(group)
			}
		}

		return vm.ToValue(Result{OK: true, Content: summary})
	})

	obj.Set("trend", func(call goja.FunctionCall) goja.Value {
		data, ok := exportCostData(call.Argument(0))
		if !ok {
			return vm.ToValue(Result{Content: "the first argument should be a costAndUsage() result"})
		}

		return vm.ToValue(Result{OK: true, Content: costTrend(data)})
	})

	vm.Set("cost", obj)
}

func exportCostData(v goja.Value) (*costexplorer.GetCostAndUsageOutput, bool) {
	if v == nil {
		return nil, false
	}

	data, ok := v.Export().(*costexplorer.GetCostAndUsageOutput)
	return data, ok && data != nil
}

func groupAmount(group *costexplorer.Group) float64 {
	metric, ok := group.Metrics["BlendedCost"]
	if !ok || metric.Amount == nil {
		return 0
	}

	amount, err := strconv.ParseFloat(*metric.Amount, 64)
	if err != nil {
		return 0
	}
	return amount
}

func totalCost(data *costexplorer.GetCostAndUsageOutput) float64 {
	var total float64
	for _, period := range data.ResultsByTime {
		for _, group := range period.Groups {
			total += groupAmount(group)
		}
	}
	return total
}

func costTrend(data *costexplorer.GetCostAndUsageOutput) string {
	if len(data.ResultsByTime) < 2 {
		return "insufficient_data"
	}

	var periods []float64
	for _, period := range data.ResultsByTime {
		var sum float64
		for _, group := range period.Groups {
			sum += groupAmount(group)
		}
		periods = append(periods, sum)
	}

	latest := periods[len(periods)-1]
	previous := periods[len(periods)-2]

	switch {
	case latest > previous*1.1:
		return "increasing"
	case latest < previous*0.9:
		return "decreasing"
	default:
		return "stable"
	}
}

// monitoringBindings expose CloudWatch metric helpers.
type monitoringBindings struct {
	region  string
	profile string
}

func (b *monitoringBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("instanceHealth", func(call goja.FunctionCall) goja.Value {
		var instanceID string
		if err := vm.ExportTo(call.Argument(0), &instanceID); err != nil {
			return vm.ToValue(Result{Content: "the first argument should be a string"})
		}

		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		end := time.Now()
		start := end.Add(-1 * time.Hour)

		metrics, err := cloudwatch.New(sess).GetMetricStatistics(&cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String("AWS/EC2"),
			MetricName: aws.String("CPUUtilization"),
			Dimensions: []*cloudwatch.Dimension{{
				Name:  aws.String("InstanceId"),
				Value: aws.String(instanceID),
			}},
			StartTime:  aws.Time(start),
			EndTime:    aws.Time(end),
			Period:     aws.Int64(300),
			Statistics: []*string{aws.String("Average")},
		})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling instanceHealth(): %v", err)})
		}

		var avg float64
		if n := len(metrics.Datapoints); n > 0 {
			for _, point := range metrics.Datapoints {
				avg += aws.Float64Value(point.Average)
			}
			avg /= float64(n)
		}

		status := "healthy"
		if avg >= 90 {
			status = "high_cpu"
		}

		health := map[string]any{
			"instanceId":     instanceID,
			"avgCpuLastHour": avg,
			"status":         status,
		}

		return vm.ToValue(Result{OK: true, Content: health})
	})

	vm.Set("monitoring", obj)
}

// securityBindings expose IAM and security-group listings.
type securityBindings struct {
	region  string
	profile string
}

func (b *securityBindings) install(vm *goja.Runtime) {
	obj := vm.NewObject()

	obj.Set("listUsers", func(call goja.FunctionCall) goja.Value {
		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		out, err := iam.New(sess).ListUsers(&iam.ListUsersInput{})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling listUsers(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	obj.Set("listSecurityGroups", func(call goja.FunctionCall) goja.Value {
		sess, err := newSession(b.region, b.profile)
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error creating AWS session: %v", err)})
		}

		out, err := ec2.New(sess).DescribeSecurityGroups(&ec2.DescribeSecurityGroupsInput{})
		if err != nil {
			return vm.ToValue(Result{Content: fmt.Sprintf("error calling listSecurityGroups(): %v", err)})
		}

		return vm.ToValue(Result{OK: true, Content: out})
	})

	vm.Set("security", obj)
}
