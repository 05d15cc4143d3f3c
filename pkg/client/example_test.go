package client_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pratik-mahalle/cloudops/pkg/client"
)

// Example demonstrates basic usage of the cloudops client
func Example() {
	c := client.NewClient(client.Config{
		BaseURL: "http://localhost:8080",
		APIKey:  "secret",
	})

	ctx := context.Background()

	summary, err := c.Anomalies().Summary(ctx, "123456789012")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Open anomalies: %d\n", summary.OpenAnomalies)
}

// ExampleAnomalyService_Detect demonstrates detection over a supplied series
func ExampleAnomalyService_Detect() {
	c := client.NewClient(client.Config{BaseURL: "http://localhost:8080"})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]client.DataPoint, 0, 20)
	for i := 0; i < 20; i++ {
		v := 10.0
		if i == 19 {
			v = 100
		}
		points = append(points, client.DataPoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Value: v})
	}

	result, err := c.Anomalies().Detect(context.Background(), client.DetectRequest{
		AccountID:  "123456789012",
		MetricType: "CPUUtilization",
		DataPoints: points,
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, a := range result.Anomalies {
		fmt.Printf("%s %s: %.1f (expected %.1f)\n", a.Severity, a.MetricType, a.CurrentValue, a.ExpectedValue)
	}
}

// ExampleCostService_Forecast demonstrates forecasting next month's cost
func ExampleCostService_Forecast() {
	c := client.NewClient(client.Config{BaseURL: "http://localhost:8080"})

	result, err := c.Costs().Forecast(context.Background(), "123456789012", []float64{100, 105, 110, 98, 120})
	if err != nil {
		log.Fatal(err)
	}

	f := result.Forecasts[0]
	fmt.Printf("%s: %.2f [%.2f, %.2f]\n", f.ForecastDate, f.PredictedCost, f.LowerBound, f.UpperBound)
}

// ExampleAPIError demonstrates error handling
func ExampleAPIError() {
	c := client.NewClient(client.Config{BaseURL: "http://localhost:8080"})

	_, err := c.Anomalies().Get(context.Background(), "123456789012", "missing")
	if client.IsNotFound(err) {
		fmt.Println("Anomaly not found")
		return
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		fmt.Printf("API error %d: %s\n", apiErr.StatusCode, apiErr.Message)
	}
}
