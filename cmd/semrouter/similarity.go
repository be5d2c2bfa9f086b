package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Calculate similarity and distance between two vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vector1Str, _ := cmd.Flags().GetString("vector1")
		vector2Str, _ := cmd.Flags().GetString("vector2")
		metricName, _ := cmd.Flags().GetString("metric")

		metric, err := vector.ParseMetric(metricName)
		if err != nil {
			return err
		}

		v1, err := parseVector(vector1Str)
		if err != nil {
			return fmt.Errorf("vector1: %w", err)
		}
		v2, err := parseVector(vector2Str)
		if err != nil {
			return fmt.Errorf("vector2: %w", err)
		}

		cos, err := v1.CosineSimilarity(v2)
		if err != nil {
			return err
		}
		dist, err := v1.Distance(v2, metric)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Similarity (cosine): %.6f\n", cos)
		fmt.Fprintf(out, "Distance (%s): %.6f\n", metric, dist)
		return nil
	},
}

// parseVector parses comma-separated numbers.
func parseVector(s string) (vector.Vector, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return vector.Vector{}, fmt.Errorf("invalid vector format: %w", err)
		}
		values = append(values, val)
	}
	if len(values) == 0 {
		return vector.Vector{}, fmt.Errorf("vector is empty")
	}
	return vector.FromSlice(values), nil
}

func init() {
	similarityCmd.Flags().String("vector1", "", "First vector (comma-separated)")
	similarityCmd.Flags().String("vector2", "", "Second vector (comma-separated)")
	similarityCmd.Flags().String("metric", string(vector.MetricCosine), "Distance metric (euclidean/cosine/manhattan)")
	_ = similarityCmd.MarkFlagRequired("vector1")
	_ = similarityCmd.MarkFlagRequired("vector2")
}
