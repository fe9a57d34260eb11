package handler

import (
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pulselabs/pulse/internal/repository"
)

const defaultFailureRateWindow = 24 * time.Hour

type StatsHandler struct {
	stats repository.StatsRepository
}

func NewStatsHandler(stats repository.StatsRepository) (*StatsHandler, error) {
	if stats == nil {
		return nil, fmt.Errorf("stats repository is required")
	}
	return &StatsHandler{stats: stats}, nil
}

func RegisterStatsRoutes(router fiber.Router, stats repository.StatsRepository) error {
	h, err := NewStatsHandler(stats)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/stats", h.GetStats)

	return nil
}

type statsResponse struct {
	ByStatus         map[string]int64         `json:"byStatus"`
	ByChannel        map[string]int64         `json:"byChannel"`
	FailureRates     []channelFailureRateItem `json:"failureRates"`
	AvgRetryAttempts float64                  `json:"avgRetryAttempts"`
	DeliveryLatency  *deliveryLatencySumm     `json:"deliveryLatency,omitempty"`
}

type channelFailureRateItem struct {
	Channel     string  `json:"channel"`
	Total       int64   `json:"total"`
	Failed      int64   `json:"failed"`
	FailureRate float64 `json:"failureRate"`
}

type deliveryLatencySumm struct {
	SampleSize int     `json:"sampleSize"`
	P50Seconds float64 `json:"p50Seconds"`
	P95Seconds float64 `json:"p95Seconds"`
	MaxSeconds float64 `json:"maxSeconds"`
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	ctx := c.Context()

	statusCounts, err := h.stats.CountByStatus(ctx)
	if err != nil {
		return toHTTPError(err)
	}
	channelCounts, err := h.stats.CountByChannel(ctx)
	if err != nil {
		return toHTTPError(err)
	}
	failureRates, err := h.stats.FailureRateSince(ctx, time.Now().UTC().Add(-defaultFailureRateWindow))
	if err != nil {
		return toHTTPError(err)
	}
	avgRetries, err := h.stats.AvgRetryAttempts(ctx)
	if err != nil {
		return toHTTPError(err)
	}
	latencies, err := h.stats.DeliveryLatencies(ctx, 1000)
	if err != nil {
		return toHTTPError(err)
	}

	byStatus := make(map[string]int64, len(statusCounts))
	for _, count := range statusCounts {
		byStatus[string(count.Status)] = count.Count
	}
	byChannel := make(map[string]int64, len(channelCounts))
	for _, count := range channelCounts {
		byChannel[string(count.Channel)] = count.Count
	}

	rateItems := make([]channelFailureRateItem, 0, len(failureRates))
	for _, rate := range failureRates {
		rateItems = append(rateItems, channelFailureRateItem{
			Channel:     string(rate.Channel),
			Total:       rate.Total,
			Failed:      rate.Failed,
			FailureRate: rate.FailureRate,
		})
	}

	return c.Status(fiber.StatusOK).JSON(statsResponse{
		ByStatus:         byStatus,
		ByChannel:        byChannel,
		FailureRates:     rateItems,
		AvgRetryAttempts: avgRetries,
		DeliveryLatency:  summarizeLatencies(latencies),
	})
}

func summarizeLatencies(latencies []repository.DeliveryLatency) *deliveryLatencySumm {
	if len(latencies) == 0 {
		return nil
	}

	seconds := make([]float64, 0, len(latencies))
	for _, latency := range latencies {
		seconds = append(seconds, latency.Seconds)
	}
	sort.Float64s(seconds)

	return &deliveryLatencySumm{
		SampleSize: len(seconds),
		P50Seconds: percentile(seconds, 0.50),
		P95Seconds: percentile(seconds, 0.95),
		MaxSeconds: seconds[len(seconds)-1],
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
