package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/sirupsen/logrus"
)

// RemoteWriter periodically pushes the registry to a Prometheus remote-write
// endpoint, for setups without a scraping Prometheus (e.g. Grafana Cloud).
type RemoteWriter struct {
	logger       *logrus.Logger
	url          string
	registry     *prometheus.Registry
	pushInterval time.Duration
	httpClient   *http.Client
	username     string
	password     string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRemoteWriter validates the endpoint and builds the writer.
func NewRemoteWriter(logger *logrus.Logger, url string, registry *prometheus.Registry, pushInterval time.Duration, username, password string) (*RemoteWriter, error) {
	if url == "" {
		return nil, fmt.Errorf("metrics: remote write URL cannot be empty")
	}
	if pushInterval <= 0 {
		pushInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RemoteWriter{
		logger:       logger,
		url:          url,
		registry:     registry,
		pushInterval: pushInterval,
		username:     username,
		password:     password,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start launches the push loop.
func (w *RemoteWriter) Start() {
	go w.pushLoop()
}

// Stop cancels the push loop.
func (w *RemoteWriter) Stop() {
	w.cancel()
}

func (w *RemoteWriter) pushLoop() {
	ticker := time.NewTicker(w.pushInterval)
	defer ticker.Stop()

	if err := w.push(); err != nil {
		w.logger.Errorf("Failed to push metrics: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := w.push(); err != nil {
				w.logger.Errorf("Failed to push metrics: %v", err)
			}
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *RemoteWriter) push() error {
	families, err := w.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	timeseries := toTimeSeries(families)
	if len(timeseries) == 0 {
		return nil
	}

	data, err := (&prompb.WriteRequest{Timeseries: timeseries}).Marshal()
	if err != nil {
		return fmt.Errorf("marshal write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, w.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	req.Header.Set("User-Agent", "flow-agentkit-starter/1.0")
	if w.username != "" && w.password != "" {
		req.SetBasicAuth(w.username, w.password)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote write returned %d: %s", resp.StatusCode, string(body))
	}

	w.logger.Debugf("Pushed %d time series", len(timeseries))
	return nil
}

// toTimeSeries flattens gathered metric families into remote-write samples.
// Histograms expand into _sum, _count and per-bucket series.
func toTimeSeries(families []*dto.MetricFamily) []prompb.TimeSeries {
	var out []prompb.TimeSeries
	now := time.Now().UnixMilli()

	sample := func(labels []prompb.Label, value float64) prompb.TimeSeries {
		return prompb.TimeSeries{
			Labels:  labels,
			Samples: []prompb.Sample{{Value: value, Timestamp: now}},
		}
	}

	for _, mf := range families {
		for _, m := range mf.Metric {
			labels := []prompb.Label{{Name: "__name__", Value: mf.GetName()}}
			for _, label := range m.Label {
				labels = append(labels, prompb.Label{Name: label.GetName(), Value: label.GetValue()})
			}

			switch mf.GetType() {
			case dto.MetricType_GAUGE:
				out = append(out, sample(labels, m.Gauge.GetValue()))

			case dto.MetricType_COUNTER:
				out = append(out, sample(labels, m.Counter.GetValue()))

			case dto.MetricType_UNTYPED:
				out = append(out, sample(labels, m.Untyped.GetValue()))

			case dto.MetricType_HISTOGRAM:
				h := m.Histogram
				if h == nil {
					continue
				}

				sumLabels := append([]prompb.Label{}, labels...)
				sumLabels[0].Value = mf.GetName() + "_sum"
				out = append(out, sample(sumLabels, h.GetSampleSum()))

				countLabels := append([]prompb.Label{}, labels...)
				countLabels[0].Value = mf.GetName() + "_count"
				out = append(out, sample(countLabels, float64(h.GetSampleCount())))

				for _, bucket := range h.Bucket {
					bucketLabels := append([]prompb.Label{}, labels...)
					bucketLabels[0].Value = mf.GetName() + "_bucket"
					bucketLabels = append(bucketLabels, prompb.Label{
						Name:  "le",
						Value: fmt.Sprintf("%g", bucket.GetUpperBound()),
					})
					out = append(out, sample(bucketLabels, float64(bucket.GetCumulativeCount())))
				}
			}
		}
	}

	return out
}
