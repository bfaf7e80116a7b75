package metricspush

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/taxengine/internal/config"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"

	defaultPushTimeout = 5 * time.Second
)

// Pusher sends a snapshot of gathered metrics somewhere that outlives the
// process. Implementations do not start goroutines.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher builds a pusher from config. It returns nil when pushing is
// disabled or misconfigured; misconfiguration is logged, never fatal.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	pc := cfg.MetricsPush
	exporter := strings.ToLower(strings.TrimSpace(pc.Exporter))
	if exporter == "" {
		return nil
	}
	endpoint := strings.TrimSpace(pc.Endpoint)
	if endpoint == "" {
		logger.Warn("metrics push disabled", zap.Error(errors.New("metrics push endpoint is required")))
		return nil
	}

	switch exporter {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			logger.Warn("metrics push disabled", zap.Error(fmt.Errorf("invalid metrics push endpoint: %w", err)))
			return nil
		}
		return NewRemoteWritePusher(endpoint, pc.AuthToken)
	case ExporterPushgateway:
		job := strings.TrimSpace(pc.Job)
		if job == "" {
			job = cfg.AppName
		}
		return NewPushgatewayPusher(endpoint, job, map[string]string{
			"environment": strings.TrimSpace(cfg.Environment),
		})
	default:
		logger.Warn("metrics push disabled", zap.String("exporter", exporter))
		return nil
	}
}

// RemoteWritePusher sends metrics to a Prometheus remote_write endpoint.
type RemoteWritePusher struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	now        func() time.Time
}

func NewRemoteWritePusher(endpoint, authToken string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:   endpoint,
		authToken:  strings.TrimSpace(authToken),
		httpClient: &http.Client{Timeout: defaultPushTimeout},
		now:        time.Now,
	}
}

// Push encodes the gathered families as a snappy compressed WriteRequest.
func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}

	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}
	payload, err := proto.Marshal(protoadapt.MessageV2Of(req))
	if err != nil {
		return err
	}

	compressed := snappy.Encode(nil, payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// PushgatewayPusher sends metrics to a Prometheus Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

// Push replaces the job's metric group on the Pushgateway.
func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	if strings.TrimSpace(p.endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(gatherer)
	keys := make([]string, 0, len(p.grouping))
	for key := range p.grouping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := strings.TrimSpace(p.grouping[key])
		key = strings.TrimSpace(key)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	return pusher.PushContext(ctx)
}

// buildRemoteWriteSeries flattens counters, gauges and histograms into
// remote_write samples. Histograms expand into _bucket, _sum and _count
// series the way the text exposition format names them.
func buildRemoteWriteSeries(families []*dto.MetricFamily, timestampMs int64) []prompb.TimeSeries {
	series := make([]prompb.TimeSeries, 0, len(families))
	for _, family := range families {
		name := family.GetName()
		for _, metric := range family.GetMetric() {
			if metric == nil {
				continue
			}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				if metric.GetCounter() == nil {
					continue
				}
				series = append(series, sample(name, metric.GetLabel(), nil, metric.GetCounter().GetValue(), timestampMs))
			case dto.MetricType_GAUGE:
				if metric.GetGauge() == nil {
					continue
				}
				series = append(series, sample(name, metric.GetLabel(), nil, metric.GetGauge().GetValue(), timestampMs))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				if h == nil {
					continue
				}
				for _, bucket := range h.GetBucket() {
					le := prompb.Label{Name: "le", Value: formatBound(bucket.GetUpperBound())}
					series = append(series, sample(name+"_bucket", metric.GetLabel(), &le, float64(bucket.GetCumulativeCount()), timestampMs))
				}
				inf := prompb.Label{Name: "le", Value: "+Inf"}
				series = append(series,
					sample(name+"_bucket", metric.GetLabel(), &inf, float64(h.GetSampleCount()), timestampMs),
					sample(name+"_sum", metric.GetLabel(), nil, h.GetSampleSum(), timestampMs),
					sample(name+"_count", metric.GetLabel(), nil, float64(h.GetSampleCount()), timestampMs),
				)
			}
		}
	}
	return series
}

func sample(name string, pairs []*dto.LabelPair, extra *prompb.Label, value float64, timestampMs int64) prompb.TimeSeries {
	labels := make([]prompb.Label, 0, len(pairs)+2)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	for _, pair := range pairs {
		labels = append(labels, prompb.Label{Name: pair.GetName(), Value: pair.GetValue()})
	}
	if extra != nil {
		labels = append(labels, *extra)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Name < labels[j].Name
	})
	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
	}
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
