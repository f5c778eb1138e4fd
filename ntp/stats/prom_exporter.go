/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter periodically scrapes a Counters set into a private
// Prometheus registry and serves it over /metrics. Unlike the sptp client's
// exporter, which fetches counters from a separate process over HTTP, this
// daemon holds its own Counters in-process, so scraping is a direct map
// read rather than an HTTP round trip.
type PrometheusExporter struct {
	registry   *prometheus.Registry
	counters   *Counters
	listenPort int
	interval   time.Duration
}

// NewPrometheusExporter creates an exporter that scrapes counters every
// scrapeInterval and serves the result on listenPort.
func NewPrometheusExporter(counters *Counters, listenPort int, scrapeInterval time.Duration) *PrometheusExporter {
	return &PrometheusExporter{
		registry:   prometheus.NewRegistry(),
		counters:   counters,
		listenPort: listenPort,
		interval:   scrapeInterval,
	}
}

// Start scrapes once immediately, then on every interval tick, and blocks
// serving /metrics. It is meant to be run in its own goroutine.
func (e *PrometheusExporter) Start() {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			e.scrapeMetrics()
			<-ticker.C
		}
	}()

	http.Handle("/metrics", promhttp.HandlerFor(
		e.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", e.listenPort), nil))
}

func (e *PrometheusExporter) scrapeMetrics() {
	for mkey, mval := range e.counters.Snapshot() {
		promCollector := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: flattenKey(mkey),
			Help: mkey,
		})
		if err := e.registry.Register(promCollector); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				promCollector = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("failed to register metric %s %v", mkey, err)
				continue
			}
		}
		promCollector.Set(float64(mval))
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
