// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package metrics exports prometheus metrics of the websocket client and the
// message dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wangtaoking1/watchwah-agent/message"
	"github.com/wangtaoking1/watchwah-agent/websocket"
)

const namespace = "watchwah_agent"

// StatsSource provides client counters.
type StatsSource interface {
	Stats() websocket.Stats
}

// Collector collects the client counters at scrape time and counts the
// dispatched and dropped messages.
type Collector struct {
	source StatsSource

	connected *prometheus.Desc
	attempts  *prometheus.Desc
	opens     *prometheus.Desc
	closes    *prometheus.Desc
	frames    *prometheus.Desc

	messages *prometheus.CounterVec
	dropped  prometheus.Counter
}

var _ prometheus.Collector = (*Collector)(nil)

// New creates a collector reading source, which may be nil.
func New(source StatsSource) *Collector {
	labels := []string{"url"}
	return &Collector{
		source: source,
		connected: prometheus.NewDesc(prometheus.BuildFQName(namespace, "websocket", "connected"),
			"Whether the websocket connection is open.", labels, nil),
		attempts: prometheus.NewDesc(prometheus.BuildFQName(namespace, "websocket", "connect_attempts_total"),
			"Number of websocket connection attempts.", labels, nil),
		opens: prometheus.NewDesc(prometheus.BuildFQName(namespace, "websocket", "opens_total"),
			"Number of accepted websocket connections.", labels, nil),
		closes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "websocket", "closes_total"),
			"Number of closed websocket connections.", labels, nil),
		frames: prometheus.NewDesc(prometheus.BuildFQName(namespace, "websocket", "frames_total"),
			"Number of text frames received.", labels, nil),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "messages_total",
			Help:      "Number of dispatched messages by kind, containers included.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "dropped_frames_total",
			Help:      "Number of frames dropped because they could not be decoded.",
		}),
	}
}

// ObserveMessage counts a dispatched message. Use it with
// message.WithObserver.
func (c *Collector) ObserveMessage(kind message.Kind) {
	c.messages.WithLabelValues(string(kind)).Inc()
}

// ObserveDropped counts an undecodable frame. Use it with
// message.WithDecodeError.
func (c *Collector) ObserveDropped(*websocket.Frame, error) {
	c.dropped.Inc()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.attempts
	ch <- c.opens
	ch <- c.closes
	ch <- c.frames
	c.messages.Describe(ch)
	c.dropped.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source != nil {
		s := c.source.Stats()
		connected := 0.0
		if s.Connected {
			connected = 1
		}
		ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, connected, s.URL)
		ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(s.Attempts), s.URL)
		ch <- prometheus.MustNewConstMetric(c.opens, prometheus.CounterValue, float64(s.Opens), s.URL)
		ch <- prometheus.MustNewConstMetric(c.closes, prometheus.CounterValue, float64(s.Closes), s.URL)
		ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Frames), s.URL)
	}
	c.messages.Collect(ch)
	c.dropped.Collect(ch)
}
