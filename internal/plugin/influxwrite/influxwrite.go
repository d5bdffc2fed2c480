// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package influxwrite is a write consumer forwarding dispatched value
// lists to an InfluxDB v2 bucket, one point per value list with one
// field per source. Configuration (url/token/bucket/org/skiptls) mirrors
// InfluxDBv2DataRepositoryConfig (internal/metricdata/influxdb-v2.go),
// though that file only reads from InfluxDB; this package is the
// write-side counterpart built on the same client and is grounded on
// influxdb-client-go's own public WriteAPI.
package influxwrite

import (
	"context"
	"crypto/tls"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/model"
)

// Config is the write-consumer's connection configuration.
type Config struct {
	URL     string `json:"url"`
	Token   string `json:"token"`
	Bucket  string `json:"bucket"`
	Org     string `json:"org"`
	SkipTLS bool   `json:"skiptls"`
}

// Writer forwards value lists to InfluxDB via the blocking write API, so
// a write failure surfaces back through the registered callback the same
// way every other consumer's does.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// Open dials InfluxDB per cfg.
func Open(cfg Config) (*Writer, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influxwrite: url and bucket are required")
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetTLSConfig(&tls.Config{InsecureSkipVerify: cfg.SkipTLS}))
	return &Writer{client: client, writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
}

// Register installs w as a write consumer and a shutdown callback that
// closes the InfluxDB client.
func (w *Writer) Register(c *core.Core, name string) error {
	if err := c.RegisterWrite(name, w.Write); err != nil {
		return fmt.Errorf("influxwrite: register write: %w", err)
	}
	return c.RegisterShutdown(name, func() error {
		w.client.Close()
		return nil
	})
}

// Write converts vl into a single InfluxDB point — one field per source,
// named after it — and blocks until it is accepted.
func (w *Writer) Write(ds model.DataSet, vl model.ValueList) error {
	tags := map[string]string{"host": vl.Host}
	if vl.PluginInstance != "" {
		tags["plugin_instance"] = vl.PluginInstance
	}
	if vl.TypeInstance != "" {
		tags["type_instance"] = vl.TypeInstance
	}

	fields := make(map[string]interface{}, len(vl.Values))
	for i, v := range vl.Values {
		name := "value"
		if i < len(ds.Sources) {
			name = ds.Sources[i].Name
		}
		fields[name] = v.AsFloat64()
	}

	point := influxdb2.NewPoint(vl.Plugin, tags, fields, vl.Time.GoTime())
	if err := w.writeAPI.WritePoint(context.Background(), point); err != nil {
		return fmt.Errorf("influxwrite: write point for %s: %w", vl.Identifier, err)
	}
	return nil
}
