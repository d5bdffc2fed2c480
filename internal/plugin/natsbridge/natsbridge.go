// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package natsbridge is the push-based analogue of collectd's network
// plugin (original_source/src/libcollectdclient/network.c): a write
// consumer that publishes every dispatched value list as JSON onto a
// NATS subject, and a standalone listener that subscribes to an InfluxDB
// line-protocol subject and calls the dispatch facade directly from its
// own goroutine whenever a message arrives, grounded on a line-protocol
// decoder and NATS subscribe loop shape (pkg/nats/influxDecoder.go,
// internal/memorystore/lineprotocol.go).
package natsbridge

import (
	"encoding/json"
	"fmt"

	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/log"
	"github.com/siphond/siphond/pkg/model"
	"github.com/siphond/siphond/pkg/natsclient"
)

// Bridge owns one NATS connection shared by the publish and subscribe
// sides.
type Bridge struct {
	client *natsclient.Client
}

// Dial connects to the NATS server described by cfg.
func Dial(cfg natsclient.Config) (*Bridge, error) {
	client, err := natsclient.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: %w", err)
	}
	return &Bridge{client: client}, nil
}

// wireValueList is the JSON-over-NATS wire format for the publish side.
type wireValueList struct {
	Host           string   `json:"host"`
	Plugin         string   `json:"plugin"`
	PluginInstance string   `json:"plugin_instance,omitempty"`
	Type           string   `json:"type"`
	TypeInstance   string   `json:"type_instance,omitempty"`
	Time           int64    `json:"time"`
	Interval       int64    `json:"interval"`
	Values         []string `json:"values"`
}

// RegisterPublisher installs a write consumer named name that marshals
// every value list to JSON and publishes it on subject.
func (b *Bridge) RegisterPublisher(c *core.Core, name, subject string) error {
	if err := c.RegisterWrite(name, func(_ model.DataSet, vl model.ValueList) error {
		return b.publish(subject, vl)
	}); err != nil {
		return fmt.Errorf("natsbridge: register write: %w", err)
	}
	return c.RegisterShutdown(name, func() error {
		b.client.Close()
		return nil
	})
}

func (b *Bridge) publish(subject string, vl model.ValueList) error {
	payload, err := encodeValueList(vl)
	if err != nil {
		return err
	}
	if err := b.client.Publish(subject, payload); err != nil {
		return fmt.Errorf("natsbridge: publish: %w", err)
	}
	return nil
}

// encodeValueList renders vl as the JSON wire format published on the
// write-consumer side.
func encodeValueList(vl model.ValueList) ([]byte, error) {
	values := make([]string, len(vl.Values))
	for i, v := range vl.Values {
		values[i] = v.Format()
	}
	wire := wireValueList{
		Host:           vl.Host,
		Plugin:         vl.Plugin,
		PluginInstance: vl.PluginInstance,
		Type:           vl.Type,
		TypeInstance:   vl.TypeInstance,
		Time:           vl.Time.Nanos(),
		Interval:       vl.Interval.Nanos(),
		Values:         values,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: marshal %s: %w", vl.Identifier, err)
	}
	return payload, nil
}

// Subscribe subscribes to subject and decodes every message as InfluxDB
// line protocol, calling c.DispatchValues directly for each line. Unlike
// a scheduled read producer, messages arrive asynchronously on the NATS
// client's own goroutine rather than the scheduler's.
func (b *Bridge) Subscribe(c *core.Core, subject string) error {
	return b.client.Subscribe(subject, func(_ string, data []byte) {
		if err := decodeAndDispatch(c, data); err != nil {
			log.Warnf("natsbridge: decode line protocol on %q: %v", subject, err)
		}
	})
}

// Close releases the underlying NATS connection.
func (b *Bridge) Close() {
	b.client.Close()
}
