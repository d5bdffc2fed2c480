// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/siphond/siphond/internal/plugin/cpu"
	"github.com/siphond/siphond/internal/plugin/influxwrite"
	"github.com/siphond/siphond/internal/plugin/natsbridge"
	"github.com/siphond/siphond/internal/plugin/s3archive"
	"github.com/siphond/siphond/internal/plugin/sqlstore"
	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/config"
	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/natsclient"
)

// sqlstoreConfig is sqlstore's own configuration block, nested under
// "plugin"/"sqlstore" in the top-level document.
type sqlstoreConfig struct {
	Path string `json:"path"`
}

// natsbridgeConfig bundles the shared NATS connection plus the subjects
// the publisher and subscriber halves use, nested under
// "plugin"/"natsbridge".
type natsbridgeConfig struct {
	Nats             natsclient.Config `json:"nats"`
	PublishSubject   string            `json:"publish-subject"`
	SubscribeSubject string            `json:"subscribe-subject"`
}

// closer is satisfied by every plugin that main closes itself after the
// core's shutdown. natsbridge.Bridge holds the NATS connection both plugin
// halves share and is always added here: its shutdown callback is
// registered only by RegisterPublisher, so a subscribe-only bridge has none.
type closer interface {
	Close()
}

// loadPlugins walks doc.LoadPlugin in order, decodes each name's
// configuration block and wires it into c. An unknown plugin name is a
// hard error — there is no notion of an optional/best-effort plugin
// load.
func loadPlugins(ctx context.Context, c *core.Core, doc config.Document, defaultInterval cdtime.Time) ([]closer, error) {
	var closers []closer
	for _, name := range doc.LoadPlugin {
		switch name {
		case "cpu":
			p, err := cpu.New()
			if err != nil {
				return closers, fmt.Errorf("plugin cpu: %w", err)
			}
			if err := p.Register(c, defaultInterval); err != nil {
				return closers, fmt.Errorf("plugin cpu: %w", err)
			}

		case "sqlstore":
			var cfg sqlstoreConfig
			if err := decodePluginConfig(doc, name, &cfg); err != nil {
				return closers, err
			}
			store, err := sqlstore.Open(cfg.Path)
			if err != nil {
				return closers, fmt.Errorf("plugin sqlstore: %w", err)
			}
			if err := store.Register(c, name); err != nil {
				return closers, fmt.Errorf("plugin sqlstore: %w", err)
			}

		case "natsbridge":
			var cfg natsbridgeConfig
			if err := decodePluginConfig(doc, name, &cfg); err != nil {
				return closers, err
			}
			bridge, err := natsbridge.Dial(cfg.Nats)
			if err != nil {
				return closers, fmt.Errorf("plugin natsbridge: %w", err)
			}
			if cfg.PublishSubject != "" {
				if err := bridge.RegisterPublisher(c, name, cfg.PublishSubject); err != nil {
					return closers, fmt.Errorf("plugin natsbridge: %w", err)
				}
			}
			if cfg.SubscribeSubject != "" {
				if err := bridge.Subscribe(c, cfg.SubscribeSubject); err != nil {
					return closers, fmt.Errorf("plugin natsbridge: %w", err)
				}
			}
			closers = append(closers, bridge)

		case "influxwrite":
			var cfg influxwrite.Config
			if err := decodePluginConfig(doc, name, &cfg); err != nil {
				return closers, err
			}
			writer, err := influxwrite.Open(cfg)
			if err != nil {
				return closers, fmt.Errorf("plugin influxwrite: %w", err)
			}
			if err := writer.Register(c, name); err != nil {
				return closers, fmt.Errorf("plugin influxwrite: %w", err)
			}

		case "s3archive":
			var cfg s3archive.Config
			if err := decodePluginConfig(doc, name, &cfg); err != nil {
				return closers, err
			}
			archive, err := s3archive.Open(ctx, cfg)
			if err != nil {
				return closers, fmt.Errorf("plugin s3archive: %w", err)
			}
			flushInterval, err := parseDuration(doc.FlushInterval, 0)
			if err != nil {
				return closers, fmt.Errorf("plugin s3archive: flush-interval: %w", err)
			}
			flushTimeout, err := parseDuration(doc.FlushTimeout, 0)
			if err != nil {
				return closers, fmt.Errorf("plugin s3archive: flush-timeout: %w", err)
			}
			if err := archive.Register(c, name, cdtime.FromSeconds(flushInterval.Seconds()), cdtime.FromSeconds(flushTimeout.Seconds())); err != nil {
				return closers, fmt.Errorf("plugin s3archive: %w", err)
			}

		default:
			return closers, fmt.Errorf("unknown plugin %q", name)
		}
	}
	return closers, nil
}

// decodePluginConfig decodes name's raw configuration block into dst.
func decodePluginConfig(doc config.Document, name string, dst interface{}) error {
	raw, ok := doc.PluginConfig(name)
	if !ok {
		return fmt.Errorf("plugin %s: no \"plugin.%s\" configuration block", name, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("plugin %s: decode configuration: %w", name, err)
	}
	return nil
}
