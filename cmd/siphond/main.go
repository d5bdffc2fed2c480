// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command siphond is the metrics and event collection daemon: it loads the
// configuration document, builds the core engine, registers
// the configured plugins against it, and serves the admin HTTP surface
// until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/siphond/siphond/internal/admin"
	"github.com/siphond/siphond/internal/housekeep"
	"github.com/siphond/siphond/internal/typesdb"
	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/config"
	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/log"
	"github.com/siphond/siphond/pkg/runtimeEnv"
)

func main() {
	var flagConfigFile string
	var flagGops, flagNoServer bool
	var flagLogLevel string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the configuration `document`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagNoServer, "no-server", false, "Load configuration and register plugins, then exit without running")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Minimum log severity: debug, info, notice, warn, err, crit")
	flag.Parse()

	log.SetLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load("./.env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	doc, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatal(err)
	}

	defaultIntervalSec, err := parseDuration(doc.Interval, 10*time.Second)
	if err != nil {
		log.Fatalf("invalid \"interval\": %s", err.Error())
	}

	c := core.New(core.Config{
		ReadWorkers:     doc.ReadThreads,
		WriteWorkers:    doc.WriteThreads,
		QueueLowWater:   doc.WriteQueueLimitLow,
		QueueHighWater:  doc.WriteQueueLimitHigh,
		Hostname:        doc.Hostname,
		DefaultInterval: cdtime.FromSeconds(defaultIntervalSec.Seconds()),
		TimeoutFactor:   doc.Timeout,
	})

	dataSets, err := typesdb.LoadAll(doc.TypesDB)
	if err != nil {
		log.Fatal(err)
	}
	for _, ds := range dataSets {
		c.RegisterDataSet(ds)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closers, err := loadPlugins(ctx, c, doc, cdtime.FromSeconds(defaultIntervalSec.Seconds()))
	if err != nil {
		log.Fatal(err)
	}

	if flagNoServer {
		return
	}

	c.Run(ctx)

	checkInterval, err := parseDuration(doc.HousekeepInterval, 10*time.Second)
	if err != nil {
		log.Fatalf("invalid \"housekeep-interval\": %s", err.Error())
	}
	flushInterval, err := parseDuration(doc.FlushInterval, 0)
	if err != nil {
		log.Fatalf("invalid \"flush-interval\": %s", err.Error())
	}
	flushTimeout, err := parseDuration(doc.FlushTimeout, 0)
	if err != nil {
		log.Fatalf("invalid \"flush-timeout\": %s", err.Error())
	}
	hk, err := housekeep.Start(c, checkInterval, flushInterval, flushTimeout)
	if err != nil {
		log.Fatal(err)
	}

	adm := admin.New(c)

	addr := doc.Addr
	if addr == "" {
		addr = ":8080"
	}

	var wg sync.WaitGroup
	server := http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      adm.Handler(),
		Addr:         addr,
	}

	if err := runtimeEnv.DropPrivileges(doc.User, doc.Group); err != nil {
		log.Fatalf("error while changing user: %s", err.Error())
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("admin HTTP server listening at %s...", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	runtimeEnv.SystemdNotifiy(true, "running")
	<-sigs
	runtimeEnv.SystemdNotifiy(false, "shutting down")

	server.Shutdown(context.Background())

	if err := hk.Shutdown(); err != nil {
		log.Errorf("housekeep: shutdown: %s", err.Error())
	}

	c.Shutdown()

	for _, cl := range closers {
		cl.Close()
	}

	wg.Wait()
	log.Print("Gracefull shutdown completed!")
}

// parseDuration parses s as a time.Duration, returning def for an empty
// string.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}
