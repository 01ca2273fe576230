package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"perpx/config"
	"perpx/internal/detect"
	"perpx/internal/dispatch"
	"perpx/internal/logging"
	"perpx/internal/market"
	"perpx/internal/metrics"
	"perpx/internal/queue"
	"perpx/internal/stream"
	"perpx/internal/worker"
)

// inboxCapacity bounds each worker inbox; the dispatcher drops records
// when a shard falls this far behind.
const inboxCapacity = 10000

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging)

	if cfg.Server.MaxKlineCount < 4 {
		log.Warn().Int("max_kline_count", cfg.Server.MaxKlineCount).
			Msg("max_kline_count below 4: closed-bar detectors will never fire")
	}

	client, err := queue.Connect(cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		os.Exit(1)
	}
	defer client.Close()

	rq := queue.New(client, time.Duration(cfg.Server.RedisDataExpire)*time.Second)
	pub := detect.NewPublisher(rq)

	metrics.Serve(cfg.Server.MetricsAddr)

	inboxes := make([]chan market.Message, cfg.Server.WorkerCount)
	var wg sync.WaitGroup
	for i := range inboxes {
		inboxes[i] = make(chan market.Message, inboxCapacity)
		w := worker.New(i, inboxes[i], cfg.Server.MaxKlineCount, cfg.FundingRate, pub)
		wg.Add(1)
		go w.Run(&wg)
	}
	dispatcher := dispatch.New(inboxes)

	proxyAddr := ""
	if cfg.Proxy != nil {
		proxyAddr = cfg.Proxy.Addr
	}
	ws := stream.New(
		[]string{market.StreamTicker, market.StreamMarkPrice},
		proxyAddr,
		func(frame []byte) {
			msgs, err := market.DecodeFrame(frame)
			if err != nil {
				metrics.DecodeWarnings.Inc()
				log.Warn().Err(err).Msg("dropping frame")
				return
			}
			for _, msg := range msgs {
				dispatcher.Dispatch(msg)
			}
		},
	)

	if err := ws.Start(context.Background()); err != nil {
		log.Error().Err(err).Msg("stream connection failed")
		os.Exit(1)
	}

	log.Info().Int("workers", cfg.Server.WorkerCount).Msg("perpx started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	ws.Stop()
	for _, inbox := range inboxes {
		close(inbox)
	}
	wg.Wait()
}
