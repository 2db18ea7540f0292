// Command subscriber runs the broadcast subscriber and dispatcher as a
// pair of joined tasks, shutting both down together on SIGINT/SIGTERM or a
// targeted env.shutdown message.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/iadev09/subscriber/internal/appctx"
	"github.com/iadev09/subscriber/internal/core"
	"github.com/iadev09/subscriber/internal/dispatcher"
	"github.com/iadev09/subscriber/internal/pubsub"
)

const appName = "subscriber"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	logger := core.NewZerologLogger()

	if err := run(logger); err != nil {
		logger.Errorf("exiting: %v", err)
		os.Exit(1)
	}
}

func run(logger core.Logger) error {
	opts, err := appctx.ParseOptions(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parse options: %w", err)
	}

	info, err := appctx.NewInfo(appName)
	if err != nil {
		return fmt.Errorf("gather process info: %w", err)
	}

	state := appctx.NewState(context.Background(), opts, info, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Warnf("received signal %v, initiating shutdown", sig)
			state.InitiateShutdown()
		case <-state.OnShutdown():
		}
	}()

	sub := pubsub.NewSubscriber(state, pubsub.OpenRedisStream)
	disp := dispatcher.New(state)

	group, ctx := errgroup.WithContext(state.Context())

	group.Go(func() error {
		return sub.Run(ctx)
	})

	group.Go(func() error {
		return disp.Run(ctx)
	})

	return group.Wait()
}
