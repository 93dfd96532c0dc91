package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/events"
)

// EventsWatch prints every mirrored action until interrupted.
func (r *Runner) EventsWatch(ctx context.Context, cmd *cli.Command) error {
	nc, err := events.Connect(r.config.Events.NATSURL)
	if err != nil {
		return err
	}
	defer nc.Drain()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	asJSON := cmd.Bool("json")
	sub, err := events.Watch(nc, r.config.Events.SubjectPrefix, func(subject string, env events.Envelope) {
		if asJSON {
			r.writeJSON(env, cmd.Bool("pretty"))
			return
		}
		r.writePlain("%s  %-24s %s\n", env.Timestamp, env.Type, string(env.Payload))
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	r.logger.Info("watching actions", "subject", r.config.Events.SubjectPrefix+".>")
	<-ctx.Done()
	return nil
}
