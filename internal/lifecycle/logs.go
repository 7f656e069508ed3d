package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/zpdzap/berth/internal/service"
)

// Logs prints a service's logs, following them unless noFollow is set.
// Cancelling ctx (an interrupt) ends the stream and is a clean exit.
func (c *Controller) Logs(ctx context.Context, services []service.Service, noFollow bool) error {
	svc, err := single(services)
	if err != nil {
		return err
	}

	args := []string{"logs"}
	if !noFollow {
		args = append(args, "-f")
	}
	res, err := c.exec.Run(ctx, svc, args, false)
	if errors.Is(err, context.Canceled) || (err == nil && ctx.Err() != nil) {
		fmt.Fprintln(c.out, "Interrupt caught, exiting")
		return nil
	}
	if err != nil {
		return err
	}
	return res.Err(args)
}
