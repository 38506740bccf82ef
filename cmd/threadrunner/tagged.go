package main

import (
	"context"
	"fmt"

	"github.com/Swind/go-thread-runner/core"
	"github.com/urfave/cli/v2"
)

func TaggedCommand() *cli.Command {
	return &cli.Command{
		Name:  "tagged",
		Usage: "Show that a tagged value is only reachable from its own thread",

		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "value",
				Value: 7,
				Usage: "Initial value stored in the tagged container",
			},
		},

		Action: TaggedAction,
	}
}

func TaggedAction(c *cli.Context) error {
	out := c.App.Writer

	owner, err := spawnQuiet("owner")
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	defer owner.Join()

	initial := c.Int("value")
	v, err := core.Call(owner, func(ctx context.Context) *core.Tagged[int] {
		return core.NewTagged(ctx, initial)
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Fprintf(out, "created %v on %s\n", v.Tag(), owner.Name())

	doubled, err := core.Call(owner, func(ctx context.Context) int {
		v.Set(ctx, v.Get(ctx)*2)
		return v.Get(ctx)
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Fprintf(out, "✓ %s reads %d\n", owner.Name(), doubled)

	// A mismatch inside a worker task would abort the process, so the
	// refusals are shown on goroutines that can recover their own panic.
	fmt.Fprintf(out, "✓ caller refused: %v\n", refusal(func() { v.Get(context.Background()) }))

	var inner *core.ThreadMismatchError
	if err := owner.Run(func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			defer close(done)
			inner = refusal(func() { v.Get(ctx) })
		}()
		<-done
		return nil
	}); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Fprintf(out, "✓ goroutine started by a task refused: %v\n", inner)

	if err := owner.Release(v); err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	fmt.Fprintf(out, "✓ released on %s\n", owner.Name())
	return nil
}

// refusal runs fn and returns the *core.ThreadMismatchError it panics with,
// or nil.
func refusal(fn func()) (mismatch *core.ThreadMismatchError) {
	defer func() {
		mismatch, _ = recover().(*core.ThreadMismatchError)
	}()
	fn()
	return nil
}

func spawnQuiet(name string) (*core.Thread, error) {
	cfg := core.DefaultThreadConfig()
	cfg.Name = name
	cfg.Logger = core.NewNoOpLogger()
	return core.SpawnWithConfig(cfg)
}
