package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"streamwatch/internal/app/runtime"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <login> [login...]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Watches the viewer count of the given Twitch channels (space separated list).")
		fmt.Fprintln(flag.CommandLine.Output(), "Requires TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET.")
	}
	flag.Parse()

	logins := parseLogins(flag.Args())
	if len(logins) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runtime.Run(ctx, runtime.Options{Logins: logins}); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "streamwatch: %v\n", err)
		os.Exit(1)
	}
}

// parseLogins accepts both `streamwatch a b` and `streamwatch "a b"`.
func parseLogins(args []string) []string {
	var logins []string
	for _, arg := range args {
		logins = append(logins, strings.Fields(arg)...)
	}
	return logins
}
