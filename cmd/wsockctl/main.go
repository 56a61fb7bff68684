// Command wsockctl is a small demo client/server for this module's
// WebSocket library: "wsockctl serve" listens and echoes every message it
// receives back to the sender; "wsockctl dial" connects, sends the lines
// it reads from stdin, and prints whatever comes back.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/rs/zerolog"
	"github.com/tzrikka/xdg"

	"github.com/lattice-ws/wsock"
)

const (
	configDirName  = "wsockctl"
	configFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()
	path := configFile()

	cmd := &cli.Command{
		Name:    "wsockctl",
		Usage:   "demo client/server for the wsock library",
		Version: bi.Main.Version,
		Commands: []*cli.Command{
			serveCommand(path),
			dialCommand(path),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand(path altsrc.StringSourcer) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "listen and echo every received message back to its sender",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "address to listen on",
				Value: ":8765",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("WSOCKCTL_ADDR"),
					toml.TOML("serve.addr", path),
				),
			},
			&cli.StringFlag{
				Name:  "subprotocols",
				Usage: "comma-separated list of subprotocols to advertise",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("WSOCKCTL_SUBPROTOCOLS"),
					toml.TOML("serve.subprotocols", path),
				),
			},
			&cli.BoolFlag{
				Name:  "pretty-log",
				Usage: "human-readable console logging, instead of JSON",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			log := newLogger(cmd.Bool("pretty-log"))
			return serve(cmd.String("addr"), cmd.String("subprotocols"), log)
		},
	}
}

func dialCommand(path altsrc.StringSourcer) *cli.Command {
	return &cli.Command{
		Name:  "dial",
		Usage: "connect, send stdin line by line, print every reply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "addr",
				Usage:    "address to dial",
				Required: true,
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("WSOCKCTL_ADDR"),
					toml.TOML("dial.addr", path),
				),
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "request-URI to send in the opening handshake",
				Value: "/",
			},
			&cli.StringFlag{
				Name:  "subprotocols",
				Usage: "comma-separated list of subprotocols to request",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("WSOCKCTL_SUBPROTOCOLS"),
					toml.TOML("dial.subprotocols", path),
				),
			},
			&cli.BoolFlag{
				Name:  "pretty-log",
				Usage: "human-readable console logging, instead of JSON",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			log := newLogger(cmd.Bool("pretty-log"))
			return dial(cmd.String("addr"), cmd.String("url"), cmd.String("subprotocols"), log)
		},
	}
}

func serve(addr, subprotocols string, log zerolog.Logger) error {
	ln, err := wsock.Listen(addr, subprotocols, 0, wsock.WithLogger(log))
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	for {
		c, err := ln.Accept(time.Time{})
		if err != nil {
			log.Error().Err(err).Msg("accept failed")
			continue
		}
		go echo(c, log)
	}
}

func echo(c *wsock.Conn, log zerolog.Logger) {
	defer c.Close()
	buf := make([]byte, 64<<10)
	for {
		n, err := c.Recv(buf, time.Time{})
		if err != nil {
			log.Debug().Err(err).Msg("connection ended")
			return
		}
		if _, err := c.Send(buf[:n], time.Time{}); err != nil {
			log.Error().Err(err).Msg("send failed")
			return
		}
	}
}

func dial(addr, url, subprotocols string, log zerolog.Logger) error {
	c, err := wsock.Connect(addr, subprotocols, url, time.Time{}, wsock.WithLogger(log))
	if err != nil {
		return err
	}
	defer c.Close()

	go func() {
		buf := make([]byte, 64<<10)
		for {
			n, err := c.Recv(buf, time.Time{})
			if err != nil {
				return
			}
			fmt.Printf("< %s\n", buf[:n])
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if _, err := c.Send(scanner.Bytes(), time.Time{}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// configFile returns the path to the app's configuration file, creating an
// empty one if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, configDirName, configFileName)
	if err != nil {
		fmt.Printf("failed to create config file: %v\n", err)
		os.Exit(1)
	}
	return altsrc.StringSourcer(path)
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
