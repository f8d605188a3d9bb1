package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TelenorNorway/mtls-proxy/internal/cliconfig"
	"github.com/TelenorNorway/mtls-proxy/internal/forwarder"
	"github.com/TelenorNorway/mtls-proxy/internal/util"
)

var opts cliconfig.Options
var logLevel string

func main() {
	root := &cobra.Command{
		Use:   "mtls-proxyd [flags] <mapping>...",
		Short: "configuration-driven mTLS reverse proxy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mapping = args
			return run()
		},
		SilenceUsage: true,
	}

	var flags *pflag.FlagSet = root.Flags()
	flags.StringArrayVar(&opts.Client, "client", nil, "client identity destination pattern, as name=pattern (repeatable)")
	flags.StringArrayVar(&opts.Cert, "cert", nil, "client identity certificate chain file, as name=path (repeatable)")
	flags.StringArrayVar(&opts.Key, "key", nil, "client identity private key file, as name=path (repeatable)")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("mtls-proxyd exited with an error")
	}
}

// run builds the router from the parsed flags and serves every configured
// port until the process receives SIGINT or SIGTERM.
func run() error {
	if err := util.SetupLogger(logLevel); err != nil {
		return err
	}

	r, ports, err := cliconfig.BuildRouter(opts)
	if err != nil {
		log.Error().Err(err).Msg("could not build router from configuration")
		return err
	}
	if len(ports) == 0 {
		err := fmt.Errorf("no listen ports configured")
		log.Error().Msg(err.Error())
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listeners := make([]*forwarder.Listener, 0, len(ports))
	for _, port := range ports {
		listeners = append(listeners, forwarder.New(port, r))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		wg.Add(1)
		go func(l *forwarder.Listener) {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				log.Error().Err(err).Uint16("port", l.Port()).Msg("listener stopped with an error")
				errCh <- err
			}
		}(l)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down proxy...")
	cancel()
	wg.Wait()
	close(errCh)

	log.Info().Msg("proxy exited")
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}
