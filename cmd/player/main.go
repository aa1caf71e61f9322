package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/engine"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/sourcereader"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/utils"
	"github.com/spf13/viper"
)

// Devices that finish on their own, like a file render with a frame limit.
type finishingDevice interface {
	Done() <-chan struct{}
}

func initializeEngine() (*engine.Controller, error) {
	api, err := audioapi.NewFromViper()
	if err != nil {
		return nil, err
	}
	properties, err := audioapi.PropertiesFromViper()
	if err != nil {
		return nil, err
	}

	builder := playback.NewBuilder(playback.WithReaderOptions(
		sourcereader.WithChunkSize(viper.GetInt("resamplechunksize")),
		sourcereader.WithSubChunks(viper.GetInt("resamplesubchunks")),
	))

	return engine.New(api, engine.WithProperties(properties), engine.WithBuilder(builder))
}

func printDevices() error {
	api, err := audioapi.NewFromViper()
	if err != nil {
		return err
	}
	for _, device := range api.OutputDevices() {
		fmt.Println(device)
	}
	return nil
}

func run(ctx context.Context, files []string) error {
	mixerDescription, err := config.LoadMixer()
	if err != nil {
		return err
	}

	controller, err := initializeEngine()
	if err != nil {
		return err
	}
	defer controller.Close()

	if err := controller.AddMixer(ctx, mixerDescription); err != nil {
		return err
	}
	for _, file := range files {
		id, err := controller.AddSource(ctx, file)
		if err != nil {
			return err
		}
		slog.Info("playing file", "path", file, "channel", id)
	}

	if _, err := controller.Play(ctx); err != nil {
		return err
	}

	var finished <-chan struct{}
	if device, ok := controller.Device().(finishingDevice); ok {
		finished = device.Done()
	}

	select {
	case <-ctx.Done():
		slog.Info("interrupted, stopping")
	case <-finished:
		slog.Info("render finished", "outputFile", viper.GetString("outputfile"))
	}
	return controller.Close()
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	render := flag.String("render", "", "Render the mix into this .WAV file instead of playing it.")
	renderMs := flag.Int64("renderms", 0, "With -render, stop after this many milliseconds.")
	listDevices := flag.Bool("devices", false, "List the output devices of the configured device api and exit.")
	flag.Parse()

	if err := config.LoadConfig(*configFilePath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *render != "" {
		viper.Set("device", "file")
		viper.Set("outputfile", *render)
	}
	if *renderMs > 0 {
		viper.Set("renderms", *renderMs)
	}

	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	if *listDevices {
		if err := printDevices(); err != nil {
			slog.Error("could not list devices", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		slog.Error("player failed", "err", err)
		stop()
		os.Exit(1)
	}
}
