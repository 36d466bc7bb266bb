// Command trackd serves the track initiation API and, when a serial sensor
// is attached, folds its detections into a live feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/trackinit/internal/api"
	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/serialmux"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/banshee-data/trackinit/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", db.DefaultPath, "Path to the sqlite database")
	configPath  = flag.String("config", "", "Tracking config file (.json or .yaml); defaults are built in")
	dataDir     = flag.String("data-dir", ".", "Directory that run requests may name CSV files in")
	serialPort  = flag.String("serial", "", "Serial port of a detection sensor (empty disables the live feed)")
	baudRate    = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	parity      = flag.String("parity", "N", "Serial parity: N, E or O")
	feedName    = flag.String("feed", "serial", "Feed name for the serial sensor's tracks")
	initCmds    = flag.String("init", "", "Comma separated commands written to the sensor at start-up")
	verbose     = flag.Bool("v", false, "Verbose logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig(path string) (*config.TrackingConfig, error) {
	cfg := config.DefaultTrackingConfig()
	if path == "" {
		return cfg, nil
	}
	file, err := config.LoadTrackingConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Merge(file), nil
}

func splitCommands(s string) []string {
	var cmds []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// newHandler assembles the API and the admin routes for the sensor and the
// database.
func newHandler(store *db.DB, feeds *tracker.Registry, defaults *config.TrackingConfig, dir string, sensor serialmux.SerialMuxInterface) (http.Handler, error) {
	mux := api.NewServer(store, feeds, defaults, dir).ServeMux()
	sensor.AttachAdminRoutes(mux)
	if err := store.AttachAdminRoutes(mux); err != nil {
		return nil, fmt.Errorf("attach db admin routes: %w", err)
	}
	return api.LoggingMiddleware(mux), nil
}

// runFeed reads the sensor into the named feed until ctx is done or the
// sensor stops. The sensor is closed on return.
func runFeed(ctx context.Context, sensor serialmux.SerialMuxInterface, feeds *tracker.Registry, name string) error {
	feed := serialmux.NewFeed(name, sensor, feeds.Get(name))
	consume := feed.Subscribe()

	var wg sync.WaitGroup
	var feedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		feedErr = consume(ctx)
	}()

	err := sensor.Monitor(ctx)
	// Closing the sensor closes the subscription once its buffered lines
	// are drained.
	if cerr := sensor.Close(); cerr != nil {
		monitoring.Logf("failed to close sensor: %v", cerr)
	}
	wg.Wait()
	monitoring.Logf("feed %s stopped: %+v", name, feed.Stats())

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor: %w", err)
	}
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		return fmt.Errorf("feed %s: %w", name, feedErr)
	}
	return nil
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("trackd %s\n", version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	defaults, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	params, err := tracker.ParamsFromConfig(defaults)
	if err != nil {
		log.Fatalf("invalid tracking config: %v", err)
	}
	feeds, err := tracker.NewRegistry(params)
	if err != nil {
		log.Fatalf("failed to create feed registry: %v", err)
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	var sensor serialmux.SerialMuxInterface
	if *serialPort == "" {
		log.Printf("no serial port given, live feed disabled")
		sensor = serialmux.NewDisabledSerialMux()
	} else {
		port, err := serialmux.OpenPort(*serialPort, serialmux.PortOptions{BaudRate: *baudRate, Parity: *parity}, nil)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *serialPort, err)
		}
		if err := port.Initialize(splitCommands(*initCmds)...); err != nil {
			log.Fatalf("failed to initialize sensor: %v", err)
		}
		sensor = port
	}
	defer sensor.Close()

	handler, err := newHandler(store, feeds, defaults, *dataDir, sensor)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// live feed from the sensor
	if *serialPort != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runFeed(ctx, sensor, feeds, *feedName); err != nil {
				log.Printf("serial feed error: %v", err)
			}
			log.Printf("serial feed routine stopped")
		}()
	}

	// HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			log.Printf("trackd %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
