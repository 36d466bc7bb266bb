// Command trackinit runs M-of-N track initiation over a recorded
// measurement stream and prints the resulting track table.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/trackinit/internal/api"
	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/fsutil"
	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/report"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/banshee-data/trackinit/internal/version"
)

type options struct {
	csvPath    string
	pcapPath   string
	pcapPort   int
	configPath string
	mode       string
	doppler    float64
	rng        float64
	time       float64
	dbPath     string
	pngPath    string
	htmlPath   string
	jsonPath   string
	outDir     string
	history    bool
	server     string
	verbose    bool
	version    bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("trackinit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{set: map[string]bool{}}
	fs.StringVar(&o.csvPath, "csv", "", "CSV file of measurements (azimuth,elevation,range,timestamp[,doppler])")
	fs.StringVar(&o.pcapPath, "pcap", "", "PCAP capture of UDP measurement lines")
	fs.IntVar(&o.pcapPort, "pcap-port", 0, "only read UDP packets sent to this port (0 reads all)")
	fs.StringVar(&o.configPath, "config", "", "tracking config file (.json or .yaml)")
	fs.StringVar(&o.mode, "mode", "", "initiation mode: 3-state, 5-state or 7-state")
	fs.Float64Var(&o.doppler, "doppler", 0, "doppler gate threshold")
	fs.Float64Var(&o.rng, "range", 0, "range gate threshold")
	fs.Float64Var(&o.time, "time", 0, "time gate threshold")
	fs.StringVar(&o.dbPath, "db", "", "store the run in this sqlite database")
	fs.StringVar(&o.pngPath, "png", "", "write a PNG plot of the tracks")
	fs.StringVar(&o.htmlPath, "html", "", "write an interactive HTML chart of the tracks")
	fs.StringVar(&o.jsonPath, "json", "", "write the result as JSON")
	fs.StringVar(&o.outDir, "out", "", "write a text, JSON, PNG and HTML report bundle into this directory")
	fs.StringVar(&o.server, "server", "", "submit the run to a trackd server at this URL instead of running locally")
	fs.BoolVar(&o.history, "history", false, "list every associated detection of each track")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// trackingConfig layers the defaults, the -config file and any explicitly
// set threshold flags, in that order.
func (o *options) trackingConfig() (*config.TrackingConfig, error) {
	cfg := config.DefaultTrackingConfig()
	if o.configPath != "" {
		file, err := config.LoadTrackingConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(file)
	}

	override := config.EmptyTrackingConfig()
	if o.set["mode"] {
		override.Mode = &o.mode
	}
	if o.set["doppler"] {
		override.DopplerThreshold = &o.doppler
	}
	if o.set["range"] {
		override.RangeThreshold = &o.rng
	}
	if o.set["time"] {
		override.TimeThreshold = &o.time
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) load(ctx context.Context) ([]measurement.Measurement, string, error) {
	switch {
	case o.csvPath != "" && o.pcapPath != "":
		return nil, "", errors.New("-csv and -pcap are mutually exclusive")
	case o.csvPath != "":
		ms, err := measurement.LoadCSVFile(o.csvPath)
		return ms, o.csvPath, err
	case o.pcapPath != "":
		ms, stats, err := measurement.ReadPCAPFile(ctx, o.pcapPath, o.pcapPort)
		if err != nil {
			return nil, "", err
		}
		monitoring.Logf("pcap %s: %+v", o.pcapPath, stats)
		return ms, o.pcapPath, nil
	default:
		return nil, "", errors.New("one of -csv or -pcap is required")
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(stdout, "trackinit %s\n", version.String())
		return nil
	}
	monitoring.SetVerbose(o.verbose)

	cfg, err := o.trackingConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ms, source, err := o.load(ctx)
	if err != nil {
		return fmt.Errorf("load measurements: %w", err)
	}

	var res tracker.Result
	if o.server != "" {
		resp, err := api.NewClient(o.server, nil).SubmitRun(ctx, api.RunRequest{
			Source:       source,
			Config:       cfg,
			Measurements: ms,
		})
		if err != nil {
			return fmt.Errorf("submit run: %w", err)
		}
		fmt.Fprintf(stdout, "Run %s stored on %s\n", resp.RunID, o.server)
		res = resp.Result
	} else {
		params, err := tracker.ParamsFromConfig(cfg)
		if err != nil {
			return err
		}
		res, err = tracker.Initialize(ctx, ms, params)
		if err != nil {
			return fmt.Errorf("initiation: %w", err)
		}
	}

	if err := report.WriteTable(stdout, res); err != nil {
		return err
	}
	if o.history {
		fmt.Fprintln(stdout)
		if err := report.WriteHistory(stdout, res); err != nil {
			return err
		}
	}
	return o.write(ctx, stdout, source, res)
}

func (o *options) write(ctx context.Context, stdout io.Writer, source string, res tracker.Result) error {
	if o.jsonPath != "" {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.jsonPath, append(b, '\n'), 0o644); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	if o.pngPath != "" {
		if err := report.SavePNG(o.pngPath, res); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
	}
	if o.htmlPath != "" {
		if err := report.SaveHTML(o.htmlPath, res); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}
	if o.outDir != "" {
		name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		paths, err := report.WriteBundle(fsutil.OSFileSystem{}, o.outDir, name, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Report written to %s\n", strings.Join(paths, ", "))
	}
	if o.dbPath != "" && o.server == "" {
		store, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		id, err := store.InsertRun(ctx, source, res)
		if err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		fmt.Fprintf(stdout, "Run %s stored in %s\n", id, store.Path())
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("trackinit: %v", err)
	}
}
