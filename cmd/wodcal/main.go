package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"wodcal/internal/agenda"
	"wodcal/internal/config"
	"wodcal/internal/ics"
	appLog "wodcal/internal/log"
	"wodcal/internal/schedule"
	"wodcal/internal/web"
)

const version = "1.0.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	weeks      int
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.EffectiveLogLevel()))

	appLog.Info("wodcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"base_url", conf.BaseURL,
		"agenda_path", conf.AgendaPath,
		"timezone", conf.Timezone,
		"fetch_mode", conf.Fetch.Mode,
		"fetch_concurrency", conf.Fetch.Concurrency,
		"probe_cron", conf.ProbeCron,
		"once", flags.once,
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	extractor, err := agenda.NewExtractor(agenda.Options{
		BaseURL:      conf.BaseURL,
		LocationSkip: conf.LocationSkip,
		Country:      conf.LocationCountry,
	})
	if err != nil {
		appLog.Error("failed to build extractor", err)
		os.Exit(1)
	}

	fetcher := schedule.NewFetcher(pageSource(conf), extractor, schedule.Options{
		BaseURL:         conf.BaseURL,
		AgendaPath:      conf.AgendaPath,
		Concurrency:     conf.Fetch.Concurrency,
		Location:        conf.Location,
		DefaultLocation: conf.DefaultLocation,
	})

	encOpts := ics.Options{
		Location:     loc,
		EventPrefix:  conf.EventPrefix,
		CalendarName: conf.CalendarName,
	}
	if g := conf.Geo; g != nil {
		encOpts.Geo = &ics.Geo{
			Latitude:  g.Latitude,
			Longitude: g.Longitude,
			Title:     g.Title,
			Address:   g.Address,
			Radius:    g.Radius,
		}
	}
	encoder, err := ics.NewEncoder(encOpts)
	if err != nil {
		appLog.Error("failed to build calendar encoder", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flags.once {
		if err := runOnce(ctx, os.Stdout, fetcher, encoder, time.Now().In(loc), flags.weeks); err != nil {
			appLog.Error("single run failed", err, "weeks", flags.weeks)
			os.Exit(1)
		}
		return
	}

	probe := schedule.NewProbe(fetcher, loc)
	scheduler := cron.New(cron.WithLocation(loc))
	if conf.ProbeCron != "" {
		if _, err := scheduler.AddFunc(conf.ProbeCron, func() { _ = probe.Run(ctx) }); err != nil {
			appLog.Error("invalid probe schedule", err, "probe_cron", conf.ProbeCron)
			os.Exit(1)
		}
		go func() { _ = probe.Run(ctx) }()
		scheduler.Start()
	}

	deps := web.Deps{
		AuthToken: conf.AuthToken,
		Location:  loc,
		Timetable: fetcher,
		Encoder:   encoder,
	}
	if conf.ProbeCron != "" {
		deps.Probe = probe
	}

	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(conf.Fetch.TimeoutSeconds)*time.Second*time.Duration(schedule.MaxWeeks) + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		appLog.Info("http server listening", "listen", conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("http server error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown error", err)
	}
	appLog.Info("wodcal exiting")
}

func pageSource(conf *config.Config) schedule.PageSource {
	if conf.Fetch.Mode == config.FetchModeBrowser {
		return schedule.NewBrowserSource(conf.FetchTimeout(), conf.Fetch.UserAgent)
	}
	return schedule.NewHTTPSource(conf.FetchTimeout(), conf.Fetch.UserAgent)
}

// runOnce fetches the planned weeks and writes the calendar to w.
func runOnce(ctx context.Context, w io.Writer, tt web.Timetable, enc web.CalendarEncoder, today time.Time, weeks int) error {
	windows, err := schedule.Plan(schedule.PlanRequest{Weeks: weeks, Today: today})
	if err != nil {
		return err
	}
	res, err := tt.Fetch(ctx, windows)
	if err != nil {
		return err
	}
	appLog.Info("fetched timetable", "weeks", len(res.Weeks), "events", len(res.Events))

	body, err := enc.Encode(res.Events)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch once, print the iCalendar document to stdout and exit")
	flag.IntVar(&cfg.weeks, "weeks", 1, "Number of weeks to fetch with -once")

	flag.Parse()

	return cfg
}
