// Package main provides the soundbridge command line player.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/soundbridge/internal/app/buffercache"
	"github.com/osa030/soundbridge/internal/app/notification"
	"github.com/osa030/soundbridge/internal/app/playback"
	"github.com/osa030/soundbridge/internal/app/session"
	"github.com/osa030/soundbridge/internal/domain/bridge"
	"github.com/osa030/soundbridge/internal/domain/catalog"
	"github.com/osa030/soundbridge/internal/domain/track"
	"github.com/osa030/soundbridge/internal/infra/audioctx"
	"github.com/osa030/soundbridge/internal/infra/config"
	"github.com/osa030/soundbridge/internal/infra/decode"
	"github.com/osa030/soundbridge/internal/infra/logger"
	"github.com/osa030/soundbridge/internal/infra/metrics"
	"github.com/osa030/soundbridge/internal/infra/storage"
)

var (
	app        = kingpin.New("soundbridge", "Bridge transitions between songs through environmental sounds")
	configPath = app.Flag("config", "Path to config file").Default("config/soundbridge.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format (console or json)").Envar("SOUNDBRIDGE_LOG_FORMAT").Enum("console", "json")

	// transition command (default)
	transitionCmd = app.Command("transition", "Play a song and bridge into the next one (default)").Default()
	fromSong      = transitionCmd.Flag("from", "ID of the song to start with").Required().String()
	toSong        = transitionCmd.Flag("to", "ID of the song to bridge into").Required().String()
	sounds        = transitionCmd.Flag("sound", "Environmental sound ID (repeatable; default from config)").Strings()
	duration      = transitionCmd.Flag("duration", "Bridge duration").Duration()
	fade          = transitionCmd.Flag("fade", "Fade duration").Duration()
	offset        = transitionCmd.Flag("offset", "Position in the next song to enter at").Duration()
	lead          = transitionCmd.Flag("lead", "How long to play the first song before bridging").Default("10s").Duration()
	tail          = transitionCmd.Flag("tail", "How long to keep playing after the transition").Default("10s").Duration()

	// list command
	listCmd = app.Command("list", "List the catalog and exit")

	// preload command
	preloadCmd = app.Command("preload", "Load and decode every catalog entry and exit")

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	cat, err := catalog.New(cfg.Catalog.Songs, cfg.Catalog.Sounds)
	if err != nil {
		zlog.Fatal().Msgf("Invalid catalog: %v", err)
	}

	switch command {
	case checkConfigCmd.FullCommand():
		fmt.Printf("config OK: %d songs, %d sounds, storage=%s\n",
			len(cfg.Catalog.Songs), len(cfg.Catalog.Sounds), cfg.Storage.Type)
		return
	case listCmd.FullCommand():
		printCatalog(cat)
		return
	case preloadCmd.FullCommand():
		err = preload(cfg, cat)
	default:
		err = run(cfg, cat)
	}
	if err != nil {
		zlog.Error().Msgf("Error: %v", err)
		os.Exit(1)
	}
}

// run executes the transition command. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, cat *catalog.Catalog) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	from, err := cat.Song(*fromSong)
	if err != nil {
		return err
	}
	to, err := cat.Song(*toSong)
	if err != nil {
		return err
	}
	req, err := buildRequest(cfg, cat, to)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				zlog.Error().Msgf("Metrics server error: %v", err)
			}
		}()
	}

	cache, err := newCache(ctx, cfg, m)
	if err != nil {
		return err
	}

	device, err := audioctx.NewDevice(audioctx.DeviceConfig{
		SampleRate: cfg.Engine.SampleRate,
		Channels:   cfg.Engine.Channels,
		BufferSize: cfg.Engine.BufferSize,
	})
	if err != nil {
		return err
	}

	completed := make(chan bridge.TransitionRecord, 1)
	ended := make(chan struct{}, 1)
	controller := playback.NewController(device, cache, playback.Config{Bridge: cfg.Bridge}, playback.Callbacks{
		OnPlayStateChange: func(playing bool) {
			zlog.Info().Msgf("playing=%t", playing)
		},
		OnTrackEnd: func() {
			select {
			case ended <- struct{}{}:
			default:
			}
		},
		OnTransitionComplete: func(r bridge.TransitionRecord) {
			completed <- r
		},
	}, m)
	defer controller.Dispose()

	// Fan out controller events to the session recorder and the log. A send
	// may take every save retry, so the timeout covers them.
	sendTimeout := notification.DefaultSendTimeout + time.Duration(cfg.Session.RetryAttempts)*cfg.Session.RetryDelay
	notifier := notification.NewManager(sendTimeout)
	defer notifier.Close()
	notifier.Subscribe(notification.StreamFunc(func(n notification.Notification) error {
		e := n.Event
		zlog.Debug().Msgf("event #%d %s state=%s key=%q at=%s", n.SequenceNo, e.Type, e.State, e.Key, e.At)
		return nil
	}))

	store, err := session.NewFileStore(cfg.Session.BackupDir)
	if err != nil {
		return err
	}
	recorder := session.NewManager(store, session.Config{
		RetryAttempts: cfg.Session.RetryAttempts,
		RetryDelay:    cfg.Session.RetryDelay,
	}, m)
	notifier.Subscribe(recorder)

	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		notifier.Pump(context.Background(), controller.Events())
	}()

	sessionID, err := recorder.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSession(controller, pumped, recorder); err != nil {
			zlog.Error().Msgf("Failed to end session: %v", err)
			return
		}
		zlog.Info().Msgf("Session saved to %s", store.Path(sessionID))
	}()

	warmCache(ctx, cache, append([]string{from.Key(), req.NextKey}, req.BridgeKeys...))

	zlog.Info().Msgf("Playing %s", from.Label())
	if err := controller.PlayKey(ctx, from.Key()); err != nil {
		return err
	}

	if !wait(ctx, *lead, ended) {
		return nil
	}

	zlog.Info().Msgf("Bridging to %s through %v", to.Label(), req.BridgeKeys)
	if err := controller.Transition(ctx, req); err != nil {
		return err
	}
	if tl, ok := controller.Timeline(); ok {
		zlog.Info().Msgf("Transition commits in %s", tl.Duration())
	}

	select {
	case r := <-completed:
		zlog.Info().Msgf("Now playing %s (transition %s)", to.Label(), r.ID)
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
		return nil
	}

	wait(ctx, *tail, ended)
	return nil
}

type preloader interface {
	Preload(ctx context.Context, keys []string) error
}

// warmCache loads keys ahead of playback so the bridge starts on time. Keys
// that fail here are retried by the play and transition calls, so a failure
// is only reported.
func warmCache(ctx context.Context, cache preloader, keys []string) bool {
	if err := cache.Preload(ctx, keys); err != nil {
		zlog.Warn().Msgf("Preload incomplete: %v", err)
		return false
	}
	return true
}

// closeSession disposes the controller, waits until every event it emitted
// has reached the subscribers, then ends the recorded session.
func closeSession(controller *playback.Controller, pumped <-chan struct{}, recorder *session.Manager) error {
	controller.Dispose()
	<-pumped
	return recorder.End(context.Background())
}

// buildRequest assembles the transition request from flags and config.
func buildRequest(cfg *config.Config, cat *catalog.Catalog, to *track.Song) (playback.TransitionRequest, error) {
	bc := cfg.Bridge
	if *duration > 0 {
		bc.Duration = *duration
	}
	if *fade > 0 {
		bc.FadeDuration = *fade
	}
	if *offset > 0 {
		bc.CrossfadeOffset = *offset
	}

	ids := *sounds
	if len(ids) == 0 {
		ids = []string{bc.EnvironmentalSoundID}
	}
	bc.BridgeSoundCount = len(ids)
	bc.EnvironmentalSoundID = ids[0]
	if err := bc.Validate(); err != nil {
		return playback.TransitionRequest{}, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		s, err := cat.Sound(id)
		if err != nil {
			return playback.TransitionRequest{}, err
		}
		keys[i] = s.Key()
	}
	return playback.TransitionRequest{NextKey: to.Key(), BridgeKeys: keys, Config: &bc}, nil
}

// preload decodes every catalog entry into the cache.
func preload(cfg *config.Config, cat *catalog.Catalog) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := newCache(ctx, cfg, metrics.NewNop())
	if err != nil {
		return err
	}

	start := time.Now()
	keys := cat.Keys()
	err = cache.Preload(ctx, keys)
	fmt.Printf("loaded %d/%d entries (%d bytes) in %s\n",
		cache.Len(), len(keys), cache.Bytes(), time.Since(start).Round(time.Millisecond))
	return err
}

func newCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*buffercache.Cache, error) {
	resolver, err := storage.NewResolverFromConfig(ctx, cfg.Storage, m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage resolver")
	}
	return buffercache.New(resolver, storage.NewFetcher(cfg.Cache.LoadTimeout), decode.NewRegistry(), buffercache.Config{
		MaxBytes:           cfg.Cache.MaxBytes,
		LoadTimeout:        cfg.Cache.LoadTimeout,
		PreloadConcurrency: cfg.Cache.PreloadConcurrency,
	}, m), nil
}

// wait blocks for d, until the current track ends or ctx is done. It reports
// whether the full duration elapsed.
func wait(ctx context.Context, d time.Duration, ended <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ended:
		zlog.Info().Msg("Track ended")
		return false
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
		return false
	}
}

// printCatalog prints songs and sounds grouped by category.
func printCatalog(cat *catalog.Catalog) {
	fmt.Println("Songs:")
	for _, id := range cat.SongIDs() {
		s, _ := cat.Song(id)
		fmt.Printf("  %-20s %s (%s)\n", id, s.Label(), s.Path)
	}

	for _, c := range []track.Category{track.CategoryNature, track.CategoryUrban} {
		fmt.Printf("Sounds (%s):\n", c)
		for _, s := range cat.SoundsByCategory(c) {
			fmt.Printf("  %-20s %s [%s] (%s)\n", s.ID, s.Name, s.SubCategory, s.Src)
		}
	}
}
