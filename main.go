package main

import (
  "context"
  "net/http"
  "os"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/promhttp"
  "github.com/rs/zerolog"
  "github.com/rs/zerolog/log"
  "golang.org/x/sync/errgroup"

  "github.com/brickbt/go-mario-driver/ble"
  "github.com/brickbt/go-mario-driver/metrics"
  "github.com/brickbt/go-mario-driver/protocol"
  "github.com/brickbt/go-mario-driver/session"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
    zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
    zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
    zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  log.Info().
    Str("BindAddr", cfg.BindAddress).
    Int("BluetoothDeviceID", cfg.BluetoothDeviceId).
    Int("MaxScanRetries", cfg.MaxScanRetries).
    Msg("Starting with the specified configuration")

  handle := initBle(cfg)
  handle.ScanWindow = cfg.ScanWindow
  defer handle.Stop()

  sess := session.New(handle, session.Options{
    NamePrefixes: cfg.NamePrefixes,
    MaxScanRetries: cfg.MaxScanRetries,
    SubscribePacing: cfg.SubscribePacing,
    LivenessInterval: cfg.LivenessInterval,
    DefaultVolume: cfg.DefaultVolume,
    SetDefaultVolume: cfg.DefaultVolume >= 0,
    AutoReconnect: !cfg.NoReconnect,
  })

  registerDefaultHooks(sess)

  registry := prometheus.NewRegistry()
  ble.RegisterMetrics(registry)
  session.RegisterMetrics(registry)
  metrics.RegisterCollector(sess, registry)

  ctx, cancel := context.WithCancel(context.Background())
  ctx = ble.WrapContextWithSigHandler(ctx, cancel)

  g, ctx := errgroup.WithContext(ctx)

  g.Go(func() error {
    defer cancel()
    return sess.Run(ctx)
  })

  g.Go(func() error {
    mux := http.NewServeMux()
    mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

    srv := &http.Server{
      Addr: cfg.BindAddress,
      Handler: mux,
    }

    go func() {
      <-ctx.Done()
      srv.Shutdown(context.Background())
    }()

    log.Info().
      Str("ListenAddress", cfg.BindAddress).
      Msg("Starting Prometheus server")

    if err := srv.ListenAndServe(); err != http.ErrServerClosed {
      return err
    }

    return nil
  })

  if err := g.Wait(); err != nil {
    log.Fatal().Err(err).Msg("Driver stopped with an error")
  }

  log.Info().Msg("Driver stopped")
}

func initBle(cfg config) *ble.Handle {
  // the device only includes its name in the scan response, so active scans
  // are required to match it.
  handle, err := ble.InitWithConnParams(
    cfg.BluetoothDeviceId,
    cfg.BluetoothConnParams,
    ble.FlagScanTypeActive,
  )

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  return handle
}

// registerDefaultHooks logs every sensor event the device reports; they also
// show how consumers are expected to use the hook API.
func registerDefaultHooks(sess *session.Session) {
  sess.Register(protocol.KindTile, func(s *session.Session, e protocol.Event) {
    log.Info().
      Str("Tile", e.Name).
      Str("RecentTile", s.RecentTile()).
      Msg("Tile detected")
  })

  sess.Register(protocol.KindGroundColor, func(s *session.Session, e protocol.Event) {
    log.Info().Str("Color", e.Name).Msg("Ground color detected")
  })

  sess.Register(protocol.KindPants, func(s *session.Session, e protocol.Event) {
    log.Info().Str("Pants", e.Name).Msg("Pants changed")
  })

  sess.Register(protocol.KindGesture, func(s *session.Session, e protocol.Event) {
    log.Info().Str("Gesture", e.Gesture).Msg("Gesture detected (experimental)")
  })

  sess.Register(protocol.KindHubAction, func(s *session.Session, e protocol.Event) {
    log.Info().Str("Action", e.Name).Msg("Hub action")
  })

  sess.Register(protocol.KindAcceleration, func(s *session.Session, e protocol.Event) {
    log.Debug().
      Int8("X", e.X).
      Int8("Y", e.Y).
      Int8("Z", e.Z).
      Msg("Acceleration")
  })
}
