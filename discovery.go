package main

import (
  "context"
  "errors"
  "strings"
  "time"

  "github.com/rs/zerolog/log"
  "golang.org/x/exp/maps"

  "github.com/brickbt/go-mario-driver/ble"
  "github.com/brickbt/go-mario-driver/session"
)

// doDeviceDiscovery scans for a few seconds and lists everything in radio
// range, flagging the devices this driver would connect to.
func doDeviceDiscovery(cfg config) {
  log.Info().Msg("Starting in device discovery mode - collecting devices for 5 seconds...")

  handle, err := ble.Init(cfg.BluetoothDeviceId, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      5 * time.Second,
    ),
  )

  type deviceInfo struct {
    name string
    connectable bool
    services []string
  }

  prefixes := []string(cfg.NamePrefixes)

  if len(prefixes) == 0 {
    prefixes = session.DefaultNamePrefixes
  }

  matchesPrefix := func(name string) bool {
    name = strings.ToLower(name)

    for _, prefix := range prefixes {
      if strings.HasPrefix(name, strings.ToLower(prefix)) {
        return true
      }
    }

    return false
  }

  devices := make(map[string]deviceInfo)

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    services := make(map[string]bool)

    for _, uuid := range a.Services() {
      services[uuid.String()] = true
    }

    var info deviceInfo
    var ok bool

    if info, ok = devices[a.Addr().String()]; ok {
      // merge
      if info.name == "" {
        info.name = a.LocalName()
      }
      info.connectable = a.Connectable()

      for _, uuid := range info.services {
        if _, ok := services[uuid]; !ok {
          services[uuid] = true
        }
      }

      info.services = maps.Keys(services)
    } else {
      info = deviceInfo{
        name: a.LocalName(),
        connectable: a.Connectable(),
        services: maps.Keys(services),
      }
    }

    devices[a.Addr().String()] = info

    log.Debug().
      Str("Addr", a.Addr().String()).
      Str("Name", a.LocalName()).
      Bool("Connectable", a.Connectable()).
      Strs("Services", maps.Keys(services)).
      Hex("ManufacturerData", a.ManufacturerData()).
      Msg("Received device advertisement")
  })

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  log.Info().Int("Found", len(devices)).Msg("Finished device discovery")

  for addr, data := range devices {
    event := log.Info().
      Str("Addr", addr).
      Str("Name", data.name).
      Bool("Connectable", data.connectable).
      Strs("Services", data.services)

    if matchesPrefix(data.name) {
      event.Msg("Found device this driver can connect to")
    } else {
      event.Msg("Found device")
    }
  }
}
