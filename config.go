package main

import (
  "flag"
  "strings"
  "time"

  "github.com/brickbt/go-mario-driver/ble"
  "github.com/brickbt/go-mario-driver/session"
)

type config struct {
  Debug, Trace bool
  BindAddress string
  DiscoverDevices bool
  BluetoothDeviceId int
  BluetoothConnParams ble.ConnParams
  ScanWindow time.Duration
  MaxScanRetries int
  SubscribePacing time.Duration
  LivenessInterval time.Duration
  DefaultVolume int
  NoReconnect bool
  NamePrefixes prefixList
}

// prefixList accumulates repeated -name-prefix flags.
type prefixList []string

func (p *prefixList) String() string {
  return strings.Join(*p, ",")
}

func (p *prefixList) Set(v string) error {
  *p = append(*p, v)
  return nil
}

func ParseArgs() config {
  var cfg config

  cfg.BluetoothConnParams = ble.ConnParamsDefault

  flag.StringVar(&cfg.BindAddress, "bind", "localhost:9131", "Where the metrics endpoint will bind to")
  flag.IntVar(&cfg.BluetoothDeviceId, "bluetooth-device", 0, "Bluetooth (HCI) device ID")
  flag.Var(&cfg.BluetoothConnParams, "bluetooth-connection-params", "Bluetooth connection parameters (one of 'default' or 'power-saving')")
  flag.BoolVar(&cfg.DiscoverDevices, "discover", false, "Discover available BLE devices and quit")
  flag.DurationVar(&cfg.ScanWindow, "scan-window", ble.DefaultScanWindow,
    "How long a single scan cycle lasts")
  flag.IntVar(&cfg.MaxScanRetries, "max-retries", session.DefaultMaxScanRetries,
    "Consecutive failed scan cycles tolerated before giving up")
  flag.DurationVar(&cfg.SubscribePacing, "pacing", session.DefaultSubscribePacing,
    "Pause before each subscribe write after connecting")
  flag.DurationVar(&cfg.LivenessInterval, "liveness-interval", session.DefaultLivenessInterval,
    "How often connection liveness is checked")
  flag.IntVar(&cfg.DefaultVolume, "volume", -1,
    "Volume (0-100) applied on every connection. -1 leaves the device volume untouched")
  flag.BoolVar(&cfg.NoReconnect, "no-reconnect", false, "Stop instead of reconnecting after a drop")
  flag.Var(&cfg.NamePrefixes, "name-prefix",
    "Advertised name `prefix` to accept (repeatable). Defaults to the LEGO Mario/Luigi prefixes")
  flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  flag.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  flag.Parse()

  return cfg
}
