package protocol

import "fmt"

// Code tables for the device's LWP3 dialect. The wire format is not published
// by the vendor; values come from community protocol notes
// (https://github.com/bricklife/LEGO-Mario-Reveng). Codes missing from a table
// resolve to a placeholder carrying the raw code, never to an error.

var tileNames = map[byte]string{
  0x02: "Goomba",
  0x03: "Refresh",
  0x04: "Question Block",
  0x05: "Cloud",
  0x06: "Bat",
  0x07: "Star",
  0x09: "King Boo",
  0x0a: "Bowser Jr",
  0x0b: "Goal Pole",
  0x0c: "Bowser",
  0x0d: "Door",
  0x0e: "Pink Yoshi Fruit",
  0x0f: "Poison Mushroom",
  0x10: "Checkpoint",
  0x11: "Bob-omb",
  0x12: "Shy Guy",
  0x14: "Boo",
  0x15: "Thwomp",
  0x16: "Waluigi",
  0x17: "Toad",
  0x18: "Piranha Plant",
  0x19: "Lava",
  0x1a: "Dry Bones",
  0x1b: "Wendy",
  0x23: "Coin 1",
  0x24: "Coin 2",
  0x25: "Coin 3",
  0x29: "Pipe",
  0x2a: "Turnip",
  0x2e: "Yoshi Egg",
  0x37: "P-Switch",
  0x99: "Fire Flower",
  0xb7: "Goal",
  0xb8: "Start",
}

var groundColorNames = map[byte]string{
  0x0c: "Purple",
  0x13: "White",
  0x15: "Red",
  0x17: "Blue",
  0x18: "Yellow",
  0x1a: "Black",
  0x25: "Green",
  0x38: "Nougat Brown",
  0x42: "Cyan",
  0x6a: "Brown",
}

var pantsNames = map[byte]string{
  0x00: "None",
  0x03: "Bee",
  0x05: "Luigi",
  0x06: "Frog",
  0x0a: "Tanooki",
  0x0c: "Propeller",
  0x11: "Cat",
  0x12: "Fire",
  0x14: "Penguin",
  0x21: "Mario",
  0x22: "Builder",
}

var hubActionNames = map[byte]string{
  0x01: "Switch Off Hub",
  0x02: "Disconnect",
  0x03: "VCC Port Control On",
  0x04: "VCC Port Control Off",
  0x05: "Activate Busy Indication",
  0x06: "Reset Busy Indication",
  0x30: "Hub Will Switch Off",
  0x31: "Hub Will Disconnect",
  0x32: "Hub Will Go Into Boot Mode",
}

var hubPropertyNames = map[byte]string{
  0x01: "Advertising Name",
  0x02: "Button",
  0x03: "FW Version",
  0x04: "HW Version",
  0x05: "RSSI",
  0x06: "Battery Voltage",
  0x07: "Battery Type",
  0x08: "Manufacturer Name",
  0x09: "Radio Firmware Version",
  0x0a: "LEGO Wireless Protocol Version",
  0x0b: "System Type ID",
  0x0c: "HW Network ID",
  0x0d: "Primary MAC Address",
  0x0e: "Secondary MAC Address",
  0x0f: "Hardware Network Family",
  0x12: "Volume",
}

type gestureBit struct {
  mask uint16
  name string
}

// Ordered so that concatenated labels are deterministic. The gesture stream is
// experimental: the device's bit reporting is known to be inaccurate.
var gestureBits = []gestureBit{
  {0x0001, "Bump"},
  {0x0010, "Shake"},
  {0x0100, "Turning"},
  {0x0200, "Fastmove"},
  {0x0400, "Translation"},
  {0x0800, "HighFallCrash"},
  {0x1000, "DirectionChange"},
  {0x2000, "Reverse"},
  {0x8000, "Jump"},
}

func tileName(code byte) string {
  if name, ok := tileNames[code]; ok {
    return name
  }

  return fmt.Sprintf("Unknown Tile (0x%02x)", code)
}

func groundColorName(code byte) string {
  if name, ok := groundColorNames[code]; ok {
    return name
  }

  return fmt.Sprintf("Unknown Color (0x%02x)", code)
}

func pantsName(code byte) string {
  if name, ok := pantsNames[code]; ok {
    return name
  }

  return "Unknown"
}

func hubActionName(code byte) string {
  if name, ok := hubActionNames[code]; ok {
    return name
  }

  return fmt.Sprintf("Unknown Hub Action (0x%02x)", code)
}

func hubPropertyName(code byte) string {
  if name, ok := hubPropertyNames[code]; ok {
    return name
  }

  return "Unknown Property"
}
