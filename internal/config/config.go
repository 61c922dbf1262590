package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDHelm    string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicStatus   string
	TopicWaypoint string
	TopicCommand  string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Compass
	CompassI2CBus  string
	CompassI2CAddr uint16

	// RF transmitter hardware
	RFSPIDevice string
	RFResetPin  string
	RFDataPin   string
	RFRepeat    int

	// Buzzer (optional; empty disables event tones)
	BuzzerPin string

	// Timing
	UpdateInterval int // control loop tick, milliseconds
	StatusInterval int // telemetry status period, milliseconds

	// Display
	DisplayUpdateInterval int // milliseconds

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_HELM":
		c.MQTTClientIDHelm = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_WAYPOINT":
		c.TopicWaypoint = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Compass
	case "COMPASS_I2C_BUS":
		c.CompassI2CBus = value
	case "COMPASS_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_I2C_ADDR %q: %w", value, err)
		}
		c.CompassI2CAddr = uint16(addr)

	// RF transmitter
	case "RF_SPI_DEVICE":
		c.RFSPIDevice = value
	case "RF_RESET_PIN":
		c.RFResetPin = value
	case "RF_DATA_PIN":
		c.RFDataPin = value
	case "RF_REPEAT":
		repeat, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RF_REPEAT %q: %w", value, err)
		}
		if repeat < 1 {
			return fmt.Errorf("RF_REPEAT must be >= 1, got %d", repeat)
		}
		c.RFRepeat = repeat

	// Buzzer
	case "BUZZER_PIN":
		c.BuzzerPin = value

	// Timing
	case "UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid UPDATE_INTERVAL %q: %w", value, err)
		}
		c.UpdateInterval = interval
	case "STATUS_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STATUS_INTERVAL %q: %w", value, err)
		}
		c.StatusInterval = interval

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required")
	}
	if c.RFSPIDevice == "" {
		return fmt.Errorf("RF_SPI_DEVICE is required")
	}
	if c.RFDataPin == "" {
		return fmt.Errorf("RF_DATA_PIN is required")
	}
	if c.UpdateInterval == 0 {
		return fmt.Errorf("UPDATE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
