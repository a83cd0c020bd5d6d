// Command castctl is a reference tvcast caster implementation.
//
// This command demonstrates a complete tvcast-compliant caster with:
//   - CLI argument parsing
//   - Configuration file support
//   - Commissioner discovery (mDNS)
//   - User-directed commissioning and window management
//   - Interactive command interface
//   - Protocol logging
//
// Usage:
//
//	castctl [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-name string          User-visible device name (default "tvcast Caster")
//	-vendor-id uint       Vendor ID (default 0xFFF1)
//	-product-id uint      Product ID (default 0x8001)
//	-discriminator uint   Discriminator for commissioning (0-4095, 0=generate)
//	-passcode string      8-digit setup passcode (empty=generate)
//	-listen string        Commissioning listen address (default ":8443")
//	-data-dir string      Directory for persistent identity and state
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this .clog file
//	-interactive          Enable interactive command mode
//	-window               Open the commissioning window at startup
//
// Examples:
//
//	# Start an interactive caster with a fixed passcode
//	castctl -name "Living Room Caster" -passcode 20252024 -interactive
//
//	# Start with persistence and protocol logging
//	castctl -data-dir /var/lib/castctl -protocol-log caster.clog -window
//
//	# Start from a config file
//	castctl -config /etc/tvcast/caster.yaml -interactive
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/tvcast-protocol/tvcast-go/cmd/castctl/interactive"
	"github.com/tvcast-protocol/tvcast-go/pkg/dispatch"
	protolog "github.com/tvcast-protocol/tvcast-go/pkg/log"
	"github.com/tvcast-protocol/tvcast-go/pkg/service"
	"github.com/tvcast-protocol/tvcast-go/pkg/wire"
)

// Config holds the caster configuration. File values are overridden by
// flags that were set explicitly.
type Config struct {
	Name          string `yaml:"name"`
	VendorID      uint16 `yaml:"vendor_id"`
	ProductID     uint16 `yaml:"product_id"`
	DeviceType    uint32 `yaml:"device_type"`
	Discriminator uint16 `yaml:"discriminator"`
	Passcode      string `yaml:"passcode"`
	Listen        string `yaml:"listen"`
	DataDir       string `yaml:"data_dir"`
	LogLevel      string `yaml:"log_level"`
	ProtocolLog   string `yaml:"protocol_log"`
	Interface     string `yaml:"interface"`
}

func defaultConfig() Config {
	return Config{
		Name:      "tvcast Caster",
		VendorID:  0xFFF1,
		ProductID: 0x8001,
		Listen:    ":8443",
		LogLevel:  "info",
	}
}

func main() {
	var (
		configFile     string
		runInteractive bool
		openWindow     bool
	)

	cfg := defaultConfig()
	var vendorID, productID, deviceType, discriminator uint

	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "User-visible device name")
	flag.UintVar(&vendorID, "vendor-id", uint(cfg.VendorID), "Vendor ID")
	flag.UintVar(&productID, "product-id", uint(cfg.ProductID), "Product ID")
	flag.UintVar(&deviceType, "device-type", 0, "Device type for mDNS TXT records")
	flag.UintVar(&discriminator, "discriminator", 0, "Discriminator for commissioning (0-4095, 0=generate)")
	flag.StringVar(&cfg.Passcode, "passcode", "", "8-digit setup passcode (empty=generate)")
	flag.StringVar(&cfg.Listen, "listen", cfg.Listen, "Commissioning listen address")
	flag.StringVar(&cfg.DataDir, "data-dir", "", "Directory for persistent identity and state")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.ProtocolLog, "protocol-log", "", "Write protocol events to this .clog file")
	flag.StringVar(&cfg.Interface, "interface", "", "Restrict mDNS and UDC traffic to one interface")
	flag.BoolVar(&runInteractive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&openWindow, "window", false, "Open the commissioning window at startup")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	// Precedence: explicit flags > config file > defaults.
	if configFile != "" {
		fileCfg, err := loadConfigFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		merge(&cfg, fileCfg, setFlags)
	}
	if setFlags["vendor-id"] {
		cfg.VendorID = uint16(vendorID)
	}
	if setFlags["product-id"] {
		cfg.ProductID = uint16(productID)
	}
	if setFlags["device-type"] {
		cfg.DeviceType = uint32(deviceType)
	}
	if setFlags["discriminator"] {
		cfg.Discriminator = uint16(discriminator)
	}

	setupLogging(cfg.LogLevel)

	log.Println("tvcast Reference Caster")
	log.Println("=======================")
	log.Printf("Device name: %s", cfg.Name)
	log.Printf("Listen: %s", cfg.Listen)

	svcConfig := service.DefaultCasterConfig()
	svcConfig.DeviceName = cfg.Name
	svcConfig.VendorID = cfg.VendorID
	svcConfig.ProductID = cfg.ProductID
	svcConfig.DeviceType = cfg.DeviceType
	svcConfig.Discriminator = cfg.Discriminator
	svcConfig.ListenAddress = cfg.Listen
	svcConfig.DataDir = cfg.DataDir
	svcConfig.Interface = cfg.Interface

	slogger := newSlogLogger(cfg.LogLevel)
	svcConfig.Logger = slogger

	// Service events run on the main goroutine, in order, instead of
	// one goroutine per event.
	events := make(dispatch.Chan, 16)
	svcConfig.EventDelivery = events

	if cfg.Passcode != "" {
		passcode, err := wire.ParsePasscode(cfg.Passcode)
		if err != nil {
			log.Fatalf("Invalid passcode: %v", err)
		}
		svcConfig.Passcode = passcode
	}

	var protoLogger *protolog.FileLogger
	if cfg.ProtocolLog != "" {
		var err error
		protoLogger, err = protolog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			log.Fatalf("Failed to open protocol log: %v", err)
		}
		defer protoLogger.Close()
		svcConfig.ProtocolLog = protoLogger
		log.Printf("Protocol log: %s", cfg.ProtocolLog)
	} else if cfg.LogLevel == "debug" {
		// No event log file, but debug runs still want the frame and
		// message traffic visible.
		svcConfig.ProtocolLog = protolog.NewSlogAdapter(slogger)
	}

	svc, err := service.NewCasterService(svcConfig)
	if err != nil {
		log.Fatalf("Failed to create caster service: %v", err)
	}

	svc.OnEvent(handleEvent)

	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start service: %v", err)
	}
	log.Printf("Service started (state: %s)", svc.State())

	printOnboardingInfo(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if openWindow {
		svc.OpenBasicCommissioningWindow(service.WindowOptions{
			OnSent: func(err error) {
				if err != nil {
					log.Printf("Failed to open commissioning window: %v", err)
				} else {
					log.Println("Commissioning window open")
				}
			},
			OnComplete: func(fingerprint string, err error) {
				if err != nil {
					log.Printf("Commissioning window closed: %v", err)
				} else {
					log.Printf("Commissioned by peer %s", fingerprint)
				}
			},
		})
	}

	if runInteractive {
		ic, err := interactive.New(svc)
		if err != nil {
			log.Fatalf("Failed to create interactive caster: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case fn := <-events:
			fn()
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			break loop
		case <-ctx.Done():
			// Cancelled by the interactive quit command
			break loop
		}
	}

	log.Println("Shutting down...")

	// Teardown still emits through the channel; keep draining so
	// Close never blocks on a full event buffer.
	go func() {
		for fn := range events {
			fn()
		}
	}()

	if err := svc.Close(); err != nil {
		log.Printf("Error closing service: %v", err)
	}

	log.Println("Goodbye!")
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// merge copies non-zero file values over the defaults, skipping any
// field whose flag was passed explicitly.
func merge(dst *Config, src Config, setFlags map[string]bool) {
	if src.Name != "" && !setFlags["name"] {
		dst.Name = src.Name
	}
	if src.VendorID != 0 {
		dst.VendorID = src.VendorID
	}
	if src.ProductID != 0 {
		dst.ProductID = src.ProductID
	}
	if src.DeviceType != 0 {
		dst.DeviceType = src.DeviceType
	}
	if src.Discriminator != 0 {
		dst.Discriminator = src.Discriminator
	}
	if src.Passcode != "" && !setFlags["passcode"] {
		dst.Passcode = src.Passcode
	}
	if src.Listen != "" && !setFlags["listen"] {
		dst.Listen = src.Listen
	}
	if src.DataDir != "" && !setFlags["data-dir"] {
		dst.DataDir = src.DataDir
	}
	if src.LogLevel != "" && !setFlags["log-level"] {
		dst.LogLevel = src.LogLevel
	}
	if src.ProtocolLog != "" && !setFlags["protocol-log"] {
		dst.ProtocolLog = src.ProtocolLog
	}
	if src.Interface != "" && !setFlags["interface"] {
		dst.Interface = src.Interface
	}
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

func newSlogLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func handleEvent(event service.Event) {
	switch event.Type {
	case service.EventStateChanged:
		log.Printf("[EVENT] Session state: %s", event.State)
	case service.EventCommissionerDiscovered:
		if event.Commissioner != nil {
			log.Printf("[EVENT] Commissioner discovered: %s (%s)",
				event.Commissioner.DeviceName, event.Commissioner.Address())
		}
	case service.EventCommissioningOpened:
		log.Println("[EVENT] Commissioning window opened")
	case service.EventCommissioningClosed:
		log.Println("[EVENT] Commissioning window closed")
	case service.EventCommissioned:
		log.Printf("[EVENT] Commissioned by peer %s", event.Fingerprint)
	case service.EventSessionLost:
		log.Printf("[EVENT] Session lost: %v", event.Error)
	case service.EventSessionResumed:
		log.Printf("[EVENT] Session resumed with peer %s", event.Fingerprint)
	}
}

func printOnboardingInfo(svc *service.CasterService) {
	payload := svc.OnboardingPayload()
	if payload == nil {
		return
	}

	log.Println("")
	log.Println("============================================")
	log.Println("          ONBOARDING INFORMATION            ")
	log.Println("============================================")
	log.Printf("Onboarding Code: %s", payload.String())
	log.Println("")
	log.Printf("  Discriminator: %d", payload.Discriminator)
	log.Printf("  Passcode:      %s", payload.Passcode.String())
	log.Printf("  Fingerprint:   %s", svc.Fingerprint())
	log.Println("============================================")
	log.Println("")
}
