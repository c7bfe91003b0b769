package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	vinput "github.com/ehrlich-b/go-vinput"
	"github.com/ehrlich-b/go-vinput/internal/config"
	"github.com/ehrlich-b/go-vinput/internal/logging"
	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

func main() {
	var (
		configPath = flag.String("config", "vinput-demo.toml", "Path to the TOML config file")
		verbose    = flag.Bool("v", false, "Verbose output")
		wait       = flag.Bool("wait", false, "Keep running after the replay until interrupted")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Set up logging
	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.ParseLevel(cfg.Log.Level)
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	// Live log-level reload: edits to the config file take effect without
	// restarting.
	stopWatch, err := config.Watch(*configPath, func(next *config.Config) {
		lc := logging.DefaultConfig()
		lc.Level = logging.ParseLevel(next.Log.Level)
		logging.SetDefault(logging.NewLogger(lc))
		logging.Info("config reloaded", "log_level", next.Log.Level)
	})
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
	} else {
		defer stopWatch()
	}

	// Simulated guest: one memory buffer and ring per device.
	kbdGuest := vinput.NewGuestRingHarness(uint16(cfg.Devices.QueueSize))
	mouseGuest := vinput.NewGuestRingHarness(uint16(cfg.Devices.QueueSize))
	kbdIRQ := vinput.NewMockInterruptLine()
	mouseIRQ := vinput.NewMockInterruptLine()

	options := &vinput.Options{PendingCapacity: cfg.Devices.PendingCapacity}

	keyboard, err := vinput.NewKeyboard(kbdGuest.Mem, kbdIRQ, options)
	if err != nil {
		logger.Error("failed to create keyboard", "error", err)
		os.Exit(1)
	}
	mouse, err := vinput.NewMouse(mouseGuest.Mem, mouseIRQ, options)
	if err != nil {
		logger.Error("failed to create mouse", "error", err)
		os.Exit(1)
	}

	// Walk both devices through the guest-visible bring-up sequence.
	for _, d := range []struct {
		dev   *vinput.Device
		guest *vinput.GuestRingHarness
	}{{keyboard, kbdGuest}, {mouse, mouseGuest}} {
		acked := d.dev.NegotiateFeatures(1 << uapi.VirtioFVersion1)
		logger.Info("negotiated", "device", d.dev.Name(), "features", fmt.Sprintf("%#x", acked))

		if err := d.guest.Bind(d.dev); err != nil {
			logger.Error("bind failed", "device", d.dev.Name(), "error", err)
			os.Exit(1)
		}
		if err := d.dev.Activate(); err != nil {
			logger.Error("activate failed", "device", d.dev.Name(), "error", err)
			os.Exit(1)
		}
		defer d.dev.Close()
	}

	if cfg.Replay.UseEvBits {
		dumpConfigSpace(keyboard)
		dumpConfigSpace(mouse)
	}

	// Post enough guest buffers for the whole replay.
	postBuffers(kbdGuest, cfg.Devices.QueueSize/2)
	postBuffers(mouseGuest, cfg.Devices.QueueSize/2)
	keyboard.NotifyQueue(vinput.EventQueueIndex)
	mouse.NotifyQueue(vinput.EventQueueIndex)

	inject := vinput.NewInjectContext(keyboard, mouse)
	if rc := inject.Enable(); rc != 0 {
		logger.Error("failed to enable injection", "rc", rc)
		os.Exit(1)
	}

	replay(inject, cfg)

	// Give the drainers a moment to push everything to the guest.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if keyboard.Pending() == 0 && mouse.Pending() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	fmt.Printf("keyboard: %d completions, %d interrupts\n", kbdGuest.UsedCount(), kbdIRQ.Count())
	fmt.Printf("mouse:    %d completions, %d interrupts\n", mouseGuest.UsedCount(), mouseIRQ.Count())

	if cfg.Replay.ShowMetrics {
		printMetrics("keyboard", keyboard.Metrics().Snapshot())
		printMetrics("mouse", mouse.Metrics().Snapshot())
	}

	if *wait {
		fmt.Println("Press Ctrl+C to stop...")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("received shutdown signal")
	}
}

// replay drives a scripted burst of injections through the host-facing
// surface, the same calls a VMM control plane would make.
func replay(inject *vinput.InjectContext, cfg *config.Config) {
	keys := []uint16{30, 31, 32, 33, 34, 35} // a s d f g h
	for i := 0; i < cfg.Replay.KeyPresses; i++ {
		code := keys[i%len(keys)]
		if rc := inject.InjectKeyboard(code, true); rc != 0 {
			logging.Warn("key press rejected", "code", code, "rc", rc)
		}
		if rc := inject.InjectKeyboard(code, false); rc != 0 {
			logging.Warn("key release rejected", "code", code, "rc", rc)
		}
	}

	for i := 0; i < cfg.Replay.MouseMoves; i++ {
		if rc := inject.InjectMouseMotion(int32(5+i), int32(-3)); rc != 0 {
			logging.Warn("mouse move rejected", "rc", rc)
		}
	}

	inject.InjectMouseButton(uapi.BtnLeft, true)
	inject.InjectMouseButton(uapi.BtnLeft, false)

	for i := 0; i < cfg.Replay.WheelSteps; i++ {
		if rc := inject.InjectMouseWheel(1); rc != 0 {
			logging.Warn("wheel step rejected", "rc", rc)
		}
	}
}

func postBuffers(guest *vinput.GuestRingHarness, n int) {
	for i := 0; i < n; i++ {
		guest.AddBuffer(uapi.EventSize)
	}
}

// dumpConfigSpace walks the identity selectors the way a guest driver does
// during probe and prints what it finds.
func dumpConfigSpace(d *vinput.Device) {
	name, _ := d.ReadConfig(uapi.CfgIDName, 0)
	serial, _ := d.ReadConfig(uapi.CfgIDSerial, 0)
	types, _ := d.ReadConfig(uapi.CfgEvBits, 0)
	fmt.Printf("%s: name=%q serial=%q event-type-bits=%x\n", d.Name(), name, serial, types)
}

func printMetrics(name string, s vinput.Snapshot) {
	fmt.Printf("%s metrics: pushed=%d (key=%d rel=%d syn=%d) delivered=%d interrupts=%d events/irq=%.1f rejected=%d\n",
		name, s.TotalPushed, s.KeysPushed, s.RelsPushed, s.SynsPushed,
		s.Delivered, s.Interrupts, s.EventsPerInterrupt, s.QueueFullRejections)
}
