package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gones/internal/app"
	"gones/internal/audio"
	"gones/internal/bus"
	"gones/internal/graphics"
)

func newRunCmd() *cobra.Command {
	var (
		region    string
		backend   string
		headless  bool
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "run [rom]",
		Short: "Run a ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			romPath := args[0]
			data, err := os.ReadFile(romPath)
			if err != nil {
				return fmt.Errorf("reading ROM: %w", err)
			}

			cfg := app.NewConfig()
			if configPath != "" {
				if err := cfg.LoadFromFile(configPath); err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
			}

			reg := parseRegion(region)
			emu, err := app.NewEmulator(data, filepath.Base(romPath), reg)
			if err != nil {
				return err
			}
			emu.SetVideoSettings(cfg.Video.Brightness, cfg.Video.Contrast, cfg.Video.Saturation)

			backendType := graphics.BackendType(backend)
			if headless {
				backendType = graphics.BackendHeadless
			}
			gfx, err := graphics.CreateBackend(backendType)
			if err != nil {
				return fmt.Errorf("creating graphics backend: %w", err)
			}
			if err := gfx.Initialize(graphics.Config{
				WindowTitle:  "gones - " + filepath.Base(romPath),
				WindowWidth:  cfg.Window.Width,
				WindowHeight: cfg.Window.Height,
				Fullscreen:   cfg.Window.Fullscreen,
				VSync:        cfg.Video.VSync,
				Filter:       cfg.Video.Filter,
				AspectRatio:  cfg.Video.AspectRatio,
				Headless:     headless,
			}); err != nil {
				return fmt.Errorf("initializing graphics backend: %w", err)
			}
			defer gfx.Cleanup()

			win, err := gfx.CreateWindow("gones", cfg.Window.Width, cfg.Window.Height)
			if err != nil {
				return fmt.Errorf("creating window: %w", err)
			}
			defer win.Cleanup()

			var paSink *audio.PortAudioSink
			if backendType == graphics.BackendGL && !headless {
				paSink = audio.NewPortAudioSink()
				if err := paSink.Start(); err != nil {
					// Audio is best-effort: a missing device shouldn't stop emulation.
					fmt.Fprintf(os.Stderr, "audio: %v\n", err)
					paSink = nil
				} else {
					defer paSink.Stop()
				}
			}

			emu.Start()
			for !win.ShouldClose() {
				applyInputEvents(emu, win.PollEvents())
				frame := emu.RunFrame()
				if err := win.RenderFrame(*frame); err != nil {
					return fmt.Errorf("rendering frame: %w", err)
				}
				win.SwapBuffers()
				if paSink != nil {
					paSink.Push(emu.GetAudioSamples())
				}
				if passed, message, ok := emu.TestROMResult(); ok {
					fmt.Printf("test ROM finished: passed=%t message=%q\n", passed, message)
					break
				}
			}
			emu.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "ntsc", "console timing region: ntsc, pal, dendy")
	cmd.Flags().StringVar(&backend, "backend", "ebitengine", "graphics backend: ebitengine, gl, headless, terminal")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without a window (for test ROMs / scripting)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file")
	return cmd
}

func parseRegion(s string) bus.Region {
	switch s {
	case "pal":
		return bus.RegionPAL
	case "dendy":
		return bus.RegionDendy
	default:
		return bus.RegionNTSC
	}
}

func applyInputEvents(emu *app.Emulator, events []graphics.InputEvent) {
	// Keymap is intentionally minimal here; a full remappable layout lives
	// in Config.Input and is applied the same way by the graphics backend's
	// own key translation.
	var p1 [8]bool
	for _, ev := range events {
		if ev.Type != graphics.InputEventTypeButton || !ev.Pressed {
			continue
		}
		switch ev.Button {
		case graphics.ButtonA:
			p1[0] = true
		case graphics.ButtonB:
			p1[1] = true
		case graphics.ButtonSelect:
			p1[2] = true
		case graphics.ButtonStart:
			p1[3] = true
		case graphics.ButtonUp:
			p1[4] = true
		case graphics.ButtonDown:
			p1[5] = true
		case graphics.ButtonLeft:
			p1[6] = true
		case graphics.ButtonRight:
			p1[7] = true
		}
	}
	emu.SetButtons1(p1)
}
