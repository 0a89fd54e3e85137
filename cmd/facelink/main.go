// Command facelink receives a LiveLink face-capture stream, remaps it to
// the unified face-tracking parameters and serves the result to avatar
// consumers over gRPC and the debug HTTP routes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/facelink/internal/config"
	"github.com/banshee-data/facelink/internal/livelink"
	"github.com/banshee-data/facelink/internal/livelink/network"
	"github.com/banshee-data/facelink/internal/publish"
	"github.com/banshee-data/facelink/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON config file (see "+config.DefaultConfigPath+")")
	port        = flag.Int("port", config.DefaultPort, "UDP port the capture app sends to")
	listen      = flag.String("listen", config.DefaultDebugListen, "Debug HTTP listen address (empty disables)")
	grpcListen  = flag.String("grpc-listen", "", "gRPC pose stream listen address (empty disables)")
	forward     = flag.String("forward", "", "Relay raw capture packets to host:port")
	vocabulary  = flag.String("vocabulary", "v1", "Capture channel vocabulary (v1 or v2)")
	noEye       = flag.Bool("no-eye", false, "Disable eye tracking output")
	noLip       = flag.Bool("no-lip", false, "Disable lip tracking output")
	smooth      = flag.Bool("smooth", false, "Enable output smoothing")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// applyFlags copies explicitly set flags over cfg. Flags left at their
// defaults do not override the config file.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			v := *port
			cfg.Port = &v
		case "listen":
			v := *listen
			cfg.DebugListen = &v
		case "grpc-listen":
			v := *grpcListen
			cfg.GRPCListen = &v
		case "forward":
			v := *forward
			cfg.ForwardAddr = &v
		case "vocabulary":
			v := *vocabulary
			cfg.Vocabulary = &v
		case "no-eye":
			v := !*noEye
			cfg.EyeEnabled = &v
		case "no-lip":
			v := !*noLip
			cfg.LipEnabled = &v
		case "smooth":
			v := *smooth
			if cfg.Smoothing == nil {
				cfg.Smoothing = &config.SmoothingConfig{}
			}
			cfg.Smoothing.Enabled = &v
		}
	})
}

func loadConfig() (*config.Config, error) {
	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	applyFlags(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	vocab, err := cfg.GetVocabulary()
	if err != nil {
		log.Fatalf("failed to select vocabulary: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := livelink.NewStats()
	store := publish.NewStore(cfg.GetHistorySize())

	var forwarder *network.Forwarder
	if addr := cfg.GetForwardAddr(); addr != "" {
		forwarder, err = network.NewForwarder(addr, stats, time.Minute)
		if err != nil {
			log.Fatalf("failed to create forwarder: %v", err)
		}
		forwarder.Start(ctx)
		defer forwarder.Close()
	}

	module := livelink.New(livelink.Config{
		Vocabulary:     vocab,
		DisableEye:     !cfg.GetEyeEnabled(),
		DisableLip:     !cfg.GetLipEnabled(),
		Smoothing:      cfg.SmoothingBank(),
		UpdateInterval: cfg.GetUpdateInterval(),
		StatsInterval:  cfg.GetStatsInterval(),
		Receiver: network.ReceiverConfig{
			Host:      cfg.GetHost(),
			RcvBuf:    cfg.GetRcvBuf(),
			Forwarder: forwarder,
		},
		Store: store,
		Stats: stats,
	})

	eye, lip, err := module.Initialize(cfg.GetPort())
	if err != nil {
		log.Fatalf("failed to initialize capture: %v", err)
	}
	log.Printf("%s capturing on %s (eye=%t, lip=%t)", version.String(), module.LocalAddr(), eye, lip)
	module.Start(ctx)

	var grpcServer *publish.GRPCServer
	if addr := cfg.GetGRPCListen(); addr != "" {
		grpcServer = publish.NewGRPCServer(store)
		if err := grpcServer.Start(addr); err != nil {
			log.Fatalf("failed to start gRPC server: %v", err)
		}
	}

	var wg sync.WaitGroup
	if addr := cfg.GetDebugListen(); addr != "" {
		mux := http.NewServeMux()
		store.AttachAdminRoutes(mux, func() any { return stats.Totals() })
		server := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			log.Printf("debug routes on http://%s/debug/", addr)

			<-ctx.Done()
			// End SSE tails before shutting the server down.
			store.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}
			log.Printf("HTTP server routine stopped")
		}()
	}

	<-ctx.Done()
	log.Printf("shutting down...")

	if err := module.Teardown(); err != nil {
		log.Printf("capture teardown error: %v", err)
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	store.Close()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
