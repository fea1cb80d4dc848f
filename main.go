package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"tabclean/httpapi"
	"tabclean/logging"
	"tabclean/monitoring"
	"tabclean/pipeline"
	"tabclean/store"
)

// Config is the optional config.yaml. An absent file means the historical
// behavior: clean ./out.txt once with threshold 1 and exit.
type Config struct {
	Pipeline pipeline.Config `yaml:"pipeline"`
	Database struct {
		Path string `yaml:"path"` // empty disables run history
	} `yaml:"database"`
	HTTP struct {
		Port int `yaml:"port"` // 0 disables the server
	} `yaml:"http"`
	Watch bool           `yaml:"watch"`
	Log   logging.Config `yaml:"log"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(config.Log)
	defer log.Sync()

	var st *store.Store
	if config.Database.Path != "" {
		st, err = store.Open(config.Database.Path)
		if err != nil {
			log.Fatal("failed to open run history", zap.Error(err))
		}
		defer st.Close()
	}

	var hub *monitoring.Hub
	if config.HTTP.Port > 0 {
		hub = monitoring.NewHub(log)
		go hub.Start()
		defer hub.Stop()
	}

	runner := pipeline.NewRunner(config.Pipeline, log, st, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	daemon := config.Watch || config.HTTP.Port > 0

	if _, err := runner.Run(ctx); err != nil {
		if !daemon {
			log.Fatal("clean failed", zap.Error(err))
		}
		log.Error("clean failed", zap.Error(err))
	}
	if !daemon {
		return
	}

	errs := make(chan error, 2)

	if config.Watch {
		watcher := pipeline.NewWatcher(runner, log)
		go func() {
			errs <- watcher.Watch(ctx)
		}()
	}

	var server *httpapi.Server
	if config.HTTP.Port > 0 {
		server = httpapi.NewServer(config.HTTP.Port, runner, st, hub, log)
		go func() {
			errs <- server.Start()
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("shutting down")
	case err := <-errs:
		if err != nil {
			log.Error("component failed", zap.Error(err))
		}
	}

	cancel()
	if server != nil {
		if err := server.Stop(); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
	}
}

func loadConfig(path string) (*Config, error) {
	var config Config
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
