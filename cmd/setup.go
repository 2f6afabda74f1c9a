package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"egress-dispatcher/pkg/account"
	"egress-dispatcher/pkg/batch"
	"egress-dispatcher/pkg/database"
	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/proxy"
	"egress-dispatcher/pkg/stats"
)

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.egress-dispatcher")
	viper.AddConfigPath("/etc/egress-dispatcher/")

	viper.SetEnvPrefix("EGRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("proxy.host", proxy.DefaultHost)
	viper.SetDefault("proxy.port", proxy.DefaultPort)
	viper.SetDefault("proxy.scheme", string(proxy.SchemeHTTP))
	viper.SetDefault("proxy.auth", string(proxy.AuthUserInfo))
	viper.SetDefault("dispatch.retries", 3)
	viper.SetDefault("dispatch.base_delay", time.Second)
	viper.SetDefault("dispatch.timeout", 30*time.Second)
	viper.SetDefault("dispatch.country", "US")
	viper.SetDefault("batch.workers", batch.DefaultWorkers)
	viper.SetDefault("account.base_url", account.DefaultBaseURL)
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// The API key alone is enough to run, so the file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func newDispatcher() (*dispatch.Client, error) {
	ep, err := proxy.NewEndpoint(
		viper.GetString("proxy.host"),
		viper.GetInt("proxy.port"),
		viper.GetString("proxy.scheme"),
		viper.GetString("proxy.auth"),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy config: %w", err)
	}

	client, err := dispatch.New(viper.GetString("api_key"), logger,
		dispatch.WithEndpoint(ep),
		dispatch.WithCountry(viper.GetString("dispatch.country")),
		dispatch.WithCity(viper.GetString("dispatch.city")),
		dispatch.WithRetries(viper.GetInt("dispatch.retries")),
		dispatch.WithBaseDelay(viper.GetDuration("dispatch.base_delay")),
		dispatch.WithTimeout(viper.GetDuration("dispatch.timeout")),
		dispatch.WithRateLimit(viper.GetFloat64("dispatch.rate_limit"), viper.GetInt("dispatch.burst")),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating dispatcher (set api_key or EGRESS_API_KEY): %w", err)
	}

	if addr := viper.GetString("metrics.addr"); addr != "" {
		serveMetrics(addr, client.Accumulator())
	}

	return client, nil
}

func newAccountClient() (*account.Client, error) {
	return account.NewClient(viper.GetString("api_key"), viper.GetString("account.base_url"), logger)
}

// serveMetrics exposes the fetch counters until the process exits
func serveMetrics(addr string, acc *stats.Accumulator) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewCollector(acc, "egress"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Metrics server error", "error", err)
		}
	}()
}

func initDB() (*database.DB, error) {
	db, err := database.NewDB()
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	err = db.InitSchema(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return db, nil
}

// storeOutcomes writes outcomes to the result sink when one is configured.
// A failing sink is logged and never fails the command.
func storeOutcomes(ctx context.Context, command, sessionID string, outcomes []batch.Outcome) {
	if !viper.GetBool("database.enabled") {
		return
	}

	db, err := initDB()
	if err != nil {
		logger.Error("Error initializing database", "error", err)
		return
	}
	defer db.Close()

	records := database.RecordsFromOutcomes(uuid.NewString(), command, outcomes)
	for i := range records {
		records[i].SessionID = sessionID
	}
	if err := db.InsertFetchRecords(ctx, records); err != nil {
		logger.Error("Error storing fetch records", "error", err)
		return
	}
	logger.Debug("Stored fetch records", "count", len(records))
}

func logStats(client *dispatch.Client) {
	s := client.Stats()
	logger.Info("Dispatcher stats",
		"requests", s.Requests,
		"success", s.Success,
		"errors", s.Errors,
		"avg_ms", fmt.Sprintf("%.0f", s.AvgTimeMs))
}
