// File: main.go

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"egress-dispatcher/pkg/batch"
	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/ipinfo"
	"egress-dispatcher/pkg/preset"
	"egress-dispatcher/pkg/session"
	"egress-dispatcher/pkg/targets"
)

var (
	debugFlag bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "egress-dispatcher",
	Short: "Fetch URLs through a residential proxy gateway",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Fetch one URL with retries and identity rotation",
	Example: `fetch https://httpbin.org/ip --country de
fetch https://api.example.com/items -X POST --data '{"q":1}' -H 'Content-Type: application/json'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := requestFromFlags(cmd)
		if err != nil {
			logger.Error("Invalid request flags", "error", err)
			os.Exit(1)
		}

		client, err := newDispatcher()
		if err != nil {
			logger.Error("Error initializing dispatcher", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		start := time.Now()
		res, err := client.Fetch(ctx, args[0], req)
		storeOutcomes(ctx, "fetch", req.Session, []batch.Outcome{{
			URL:      args[0],
			Country:  req.Country,
			Result:   res,
			Err:      err,
			Duration: time.Since(start),
		}})
		if err != nil {
			logger.Error("Fetch failed", "url", args[0], "error", err)
			os.Exit(1)
		}

		logger.Info("Fetched", "url", args[0], "status", res.StatusCode, "bytes", len(res.Body), "elapsed", time.Since(start).Round(time.Millisecond))
		fmt.Print(res.Text())
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Fetch every URL in a file concurrently",
	Long: `Fetch every URL listed in [file], one per line, over a bounded worker pool.
Lines starting with # are ignored. A failing URL never affects the others.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		urls, err := targets.ReadFile(args[0])
		if err != nil {
			logger.Error("Error reading targets", "error", err)
			os.Exit(1)
		}
		if len(urls) == 0 {
			logger.Error("No valid URLs in file", "file", args[0])
			os.Exit(1)
		}

		req, err := requestFromFlags(cmd)
		if err != nil {
			logger.Error("Invalid request flags", "error", err)
			os.Exit(1)
		}
		workers, _ := cmd.Flags().GetInt("workers")
		if !cmd.Flags().Changed("workers") {
			workers = viper.GetInt("batch.workers")
		}
		delay, _ := cmd.Flags().GetDuration("delay")

		client, err := newDispatcher()
		if err != nil {
			logger.Error("Error initializing dispatcher", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		exec := batch.New(client, workers, logger)
		logger.Info("Starting batch", "urls", len(urls), "workers", exec.Workers(), "country", req.Country)

		outcomes := exec.FetchAll(ctx, urls, batch.Options{Country: req.Country, Delay: delay, Request: req})
		printOutcomes(outcomes)
		storeOutcomes(ctx, "batch", req.Session, outcomes)
		logStats(client)
	},
}

var countriesCmd = &cobra.Command{
	Use:     "countries [url] [codes...]",
	Short:   "Fetch one URL from several countries at once",
	Example: "countries https://httpbin.org/ip us de jp br",
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := requestFromFlags(cmd)
		if err != nil {
			logger.Error("Invalid request flags", "error", err)
			os.Exit(1)
		}

		client, err := newDispatcher()
		if err != nil {
			logger.Error("Error initializing dispatcher", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		countries := make([]string, 0, len(args)-1)
		for _, c := range args[1:] {
			countries = append(countries, strings.ToUpper(c))
		}

		byCountry := batch.New(client, len(countries), logger).FetchMultiCountry(ctx, args[0], countries, req)

		outcomes := make([]batch.Outcome, 0, len(byCountry))
		for _, c := range countries {
			if o, ok := byCountry[c]; ok {
				outcomes = append(outcomes, o)
			}
		}
		printOutcomes(outcomes)
		storeOutcomes(ctx, "countries", req.Session, outcomes)
		logStats(client)
	},
}

var stickyCmd = &cobra.Command{
	Use:   "sticky [n]",
	Short: "Open a sticky session and check that its exit IP holds",
	Long: `Open a sticky session and probe its exit address [n] times (default 3).
With --url the URL is fetched through the same session between probes.`,
	Args: cobra.RangeArgs(0, 1),
	Run: func(cmd *cobra.Command, args []string) {
		n := 3
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				logger.Error("Invalid probe count", "value", args[0])
				os.Exit(1)
			}
			n = v
		}
		target, _ := cmd.Flags().GetString("url")

		req, err := requestFromFlags(cmd)
		if err != nil {
			logger.Error("Invalid request flags", "error", err)
			os.Exit(1)
		}

		client, err := newDispatcher()
		if err != nil {
			logger.Error("Error initializing dispatcher", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var sess *session.Sticky
		if req.Session != "" {
			sess = session.WithID(client, req.Session, req.Country, req.City)
		} else {
			sess = session.New(client, req.Country, req.City)
		}
		if u, err := sess.Proxy(client.Endpoint(), client.APIKey()); err == nil {
			logger.Debug("Sticky proxy", "host", u.Host, "session", sess.ID())
		}
		logger.Info("Opened sticky session", "session", sess.ID(), "country", sess.Country())

		ips := make(map[string]int)
		var outcomes []batch.Outcome
		for i := 0; i < n; i++ {
			info, err := ipinfo.Probe(ctx, sess, dispatch.Request{})
			if err != nil {
				logger.Error("Probe failed", "probe", i+1, "error", err)
				continue
			}
			ips[info.IP]++
			fmt.Printf("probe %d: %s (%s, %s) AS%s %s\n", i+1, info.IP, info.City, info.Country, info.ASNumber, info.ASOrg)

			if target != "" {
				start := time.Now()
				res, err := sess.Fetch(ctx, target, req)
				outcomes = append(outcomes, batch.Outcome{URL: target, Country: sess.Country(), Result: res, Err: err, Duration: time.Since(start)})
			}
		}

		if len(outcomes) > 0 {
			printOutcomes(outcomes)
			storeOutcomes(ctx, "sticky", sess.ID(), outcomes)
		}

		switch len(ips) {
		case 0:
			logger.Error("No probe succeeded", "session", sess.ID())
			os.Exit(1)
		case 1:
			logger.Info("Exit IP held for the whole session", "session", sess.ID())
		default:
			logger.Warn("Exit IP changed during the session", "session", sess.ID(), "distinct_ips", len(ips))
		}
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset [name] [endpoint] [arg]",
	Short: "Fetch a page of a known site with its cooldown applied",
	Long: `Fetch a page of a known site. Without arguments the available presets are
listed; with only [name] its endpoints are listed.`,
	Example: `preset amazon product B08N5WRWNW --country de
preset google search "residential proxies"`,
	Args: cobra.RangeArgs(0, 3),
	Run: func(cmd *cobra.Command, args []string) {
		reg := preset.DefaultRegistry()
		if len(args) == 0 {
			fmt.Println(strings.Join(reg.Names(), "\n"))
			return
		}

		client, err := newDispatcher()
		if err != nil {
			logger.Error("Error initializing dispatcher", "error", err)
			os.Exit(1)
		}

		p, err := reg.Open(args[0], client, nil)
		if err != nil {
			logger.Error("Error opening preset", "error", err)
			os.Exit(1)
		}
		if len(args) < 3 {
			fmt.Println(strings.Join(p.Endpoints(), "\n"))
			return
		}

		country, _ := cmd.Flags().GetString("country")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		start := time.Now()
		res, err := p.Fetch(ctx, args[1], args[2], country)
		target, _ := p.URL(args[1], args[2], country)
		storeOutcomes(ctx, "preset", "", []batch.Outcome{{URL: target, Country: country, Result: res, Err: err, Duration: time.Since(start)}})
		if err != nil {
			logger.Error("Preset fetch failed", "preset", p.Name(), "error", err)
			os.Exit(1)
		}

		logger.Info("Fetched", "url", target, "status", res.StatusCode, "bytes", len(res.Body))
		fmt.Print(res.Text())
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show bandwidth usage for the API key",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := newAccountClient()
		if err != nil {
			logger.Error("Error initializing account client", "error", err)
			os.Exit(1)
		}

		u, err := c.Usage(cmd.Context())
		if err != nil {
			logger.Error("Error getting usage", "error", err)
			if u.Extra == nil {
				os.Exit(1)
			}
		}
		printJSON(u.Extra)
		if err != nil {
			os.Exit(1)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway service status",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := newAccountClient()
		if err != nil {
			logger.Error("Error initializing account client", "error", err)
			os.Exit(1)
		}

		out, err := c.Status(cmd.Context())
		if err != nil {
			logger.Error("Error getting status", "error", err)
			os.Exit(1)
		}
		printJSON(out)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the exit countries offered by the gateway",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := newAccountClient()
		if err != nil {
			logger.Error("Error initializing account client", "error", err)
			os.Exit(1)
		}

		out, err := c.Countries(cmd.Context())
		if err != nil {
			logger.Error("Error getting countries", "error", err)
			os.Exit(1)
		}
		printJSON(out)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Send a question to provider support",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := newAccountClient()
		if err != nil {
			logger.Error("Error initializing account client", "error", err)
			os.Exit(1)
		}

		out, err := c.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			logger.Error("Error asking support", "error", err)
			os.Exit(1)
		}
		printJSON(out)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{fetchCmd, batchCmd, countriesCmd, stickyCmd} {
		cmd.Flags().StringP("country", "c", "", "Exit country (ISO code)")
		cmd.Flags().String("city", "", "Exit city")
		cmd.Flags().StringP("session", "s", "", "Pin every attempt to this session id")
		cmd.Flags().Bool("render", false, "Ask the gateway to render JavaScript")
		cmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
		cmd.Flags().String("data", "", "Request body")
		cmd.Flags().StringArrayP("header", "H", nil, "Extra header as 'Key: Value' (repeatable)")
		cmd.Flags().Duration("timeout", 0, "Per-attempt timeout (default from config)")
		cmd.Flags().Int("retries", 0, "Attempt budget (default from config)")
	}
	// countries takes its countries from the arguments
	countriesCmd.Flags().MarkHidden("country")

	batchCmd.Flags().IntP("workers", "w", 0, "Concurrent fetches (capped at 25)")
	batchCmd.Flags().Duration("delay", 0, "Stagger between submissions")
	stickyCmd.Flags().String("url", "", "URL to fetch through the session between probes")
	presetCmd.Flags().StringP("country", "c", "US", "Storefront / exit country")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(countriesCmd)
	rootCmd.AddCommand(stickyCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(askCmd)
}

func requestFromFlags(cmd *cobra.Command) (dispatch.Request, error) {
	var req dispatch.Request
	req.Country, _ = cmd.Flags().GetString("country")
	req.Country = strings.ToUpper(req.Country)
	req.City, _ = cmd.Flags().GetString("city")
	req.Session, _ = cmd.Flags().GetString("session")
	req.Render, _ = cmd.Flags().GetBool("render")
	req.Method, _ = cmd.Flags().GetString("method")
	req.Timeout, _ = cmd.Flags().GetDuration("timeout")
	req.Retries, _ = cmd.Flags().GetInt("retries")
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		req.Body = []byte(data)
	}

	headers, _ := cmd.Flags().GetStringArray("header")
	h, err := parseHeaders(headers)
	if err != nil {
		return dispatch.Request{}, err
	}
	req.Header = h
	return req, nil
}

func parseHeaders(lines []string) (http.Header, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	h := make(http.Header, len(lines))
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", line)
		}
		h.Add(k, strings.TrimSpace(v))
	}
	return h, nil
}

func printOutcomes(outcomes []batch.Outcome) {
	sorted := append([]batch.Outcome(nil), outcomes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	var ok int
	for _, o := range sorted {
		if o.Success() {
			ok++
			fmt.Printf("OK   %-3s %3d %6dKB %8s  %s\n", o.Country, o.Result.StatusCode, o.SizeKB(), o.Duration.Round(time.Millisecond), o.URL)
		} else {
			fmt.Printf("FAIL %-3s %3s %8s %8s  %s: %v\n", o.Country, "-", "-", o.Duration.Round(time.Millisecond), o.URL, o.Err)
		}
	}
	fmt.Printf("%d/%d succeeded\n", ok, len(sorted))
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("Error encoding output", "error", err)
		return
	}
	fmt.Println(string(b))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
