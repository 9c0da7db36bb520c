package commands

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sdash-backend/lib/configutil"
	"sdash-backend/lib/contentcache"
	"sdash-backend/lib/osutil"
	"sdash-backend/lib/sessionstore"
	"sdash-backend/services/academia"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type Config struct {
	BaseUrl     string `json:"base_url"`
	Headless    *bool  `json:"headless"`
	ProfileRoot string `json:"profile_root"`
	SessionDb   string `json:"session_db"`
	CacheDir    string `json:"cache_dir"`
	DumpDir     string `json:"dump_dir"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("sdash.json5")
	if err != nil && !os.IsNotExist(err) {
		osutil.Fatal("failed to read config", err)
	}
	if cfg.SessionDb == "" {
		cfg.SessionDb = "sessions.db"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "content_cache"
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Reads a JSON request from stdin, scrapes the portal, writes the JSON result to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			osutil.Fatal("failed to read stdin", err)
		}
		var req academia.Request
		err = json.Unmarshal(input, &req)
		if err != nil {
			// protocol errors still produce a well formed result
			emit(academia.Result{Success: false, Error: err.Error()})
			os.Exit(1)
		}

		db, err := sql.Open("sqlite", cfg.SessionDb)
		if err != nil {
			osutil.Fatal("failed to open session database", err)
		}
		defer db.Close()
		store, err := sessionstore.New(ctx, db)
		if err != nil {
			osutil.Fatal("failed to initialize session store", err)
		}

		cache, err := contentcache.Open(cfg.CacheDir)
		if err != nil {
			osutil.Fatal("failed to open content cache", err)
		}
		defer cache.Close()

		headless := true
		if cfg.Headless != nil {
			headless = *cfg.Headless
		}
		svc := academia.NewService(store, cache, academia.Options{
			BaseUrl:     cfg.BaseUrl,
			Headless:    headless,
			ProfileRoot: cfg.ProfileRoot,
			DumpDir:     cfg.DumpDir,
		})

		emit(svc.Do(ctx, req))
	},
}

func emit(result academia.Result) {
	out, err := json.Marshal(result)
	if err != nil {
		osutil.Fatal("failed to marshal result", err)
	}
	fmt.Println(string(out))
}
