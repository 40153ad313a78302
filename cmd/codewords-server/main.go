// The codewords-server binary serves the Codewords API: room operations,
// live websocket feeds, and the sync API that satellite servers replicate
// against. Room storage is pluggable via -backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	codewords "github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/cryptorand"
	"github.com/bcspragu/Codewords/dict"
	"github.com/bcspragu/Codewords/fsstore"
	"github.com/bcspragu/Codewords/memstore"
	"github.com/bcspragu/Codewords/pgstore"
	"github.com/bcspragu/Codewords/reststore"
	"github.com/bcspragu/Codewords/rooms"
	"github.com/bcspragu/Codewords/sqlstore"
	"github.com/bcspragu/Codewords/web"
	"github.com/bcspragu/Codewords/wsrpc"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	addr             = flag.String("addr", ":8080", "HTTP service address")
	backend          = flag.String("backend", "memory", "Room storage backend, one of memory, sqlite, postgres, firestore, rest, wsrpc")
	dbPath           = flag.String("db_path", "codewords.db", "Path to the SQLite DB file, for -backend=sqlite")
	postgresURL      = flag.String("postgres_url", "", "PostgreSQL connection string, for -backend=postgres")
	firestoreProject = flag.String("firestore_project", "", "GCP project to store rooms in, for -backend=firestore")
	syncURL          = flag.String("sync_url", "", "Base URL of the primary server's sync API, for -backend=rest")
	wsrpcURL         = flag.String("wsrpc_url", "", "Websocket URL of the primary server's sync RPC, like ws://host/api/sync/ws, for -backend=wsrpc")
	wordFile         = flag.String("word_file", "", "Optional word pool file, one word per line, defaults to the builtin list")
	logLevel         = flag.String("log_level", "info", "Minimum level to log at")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backend).Msg("failed to initialize room storage")
	}
	defer cleanup()

	words, err := dict.Pool(*wordFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word pool")
	}

	mgr, err := rooms.New(store, words, cryptorand.New())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create room manager")
	}

	sc, err := loadKeys()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load cookie keys")
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: web.New(mgr, store, sc, log.Logger),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Err(err).Msg("failed to shut down cleanly")
		}
	}()

	log.Info().Str("addr", *addr).Str("backend", *backend).Msg("server is running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// newStore builds the configured backend. The returned cleanup releases
// whatever the backend holds open, and is safe to call once.
func newStore(ctx context.Context) (codewords.Store, func(), error) {
	noop := func() {}

	switch *backend {
	case "memory":
		return memstore.New(), noop, nil
	case "sqlite":
		s, err := sqlstore.New(*dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, closeLogged(s.Close), nil
	case "postgres":
		if *postgresURL == "" {
			return nil, nil, errors.New("backend postgres requires -postgres_url")
		}
		s, err := pgstore.New(ctx, *postgresURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "firestore":
		if *firestoreProject == "" {
			return nil, nil, errors.New("backend firestore requires -firestore_project")
		}
		s, err := fsstore.New(ctx, *firestoreProject)
		if err != nil {
			return nil, nil, err
		}
		return s, closeLogged(s.Close), nil
	case "rest":
		if *syncURL == "" {
			return nil, nil, errors.New("backend rest requires -sync_url")
		}
		return reststore.New(*syncURL), noop, nil
	case "wsrpc":
		if *wsrpcURL == "" {
			return nil, nil, errors.New("backend wsrpc requires -wsrpc_url")
		}
		c, err := wsrpc.Dial(ctx, *wsrpcURL)
		if err != nil {
			return nil, nil, err
		}
		return c, closeLogged(c.Close), nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", *backend)
}

func closeLogged(close func() error) func() {
	return func() {
		if err := close(); err != nil {
			log.Err(err).Msg("failed to close room storage")
		}
	}
}

func loadKeys() (*securecookie.SecureCookie, error) {
	hashKey, err := loadOrGenKey("hashKey")
	if err != nil {
		return nil, err
	}

	blockKey, err := loadOrGenKey("blockKey")
	if err != nil {
		return nil, err
	}

	return securecookie.New(hashKey, blockKey), nil
}

func loadOrGenKey(name string) ([]byte, error) {
	f, err := os.ReadFile(name)
	if err == nil {
		return f, nil
	}

	dat := securecookie.GenerateRandomKey(32)
	if dat == nil {
		return nil, errors.New("failed to generate key")
	}

	if err := os.WriteFile(name, dat, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file %q: %v", name, err)
	}
	return dat, nil
}
