package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"wayfind/config"
	"wayfind/core/events"
	"wayfind/core/state"
	"wayfind/crypto"
	"wayfind/native/remint"
	"wayfind/observability/logging"
	"wayfind/rpc"
	"wayfind/storage"
	"wayfind/storage/trie"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("WAYFIND_ENV"))
	logger := logging.Setup("wayfindd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	meta, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open metadata database", slog.Any("error", err))
		os.Exit(1)
	}
	defer meta.Close()

	backend, err := trie.NewLevelDBBackend(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open state database", slog.Any("error", err))
		os.Exit(1)
	}
	defer backend.Close()

	root, err := state.LoadRoot(meta)
	if err != nil {
		logger.Error("failed to load state root", slog.Any("error", err))
		os.Exit(1)
	}

	tr, err := trie.NewTrie(backend, root)
	if err != nil {
		logger.Error("failed to open state trie", slog.Any("error", err))
		os.Exit(1)
	}

	manager := state.NewManager(tr)
	manager.SetMinter(state.ProtocolAddress())

	eventLog, err := events.NewLog(meta)
	if err != nil {
		logger.Error("failed to open event log", slog.Any("error", err))
		os.Exit(1)
	}

	engine := remint.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(manager)

	if err := bootstrap(cfg, manager, engine, meta, logger); err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(engine, manager, eventLog, meta, cfg.TokenSymbol, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// bootstrap registers the protocol token and initializes the configuration
// singleton on first run, with the keystore identity as authority.
func bootstrap(cfg *config.Config, manager *state.Manager, engine *remint.Engine, meta storage.Database, logger *slog.Logger) error {
	if _, ok, err := manager.ConfigGet(); err != nil {
		return err
	} else if ok {
		return nil
	}

	if _, err := manager.Token(cfg.TokenSymbol); errors.Is(err, state.ErrTokenNotRegistered) {
		if err := manager.RegisterToken(cfg.TokenSymbol, cfg.TokenName, cfg.TokenDecimals); err != nil {
			return err
		}
		if err := manager.SetTokenMintAuthority(cfg.TokenSymbol, state.ProtocolAddress()); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	key, err := crypto.LoadFromKeystore(cfg.AuthorityKeystorePath, os.Getenv(config.KeystorePassEnv))
	if err != nil {
		return fmt.Errorf("load authority keystore: %w", err)
	}
	var authority [20]byte
	copy(authority[:], key.PubKey().Address().Bytes())

	protocolCfg, err := engine.Initialize(authority, cfg.TokenSymbol, state.PoolAddress(), cfg.WeeklyCap)
	if err != nil {
		return err
	}
	root, err := manager.Commit()
	if err != nil {
		return err
	}
	if err := state.SaveRoot(meta, root); err != nil {
		return err
	}
	logger.Info("protocol initialized",
		slog.String("authority", key.PubKey().Address().String()),
		slog.Uint64("weeklyCap", protocolCfg.WeeklyCap),
		slog.String("token", protocolCfg.TokenSymbol))
	return nil
}
