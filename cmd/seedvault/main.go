// Local seed vault: unlocks the .cwt wallet, serves its seed behind a
// revocable capability and revokes it on shutdown.
// Usage: WALLET_FILE_PATH=./wallet.cwt go run ./cmd/seedvault
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

	"github.com/AlexZinkM/seedvault/internal/api"
	"github.com/AlexZinkM/seedvault/internal/config"
	"github.com/AlexZinkM/seedvault/internal/handler"
	"github.com/AlexZinkM/seedvault/internal/logging"
	"github.com/AlexZinkM/seedvault/internal/session"
	"github.com/AlexZinkM/seedvault/internal/wallet"
	"github.com/AlexZinkM/seedvault/internal/watch"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(); err != nil {
		return err
	}

	logger, err := logging.New(config.GetLogLevel())
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := config.PromptForPassword(); err != nil {
		return err
	}
	defer config.ClearPassword()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileWallet := wallet.NewFileWallet(config.GetWalletFilePath(), config.GetWalletPasswordBytes)
	sess := session.New(fileWallet, logger.Named("session"), session.WithStrictContracts(config.GetStrictContracts()))
	// Revoke before the session is discarded
	defer sess.Close()

	seedHandler, err := handler.NewSeedHandler(sess, fileWallet.Path(), logger.Named("http"))
	if err != nil {
		return err
	}

	// Initial unlock, like the first mount of the wallet view
	go func() {
		if err := sess.Generate(ctx); err != nil {
			logger.Warn("initial seed generation failed", zap.Error(err))
		}
	}()

	storageWatcher := watch.NewStorageWatcher(fileWallet.Path(), config.GetWatchDebounce(), func(ctx context.Context) {
		if _, err := sess.StorageChanged(ctx); err != nil {
			logger.Warn("seed regeneration after storage change failed", zap.Error(err))
		}
	}, logger.Named("watch"))
	go func() {
		if err := storageWatcher.Run(ctx); err != nil {
			logger.Error("storage watcher stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           api.SetupRouter(seedHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sess.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
