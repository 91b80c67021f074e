package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/rulenet/internal/logging"
	"github.com/danielpatrickdp/rulenet/internal/rulefile"
	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/service"
	"github.com/danielpatrickdp/rulenet/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve inference over gRPC and reload rules on file changes",
	Long: `serve loads the rule file, records it as a snapshot and answers Infer and
Request calls. Edits to the rule file are turned into add and delete requests
that resolve at the end of the next step, together with client requests.
Every resolution is snapshotted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "gRPC listen address")
	serveCmd.Flags().Bool("resume", false, "start from the active snapshot instead of the rule file")
	_ = viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := rulefile.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	resume, _ := cmd.Flags().GetBool("resume")
	db, err := initialRules(st, f, resume)
	if err != nil {
		return err
	}

	n, out, err := buildNetwork(db, buildOptions{
		Action:      cfg.Action,
		Temperature: temperatureFor(cmd, f),
		Seed:        cfg.Seed,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	rl := newReloader(logger)
	db.Updater().OnResolve(st.HookWith(rl.reason))
	db.Updater().OnResolve(rl.hook)

	srv := service.NewServer(service.Config{
		Network: n,
		Rules:   db,
		Input:   stimulus,
		Output:  out,
		Logger:  logger,
	})
	gs := grpc.NewServer()
	service.RegisterInferenceServer(gs, srv)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	w, err := rulefile.NewWatcher(cfg.RulesFile, logger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("serving", zap.String("addr", lis.Addr().String()), zap.Int("rules", db.Len()))
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		for ev := range w.Events {
			if ev.Err != nil {
				logger.Warn("rule file rejected", zap.Error(ev.Err))
				continue
			}
			err := srv.Enqueue(func(db *rules.Rules) error { return rl.apply(db, ev.File) })
			if err != nil && !errors.Is(err, rules.ErrPendingRequest) {
				logger.Warn("rule file not applied", zap.Error(err))
			}
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
		w.Stop()
		return nil
	})
	return g.Wait()
}

// initialRules builds the starting database and records it as the active
// snapshot.
func initialRules(st *store.Store, f *rulefile.File, resume bool) (*rules.Rules, error) {
	var parentID string
	cur, err := st.GetCurrent()
	switch {
	case err == nil:
		parentID = cur.VersionID
	case !errors.Is(err, store.ErrNoSnapshot):
		return nil, err
	}

	if resume && parentID != "" {
		logger.Info("resuming from snapshot", zap.String("version", parentID))
		return cur.Build()
	}

	db, err := f.Build()
	if err != nil {
		return nil, err
	}
	snap, err := st.SaveSnapshot(db, parentID)
	if err != nil {
		return nil, err
	}
	err = logging.LogResolution(st.DB(), logging.ResolutionEntry{
		VersionID:   snap.VersionID,
		TriggerType: "load",
		Added:       logging.JoinSymbols(db.IDs()),
		RuleCount:   db.Len(),
		Reason:      cfg.RulesFile,
	})
	return db, err
}
