package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemachinarbo/RockShell/internal/engine/mock"
)

// newMockCmd serves a scripted installer for trying the tool without a
// ProcessWire checkout.
func newMockCmd() *cobra.Command {
	var (
		addr string
		opt  mock.Options
	)
	cmd := &cobra.Command{
		Use:    "mock-installer",
		Short:  "Serve a scripted ProcessWire installer",
		Hidden: true,
		Args:   noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := &http.Server{
				Addr:              addr,
				Handler:           mock.New(opt),
				ReadHeaderTimeout: 5 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mock installer listening on http://%s/install.php\n", addr)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8089", "listen address")
	f.IntVar(&opt.CompatFailures, "compat-failures", 0, "failing compatibility rows")
	f.IntVar(&opt.AdminNotices, "admin-notices", 1, "admin loads that show first-run notices")
	f.BoolVar(&opt.DBNotEmpty, "db-not-empty", false, "ask what to do with existing tables")
	f.BoolVar(&opt.ForbidRoot, "forbid-root", false, "answer 403 on /")
	f.StringVar(&opt.Alert, "alert", "", "alert shown on every installer page")
	return cmd
}
