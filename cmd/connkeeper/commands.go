package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	httpx "github.com/dropDatabas3/connkeeper/internal/http"
	"github.com/dropDatabas3/connkeeper/internal/lifecycle"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
	"github.com/dropDatabas3/connkeeper/internal/util"
)

func resolveCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resuelve un usuario (id, username o email) entre los dos stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			return st.print(u)
		},
	}
}

// connectionsCmd imprime los tokens enmascarados.
func connectionsCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "connections <identifier>",
		Short: "Lista las conexiones OAuth del usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			conns, err := st.c.Engine.GetConnections(ctx, u)
			if err != nil {
				return err
			}
			type view struct {
				repository.PlatformConnection
				Connected    bool   `json:"connected"`
				AccessToken  string `json:"access_token,omitempty"`
				RefreshToken string `json:"refresh_token,omitempty"`
			}
			out := make(map[repository.Platform]view, len(conns))
			for p, c := range conns {
				out[p] = view{
					PlatformConnection: c,
					Connected:          c.Connected(),
					AccessToken:        util.MaskSecret(c.AccessToken),
					RefreshToken:       util.MaskSecret(c.RefreshToken),
				}
			}
			return st.print(out)
		},
	}
}

func healthCmd(st *cli) *cobra.Command {
	var platform string
	var trend bool
	cmd := &cobra.Command{
		Use:   "health <identifier>",
		Short: "Clasifica la salud de las conexiones del usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if platform != "" {
				p, err := repository.ParsePlatform(platform)
				if err != nil {
					return err
				}
				res, err := st.c.Engine.CheckHealth(ctx, u, p)
				if err != nil {
					return err
				}
				return st.print(res)
			}

			if trend {
				rep, cmp, err := st.c.Engine.HealthTrend(ctx, u)
				if err != nil {
					return err
				}
				return st.print(struct {
					Report     *lifecycle.HealthReport    `json:"report"`
					Comparison lifecycle.HealthComparison `json:"comparison"`
				}{rep, cmp})
			}

			rep, err := st.c.Engine.CheckAllHealth(ctx, u)
			if err != nil {
				return err
			}
			return st.print(rep)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Chequear una sola plataforma")
	cmd.Flags().BoolVar(&trend, "trend", false, "Comparar contra el último reporte guardado")
	return cmd
}

func refreshCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <identifier> <platform>",
		Short: "Refresca el token de una plataforma si hace falta",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			p, err := repository.ParsePlatform(args[1])
			if err != nil {
				return err
			}
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			res := st.c.Engine.RefreshIfNeeded(ctx, u, p)
			if err := st.print(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("refresh %s: %s", p, res.Error)
			}
			return nil
		},
	}
}

func repairCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <identifier> [platform...]",
		Short: "Intenta auto-reparar las conexiones (todas o las indicadas)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			targets := make([]repository.Platform, 0, len(args)-1)
			for _, a := range args[1:] {
				p, err := repository.ParsePlatform(a)
				if err != nil {
					return err
				}
				targets = append(targets, p)
			}
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			rep, err := st.c.Engine.RepairConnections(ctx, u, targets...)
			if err != nil {
				return err
			}
			return st.print(rep)
		},
	}
}

func migrationCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migration <identifier>",
		Short: "Evalúa qué tan preparadas están las conexiones para refresh automático",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			rep, err := st.c.Engine.MigrationStatus(ctx, u)
			if err != nil {
				return err
			}
			return st.print(rep)
		},
	}
}

func disconnectCmd(st *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <identifier> <platform>",
		Short: "Borra los campos de una plataforma en el store dueño del usuario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			p, err := repository.ParsePlatform(args[1])
			if err != nil {
				return err
			}
			u, err := st.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := st.c.Engine.RemoveConnection(ctx, u, p); err != nil {
				return err
			}
			return st.print(map[string]any{"userId": u.ID, "store": u.Store, "platform": p, "removed": true})
		},
	}
}

func syncCmd(st *cli) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "sync <identifier>",
		Short: "Copia un usuario y sus conexiones de un store al otro (nunca pisa)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.opCtx(cmd)
			defer cancel()
			src, err := repository.ParseStoreTag(from)
			if err != nil {
				return err
			}
			dst, err := repository.ParseStoreTag(to)
			if err != nil {
				return err
			}
			if !src.Valid() {
				return fmt.Errorf("%w: --from is required", repository.ErrInvalidInput)
			}
			if !dst.Valid() {
				dst = src.Other()
			}
			res, err := st.c.Engine.SyncUser(ctx, args[0], src, dst)
			if err != nil {
				return err
			}
			return st.print(res)
		},
	}
	cmd.Flags().StringVar(&from, "from", string(repository.StoreSecondary), "Store origen")
	cmd.Flags().StringVar(&to, "to", "", "Store destino (default: el otro)")
	return cmd
}

func serveCmd(st *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expone /livez, /readyz y /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = st.c.Config.Server.Addr
			}
			log := logger.Named("http")
			h, err := httpx.NewRouter(httpx.RouterDeps{
				Stores: st.c.Stores,
				Cache:  st.c.Cache,
				Logger: log,
			})
			if err != nil {
				return err
			}
			log.Info("listening", logger.String("addr", addr))
			return httpx.Serve(cmd.Context(), addr, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (default: server.addr)")
	return cmd
}
