package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/licensegate/internal/domain/repository"
	"github.com/dropDatabas3/licensegate/internal/licensing"
	"github.com/dropDatabas3/licensegate/internal/store/pg"
)

type storeOpts struct {
	Driver string
	DSN    string
}

type openFunc func(ctx context.Context) (repository.Store, error)

// keyAlphabet omite caracteres ambiguos (0/O, 1/I).
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateKey devuelve una key de la forma XXXX-XXXX-XXXX-XXXX.
func generateKey() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, v := range b {
		if i > 0 && i%4 == 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte(keyAlphabet[int(v)%len(keyAlphabet)])
	}
	return sb.String(), nil
}

// parseExpiry acepta YYYY-MM-DD (fin de ese día, UTC) o RFC3339.
func parseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("--expires: use YYYY-MM-DD or RFC3339")
	}
	t := d.Add(24*time.Hour - time.Second).UTC()
	return &t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(opts *storeOpts, open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "licensectl",
		Short:        "Administración del Record Store de licencias",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.Driver, "driver", opts.Driver, "driver del store: postgres|memory (env STORAGE_DRIVER)")
	root.PersistentFlags().StringVar(&opts.DSN, "dsn", opts.DSN, "DSN de Postgres (env STORAGE_DSN o DATABASE_URL)")

	// withStore abre el store, corre fn y lo cierra.
	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, st repository.Store) error) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := open(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(ctx, st)
	}

	root.AddCommand(
		newMigrateCmd(withStore),
		newLicenseCmd(withStore),
		newPolicyCmd(withStore),
		newSecretCmd(),
	)
	return root
}

type storeRunner func(cmd *cobra.Command, fn func(ctx context.Context, st repository.Store) error) error

func newMigrateCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				pgs, ok := st.(*pg.Store)
				if !ok {
					return errors.New("migrate requires the postgres driver")
				}
				res, err := pgs.Migrate(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"applied":  res.Applied,
					"skipped":  res.Skipped,
					"duration": res.Duration.String(),
				})
			})
		},
	}
}

func newLicenseCmd(withStore storeRunner) *cobra.Command {
	licenseCmd := &cobra.Command{
		Use:   "license",
		Short: "Crear, revocar y consultar licencias",
	}

	var key, expires string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea una licencia (genera la key si no se pasa --key)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exp, err := parseExpiry(expires)
			if err != nil {
				return err
			}
			k := strings.TrimSpace(key)
			if k == "" {
				if k, err = generateKey(); err != nil {
					return err
				}
			}
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				l, err := st.CreateLicense(ctx, repository.CreateLicenseInput{Key: k, ExpiresAt: exp})
				if repository.IsConflict(err) {
					return fmt.Errorf("license %s already exists", licensing.Fingerprint(k))
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), l)
			})
		},
	}
	createCmd.Flags().StringVar(&key, "key", "", "license key (opcional)")
	createCmd.Flags().StringVar(&expires, "expires", "", "vencimiento: YYYY-MM-DD o RFC3339 (opcional)")

	revokeCmd := &cobra.Command{
		Use:   "revoke KEY",
		Short: "Revoca una licencia. No hay vuelta atrás",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				if err := st.RevokeLicense(ctx, args[0]); err != nil {
					if repository.IsNotFound(err) {
						return fmt.Errorf("license %s not found", licensing.Fingerprint(args[0]))
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "revoked")
				return nil
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show KEY",
		Short: "Muestra una licencia y su binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				l, err := st.GetLicense(ctx, args[0])
				if err != nil {
					if repository.IsNotFound(err) {
						return fmt.Errorf("license %s not found", licensing.Fingerprint(args[0]))
					}
					return err
				}
				out := map[string]any{"license": l}
				b, err := st.GetBinding(ctx, args[0])
				switch {
				case err == nil:
					out["binding"] = b
				case !repository.IsNotFound(err):
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	licenseCmd.AddCommand(createCmd, revokeCmd, showCmd)
	return licenseCmd
}

func newPolicyCmd(withStore storeRunner) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Política de versión mínima",
	}

	var minV, curV, url string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Reemplaza la política activa",
		Long: "Desactiva la política activa e inserta la nueva en una transacción.\n" +
			"Las instancias en marcha la ven al vencer el cache de política o con SIGHUP.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := licensing.ParseVersion(minV); err != nil {
				return fmt.Errorf("--min: %w", err)
			}
			if _, err := licensing.ParseVersion(curV); err != nil {
				return fmt.Errorf("--current: %w", err)
			}
			in := repository.SetPolicyInput{MinimumVersion: minV, CurrentVersion: curV}
			if strings.TrimSpace(url) != "" {
				u := strings.TrimSpace(url)
				in.DownloadURL = &u
			}
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				p, err := st.SetActivePolicy(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	setCmd.Flags().StringVar(&minV, "min", "", "versión mínima soportada")
	setCmd.Flags().StringVar(&curV, "current", "", "última versión publicada")
	setCmd.Flags().StringVar(&url, "url", "", "URL de descarga (opcional)")
	_ = setCmd.MarkFlagRequired("min")
	_ = setCmd.MarkFlagRequired("current")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Muestra la política activa",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, st repository.Store) error {
				p, err := st.GetActivePolicy(ctx)
				if repository.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "no active policy")
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}

	policyCmd.AddCommand(setCmd, showCmd)
	return policyCmd
}

func newSecretCmd() *cobra.Command {
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Secretos de firma",
	}
	var n int
	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "Genera un valor aleatorio para TOKEN_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n < 32 {
				return errors.New("--bytes must be at least 32")
			}
			b := make([]byte, n)
			if _, err := rand.Read(b); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(b))
			return nil
		},
	}
	genCmd.Flags().IntVar(&n, "bytes", 48, "bytes de entropía")
	secretCmd.AddCommand(genCmd)
	return secretCmd
}
