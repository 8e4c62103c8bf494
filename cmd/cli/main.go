package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/auth"
	"github.com/iho/gotransfer/internal/infrastructure/logger"
	"github.com/iho/gotransfer/internal/infrastructure/postgres"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "gotransfer-cli",
		Short:         "GoTransfer CLI tool",
		Long:          `A command line interface for moving funds through the GoTransfer API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the GoTransfer API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GOTRANSFER_TOKEN"), "Bearer token (defaults to $GOTRANSFER_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	// Ledger commands
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}
	ledgerCmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that every transfer has both legs recorded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd.Context(), newAPIClient(opts), cmd.OutOrStdout())
		},
	})

	rootCmd.AddCommand(
		ledgerCmd,
		newMovementCmd(opts, "deposit", "Credit an account"),
		newMovementCmd(opts, "withdraw", "Debit an account"),
		newTransferCmd(opts),
		newHistoryCmd(opts),
		newTokenCmd(),
		newMigrateCmd(),
	)

	return rootCmd
}

func newMovementCmd(opts *options, name, short string) *cobra.Command {
	var (
		accountID int64
		amount    string
		currency  string
		memo      string
		idemKey   string
	)

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := dto.DepositRequest{
				AccountID: accountID,
				Amount:    json.Number(amount),
				Currency:  currency,
				Memo:      memo,
			}
			return postAndPrint(cmd.Context(), newAPIClient(opts), cmd.OutOrStdout(),
				"/api/v1/transactions/"+name, body, idemKey)
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "Account id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 100.50")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency code (server default when empty)")
	cmd.Flags().StringVar(&memo, "memo", "", "Free text memo")
	cmd.Flags().StringVar(&idemKey, "idempotency-key", "", "Idempotency-Key header")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTransferCmd(opts *options) *cobra.Command {
	var (
		from     int64
		to       int64
		amount   string
		currency string
		memo     string
		idemKey  string
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move funds between two accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := dto.TransferRequest{
				FromAccountID: from,
				ToAccountID:   to,
				Amount:        json.Number(amount),
				Currency:      currency,
				Memo:          memo,
			}
			return postAndPrint(cmd.Context(), newAPIClient(opts), cmd.OutOrStdout(),
				"/api/v1/transactions/transfer", body, idemKey)
		},
	}

	cmd.Flags().Int64Var(&from, "from", 0, "Source account id")
	cmd.Flags().Int64Var(&to, "to", 0, "Destination account id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 100.50")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency code (server default when empty)")
	cmd.Flags().StringVar(&memo, "memo", "", "Free text memo")
	cmd.Flags().StringVar(&idemKey, "idempotency-key", "", "Idempotency-Key header")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		accountID int64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transactions of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd.Context(), newAPIClient(opts), cmd.OutOrStdout(), accountID, asJSON)
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "Account id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		secret   string
		callerID string
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			token, err := auth.NewJWTManager(secret, ttl).Generate(domain.Caller{
				ID:   callerID,
				Role: domain.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret (defaults to $JWT_SECRET)")
	cmd.Flags().StringVar(&callerID, "caller", "", "Caller id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleOperator), "Role: admin, operator or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
		steps       int
	)

	open := func(cmd *cobra.Command) (*postgres.Migrator, error) {
		log := logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
		return postgres.NewMigrator(databaseURL, path, log)
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the transaction record schema",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (defaults to $DATABASE_URL)")
	migrateCmd.PersistentFlags().StringVar(&path, "path", "migrations", "Migrations directory")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Up()
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd)
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Down(steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d\nDirty: %v\n", version, dirty)
			return nil
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		token:   opts.token,
		http:    &http.Client{Timeout: opts.timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, idemKey string) (int, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func postAndPrint(ctx context.Context, c *apiClient, out io.Writer, path string, body any, idemKey string) error {
	status, raw, err := c.do(ctx, http.MethodPost, path, body, idemKey)
	if err != nil {
		return err
	}
	printJSON(out, raw)
	if status >= 300 {
		return fmt.Errorf("request failed (status %d)", status)
	}
	return nil
}

func checkConsistency(ctx context.Context, c *apiClient, out io.Writer) error {
	status, raw, err := c.do(ctx, http.MethodGet, "/api/v1/ledger/consistency", nil, "")
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		fmt.Fprintf(out, "Consistency check FAILED (Status: %d)\nResponse: %s\n", status, string(raw))
		return fmt.Errorf("ledger is not consistent")
	}

	var result dto.ConsistencyResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Fprintf(out, "Consistency check PASSED\n")
	fmt.Fprintf(out, "Consistent: %v\n", result.Consistent)
	fmt.Fprintf(out, "Status: %s\n", result.Status)
	return nil
}

func showHistory(ctx context.Context, c *apiClient, out io.Writer, accountID int64, asJSON bool) error {
	q := url.Values{}
	q.Set("account_id", strconv.FormatInt(accountID, 10))

	status, raw, err := c.do(ctx, http.MethodGet, "/api/v1/transactions/history?"+q.Encode(), nil, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		printJSON(out, raw)
		return fmt.Errorf("request failed (status %d)", status)
	}
	if asJSON {
		printJSON(out, raw)
		return nil
	}

	var records []dto.TransactionResponse
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tKIND\tAMOUNT\tCORRELATION\tMEMO")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339),
			r.Kind,
			r.FormattedAmount,
			truncate(r.CorrelationID, 14),
			truncate(r.Memo, 30),
		)
	}
	return w.Flush()
}

// printJSON indents raw when it is JSON and writes it verbatim otherwise.
func printJSON(out io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(out, string(raw))
		return
	}
	fmt.Fprintln(out, buf.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
