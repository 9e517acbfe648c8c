package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdudkov/rigs/internal/config"
	"github.com/kdudkov/rigs/internal/repository"
	"github.com/kdudkov/rigs/internal/token"
	"github.com/kdudkov/rigs/pkg/model"
	"github.com/kdudkov/rigs/pkg/request"
)

const programName = "rigctl"

var (
	configFile string
	apiURL     string
	apiUser    string
	apiPass    string
	apiToken   string
)

func loadConfig() *config.AppConfig {
	cfg := config.NewAppConfig()
	cfg.Load(configFile)
	cfg.LoadEnv()

	return cfg
}

func identityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the identities file",
	}

	cmd.AddCommand(identityListCommand(), identityAddCommand())

	return cmd
}

func identityListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := repository.ReadIdentities(loadConfig().IdentitiesFile())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOGIN\tROLES\tWALLETS\tDISABLED")

			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", u.Login, strings.Join(u.Roles, ","), strings.Join(u.Wallets, ","), u.Disabled)
			}

			return w.Flush()
		},
	}
}

func identityAddCommand() *cobra.Command {
	var (
		password string
		roles    []string
		wallets  []string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add <login>",
		Short: "Add an identity or replace an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := loadConfig().IdentitiesFile()

			users, err := repository.ReadIdentities(file)
			if err != nil {
				return err
			}

			if password == "" {
				if password, err = askPassword(cmd); err != nil {
					return err
				}
			}

			u := &model.Identity{Login: args[0], Roles: roles, Wallets: wallets, Disabled: disabled}
			if err := u.SetPassword(password); err != nil {
				return err
			}

			found := false

			for i, old := range users {
				if old.Login == u.Login {
					users[i] = u
					found = true
				}
			}

			if !found {
				users = append(users, u)
			}

			if err := repository.WriteIdentities(file, users); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "identity %s saved to %s\n", u.Login, file)

			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password, asked when empty")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "role (admin, missions_admin, proposals_admin, reviewer)")
	cmd.Flags().StringSliceVarP(&wallets, "wallet", "w", nil, "attached wallet identity")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "disable the identity")

	return cmd
}

func askPassword(cmd *cobra.Command) (string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprint(cmd.OutOrStdout(), "password: ")
	p1, _ := reader.ReadString('\n')
	fmt.Fprint(cmd.OutOrStdout(), "repeat password: ")
	p2, _ := reader.ReadString('\n')

	if p1 != p2 {
		return "", fmt.Errorf("password mismatch")
	}

	if p := strings.TrimSpace(p1); p != "" {
		return p, nil
	}

	return "", fmt.Errorf("empty password")
}

func tokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <login>",
		Short: "Issue a bearer token for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			users, err := repository.ReadIdentities(cfg.IdentitiesFile())
			if err != nil {
				return err
			}

			for _, u := range users {
				if u.Login != args[0] {
					continue
				}

				if u.Disabled {
					return fmt.Errorf("identity %s is disabled", u.Login)
				}

				tok, err := token.NewIssuer(cfg.JWTSecret(), cfg.JWTIssuer(), cfg.JWTTTL()).Issue(u.Login, u.Roles, u.Wallets)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), tok)

				return nil
			}

			return fmt.Errorf("no identity %s", args[0])
		},
	}
}

func apiRequest() *request.Request {
	r := request.New(&http.Client{Timeout: 10 * time.Second}, apiURL, slog.Default().With("logger", "api"))

	if apiToken != "" {
		return r.Token(apiToken)
	}

	if apiUser != "" {
		return r.Auth(apiUser, apiPass)
	}

	return r
}

func ftCommand() *cobra.Command {
	var at int64

	cmd := &cobra.Command{
		Use:   "ft [identity...]",
		Short: "Show flight time of identities, the caller when none given",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Identities []string `json:"identities"`
				Height     int64    `json:"height"`
				FT         int64    `json:"ft"`
			}

			r := apiRequest().Path("/ft").Arg("identity", args...)
			if at > 0 {
				r.Arg("at", fmt.Sprint(at))
			}

			if err := r.Do(cmd.Context(), &res); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s at %d: %d\n", strings.Join(res.Identities, ","), res.Height, res.FT)

			return nil
		},
	}

	cmd.Flags().Int64Var(&at, "at", 0, "height, current when 0")

	return cmd
}

func tallyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tally <proposal id>",
		Short: "Show vote totals of a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t model.TallyDTO

			if err := apiRequest().Path("/proposals/%s/tally", args[0]).Do(cmd.Context(), &t); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "proposal %d is %s, total %d\n", t.ProposalID, t.State, t.Total)
			fmt.Fprintln(w, "OPTION\tWEIGHT\tVOTERS")

			for _, o := range t.Options {
				fmt.Fprintf(w, "%s\t%d\t%d\n", o.Description, o.Weight, o.Voters)
			}

			return w.Flush()
		},
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "rigs identity, token and api tool",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "rigs.yml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "http://localhost:8080", "rigs server address")
	rootCmd.PersistentFlags().StringVarP(&apiUser, "user", "u", "", "api login")
	rootCmd.PersistentFlags().StringVar(&apiPass, "api-password", "", "api password")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "api bearer token")
	rootCmd.AddCommand(identityCommand(), tokenCommand(), ftCommand(), tallyCommand())

	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
