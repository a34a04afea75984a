package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kraitsura/lazyreview/pkg/model"
	"github.com/kraitsura/lazyreview/pkg/provider"
	"github.com/kraitsura/lazyreview/pkg/secrets"
)

var authHost string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider tokens",
}

// parseProvider validates the provider argument.
func parseProvider(arg string) (model.ProviderType, error) {
	t := model.ProviderType(arg)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown provider %q (expected github, gitlab, bitbucket, azuredevops, or gitea)", arg)
	}
	return t, nil
}

// readToken prompts interactively when attached to a terminal, otherwise
// reads one line from stdin so tokens can be piped in.
func readToken(providerName string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		var token string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Token for %s", providerName)).
				EchoMode(huh.EchoModePassword).
				Value(&token),
		))
		if err := form.Run(); err != nil {
			return "", err
		}
		return strings.TrimSpace(token), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("no token on stdin: %w", scanner.Err())
	}
	return strings.TrimSpace(scanner.Text()), nil
}

var authLoginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Store a token for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseProvider(args[0])
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		host := authHost
		if host == "" {
			host = t.DefaultHost()
		}

		token, err := readToken(string(t))
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		backend, err := a.secrets.Set(secrets.Account(t, host), token)
		if err != nil {
			return err
		}
		fmt.Printf("Token for %s (%s) stored in %s.\n", t, host, backend)

		p, err := provider.New(t, host, token)
		if err != nil {
			return err
		}
		valid, err := p.ValidateToken(context.Background())
		switch {
		case err != nil:
			fmt.Printf("Could not verify token: %v\n", err)
		case !valid:
			fmt.Println("Warning: the host rejected this token.")
		default:
			fmt.Println("Token verified.")
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <provider>",
	Short: "Delete a stored provider token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseProvider(args[0])
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		host := authHost
		if host == "" {
			host = t.DefaultHost()
		}

		backend, err := a.secrets.Delete(secrets.Account(t, host))
		if err != nil {
			return err
		}
		fmt.Printf("Token for %s (%s) removed from %s.\n", t, host, backend)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check stored tokens against their hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(a.cfg.Providers) == 0 {
			fmt.Println("No providers configured.")
			return nil
		}

		for _, pc := range a.cfg.Providers {
			host := pc.EffectiveHost()
			token, err := a.secrets.Get(secrets.Account(pc.Type, host))
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Printf("%-12s %-20s no token\n", pc.Type, host)
				continue
			}

			p, err := provider.New(pc.Type, host, token)
			if err != nil {
				return err
			}
			valid, err := p.ValidateToken(context.Background())
			switch {
			case err != nil:
				fmt.Printf("%-12s %-20s unreachable: %v\n", pc.Type, host, err)
			case valid:
				fmt.Printf("%-12s %-20s ok\n", pc.Type, host)
			default:
				fmt.Printf("%-12s %-20s token rejected\n", pc.Type, host)
			}
		}
		return nil
	},
}

func init() {
	authCmd.PersistentFlags().StringVar(&authHost, "host", "", "provider host (default: the provider's public host)")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}
