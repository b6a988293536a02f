// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/doc-studio/internal/session"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the doc-studio services",
	RunE:  runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	if err := newClient().Register(context.Background(), email, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run \"doc-studio login\" to sign in.\n", email)
	return nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session for later commands",
	Long: `Login exchanges an email and password for a bearer token and stores it in
the credentials directory. The password is read from --password or, when
that is empty, from the first line of standard input.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}
	sess, err := newClient().Login(context.Background(), email, password)
	if err != nil {
		return err
	}
	if err := session.Persist(credentialsDir(), sess); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exp := sess.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(out, "Logged in as %s (session valid until %s)\n", sess.Email(), exp.Local().Format("2006-01-02 15:04"))
		return nil
	}
	fmt.Fprintf(out, "Logged in as %s\n", sess.Email())
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Clear(credentialsDir()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

// credentials reads --email and --password, falling back to stdin for the
// password.
func credentials(cmd *cobra.Command) (string, string, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", fmt.Errorf("--email is required")
	}
	if password == "" {
		p, err := readLine(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading password: %w", err)
		}
		password = p
	}
	if password == "" {
		return "", "", fmt.Errorf("a password is required (--password or stdin)")
	}
	return email, password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().String("email", "", "account email")
		c.Flags().String("password", "", "account password (read from stdin when empty)")
	}

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
