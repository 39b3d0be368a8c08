package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword 测试时替换，避免访问终端
var readPassword = term.ReadPassword

// userCmd 用户管理
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a user",
	Long: `Create a user account. The password is read from the terminal without echo.

Example:
  image-shelf user create alice@example.com --name Alice
  image-shelf user create root@example.com --admin`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		admin, _ := cmd.Flags().GetBool("admin")
		if err := runUserCreate(args[0], name, admin); err != nil {
			log.Fatalf("Create user failed: %v", err)
		}
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <email>",
	Short: "Set a user's password and revoke all sessions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runUserPasswd(args[0]); err != nil {
			log.Fatalf("Set password failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userPasswdCmd)

	userCreateCmd.Flags().String("name", "", "Display name (default: local part of the email)")
	userCreateCmd.Flags().Bool("admin", false, "Grant the admin role")
}

func runUserCreate(email, name string, admin bool) error {
	password, err := promptNewPassword(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}
	user, err := container.Identity.CreateUser(context.Background(), email, password, name, role)
	if err != nil {
		return err
	}
	pterm.Success.Printf("User %s created (id=%d, role=%s)\n", user.Email, user.ID, user.Role)
	return nil
}

func runUserPasswd(email string) error {
	password, err := promptNewPassword(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.Identity.SetPassword(context.Background(), email, password); err != nil {
		return err
	}
	pterm.Success.Printf("Password updated for %s, existing sessions revoked\n", email)
	return nil
}

// promptNewPassword 终端下不回显并要求确认，非终端时读取一行
func promptNewPassword(in *os.File, w io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	first, err := readSecret(fd, w, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := readSecret(fd, w, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func readSecret(fd int, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
