package cmd

import (
	"fmt"
	"os"

	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/spf13/viper"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "image-shelf",
	Short: "A personal image library with folders, short links and URL imports",
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/image-shelf/.env)")
	err := viper.BindPFlag("config_file_path", rootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		return
	}
}

// openContainer 命令行工具共用的初始化：读取配置、建表、初始化全部服务
func openContainer() (*app.Container, error) {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll(cfg.TempDir(), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	container := app.NewContainer(cfg)
	if err := container.InitDatabase(); err != nil {
		return nil, err
	}
	if err := container.GetDatabaseFactory().AutoMigrate(); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to auto migrate database: %w", err)
	}
	if err := container.InitServices(); err != nil {
		_ = container.Close()
		return nil, err
	}
	return container, nil
}
