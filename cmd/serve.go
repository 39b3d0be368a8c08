package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anoixa/image-shelf/api/core"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/anoixa/image-shelf/utils"
	"github.com/spf13/cobra"
)

const (
	sessionCleanupInterval = time.Hour
	tempFileMaxAge         = 24 * time.Hour
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	container, err := openContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	cfg := container.GetConfig()

	if err := container.Identity.EnsureDefaultAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create default admin: %v", err)
	}

	// 启动时清理残留临时文件
	utils.SafeGo("temp-cleanup", func() { cleanOldTempFiles(cfg.TempDir(), tempFileMaxAge) })

	ctx, stopJobs := context.WithCancel(context.Background())
	utils.SafeGo("session-cleanup", func() { startSessionCleanup(ctx, container) })

	server, cleanup := core.StartServer(container)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopJobs()
	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// 先停 HTTP 再关闭容器，进行中的请求还在使用数据库
	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	log.Println("Server exited successfully")
}

// startSessionCleanup 定期删除过期的刷新会话
func startSessionCleanup(ctx context.Context, container *app.Container) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := container.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Printf("[Auth] Failed to clean expired sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[Auth] Removed %d expired sessions", n)
			}
		}
	}
}

// cleanOldTempFiles 清理超过 maxAge 的临时文件
func cleanOldTempFiles(tempDir string, maxAge time.Duration) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read temp directory: %v", err)
		}
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(tempDir, entry.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to remove old temp file %s: %v", path, err)
			}
		}
	}
}
