package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/storage"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const cleanBatchSize = 200

// cleanCmd 清理数据库孤儿记录和临时文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean orphan database records and temp files",
	Long: `Clean orphan database records and temp files.
This includes:
  - Delete image records whose stored object is missing
  - Delete local storage files without a matching image record
  - Clean temp folder files`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		tempOnly, _ := cmd.Flags().GetBool("temp-only")
		dbOnly, _ := cmd.Flags().GetBool("db-only")
		storageOnly, _ := cmd.Flags().GetBool("storage-only")
		workers, _ := cmd.Flags().GetInt("workers")

		if err := runClean(dryRun, tempOnly, dbOnly, storageOnly, workers); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Bool("temp-only", false, "Only clean temp files")
	cleanCmd.Flags().Bool("db-only", false, "Only clean orphan database records")
	cleanCmd.Flags().Bool("storage-only", false, "Only clean orphan storage files")
	cleanCmd.Flags().Int("workers", 8, "Concurrent storage existence checks")
}

// cleanStats 清理统计信息
type cleanStats struct {
	mu sync.Mutex

	orphanDBRecords     int // 数据库孤儿记录数
	orphanStorageFiles  int // 存储孤儿文件数
	deletedTempFiles    int // 删除的临时文件数
	deletedDBRecords    int // 删除的数据库记录数
	deletedStorageFiles int // 删除的存储文件数
	errors              []string
}

func (s *cleanStats) addError(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, fmt.Sprintf(format, args...))
}

// cleaner 孤儿记录和孤儿文件清理
type cleaner struct {
	images  *images.Repository
	blobs   *storage.Factory
	workers int
	dryRun  bool
	stats   *cleanStats
}

// runClean 执行清理
func runClean(dryRun, tempOnly, dbOnly, storageOnly bool, workers int) error {
	container, err := openContainer()
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Close()

	c := &cleaner{
		images:  container.ImagesRepo,
		blobs:   container.GetStorageFactory(),
		workers: workers,
		dryRun:  dryRun,
		stats:   &cleanStats{},
	}
	ctx := context.Background()

	if !tempOnly && !storageOnly {
		if err := c.cleanOrphanRecords(ctx); err != nil {
			c.stats.addError("clean orphan DB records failed: %v", err)
		}
	}

	if !tempOnly && !dbOnly {
		if err := c.cleanOrphanFiles(ctx); err != nil {
			c.stats.addError("clean orphan storage files failed: %v", err)
		}
	}

	if !dbOnly && !storageOnly {
		if err := c.cleanTempFiles(container.GetConfig().TempDir()); err != nil {
			c.stats.addError("clean temp files failed: %v", err)
		}
	}

	printCleanStats(c.stats, dryRun)

	if len(c.stats.errors) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup", len(c.stats.errors))
	}
	return nil
}

// cleanOrphanRecords 删除存储对象已丢失的图片记录，连同文件夹关联
func (c *cleaner) cleanOrphanRecords(ctx context.Context) error {
	log.Println("[Clean] Checking for orphan database records...")

	workers := c.workers
	if workers <= 0 {
		workers = 1
	}
	pool := pond.NewPool(workers, pond.WithContext(ctx))

	var (
		mu        sync.Mutex
		orphanIDs []uint
	)
	err := c.images.FindInBatches(ctx, cleanBatchSize, func(batch []*models.Image) error {
		for _, p := range batch {
			img := *p
			pool.Submit(func() {
				provider, err := c.blobs.Get(img.StorageDriver)
				if err != nil {
					log.Printf("[Clean] Unknown storage driver '%s' for image %s", img.StorageDriver, img.Filename)
					return
				}
				exists, err := provider.Exists(ctx, img.Filename)
				if err != nil {
					c.stats.addError("check %s: %v", img.Filename, err)
					return
				}
				if exists {
					return
				}
				if c.dryRun {
					log.Printf("[DRY-RUN] Would delete orphan DB record: ID=%d, Filename=%s", img.ID, img.Filename)
				}
				mu.Lock()
				orphanIDs = append(orphanIDs, img.ID)
				mu.Unlock()
			})
		}
		return nil
	})
	pool.StopAndWait()
	if err != nil {
		return fmt.Errorf("failed to scan images: %w", err)
	}

	c.stats.orphanDBRecords = len(orphanIDs)
	if c.dryRun || len(orphanIDs) == 0 {
		return nil
	}

	if err := c.images.DeleteByIDs(ctx, orphanIDs); err != nil {
		return fmt.Errorf("failed to delete orphan images: %w", err)
	}
	c.stats.deletedDBRecords = len(orphanIDs)
	log.Printf("[Clean] Deleted %d orphan database records", len(orphanIDs))
	return nil
}

// cleanOrphanFiles 删除本地存储中没有记录引用的文件，远程存储不做全量扫描
func (c *cleaner) cleanOrphanFiles(ctx context.Context) error {
	log.Println("[Clean] Checking for orphan storage files...")

	provider, err := c.blobs.Get("local")
	if err != nil {
		log.Printf("[Clean] Local storage not configured, skipping orphan file detection")
		return nil
	}
	local, ok := provider.(*storage.LocalStorage)
	if !ok {
		return nil
	}

	known := make(map[string]struct{})
	err = c.images.FindInBatches(ctx, cleanBatchSize, func(batch []*models.Image) error {
		for _, img := range batch {
			if img.StorageDriver == local.Name() {
				known[img.Filename] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fetch image filenames: %w", err)
	}

	entries, err := os.ReadDir(local.BasePath())
	if err != nil {
		return fmt.Errorf("failed to read storage directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		// 写入中的临时文件
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := known[name]; ok {
			continue
		}

		c.stats.orphanStorageFiles++
		if c.dryRun {
			log.Printf("[DRY-RUN] Would delete orphan file: %s", name)
			continue
		}
		if err := local.DeleteWithContext(ctx, name); err != nil {
			log.Printf("[Clean] Failed to delete orphan file %s: %v", name, err)
			continue
		}
		c.stats.deletedStorageFiles++
		log.Printf("[Clean] Deleted orphan file: %s", name)
	}
	return nil
}

// cleanTempFiles 清理临时文件
func (c *cleaner) cleanTempFiles(tempDir string) error {
	log.Println("[Clean] Checking for temp files...")

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("[Clean] Temp directory does not exist, skipping...")
			return nil
		}
		return fmt.Errorf("failed to read temp directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if c.dryRun {
			log.Printf("[DRY-RUN] Would delete temp file: %s", entry.Name())
			continue
		}
		if err := os.Remove(filepath.Join(tempDir, entry.Name())); err != nil {
			log.Printf("[Clean] Failed to delete temp file %s: %v", entry.Name(), err)
			continue
		}
		c.stats.deletedTempFiles++
	}
	return nil
}

// printCleanStats 打印清理统计
func printCleanStats(stats *cleanStats, dryRun bool) {
	pterm.Println()
	title := "Clean Statistics"
	if dryRun {
		title += " [DRY RUN]"
	}
	pterm.DefaultSection.Println(title)

	_ = pterm.DefaultTable.WithBoxed().WithData(pterm.TableData{
		{"Orphan DB records found", fmt.Sprint(stats.orphanDBRecords)},
		{"Orphan storage files found", fmt.Sprint(stats.orphanStorageFiles)},
		{"DB records deleted", fmt.Sprint(stats.deletedDBRecords)},
		{"Storage files deleted", fmt.Sprint(stats.deletedStorageFiles)},
		{"Temp files deleted", fmt.Sprint(stats.deletedTempFiles)},
	}).Render()

	if len(stats.errors) > 0 {
		pterm.Error.Println("Errors encountered:")
		for _, err := range stats.errors {
			pterm.Printf("  - %s\n", err)
		}
	}
}
