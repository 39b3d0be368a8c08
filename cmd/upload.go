package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/anoixa/image-shelf/internal/upload"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// uploadCmd 从命令行批量上传本地文件
var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload local image files",
	Long: `Upload local files into a user's library. Files are processed in order.
When a file name is already taken, --on-conflict decides; without it the
command asks interactively, or fails the item when stdin is not a terminal.

Example:
  image-shelf upload ./cat.png ./dog.jpg --user alice@example.com
  image-shelf upload ./*.png --user alice@example.com --on-conflict skip --access private`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetString("user")
		access, _ := cmd.Flags().GetString("access")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if err := runUpload(args, email, access, onConflict); err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringP("user", "u", "", "Owner email (empty uploads anonymously as public)")
	uploadCmd.Flags().String("access", "public", "Access type: public, private or shared")
	uploadCmd.Flags().String("on-conflict", "", "Name collision handling: overwrite or skip")
}

func runUpload(paths []string, email, accessFlag, onConflict string) error {
	access, ok := models.ParseAccessType(accessFlag, models.AccessPublic)
	if !ok {
		return fmt.Errorf("invalid access type %q", accessFlag)
	}
	resolution, ok := upload.ParseResolution(onConflict)
	if !ok {
		return fmt.Errorf("invalid --on-conflict value %q", onConflict)
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	owner, err := lookupOwner(ctx, container, email)
	if err != nil {
		return err
	}
	if owner == nil {
		access = models.AccessPublic
	}

	resolver := upload.StaticResolver(resolution)
	if resolution == upload.ResolutionNone && term.IsTerminal(int(os.Stdin.Fd())) {
		resolver = promptResolver()
	}

	sources := make([]upload.Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, upload.FileSource{Path: p})
	}

	orchestrator := container.NewOrchestrator(resolver, progressPrinter())
	items := orchestrator.Run(ctx, owner, sources, access)

	return printUploadSummary(container, items)
}

// lookupOwner 空 email 表示匿名上传
func lookupOwner(ctx context.Context, container *app.Container, email string) (*uint, error) {
	if email == "" {
		return nil, nil
	}
	user, err := container.AccountsRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return &user.ID, nil
}

// promptResolver 冲突时在终端询问
func promptResolver() upload.Resolver {
	return upload.ResolverFunc(func(ctx context.Context, c upload.Conflict) (upload.Resolution, error) {
		pterm.Warning.Printf("%s already exists (id=%d, %d bytes)\n", c.Name, c.Existing.ID, c.Existing.Size())
		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions([]string{string(upload.ResolutionOverwrite), string(upload.ResolutionSkip)}).
			WithDefaultText("Overwrite or skip?").
			Show()
		if err != nil {
			return upload.ResolutionNone, err
		}
		return upload.Resolution(choice), nil
	})
}

// progressPrinter 打印每个上传项的状态变化
func progressPrinter() upload.Observer {
	return upload.ObserverFunc(func(e upload.Event) {
		switch e.Type {
		case upload.EventState:
			switch e.Item.State {
			case upload.StateUploading:
				pterm.Info.Printf("[%d] %s uploading\n", e.Item.Index+1, e.Item.Name)
			case upload.StateError:
				pterm.Error.Printf("[%d] %s: %s\n", e.Item.Index+1, e.Item.Name, e.Item.Message())
			}
		case upload.EventResolved:
			pterm.Info.Printf("[%d] %s: %s\n", e.Item.Index+1, e.Item.Name, e.Resolution)
		}
	})
}

func printUploadSummary(container *app.Container, items []*upload.Item) error {
	data := pterm.TableData{{"#", "Name", "State", "URL / Error"}}

	failed := 0
	for _, it := range items {
		if it.Replaced != nil {
			container.Images.Invalidate(it.Replaced)
		}

		detail := it.Message()
		if it.State == upload.StateSuccess && it.Image != nil {
			detail = container.Images.PublicURL(it.Image)
		}
		if it.State == upload.StateError {
			failed++
		}
		data = append(data, []string{fmt.Sprint(it.Index + 1), it.Name, string(it.State), detail})
	}

	pterm.Println()
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}
