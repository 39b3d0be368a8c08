package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/anoixa/image-shelf/utils/format"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// lsCmd 按搜索、文件夹和排序列出用户的图片
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a user's images",
	Long: `List a user's images through the same filter, sort and paging rules as the web library.

Example:
  image-shelf ls --user alice@example.com
  image-shelf ls --user alice@example.com --search cat --sort size --dir asc
  image-shelf ls --user alice@example.com --folder 3 --page 2`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := lsOptions{}
		opts.email, _ = cmd.Flags().GetString("user")
		opts.search, _ = cmd.Flags().GetString("search")
		opts.sortField, _ = cmd.Flags().GetString("sort")
		opts.sortDir, _ = cmd.Flags().GetString("dir")
		opts.folder, _ = cmd.Flags().GetUint("folder")
		opts.page, _ = cmd.Flags().GetInt("page")
		opts.pageSize, _ = cmd.Flags().GetInt("page-size")

		if err := runLs(opts); err != nil {
			log.Fatalf("List failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringP("user", "u", "", "Owner email")
	lsCmd.Flags().StringP("search", "s", "", "Case-insensitive name filter")
	lsCmd.Flags().String("sort", string(library.SortByDate), "Sort field: name, date, size or mimeType")
	lsCmd.Flags().String("dir", string(library.SortDesc), "Sort direction: asc or desc")
	lsCmd.Flags().Uint("folder", 0, "Only images in this folder")
	lsCmd.Flags().Int("page", 1, "Page number")
	lsCmd.Flags().Int("page-size", library.DefaultPageSize, "Items per page")
	_ = lsCmd.MarkFlagRequired("user")
}

type lsOptions struct {
	email     string
	search    string
	sortField string
	sortDir   string
	folder    uint
	page      int
	pageSize  int
}

// viewState 命令行参数转换为视图状态
func (o lsOptions) viewState() (library.ViewState, error) {
	view := library.DefaultViewState()
	view.Search = o.search
	view.SortField = library.SortField(o.sortField)
	view.SortDir = library.SortDir(o.sortDir)
	if !view.SortField.Valid() {
		return view, fmt.Errorf("invalid sort field %q", o.sortField)
	}
	if !view.SortDir.Valid() {
		return view, fmt.Errorf("invalid sort direction %q", o.sortDir)
	}
	if o.folder != 0 {
		folder := o.folder
		view.FolderID = &folder
	}
	view.Page = o.page
	view.PageSize = o.pageSize
	return view, nil
}

func runLs(opts lsOptions) error {
	view, err := opts.viewState()
	if err != nil {
		return err
	}

	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := context.Background()
	user, err := container.AccountsRepo.GetUserByEmail(ctx, opts.email)
	if err != nil {
		return fmt.Errorf("user %s: %w", opts.email, err)
	}

	ws := container.NewWorkspace(user.ID, view)
	if err := ws.Reload(ctx); err != nil {
		return err
	}
	page, err := ws.Visible(ctx)
	if err != nil {
		return err
	}

	renderImageTable(page)
	return nil
}

func renderImageTable(page library.Page) {
	data := pterm.TableData{{"ID", "Name", "Size", "Type", "Access", "Uploaded"}}
	for _, img := range page.Items {
		data = append(data, imageRow(img))
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printf("Page %d/%d, %d images\n", page.Page, page.TotalPages, page.Total)
}

func imageRow(img *models.Image) []string {
	return []string{
		fmt.Sprint(img.ID),
		img.OriginalName,
		format.OptionalSize(img.FileSize),
		img.Mime(),
		string(img.AccessType),
		img.UploadedAt.Format("2006-01-02 15:04"),
	}
}
