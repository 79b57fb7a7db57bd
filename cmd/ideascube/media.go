package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ideascube/ideascube-sub000/internal/dto"
)

func runImportMedias(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("import-medias", flag.ContinueOnError)
	update := fs.Bool("update", false, "覆盖同标题同类型的已有文档")
	dryRun := fs.Bool("dry-run", false, "只校验元数据，不保存")
	encoding := fs.String("encoding", "", "CSV 文件编码，默认 utf-8")
	verbosity := fs.Int("verbosity", 1, "报告详细程度 0-3")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageError("expected exactly one metadata file")
	}

	report, err := e.svc.Import.ImportMedias(ctx, &dto.ImportMediasRequest{
		Path:     pos[0],
		Encoding: *encoding,
		Update:   *update,
		DryRun:   *dryRun,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(e.out, report.Render(*verbosity))
	if report.HasErrors() {
		return errSilent
	}
	return nil
}
